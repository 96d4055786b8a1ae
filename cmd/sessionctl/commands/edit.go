package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var editDir string

var editCmd = &cobra.Command{
	Use:   "edit <session-id> [edit-prompt...]",
	Short: "Apply an edit to an existing design session",
	Long: `Apply a natural-language edit to a design session's current version,
committing a new version unless the edit needs clarification.

Example:
  sessionctl edit a1b2c3 "make the submit button larger"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editDir, "directory", "", "Project directory to load config from")
}

func runEdit(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(editDir)
	if err != nil {
		return err
	}

	ctx := context.Background()
	mgr, err := buildManager(ctx, workDir)
	if err != nil {
		return err
	}

	sessionID := args[0]
	prompt := strings.Join(args[1:], " ")
	result, err := mgr.ApplyEdit(ctx, sessionID, prompt)
	if err != nil {
		return err
	}

	if result.NeedsClarification {
		fmt.Println("needs clarification, candidates:")
		for _, c := range result.Candidates {
			fmt.Printf("  - %s (%s) %s\n", c.Identifier, c.Type, c.ComponentName)
		}
		return nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
