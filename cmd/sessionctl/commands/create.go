package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	createUserID string
	createDir    string
)

var createCmd = &cobra.Command{
	Use:   "create [prompt...]",
	Short: "Create a new design session from a prompt",
	Long: `Create a new design session: an LLM generates an initial wireframe
from prompt, and the session is persisted as version 1.

Example:
  sessionctl create "a login form with email and password fields"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createUserID, "user-id", "", "Owning user ID")
	createCmd.Flags().StringVar(&createDir, "directory", "", "Project directory to load config from")
}

func runCreate(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(createDir)
	if err != nil {
		return err
	}

	ctx := context.Background()
	mgr, err := buildManager(ctx, workDir)
	if err != nil {
		return err
	}

	prompt := strings.Join(args, " ")
	result, err := mgr.CreateSession(ctx, createUserID, prompt)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
