package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var showDir string

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a design session's metadata and current wireframe",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showDir, "directory", "", "Project directory to load config from")
}

func runShow(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(showDir)
	if err != nil {
		return err
	}

	ctx := context.Background()
	mgr, err := buildManager(ctx, workDir)
	if err != nil {
		return err
	}

	view, err := mgr.GetSession(ctx, args[0])
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
