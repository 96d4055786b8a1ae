package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var historyDir string

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "List a design session's committed versions",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyDir, "directory", "", "Project directory to load config from")
}

func runHistory(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(historyDir)
	if err != nil {
		return err
	}

	ctx := context.Background()
	mgr, err := buildManager(ctx, workDir)
	if err != nil {
		return err
	}

	entries, err := mgr.GetHistory(ctx, args[0])
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
