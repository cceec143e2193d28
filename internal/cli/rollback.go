package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vietddude/luna/internal/ui"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <run-id>",
	Short: "Remove the directories a previous run created",
	Args:  cobra.ExactArgs(1),
	RunE:  runRollback,
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(app)

	id := args[0]
	if !assumeYes && ui.Interactive() {
		if !ui.Confirm(fmt.Sprintf("Roll back run %s?", id), "Directories created by that run will be deleted.") {
			slog.Info("Rollback cancelled")
			return nil
		}
	}

	run, rec, err := app.Rollback(ctx, id)
	if run != nil {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), ui.Summary(run, rec))
	}
	if err != nil {
		slog.Error("Rollback failed", "run_id", id, "error", err)
		return &reportedError{err: err}
	}
	return nil
}
