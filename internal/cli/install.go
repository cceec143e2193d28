package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vietddude/luna/internal/core/domain"
	"github.com/vietddude/luna/internal/ui"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install Luna and migrate existing GreenLuma and Koalageddon setups",
	RunE:  runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to every prompt")
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(app)

	report, err := app.Install(ctx, ui.RetryConfirm(assumeYes))
	if err != nil && domain.KindOf(err) == domain.KindPrivilege {
		slog.Error("Administrator privileges required, run Luna from an elevated prompt", "error", err)
		return &reportedError{err: err}
	}

	if report != nil {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), ui.Summary(report.Run, report.Cleanup))
	}
	if err != nil {
		slog.Error("Luna setup failed", "kind", domain.KindOf(err), "error", err)
		return &reportedError{err: err}
	}
	return nil
}
