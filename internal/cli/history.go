package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/luna/internal/ui"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past installer runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than storage.retention",
	Args:  cobra.NoArgs,
	RunE:  runPrune,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show (0 = all)")
	historyCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(app)

	n, err := app.Prune(ctx)
	if err != nil {
		return fmt.Errorf("failed to prune runs: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d runs\n", n)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(app)

	runs, err := app.History(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tSTARTED\tSTATUS\tOK\tFAILED\tSUCCESS\tHOST")
	for _, run := range runs {
		ok, failed := run.Count()
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Status,
			ok,
			failed,
			ui.Percent(run.SuccessRatio),
			run.Host,
		)
	}
	return w.Flush()
}
