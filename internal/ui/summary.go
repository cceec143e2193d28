package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vietddude/luna/internal/core/cleanup"
	"github.com/vietddude/luna/internal/core/domain"
	"github.com/vietddude/luna/internal/core/ledger"
)

// Summary renders the end-of-run report: one row per category, the overall
// success ratio, then errors, warnings and the cleanup record if any.
func Summary(run *domain.Run, rec *cleanup.Record) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Luna setup %s", run.Status)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("run " + run.ID))
	b.WriteString("\n\n")

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers("CATEGORY", "OK", "FAILED").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, tally := range ledger.FromRun(run).Counts() {
		if tally.Succeeded == 0 && tally.Failed == 0 {
			continue
		}
		failed := strconv.Itoa(tally.Failed)
		if tally.Failed > 0 {
			failed = failStyle.Render(failed)
		}
		t.Row(string(tally.Category), okStyle.Render(strconv.Itoa(tally.Succeeded)), failed)
	}
	b.WriteString(t.String())
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Success rate: %s\n", ratioStyle(run.SuccessRatio).Render(Percent(run.SuccessRatio))))

	writeList(&b, "Errors", failStyle, run.Errors)
	writeList(&b, "Warnings", warnStyle, run.Warnings)

	if rec != nil {
		b.WriteString(fmt.Sprintf("\nCleanup: %d removed, %d failed, %d already gone (%s)\n",
			rec.Succeeded, rec.Failed, len(rec.Absent), Percent(rec.SuccessRatio())))
		writeList(&b, "Cleanup failed", failStyle, rec.FailedTargets)
		writeList(&b, "Cleanup warnings", warnStyle, rec.Warnings)
	}
	return b.String()
}

// Percent formats a ratio in [0,1] as a percentage with one decimal.
func Percent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

func ratioStyle(ratio float64) lipgloss.Style {
	switch {
	case ratio >= 1:
		return okStyle
	case ratio >= 0.5:
		return warnStyle
	default:
		return failStyle
	}
}

func writeList(b *strings.Builder, title string, style lipgloss.Style, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(style.Render(fmt.Sprintf("%s (%d):", title, len(items))))
	b.WriteString("\n")
	for _, item := range items {
		b.WriteString("  - ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}
