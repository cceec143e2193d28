package ui

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/vietddude/luna/internal/core/retry"
)

// Interactive reports whether stdin is a terminal.
func Interactive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Confirm asks a yes/no question. A closed or aborted prompt counts as no.
func Confirm(title, description string) bool {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		slog.Debug("Prompt closed", "error", err)
		return false
	}
	return ok
}

// RetryConfirm returns the confirmation used before each retry. With
// assumeYes, or when stdin is not a terminal, it returns nil and retries
// proceed without asking.
func RetryConfirm(assumeYes bool) retry.ConfirmFunc {
	if assumeYes || !Interactive() {
		return nil
	}
	return func(attempt int, err error) bool {
		return Confirm(
			fmt.Sprintf("Attempt %d failed. Retry?", attempt-1),
			err.Error(),
		)
	}
}
