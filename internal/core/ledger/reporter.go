package ledger

import (
	"log/slog"

	"github.com/vietddude/luna/internal/core/domain"
)

// Observer is notified of every outcome a LoggingReporter forwards.
type Observer func(category domain.Category, succeeded bool)

// LoggingReporter forwards to another Reporter and logs each call.
type LoggingReporter struct {
	next     Reporter
	log      *slog.Logger
	observer Observer
}

// NewLoggingReporter wraps next. A nil logger uses slog.Default().
func NewLoggingReporter(next Reporter, log *slog.Logger, observer Observer) *LoggingReporter {
	if log == nil {
		log = slog.Default()
	}
	return &LoggingReporter{next: next, log: log, observer: observer}
}

func (r *LoggingReporter) RecordOutcome(category domain.Category, target string, succeeded bool, message string) {
	if succeeded {
		r.log.Info("Operation succeeded", "category", category, "target", target, "message", message)
	} else {
		r.log.Error("Operation failed", "category", category, "target", target, "error", message)
	}
	if r.observer != nil {
		r.observer(category, succeeded)
	}
	r.next.RecordOutcome(category, target, succeeded, message)
}

func (r *LoggingReporter) Warn(text string) {
	r.log.Warn(text)
	r.next.Warn(text)
}

func (r *LoggingReporter) Error(text string) {
	r.log.Error(text)
	r.next.Error(text)
}
