package ledger

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/vietddude/luna/internal/core/domain"
)

// Reporter is the capability installer components use to report what happened.
type Reporter interface {
	RecordOutcome(category domain.Category, target string, succeeded bool, message string)
	Warn(text string)
	Error(text string)
}

// Ledger accumulates the outcomes of one installer run.
// All methods are safe for concurrent use.
type Ledger struct {
	mu        sync.Mutex
	outcomes  map[domain.Category][]domain.Outcome
	errors    []string
	warnings  []string
	startedAt time.Time
	endedAt   time.Time
	now       func() time.Time
}

// New creates a ledger and stamps its start time.
func New() *Ledger {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Ledger {
	return &Ledger{
		outcomes:  make(map[domain.Category][]domain.Outcome),
		startedAt: now(),
		now:       now,
	}
}

// FromRun rebuilds a finished ledger from a persisted run.
func FromRun(run *domain.Run) *Ledger {
	l := New()
	l.startedAt = run.StartedAt
	l.endedAt = run.EndedAt
	for _, o := range run.Outcomes {
		l.outcomes[o.Category] = append(l.outcomes[o.Category], o)
	}
	l.errors = append(l.errors, run.Errors...)
	l.warnings = append(l.warnings, run.Warnings...)
	return l
}

// RecordOutcome appends an outcome. Outcomes without a category are dropped.
func (l *Ledger) RecordOutcome(category domain.Category, target string, succeeded bool, message string) {
	if category == "" {
		slog.Warn("Dropping outcome without category", "target", target)
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outcomes[category] = append(l.outcomes[category], domain.Outcome{
		Category:  category,
		Target:    target,
		Succeeded: succeeded,
		Message:   message,
		At:        l.now(),
	})
}

func (l *Ledger) AddError(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, text)
}

func (l *Ledger) AddWarning(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, text)
}

// Warn implements Reporter.
func (l *Ledger) Warn(text string) { l.AddWarning(text) }

// Error implements Reporter.
func (l *Ledger) Error(text string) { l.AddError(text) }

// SuccessRatio returns succeeded/total across every category, or 1 when
// nothing has been recorded.
func (l *Ledger) SuccessRatio() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ok, total int
	for _, list := range l.outcomes {
		for _, o := range list {
			total++
			if o.Succeeded {
				ok++
			}
		}
	}
	return Ratio(ok, total)
}

// Ratio is the shared success ratio rule: ok/total, vacuously 1.
func Ratio(ok, total int) float64 {
	if total == 0 {
		return 1.0
	}
	return float64(ok) / float64(total)
}

func (l *Ledger) HasErrors() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors) > 0
}

func (l *Ledger) HasWarnings() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warnings) > 0
}

// Outcomes returns a copy of the outcomes recorded for category, oldest first.
func (l *Ledger) Outcomes(category domain.Category) []domain.Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Outcome(nil), l.outcomes[category]...)
}

func (l *Ledger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

func (l *Ledger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warnings...)
}

// Tally holds per-category counts.
type Tally struct {
	Category  domain.Category
	Succeeded int
	Failed    int
}

// Counts returns one tally per known category plus any extra categories
// that were recorded, in a stable order.
func (l *Ledger) Counts() []Tally {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[domain.Category]bool, len(l.outcomes))
	tallies := make([]Tally, 0, len(domain.Categories))
	add := func(c domain.Category) {
		t := Tally{Category: c}
		for _, o := range l.outcomes[c] {
			if o.Succeeded {
				t.Succeeded++
			} else {
				t.Failed++
			}
		}
		seen[c] = true
		tallies = append(tallies, t)
	}
	for _, c := range domain.Categories {
		add(c)
	}
	for _, c := range l.extraCategories() {
		if !seen[c] {
			add(c)
		}
	}
	return tallies
}

// Finish stamps the end time. Later calls keep the first timestamp.
func (l *Ledger) Finish() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.endedAt.IsZero() {
		l.endedAt = l.now()
	}
}

func (l *Ledger) StartedAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.startedAt
}

func (l *Ledger) EndedAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.endedAt
}

// Snapshot copies the ledger into a run record with the given id and status.
func (l *Ledger) Snapshot(id string, status domain.RunStatus) *domain.Run {
	ratio := l.SuccessRatio()

	l.mu.Lock()
	defer l.mu.Unlock()

	run := &domain.Run{
		ID:           id,
		Status:       status,
		SuccessRatio: ratio,
		Errors:       append([]string(nil), l.errors...),
		Warnings:     append([]string(nil), l.warnings...),
		StartedAt:    l.startedAt,
		EndedAt:      l.endedAt,
	}
	for _, c := range domain.Categories {
		run.Outcomes = append(run.Outcomes, l.outcomes[c]...)
	}
	for _, c := range l.extraCategories() {
		run.Outcomes = append(run.Outcomes, l.outcomes[c]...)
	}
	return run
}

// extraCategories returns recorded categories outside domain.Categories, sorted.
// Callers hold l.mu.
func (l *Ledger) extraCategories() []domain.Category {
	var extra []domain.Category
	for c := range l.outcomes {
		if !slices.Contains(domain.Categories, c) {
			extra = append(extra, c)
		}
	}
	slices.Sort(extra)
	return extra
}
