package domain

import "time"

// Category groups outcomes of the same kind of installer operation.
type Category string

const (
	CategoryDirectories Category = "directories"
	CategoryDownloads   Category = "downloads"
	CategoryExtraction  Category = "extraction"
	CategoryConfigs     Category = "configs"
	CategoryExclusions  Category = "exclusions"
	CategoryShortcuts   Category = "shortcuts"
)

// Categories lists the categories in the order the installer runs them.
var Categories = []Category{
	CategoryDirectories,
	CategoryDownloads,
	CategoryExtraction,
	CategoryConfigs,
	CategoryExclusions,
	CategoryShortcuts,
}

// MsgAlreadyExists marks a directory outcome for a path that existed before the run.
// Cleanup never removes such directories.
const MsgAlreadyExists = "already exists"

// Outcome is the record of one completed operation. It is never modified after
// being appended to a ledger.
type Outcome struct {
	Category  Category  `json:"category"`
	Target    string    `json:"target"`
	Succeeded bool      `json:"succeeded"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// Created reports whether the outcome represents a directory this run created.
func (o Outcome) Created() bool {
	return o.Succeeded && o.Message != MsgAlreadyExists
}
