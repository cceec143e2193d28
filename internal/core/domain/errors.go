package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies failures by how the installer reacts to them.
type ErrorKind string

const (
	// KindPrivilege: elevation required or denied. Aborts the run.
	KindPrivilege ErrorKind = "privilege"
	// KindNetwork: download or connection failure. Retried.
	KindNetwork ErrorKind = "network"
	// KindFile: a single file operation failed.
	KindFile ErrorKind = "file"
	// KindConfig: configuration could not be read, parsed or patched.
	KindConfig ErrorKind = "config"
	// KindPlatform: feature unsupported on this OS. Degrades to a warning.
	KindPlatform ErrorKind = "platform"
	// KindRecoverable: any other step failure the run can continue past.
	KindRecoverable ErrorKind = "recoverable"
	// KindInterrupted: the run context was cancelled.
	KindInterrupted ErrorKind = "interrupted"
)

// Fatal reports whether failures of this kind abort the whole run.
func (k ErrorKind) Fatal() bool {
	return k == KindPrivilege || k == KindInterrupted
}

var (
	ErrNotElevated  = errors.New("administrator privileges required")
	ErrUnsupported  = errors.New("not supported on this platform")
	ErrRunNotFound  = errors.New("run not found")
	ErrEmptyArchive = errors.New("archive contains no files")
)

// Error is a classified installer error.
type Error struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error.
func NewError(kind ErrorKind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
// Unclassified errors are recoverable.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return KindInterrupted
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrNotElevated) {
		return KindPrivilege
	}
	if errors.Is(err, ErrUnsupported) {
		return KindPlatform
	}
	return KindRecoverable
}
