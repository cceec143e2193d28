package cli

import (
	"github.com/vietddude/luna/internal/core/domain"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitGeneric     = 1
	ExitPrivilege   = 2
	ExitNetwork     = 3
	ExitFile        = 4
	ExitConfig      = 5
	ExitInterrupted = 130
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch domain.KindOf(err) {
	case domain.KindPrivilege:
		return ExitPrivilege
	case domain.KindNetwork:
		return ExitNetwork
	case domain.KindFile:
		return ExitFile
	case domain.KindConfig:
		return ExitConfig
	case domain.KindInterrupted:
		return ExitInterrupted
	default:
		return ExitGeneric
	}
}
