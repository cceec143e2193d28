package shell

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/vietddude/luna/internal/core/domain"
)

// Defender manages Windows Defender exclusions through PowerShell.
type Defender struct {
	runner Runner
	goos   string
}

func NewDefender(runner Runner) *Defender {
	return &Defender{runner: runner, goos: runtime.GOOS}
}

// AddExclusion excludes path from Defender scanning.
func (d *Defender) AddExclusion(ctx context.Context, path string) error {
	if d.goos != "windows" {
		return domain.NewError(domain.KindPlatform, "defender exclusion", path, domain.ErrUnsupported)
	}
	script := fmt.Sprintf("Add-MpPreference -ExclusionPath %s", QuotePS(path))
	if _, err := PowerShell(ctx, d.runner, script); err != nil {
		return domain.NewError(classifyPSError(err), "defender exclusion", path, err)
	}
	return nil
}

// HasExclusion reports whether path is already excluded.
func (d *Defender) HasExclusion(ctx context.Context, path string) (bool, error) {
	if d.goos != "windows" {
		return false, domain.NewError(domain.KindPlatform, "defender exclusion", path, domain.ErrUnsupported)
	}
	res, err := PowerShell(ctx, d.runner, "(Get-MpPreference).ExclusionPath")
	if err != nil {
		return false, domain.NewError(classifyPSError(err), "defender exclusion", path, err)
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		if strings.EqualFold(strings.TrimSpace(line), path) {
			return true, nil
		}
	}
	return false, nil
}

// classifyPSError maps PowerShell failures to error kinds. Defender cmdlets
// fail with an access-denied HRESULT when not elevated.
func classifyPSError(err error) domain.ErrorKind {
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "0x80070005") || strings.Contains(s, "access is denied") ||
		strings.Contains(s, "permission denied") {
		return domain.KindPrivilege
	}
	if strings.Contains(s, "executable file not found") || strings.Contains(s, "is not recognized") {
		return domain.KindPlatform
	}
	return domain.KindRecoverable
}
