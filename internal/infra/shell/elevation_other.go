//go:build !windows

package shell

import (
	"fmt"
	"os"

	"github.com/vietddude/luna/internal/core/domain"
)

// IsElevated reports whether the process runs as root. Elevation is a
// Windows concept, so the answer comes with a platform error.
func IsElevated() (bool, error) {
	return os.Geteuid() == 0, fmt.Errorf("elevation check: %w", domain.ErrUnsupported)
}
