package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vietddude/luna/internal/core/domain"
)

// Extract unpacks the zip at src into destDir and returns the written paths.
// With flatten every file lands directly in destDir and directory entries are
// dropped. Entries that would escape destDir are rejected.
func Extract(src, destDir string, flatten bool) ([]string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, domain.NewError(domain.KindFile, "extract", src, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, domain.NewError(domain.KindFile, "extract", destDir, err)
	}

	var written []string
	for _, f := range r.File {
		name := f.Name
		if f.FileInfo().IsDir() {
			if flatten {
				continue
			}
		} else if flatten {
			name = path.Base(name)
		}

		target, err := safeJoin(destDir, name)
		if err != nil {
			return written, domain.NewError(domain.KindFile, "extract", src, err)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return written, domain.NewError(domain.KindFile, "extract", target, err)
			}
			continue
		}

		if err := writeEntry(f, target); err != nil {
			return written, domain.NewError(domain.KindFile, "extract", target, err)
		}
		written = append(written, target)
	}

	if len(written) == 0 {
		return nil, domain.NewError(domain.KindFile, "extract", src, domain.ErrEmptyArchive)
	}
	return written, nil
}

func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("illegal entry path %q", name)
	}
	return target, nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
