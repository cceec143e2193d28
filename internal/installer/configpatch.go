package installer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/vietddude/luna/internal/core/domain"
)

// PatchINI sets KEY=value lines. Existing keys are matched case-insensitively
// outside comments and keep their spelling; missing keys are appended in
// sorted order. Other lines pass through unchanged whatever their length.
// Line endings follow the input.
func PatchINI(data []byte, settings map[string]string) []byte {
	eol := "\n"
	if bytes.Contains(data, []byte("\r\n")) {
		eol = "\r\n"
	}

	lines := strings.Split(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	applied := make(map[string]bool, len(settings))
	out := make([]string, 0, len(lines)+len(settings))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		out = append(out, patchINILine(line, settings, applied))
	}

	keys := make([]string, 0, len(settings))
	for k := range settings {
		if !applied[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		out = append(out, k+"="+settings[k])
	}

	if len(out) == 0 {
		return nil
	}
	return []byte(strings.Join(out, eol) + eol)
}

func patchINILine(line string, settings map[string]string, applied map[string]bool) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || trimmed[0] == ';' || trimmed[0] == '#' || trimmed[0] == '[' {
		return line
	}
	name, _, ok := strings.Cut(line, "=")
	if !ok {
		return line
	}
	name = strings.TrimSpace(name)
	for k, v := range settings {
		if strings.EqualFold(k, name) {
			applied[k] = true
			return name + "=" + v
		}
	}
	return line
}

// PatchJSONC sets keys in a JSON document that may contain comments and
// trailing commas, keeping them intact. A dotted key addresses nested
// objects, which are created when missing. Values must be JSON scalars.
func PatchJSONC(data []byte, settings map[string]interface{}) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}
	v, err := hujson.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		raw, err := scalarJSON(settings[key])
		if err != nil {
			return nil, fmt.Errorf("setting %q: %w", key, err)
		}

		segments := strings.Split(key, ".")
		var ptr string
		for n, seg := range segments {
			ptr += "/" + escapePointer(seg)
			if n == len(segments)-1 {
				break
			}
			if v.Find(ptr) == nil {
				if err := v.Patch(jsonPatch("add", ptr, json.RawMessage("{}"))); err != nil {
					return nil, fmt.Errorf("setting %q: %w", key, err)
				}
			}
		}
		if err := v.Patch(jsonPatch("add", ptr, raw)); err != nil {
			return nil, fmt.Errorf("setting %q: %w", key, err)
		}
	}

	v.Format()
	return v.Pack(), nil
}

func scalarJSON(value interface{}) (json.RawMessage, error) {
	switch value.(type) {
	case nil, bool, string, int, int64, uint64, float64:
	default:
		return nil, fmt.Errorf("unsupported value type %T", value)
	}
	return json.Marshal(value)
}

type patchOp struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

func jsonPatch(op, path string, value json.RawMessage) []byte {
	b, _ := json.Marshal([]patchOp{{Op: op, Path: path, Value: value}})
	return b
}

// escapePointer escapes a JSON pointer reference token.
func escapePointer(s string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}

// patchFile rewrites target through patch. When target does not exist yet it
// starts from seed, or from nothing when seed is empty or missing.
func patchFile(target, seed string, patch func([]byte) ([]byte, error)) error {
	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) && seed != "" {
		data, err = os.ReadFile(seed)
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.NewError(domain.KindConfig, "read config", target, err)
	}

	patched, err := patch(data)
	if err != nil {
		return domain.NewError(domain.KindConfig, "patch config", target, err)
	}
	if err := os.WriteFile(target, patched, 0o644); err != nil {
		return domain.NewError(domain.KindFile, "write config", target, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return domain.NewError(domain.KindFile, "copy", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return domain.NewError(domain.KindFile, "copy", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return domain.NewError(domain.KindFile, "copy", dst, err)
	}
	if err := out.Close(); err != nil {
		return domain.NewError(domain.KindFile, "copy", dst, err)
	}
	return nil
}
