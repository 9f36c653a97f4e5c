package env

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Encode renders assignments as dotenv content: one KEY=VALUE per
// line, newline-terminated. Values are left bare unless they contain
// characters a dotenv parser would misread, in which case they are
// double-quoted with escapes that gotenv round-trips.
func Encode(assignments []Assignment) string {
	var b strings.Builder
	for _, a := range assignments {
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(quote(a.Value))
		b.WriteByte('\n')
	}
	return b.String()
}

func quote(v string) string {
	if !strings.ContainsAny(v, " \t\r\n=\"#'") {
		return v
	}
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
	)
	return `"` + r.Replace(v) + `"`
}

// Write streams the encoded assignments to w.
func Write(w io.Writer, assignments []Assignment) error {
	_, err := io.WriteString(w, Encode(assignments))
	return err
}

// WriteFile atomically replaces path with the encoded assignments:
// the full content goes to a temp file in the target directory which
// is then renamed over path, so readers never observe a partial
// write. A missing parent directory is an error.
func WriteFile(path string, assignments []Assignment) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(Encode(assignments)); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Merge layers assignments on top of a process environment in
// KEY=VALUE form, returning a new slice. Assignments override base
// entries with the same key; base is never mutated.
func Merge(base []string, assignments []Assignment) []string {
	override := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		override[a.Key] = true
	}

	merged := make([]string, 0, len(base)+len(assignments))
	for _, kv := range base {
		key := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			key = kv[:i]
		}
		if !override[key] {
			merged = append(merged, kv)
		}
	}
	for _, a := range assignments {
		merged = append(merged, a.Key+"="+a.Value)
	}
	return merged
}
