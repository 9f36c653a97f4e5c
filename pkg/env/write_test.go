package env

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subosito/gotenv"
)

func TestEncode(t *testing.T) {
	content := Encode([]Assignment{
		{Key: "DARK_MODE", Value: "true"},
		{Key: "EMPTY", Value: ""},
		{Key: "URL", Value: "https://example.com/a?b=c"},
	})

	assert.Equal(t, "DARK_MODE=true\nEMPTY=\nURL=\"https://example.com/a?b=c\"\n", content)
}

func TestEncodeQuoting(t *testing.T) {
	assignments := []Assignment{
		{Key: "SPACED", Value: "hello world"},
		{Key: "EQUALS", Value: "a=b"},
		{Key: "QUOTED", Value: `say "hi"`},
		{Key: "MULTILINE", Value: "line1\nline2"},
		{Key: "HASH", Value: "not#comment"},
	}
	content := Encode(assignments)

	for _, line := range strings.Split(strings.TrimSuffix(content, "\n"), "\n") {
		value := strings.SplitN(line, "=", 2)[1]
		assert.True(t, strings.HasPrefix(value, `"`), "line %q should be quoted", line)
	}
}

// Writing and re-parsing with a standard dotenv reader must yield the
// original pairs.
func TestEncodeRoundTrip(t *testing.T) {
	assignments := []Assignment{
		{Key: "PLAIN", Value: "simple"},
		{Key: "SPACED", Value: "hello world"},
		{Key: "EQUALS", Value: "key=value"},
		{Key: "QUOTED", Value: `a "quoted" part`},
		{Key: "MULTILINE", Value: "line1\nline2"},
		{Key: "BOOLISH", Value: "true"},
	}

	parsed := gotenv.Parse(strings.NewReader(Encode(assignments)))

	assert.Len(t, parsed, len(assignments))
	for _, a := range assignments {
		assert.Equal(t, a.Value, parsed[a.Key], "key %s", a.Key)
	}
}

func TestEncodeIdempotent(t *testing.T) {
	assignments := []Assignment{
		{Key: "A", Value: "1"},
		{Key: "B", Value: "two words"},
	}
	assert.Equal(t, Encode(assignments), Encode(assignments))
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []Assignment{{Key: "DARK_MODE", Value: "true"}})

	require.NoError(t, err)
	assert.Equal(t, "DARK_MODE=true\n", buf.String())
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.env")
	assignments := []Assignment{
		{Key: "DARK_MODE", Value: "true"},
		{Key: "GREETING", Value: "hello world"},
	}

	require.NoError(t, WriteFile(path, assignments))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Encode(assignments), string(first))

	// rewriting the same assignments is byte-identical
	require.NoError(t, WriteFile(path, assignments))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.env")
	require.NoError(t, os.WriteFile(path, []byte("OLD=stale\n"), 0o644))

	require.NoError(t, WriteFile(path, []Assignment{{Key: "NEW", Value: "fresh"}}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "NEW=fresh\n", string(content))
}

func TestWriteFileMissingParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "flags.env")

	err := WriteFile(path, []Assignment{{Key: "A", Value: "1"}})

	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Dir(path))
	assert.True(t, os.IsNotExist(statErr), "parent directory must not be created")
}

func TestMerge(t *testing.T) {
	base := []string{"PATH=/usr/bin", "DARK_MODE=stale", "HOME=/home/x"}

	merged := Merge(base, []Assignment{
		{Key: "DARK_MODE", Value: "true"},
		{Key: "NEW_FLAG", Value: "5"},
	})

	assert.Equal(t, []string{"PATH=/usr/bin", "HOME=/home/x", "DARK_MODE=true", "NEW_FLAG=5"}, merged)
	// base is untouched
	assert.Equal(t, []string{"PATH=/usr/bin", "DARK_MODE=stale", "HOME=/home/x"}, base)
}
