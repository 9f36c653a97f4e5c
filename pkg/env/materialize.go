package env

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/flagsmith-community/flagenv/pkg/flagsmith"
)

// Assignment is one environment-variable binding derived from a flag.
type Assignment struct {
	Key   string
	Value string
}

type Options struct {
	// IncludeDisabled writes disabled flags as "false" instead of
	// omitting them.
	IncludeDisabled bool
}

// Materialize converts fetched flags into environment assignments,
// preserving fetch order. When two feature names sanitize to the same
// key the last one wins and takes the later position.
func Materialize(flags []flagsmith.Flag, opts Options) []Assignment {
	assignments := make([]Assignment, 0, len(flags))
	seen := map[string]int{}

	for _, f := range flags {
		if !f.Enabled && !opts.IncludeDisabled {
			continue
		}
		a := Assignment{
			Key:   SanitizeKey(f.Feature.Name),
			Value: serializeValue(f),
		}
		if i, ok := seen[a.Key]; ok {
			assignments = append(assignments[:i], assignments[i+1:]...)
			for k, j := range seen {
				if j > i {
					seen[k] = j - 1
				}
			}
		}
		seen[a.Key] = len(assignments)
		assignments = append(assignments, a)
	}
	return assignments
}

// SanitizeKey turns a feature name into a valid environment-variable
// identifier: upper-cased, anything outside [A-Z0-9_] replaced with
// '_', and a leading digit prefixed with '_'.
func SanitizeKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	key := b.String()
	if key != "" && key[0] >= '0' && key[0] <= '9' {
		key = "_" + key
	}
	return key
}

func serializeValue(f flagsmith.Flag) string {
	if !f.Enabled {
		// A disabled flag's value is not live; only the off state is
		// surfaced.
		return "false"
	}
	switch v := f.Value.(type) {
	case nil:
		return "true"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}
