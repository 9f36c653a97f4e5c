package env

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flagsmith-community/flagenv/pkg/flagsmith"
)

func flag(name string, enabled bool, value interface{}) flagsmith.Flag {
	return flagsmith.Flag{
		Feature: flagsmith.Feature{Name: name},
		Enabled: enabled,
		Value:   value,
	}
}

func TestSanitizeKey(t *testing.T) {
	cases := map[string]string{
		"dark-mode":      "DARK_MODE",
		"max retries":    "MAX_RETRIES",
		"simple":         "SIMPLE",
		"ALREADY_GOOD_1": "ALREADY_GOOD_1",
		"1st-rollout":    "_1ST_ROLLOUT",
		"weird!chars?":   "WEIRD_CHARS_",
		"dots.and.more":  "DOTS_AND_MORE",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeKey(in), "input %q", in)
	}
}

func TestMaterializeEnabledWithoutValue(t *testing.T) {
	assignments := Materialize([]flagsmith.Flag{flag("dark-mode", true, nil)}, Options{})

	assert.Equal(t, []Assignment{{Key: "DARK_MODE", Value: "true"}}, assignments)
}

func TestMaterializeValueTypes(t *testing.T) {
	assignments := Materialize([]flagsmith.Flag{
		flag("greeting", true, "hello"),
		flag("limit", true, float64(5)),
		flag("ratio", true, 2.5),
		flag("hard-off", true, false),
	}, Options{})

	assert.Equal(t, []Assignment{
		{Key: "GREETING", Value: "hello"},
		{Key: "LIMIT", Value: "5"},
		{Key: "RATIO", Value: "2.5"},
		{Key: "HARD_OFF", Value: "false"},
	}, assignments)
}

func TestMaterializeDisabledOmittedByDefault(t *testing.T) {
	assignments := Materialize([]flagsmith.Flag{
		flag("max retries", false, float64(5)),
		flag("dark-mode", true, nil),
	}, Options{})

	assert.Equal(t, []Assignment{{Key: "DARK_MODE", Value: "true"}}, assignments)
}

func TestMaterializeDisabledIncluded(t *testing.T) {
	assignments := Materialize([]flagsmith.Flag{
		flag("max retries", false, float64(5)),
	}, Options{IncludeDisabled: true})

	// a disabled flag's value is not live, only its off state
	assert.Equal(t, []Assignment{{Key: "MAX_RETRIES", Value: "false"}}, assignments)
}

func TestMaterializePreservesFetchOrder(t *testing.T) {
	assignments := Materialize([]flagsmith.Flag{
		flag("zeta", true, "z"),
		flag("alpha", true, "a"),
		flag("mid", true, "m"),
	}, Options{})

	assert.Equal(t, []string{"ZETA", "ALPHA", "MID"}, keys(assignments))
}

func TestMaterializeCollisionLastWins(t *testing.T) {
	assignments := Materialize([]flagsmith.Flag{
		flag("dark-mode", true, "first"),
		flag("other", true, "x"),
		flag("dark mode", true, "second"),
	}, Options{})

	assert.Equal(t, []Assignment{
		{Key: "OTHER", Value: "x"},
		{Key: "DARK_MODE", Value: "second"},
	}, assignments)
}

func keys(assignments []Assignment) []string {
	out := make([]string, len(assignments))
	for i, a := range assignments {
		out[i] = a.Key
	}
	return out
}
