package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	err := MalformedInput("cfg.json", fmt.Errorf("unexpected EOF"))
	assert.True(t, IsKind(err, KindMalformedInput))
	assert.False(t, IsKind(err, KindMissingDependency))
	assert.Contains(t, err.Error(), "cfg.json")
	assert.Contains(t, err.Error(), "malformed input")
	assert.Contains(t, err.Error(), "unexpected EOF")

	err = MissingDependency("loader.js", "payload.js")
	assert.True(t, IsKind(err, KindMissingDependency))
	assert.Contains(t, err.Error(), "payload.js")

	err = UnresolvedPlaceholder("challenge.html", "{{TITLE}}")
	assert.True(t, IsKind(err, KindUnresolvedPlaceholder))
	assert.Contains(t, err.Error(), "{{TITLE}}")
}

func TestIsKindThroughWrapping(t *testing.T) {
	inner := MissingDependency("loader.js", "payload.js")
	wrapped := fmt.Errorf("apply base64_bundle: %w", inner)
	assert.True(t, IsKind(wrapped, KindMissingDependency))
	assert.False(t, IsKind(fmt.Errorf("plain"), KindMissingDependency))
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := MalformedInput("x.json", cause)
	assert.ErrorIs(t, err, cause)
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	assert.False(t, c.HasErrors())
	assert.Equal(t, 0, c.Count())

	c.Add("pipeline", fmt.Errorf("bad json"))
	c.Add("maze", MissingDependency("loader.js", "gone.js"))
	c.Add("ok-challenge", nil) // nil errors are ignored

	require.True(t, c.HasErrors())
	assert.Equal(t, 2, c.Count())

	errs := c.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, "pipeline", errs[0].Challenge)
	assert.Contains(t, errs[0].Error(), "bad json")
	assert.True(t, IsKind(errs[1].Unwrap(), KindMissingDependency))
	assert.False(t, errs[0].Timestamp.IsZero())
}
