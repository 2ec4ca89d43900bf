package panicerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall(t *testing.T) {
	want := errors.New("boom")
	assert.NoError(t, Call(func() error { return nil }))
	assert.ErrorIs(t, Call(func() error { return want }), want)

	err := Call(func() error { panic("handler exploded") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler exploded")

	err = Call(func() error {
		var m map[string]int
		m["x"] = 1
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assignment to entry in nil map")
}
