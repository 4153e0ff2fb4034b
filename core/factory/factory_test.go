package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry[int, string]()
	require.NoError(t, r.Register("double", func(n int) (string, error) {
		return string(rune('a' + 2*n)), nil
	}))
	assert.Error(t, r.Register("double", func(int) (string, error) { return "", nil }))
	assert.Error(t, r.Register("nil", nil))

	got, err := r.Create("double", 1)
	require.NoError(t, err)
	assert.Equal(t, "c", got)

	_, err = r.Create("missing", 0)
	assert.EqualError(t, err, "unknown module type missing")
	assert.Equal(t, []string{"double"}, r.Names())
}
