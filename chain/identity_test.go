package chain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIdentity(t *testing.T) {
	id, err := GenerateIdentity()
	require.NoError(t, err)

	t.Run("Prefixed", func(t *testing.T) {
		parsed, err := NewIdentity(id.HexKey())
		require.NoError(t, err)
		require.Equal(t, id.Address, parsed.Address)
	})

	t.Run("Bare", func(t *testing.T) {
		parsed, err := NewIdentity(id.HexKey()[2:] + "\n")
		require.NoError(t, err)
		require.Equal(t, id.Address, parsed.Address)
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := NewIdentity("not-a-key")
		require.Error(t, err)
	})
}

func TestIdentityShort(t *testing.T) {
	id, err := GenerateIdentity()
	require.NoError(t, err)
	s := id.Short()
	require.Equal(t, id.String()[:6], s[:6])
	require.Contains(t, s, "…")
}
