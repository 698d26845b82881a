package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTiers(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		tiers, err := Tiers("")
		require.NoError(t, err)
		require.Equal(t, TierCount, tiers.Len())
		require.Equal(t, uint64(1000), tiers.Terminal().Threshold)
		tier3, _ := tiers.ByClass(3)
		require.Equal(t, uint64(300), tier3.Threshold)
	})

	t.Run("Addresses", func(t *testing.T) {
		addrs := make([]string, TierCount)
		for i := range addrs {
			addrs[i] = "0x00000000000000000000000000000000000000a" + string(rune('0'+i))
		}
		tiers, err := Tiers(strings.Join(addrs, ","))
		require.NoError(t, err)
		tier1, _ := tiers.ByClass(1)
		require.Equal(t, strings.ToLower(addrs[0]), strings.ToLower(tier1.Contract.Hex()))
	})

	t.Run("WrongCount", func(t *testing.T) {
		_, err := Tiers("0x1,0x2")
		require.Error(t, err)
	})

	t.Run("NotAnAddress", func(t *testing.T) {
		_, err := Tiers(strings.Repeat("nope,", TierCount-1) + "nope")
		require.Error(t, err)
	})
}

func TestBoard(t *testing.T) {
	w, h := BoardWidth, BoardHeight
	defer func() { BoardWidth, BoardHeight = w, h }()

	BoardWidth, BoardHeight = 12, 8
	b, err := Board()
	require.NoError(t, err)
	require.Equal(t, 12, b.Width)
	require.Equal(t, 8, b.Height)

	BoardWidth = 0
	_, err = Board()
	require.Error(t, err)

	BoardWidth, BoardHeight = 12, -1
	_, err = Board()
	require.Error(t, err)
}

func TestGetEnv(t *testing.T) {
	os.Setenv("CHAINSNAKE_TEST_INT", "12")
	os.Setenv("CHAINSNAKE_TEST_BAD_INT", "twelve")
	os.Setenv("CHAINSNAKE_TEST_DURATION", "3s")
	defer os.Unsetenv("CHAINSNAKE_TEST_INT")
	defer os.Unsetenv("CHAINSNAKE_TEST_BAD_INT")
	defer os.Unsetenv("CHAINSNAKE_TEST_DURATION")

	require.Equal(t, 12, getEnvInt("CHAINSNAKE_TEST_INT", 1))
	require.Equal(t, 1, getEnvInt("CHAINSNAKE_TEST_BAD_INT", 1))
	require.Equal(t, 3*time.Second, getEnvDuration("CHAINSNAKE_TEST_DURATION", time.Second))
	require.Equal(t, "x", getEnvString("CHAINSNAKE_TEST_MISSING", "x"))
}
