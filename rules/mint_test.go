package rules

import (
	"testing"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/stretchr/testify/require"
)

func tenTiers() game.Tiers {
	list := make([]game.Tier, 10)
	for i := range list {
		list[i] = game.Tier{Class: i + 1, Threshold: uint64(i+1) * 100}
	}
	return game.MustTiers(list...)
}

func classes(tiers []game.Tier) []int {
	out := []int{}
	for _, t := range tiers {
		out = append(out, t.Class)
	}
	return out
}

func TestMintsDue(t *testing.T) {
	tiers := tenTiers()

	t.Run("Score250Minted1", func(t *testing.T) {
		s := &game.Snapshot{Score: 250, Minted: map[int]bool{1: true}}
		require.Equal(t, []int{2}, classes(MintsDue(s, tiers)))
	})

	t.Run("ZeroScore", func(t *testing.T) {
		require.Empty(t, MintsDue(&game.Snapshot{}, tiers))
	})

	t.Run("ExactThreshold", func(t *testing.T) {
		s := &game.Snapshot{Score: 300}
		require.Equal(t, []int{1, 2, 3}, classes(MintsDue(s, tiers)))
	})

	t.Run("Gaps", func(t *testing.T) {
		s := &game.Snapshot{Score: 1000, Minted: map[int]bool{2: true, 5: true}}
		require.Equal(t, []int{1, 3, 4, 6, 7, 8, 9, 10}, classes(MintsDue(s, tiers)))
	})
}

func TestMintsDueExactSetAndIdempotent(t *testing.T) {
	tiers := tenTiers()
	for score := uint64(0); score <= 1100; score += 50 {
		for mask := 0; mask < 1<<10; mask += 37 {
			s := &game.Snapshot{Score: score, Minted: map[int]bool{}}
			for c := 1; c <= 10; c++ {
				if mask&(1<<(c-1)) != 0 {
					s.RecordMint(c)
				}
			}

			due := MintsDue(s, tiers)
			want := []int{}
			for _, tier := range tiers.All() {
				if tier.Threshold <= score && !s.HasMinted(tier.Class) {
					want = append(want, tier.Class)
				}
			}
			require.Equal(t, want, classes(due))

			if len(due) == 0 {
				continue
			}
			s.RecordMint(due[0].Class)
			require.Equal(t, want[1:], classes(MintsDue(s, tiers)), "recompute yields the remaining subset")
		}
	}
}

func TestDecide(t *testing.T) {
	tiers := tenTiers()
	s := &game.Snapshot{
		Score:  250,
		Head:   pos(5, 5),
		Food:   []game.Position{pos(8, 5)},
		Minted: map[int]bool{1: true},
	}
	d := Decide(s, Options{Board: game.DefaultBoard, Tiers: tiers})
	require.Equal(t, game.Right, d.Move)
	require.Equal(t, []int{2}, classes(d.Mints))
	require.False(t, d.Retry)

	s.Head = pos(19, 5)
	s.Food = []game.Position{pos(20, 5)}
	d = Decide(s, Options{Board: game.DefaultBoard, Tiers: tiers, Bounded: true})
	require.Equal(t, game.None, d.Move)
	require.True(t, d.Retry)
	require.Equal(t, []int{2}, classes(d.Mints), "mints are independent of the move")
}
