package rules

import "github.com/battlesnakeio/chainsnake/game"

// HasTerminalTier reports whether a snapshot holds the highest reward.
func HasTerminalTier(s *game.Snapshot, tiers game.Tiers) bool {
	return s.HasMinted(tiers.Terminal().Class)
}

// CheckForGameOver checks if every tracked player holds the terminal tier.
// With no players there is nothing left to do, so the run is over.
func CheckForGameOver(snapshots []*game.Snapshot, tiers game.Tiers) bool {
	for _, s := range snapshots {
		if !HasTerminalTier(s, tiers) {
			return false
		}
	}
	return true
}
