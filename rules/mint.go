package rules

import "github.com/battlesnakeio/chainsnake/game"

// MintsDue returns every tier the score qualifies for that is not minted
// yet, in ascending class order.
func MintsDue(s *game.Snapshot, tiers game.Tiers) []game.Tier {
	var due []game.Tier
	for _, t := range tiers.All() {
		if s.Score >= t.Threshold && !s.HasMinted(t.Class) {
			due = append(due, t)
		}
	}
	return due
}
