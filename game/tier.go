package game

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Tier is a reward contract bound to a score threshold and an ordinal class.
type Tier struct {
	Class     int            `json:"class"`
	Threshold uint64         `json:"threshold"`
	Contract  common.Address `json:"contract"`
}

// Tiers is an immutable list of reward tiers in ascending class order. The
// last tier is the terminal tier.
type Tiers struct {
	list []Tier
}

// NewTiers validates that classes run 1..N and thresholds strictly ascend.
func NewTiers(list ...Tier) (Tiers, error) {
	if len(list) == 0 {
		return Tiers{}, fmt.Errorf("game: no reward tiers configured")
	}
	for i, t := range list {
		if t.Class != i+1 {
			return Tiers{}, fmt.Errorf("game: tier %d has class %d, want %d", i, t.Class, i+1)
		}
		if i > 0 && t.Threshold <= list[i-1].Threshold {
			return Tiers{}, fmt.Errorf("game: tier %d threshold %d not above tier %d threshold %d",
				t.Class, t.Threshold, list[i-1].Class, list[i-1].Threshold)
		}
	}
	cp := make([]Tier, len(list))
	copy(cp, list)
	return Tiers{list: cp}, nil
}

// MustTiers is NewTiers that panics, for static tables.
func MustTiers(list ...Tier) Tiers {
	t, err := NewTiers(list...)
	if err != nil {
		panic(err)
	}
	return t
}

// All returns a copy of the tiers in ascending class order.
func (t Tiers) All() []Tier {
	cp := make([]Tier, len(t.list))
	copy(cp, t.list)
	return cp
}

// Len returns the number of tiers.
func (t Tiers) Len() int { return len(t.list) }

// Terminal returns the highest tier.
func (t Tiers) Terminal() Tier {
	return t.list[len(t.list)-1]
}

// ByClass looks a tier up by its class.
func (t Tiers) ByClass(class int) (Tier, bool) {
	if class < 1 || class > len(t.list) {
		return Tier{}, false
	}
	return t.list[class-1], true
}
