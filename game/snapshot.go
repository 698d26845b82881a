package game

import "sort"

// Snapshot is the client's cached copy of one player's remote game state.
type Snapshot struct {
	Score  uint64       `json:"score"`
	Moves  uint64       `json:"moves"`
	Head   Position     `json:"head"`
	Food   []Position   `json:"food"`
	Minted map[int]bool `json:"minted"`
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Minted: map[int]bool{}}
}

// HasMinted reports whether the tier class is recorded as minted.
func (s *Snapshot) HasMinted(class int) bool {
	return s.Minted[class]
}

// RecordMint adds a class to the minted set. Classes are never removed, a
// remote mint cannot be undone.
func (s *Snapshot) RecordMint(class int) {
	if s.Minted == nil {
		s.Minted = map[int]bool{}
	}
	s.Minted[class] = true
}

// MintedClasses returns the minted classes in ascending order.
func (s *Snapshot) MintedClasses() []int {
	classes := make([]int, 0, len(s.Minted))
	for c, ok := range s.Minted {
		if ok {
			classes = append(classes, c)
		}
	}
	sort.Ints(classes)
	return classes
}

// Clone returns a deep copy safe to hand to render sinks.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Score:  s.Score,
		Moves:  s.Moves,
		Head:   s.Head,
		Minted: make(map[int]bool, len(s.Minted)),
	}
	if s.Food != nil {
		c.Food = make([]Position, len(s.Food))
		copy(c.Food, s.Food)
	}
	for k, v := range s.Minted {
		c.Minted[k] = v
	}
	return c
}
