package render

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/battlesnakeio/chainsnake/game"
)

// Glyphs used by the text renderer.
const (
	HeadGlyph  = '@'
	FoodGlyph  = '*'
	EmptyGlyph = '.'
)

// Text writes each frame as an ASCII grid followed by its summary lines.
type Text struct {
	mu sync.Mutex
	w  io.Writer
	// SummaryOnly skips the grid.
	SummaryOnly bool
}

// NewText returns a text renderer writing to w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

// Render writes frames in order.
func (t *Text) Render(frames []*game.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	bw := bufio.NewWriter(t.w)
	for _, f := range frames {
		if !t.SummaryOnly {
			for _, row := range Grid(f) {
				bw.WriteString(row)
				bw.WriteByte('\n')
			}
		}
		bw.WriteString(strings.Join(Summary(f), "  "))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Grid returns a frame's board as rows of glyphs with a border.
func Grid(f *game.Frame) []string {
	b := f.Board
	cells := make([][]rune, b.Height)
	for y := range cells {
		cells[y] = []rune(strings.Repeat(string(EmptyGlyph), b.Width))
	}
	if s := f.Snapshot; s != nil {
		for _, p := range s.Food {
			if b.Contains(p) {
				cells[p.Y][p.X] = FoodGlyph
			}
		}
		if b.Contains(s.Head) {
			cells[s.Head.Y][s.Head.X] = HeadGlyph
		}
	}

	edge := "+" + strings.Repeat("-", b.Width) + "+"
	rows := make([]string, 0, b.Height+2)
	rows = append(rows, edge)
	for _, r := range cells {
		rows = append(rows, "|"+string(r)+"|")
	}
	return append(rows, edge)
}
