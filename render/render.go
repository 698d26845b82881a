// Package render draws frames: a full screen termbox view, a plain text view
// for logs and pipes, and fan-out to several sinks.
package render

import (
	"fmt"
	"strings"

	"github.com/battlesnakeio/chainsnake/game"
	"go.uber.org/multierr"
)

// Renderer consumes the frames of one cycle, one per identity.
type Renderer interface {
	Render(frames []*game.Frame) error
}

// Func adapts a function to a Renderer.
type Func func(frames []*game.Frame) error

// Render calls f.
func (f Func) Render(frames []*game.Frame) error { return f(frames) }

type multi []Renderer

// Multi renders to every sink; one sink failing does not stop the others.
func Multi(rs ...Renderer) Renderer {
	out := multi{}
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multi) Render(frames []*game.Frame) error {
	var errs error
	for _, r := range m {
		errs = multierr.Append(errs, r.Render(frames))
	}
	return errs
}

// Summary returns the text lines shown under a frame's board.
func Summary(f *game.Frame) []string {
	s := f.Snapshot
	if s == nil {
		s = game.NewSnapshot()
	}
	lines := []string{
		shortIdentity(f.Identity),
		fmt.Sprintf("score %d  moves %d", s.Score, s.Moves),
		fmt.Sprintf("minted %s", classList(s.MintedClasses())),
	}
	if f.Error != "" {
		lines = append(lines, "error: "+f.Error)
	}
	return lines
}

func classList(classes []int) string {
	if len(classes) == 0 {
		return "-"
	}
	parts := make([]string, len(classes))
	for i, c := range classes {
		parts[i] = fmt.Sprint(c)
	}
	return strings.Join(parts, ",")
}

func shortIdentity(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:6] + "…" + id[len(id)-4:]
}
