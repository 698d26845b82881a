package render

import (
	"github.com/battlesnakeio/chainsnake/game"
	"github.com/mattn/go-runewidth"
	termbox "github.com/nsf/termbox-go"
)

const (
	defaultColor = termbox.ColorDefault
	bgColor      = termbox.ColorDefault
	headColor    = termbox.ColorGreen
	errorColor   = termbox.ColorRed
	// gap is the number of columns between two boards.
	gap = 4
)

var foodEmoji = []rune{
	'🍒', '🍍', '🍑', '🍇', '🍏', '🍌', '🍫', '🍭',
	'🍕', '🍩', '🍗', '🍖', '🍬', '🍤', '🍪',
}

// Termbox draws every identity's board side by side on a full screen
// terminal. The caller owns the termbox event loop.
type Termbox struct {
	Title string
}

// NewTermbox initializes the terminal. Close must be called to restore it.
func NewTermbox(title string) (*Termbox, error) {
	if err := termbox.Init(); err != nil {
		return nil, err
	}
	termbox.SetOutputMode(termbox.Output256)
	return &Termbox{Title: title}, nil
}

// Close restores the terminal.
func (t *Termbox) Close() { termbox.Close() }

// Render draws frames and flushes the screen.
func (t *Termbox) Render(frames []*game.Frame) error {
	termbox.Clear(defaultColor, defaultColor)

	_, h := termbox.Size()
	left := 2
	for _, f := range frames {
		b := f.Board
		cellW := 2 // emoji are double width
		top := (h - b.Height - 6) / 2
		if top < 1 {
			top = 1
		}
		bottom := top + b.Height + 1

		renderTitle(left, top, t.Title)
		renderBoard(b, top, bottom, left, cellW)
		if s := f.Snapshot; s != nil {
			renderFood(left, top, cellW, b, s.Food)
			renderHead(left, top, cellW, b, s.Head)
		}
		for i, line := range Summary(f) {
			fg := defaultColor
			if f.Error != "" && i == 3 {
				fg = errorColor
			}
			tbprint(left, bottom+1+i, fg, bgColor, line)
		}
		left += b.Width*cellW + 2 + gap
	}

	return termbox.Flush()
}

func foodRune(p game.Position) rune {
	i := (p.X*31 + p.Y) % len(foodEmoji)
	if i < 0 {
		i = -i
	}
	return foodEmoji[i]
}

func renderHead(left, top, cellW int, b game.Board, head game.Position) {
	if !b.Contains(head) {
		return
	}
	x := left + head.X*cellW
	for i := 0; i < cellW; i++ {
		termbox.SetCell(x+i, top+1+head.Y, ' ', headColor, headColor)
	}
}

func renderFood(left, top, cellW int, b game.Board, food []game.Position) {
	for _, f := range food {
		if !b.Contains(f) {
			continue
		}
		termbox.SetCell(left+f.X*cellW, top+1+f.Y, foodRune(f), defaultColor, bgColor)
	}
}

func renderBoard(b game.Board, top, bottom, left, cellW int) {
	w := b.Width * cellW
	for i := top; i < bottom; i++ {
		termbox.SetCell(left-1, i, '│', defaultColor, bgColor)
		termbox.SetCell(left+w, i, '│', defaultColor, bgColor)
	}

	termbox.SetCell(left-1, top, '┌', defaultColor, bgColor)
	termbox.SetCell(left-1, bottom, '└', defaultColor, bgColor)
	termbox.SetCell(left+w, top, '┐', defaultColor, bgColor)
	termbox.SetCell(left+w, bottom, '┘', defaultColor, bgColor)

	fill(left, top, w, 1, termbox.Cell{Ch: '─'})
	fill(left, bottom, w, 1, termbox.Cell{Ch: '─'})
}

func renderTitle(left, top int, title string) {
	tbprint(left, top-1, defaultColor, defaultColor, title)
}

func fill(x, y, w, h int, cell termbox.Cell) {
	for ly := 0; ly < h; ly++ {
		for lx := 0; lx < w; lx++ {
			termbox.SetCell(x+lx, y+ly, cell.Ch, cell.Fg, cell.Bg)
		}
	}
}

func tbprint(x, y int, fg, bg termbox.Attribute, msg string) {
	for _, c := range msg {
		termbox.SetCell(x, y, c, fg, bg)
		x += runewidth.RuneWidth(c)
	}
}
