package commands

import (
	"sync"

	"github.com/battlesnakeio/chainsnake/game"
)

// frameHolder keeps the latest frame per identity as they stream in.
type frameHolder struct {
	sync.RWMutex
	order  []string
	latest map[string]*game.Frame
	count  int
}

func (fh *frameHolder) append(frame *game.Frame) {
	fh.Lock()
	defer fh.Unlock()

	if fh.latest == nil {
		fh.latest = map[string]*game.Frame{}
	}
	if _, ok := fh.latest[frame.Identity]; !ok {
		fh.order = append(fh.order, frame.Identity)
	}
	fh.latest[frame.Identity] = frame
	fh.count++
}

func (fh *frameHolder) frames() []*game.Frame {
	fh.RLock()
	defer fh.RUnlock()

	frames := make([]*game.Frame, 0, len(fh.order))
	for _, id := range fh.order {
		frames = append(frames, fh.latest[id])
	}
	return frames
}

func (fh *frameHolder) received() int {
	fh.RLock()
	defer fh.RUnlock()

	return fh.count
}
