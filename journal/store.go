// Package journal records every frame rendered during a run so a run can be
// replayed, inspected or streamed after the fact.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a run is not found.
	ErrNotFound = errors.New("journal: run not found")
)

// RunStatus is the lifecycle state of a journaled run.
type RunStatus string

// Run statuses.
const (
	RunRunning  RunStatus = "running"
	RunComplete RunStatus = "complete"
	RunStopped  RunStatus = "stopped"
	RunError    RunStatus = "error"
)

// Run describes one agent run.
type Run struct {
	ID         string     `json:"id"`
	Status     RunStatus  `json:"status"`
	Identities []string   `json:"identities"`
	Board      game.Board `json:"board"`
	Created    time.Time  `json:"created"`
}

// Store is the interface to the journal backend.
type Store interface {
	// CreateRun inserts or replaces a run.
	CreateRun(ctx context.Context, r *Run) error
	SetRunStatus(ctx context.Context, id string, status RunStatus) error
	GetRun(ctx context.Context, id string) (*Run, error)
	// AppendFrames appends frames to an existing run.
	AppendFrames(ctx context.Context, id string, frames ...*game.Frame) error
	// ListFrames lists frames in append order. A negative offset counts
	// back from the last frame.
	ListFrames(ctx context.Context, id string, limit, offset int) ([]*game.Frame, error)
}

// Window resolves limit and a possibly negative offset against n frames into
// the half-open range [start, end).
func Window(n, limit, offset int) (start, end int) {
	start = offset
	if offset < 0 {
		start = n + offset
	}
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end = n
	if limit >= 0 && start+limit < n {
		end = start + limit
	}
	return start, end
}

// InMemStore returns an in memory implementation of the Store interface.
func InMemStore() Store {
	return &inmem{
		runs:   map[string]*Run{},
		frames: map[string][]*game.Frame{},
	}
}

type inmem struct {
	runs   map[string]*Run
	frames map[string][]*game.Frame
	lock   sync.Mutex
}

func (in *inmem) CreateRun(ctx context.Context, r *Run) error {
	in.lock.Lock()
	defer in.lock.Unlock()

	cp := *r
	in.runs[r.ID] = &cp
	return nil
}

func (in *inmem) SetRunStatus(ctx context.Context, id string, status RunStatus) error {
	in.lock.Lock()
	defer in.lock.Unlock()

	r, ok := in.runs[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	return nil
}

func (in *inmem) GetRun(ctx context.Context, id string) (*Run, error) {
	in.lock.Lock()
	defer in.lock.Unlock()

	if r, ok := in.runs[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (in *inmem) AppendFrames(ctx context.Context, id string, frames ...*game.Frame) error {
	in.lock.Lock()
	defer in.lock.Unlock()

	if _, ok := in.runs[id]; !ok {
		return ErrNotFound
	}
	for _, f := range frames {
		cp := *f
		cp.Snapshot = f.Snapshot.Clone()
		in.frames[id] = append(in.frames[id], &cp)
	}
	return nil
}

func (in *inmem) ListFrames(ctx context.Context, id string, limit, offset int) ([]*game.Frame, error) {
	in.lock.Lock()
	defer in.lock.Unlock()

	if _, ok := in.runs[id]; !ok {
		return nil, ErrNotFound
	}
	frames := in.frames[id]
	start, end := Window(len(frames), limit, offset)
	return append([]*game.Frame{}, frames[start:end]...), nil
}
