// Package filestore is a journal backend keeping one append-only JSON lines
// file per run.
package filestore

import (
	"context"
	"os/user"
	"path"
	"sync"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/battlesnakeio/chainsnake/journal"
	log "github.com/sirupsen/logrus"
)

// DefaultDir is where runs are kept when no directory is given.
func DefaultDir() string {
	return path.Join(homeDir(), ".chainsnake/runs")
}

func homeDir() string {
	usr, err := user.Current()
	if err != nil {
		return "."
	}
	return usr.HomeDir
}

// NewFileStore returns a file based store implementation (1 file per run).
func NewFileStore(directory string) journal.Store {
	if directory == "" {
		directory = DefaultDir()
	}

	return &fileStore{
		runs:      map[string]*journal.Run{},
		frames:    map[string][]*game.Frame{},
		writers:   map[string]writer{},
		directory: directory,
	}
}

type fileStore struct {
	runs      map[string]*journal.Run
	frames    map[string][]*game.Frame
	writers   map[string]writer
	lock      sync.Mutex
	directory string
}

// closeRun closes the handle to a run's file. Called once the run is over;
// the cached run and frames stay readable.
func (fs *fileStore) closeRun(id string) {
	if w, ok := fs.writers[id]; ok {
		if err := w.Close(); err != nil {
			log.WithError(err).WithField("run", id).Error("error while closing file writer")
		}
	}
	delete(fs.writers, id)
}

func (fs *fileStore) CreateRun(ctx context.Context, r *journal.Run) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	handle, err := fs.requireHandle(r.ID)
	if err != nil {
		return err
	}
	cp := *r
	if err := writeLine(handle, &line{Run: &cp}); err != nil {
		return err
	}
	fs.runs[r.ID] = &cp
	if _, ok := fs.frames[r.ID]; !ok {
		fs.frames[r.ID] = []*game.Frame{}
	}
	return nil
}

func (fs *fileStore) SetRunStatus(ctx context.Context, id string, status journal.RunStatus) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	r, err := fs.requireRun(id)
	if err != nil {
		return err
	}
	handle, err := fs.requireHandle(id)
	if err != nil {
		return err
	}
	cp := *r
	cp.Status = status
	if err := writeLine(handle, &line{Run: &cp}); err != nil {
		return err
	}
	r.Status = status
	if status != journal.RunRunning {
		fs.closeRun(id)
	}
	return nil
}

func (fs *fileStore) GetRun(ctx context.Context, id string) (*journal.Run, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	r, err := fs.requireRun(id)
	if err != nil {
		return nil, err
	}
	cp := *r
	return &cp, nil
}

func (fs *fileStore) AppendFrames(ctx context.Context, id string, frames ...*game.Frame) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if _, err := fs.requireRun(id); err != nil {
		return err
	}
	handle, err := fs.requireHandle(id)
	if err != nil {
		return err
	}
	for _, f := range frames {
		cp := *f
		cp.Snapshot = f.Snapshot.Clone()
		if err := writeLine(handle, &line{Frame: &cp}); err != nil {
			return err
		}
		fs.frames[id] = append(fs.frames[id], &cp)
	}
	return nil
}

func (fs *fileStore) ListFrames(ctx context.Context, id string, limit, offset int) ([]*game.Frame, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if _, err := fs.requireRun(id); err != nil {
		return nil, err
	}
	frames := fs.frames[id]
	start, end := journal.Window(len(frames), limit, offset)
	return append([]*game.Frame{}, frames[start:end]...), nil
}

func (fs *fileStore) requireHandle(id string) (writer, error) {
	if w, ok := fs.writers[id]; ok {
		return w, nil
	}

	handle, err := openFileWriter(fs.directory, id)
	if err != nil {
		return nil, err
	}

	fs.writers[id] = handle
	return handle, nil
}

func (fs *fileStore) requireRun(id string) (*journal.Run, error) {
	// Do nothing if run already loaded.
	if r, ok := fs.runs[id]; ok {
		return r, nil
	}

	// Load the run and its frames from file.
	a, err := readArchive(fs.directory, id)
	if err != nil {
		return nil, err
	}

	fs.runs[id] = a.run
	fs.frames[id] = a.frames
	return a.run, nil
}

func getFilePath(directory string, id string) string {
	return path.Join(directory, id) + ".jsonl"
}
