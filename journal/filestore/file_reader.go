package filestore

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/battlesnakeio/chainsnake/journal"
	"github.com/pkg/errors"
)

var openFileReader = func(directory, id string) (reader, error) {
	return os.Open(getFilePath(directory, id))
}

type reader interface {
	Read(p []byte) (int, error)
	Close() error
}

type runArchive struct {
	run    *journal.Run
	frames []*game.Frame
}

// readArchive replays a run file. A missing file or one without a run header
// is journal.ErrNotFound.
func readArchive(directory, id string) (runArchive, error) {
	f, err := openFileReader(directory, id)
	if err != nil {
		if os.IsNotExist(err) {
			return runArchive{}, journal.ErrNotFound
		}
		return runArchive{}, err
	}
	defer f.Close()

	a := runArchive{frames: []*game.Frame{}}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var l line
		if err := json.Unmarshal(scanner.Bytes(), &l); err != nil {
			return runArchive{}, errors.Wrapf(err, "%s line %d", getFilePath(directory, id), n)
		}
		if l.Run != nil {
			a.run = l.Run
		}
		if l.Frame != nil {
			a.frames = append(a.frames, l.Frame)
		}
	}
	if err := scanner.Err(); err != nil {
		return runArchive{}, err
	}
	if a.run == nil {
		return runArchive{}, journal.ErrNotFound
	}
	return a, nil
}
