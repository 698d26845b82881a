package filestore

import (
	"encoding/json"
	"os"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/battlesnakeio/chainsnake/journal"
)

var openFileWriter = appendOnlyFileWriter

type writer interface {
	WriteString(s string) (int, error)
	Close() error
}

// line is one record of a run file: either a run header (repeated whenever
// the status changes, last one wins) or a frame.
type line struct {
	Run   *journal.Run `json:"run,omitempty"`
	Frame *game.Frame  `json:"frame,omitempty"`
}

func writeLine(w writer, data interface{}) error {
	j, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = w.WriteString(string(j) + "\n")
	return err
}

func appendOnlyFileWriter(directory, id string) (writer, error) {
	if err := os.MkdirAll(directory, 0775); err != nil {
		return nil, err
	}

	flags := os.O_APPEND | os.O_WRONLY | os.O_CREATE
	return os.OpenFile(getFilePath(directory, id), flags, 0644)
}
