package filestore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/battlesnakeio/chainsnake/journal"
	"github.com/battlesnakeio/chainsnake/journal/testsuite"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	lines  []string
	closed bool
	err    error
}

func (w *mockWriter) WriteString(s string) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.lines = append(w.lines, s)
	return len(s), nil
}

func (w *mockWriter) Close() error {
	w.closed = true
	return nil
}

func withWriter(t *testing.T, w *mockWriter) {
	orig := openFileWriter
	openFileWriter = func(directory, id string) (writer, error) { return w, nil }
	t.Cleanup(func() { openFileWriter = orig })
}

var basicRun = &journal.Run{
	ID:         "myid",
	Status:     journal.RunRunning,
	Identities: []string{"0xaa"},
	Board:      game.DefaultBoard,
	Created:    time.Unix(1700000000, 0).UTC(),
}

func TestFileStoreSuite(t *testing.T) {
	dir := t.TempDir()

	testsuite.Suite(t, NewFileStore(dir), func() {})
}

func TestFileStoreWritesLines(t *testing.T) {
	w := &mockWriter{}
	withWriter(t, w)
	fs := NewFileStore("unused")
	ctx := context.Background()

	require.NoError(t, fs.CreateRun(ctx, basicRun))
	require.NoError(t, fs.AppendFrames(ctx, "myid", &game.Frame{RunID: "myid", Snapshot: game.NewSnapshot()}))
	require.NoError(t, fs.SetRunStatus(ctx, "myid", journal.RunComplete))

	require.Len(t, w.lines, 3)
	require.Contains(t, w.lines[0], `"run":`)
	require.Contains(t, w.lines[1], `"frame":`)
	require.Contains(t, w.lines[2], `"complete"`)
	require.True(t, w.closed)
}

func TestCreateRunHandlesWriteError(t *testing.T) {
	withWriter(t, &mockWriter{err: errors.New("fail")})
	fs := NewFileStore("unused")
	require.Error(t, fs.CreateRun(context.Background(), basicRun))

	_, err := fs.GetRun(context.Background(), "myid")
	require.Error(t, err)
}

func TestCreateRunHandlesOpenFileError(t *testing.T) {
	orig := openFileWriter
	openFileWriter = func(directory, id string) (writer, error) {
		return nil, errors.New("fail")
	}
	defer func() { openFileWriter = orig }()

	fs := NewFileStore("unused")
	require.Error(t, fs.CreateRun(context.Background(), basicRun))
}

func TestFileStoreReloadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	fs := NewFileStore(dir)
	require.NoError(t, fs.CreateRun(ctx, basicRun))
	for i := int64(0); i < 3; i++ {
		require.NoError(t, fs.AppendFrames(ctx, "myid", &game.Frame{
			RunID:    "myid",
			Cycle:    i,
			Snapshot: &game.Snapshot{Moves: uint64(i), Minted: map[int]bool{}},
		}))
	}
	require.NoError(t, fs.SetRunStatus(ctx, "myid", journal.RunComplete))

	// A fresh store only has the file.
	reopened := NewFileStore(dir)
	r, err := reopened.GetRun(ctx, "myid")
	require.NoError(t, err)
	require.Equal(t, journal.RunComplete, r.Status)

	frames, err := reopened.ListFrames(ctx, "myid", 10, 0)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	require.Equal(t, uint64(2), frames[2].Snapshot.Moves)

	_, err = reopened.GetRun(ctx, "missing")
	require.Equal(t, journal.ErrNotFound, err)
}

func TestReadArchiveCorruptLine(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(getFilePath(dir, "bad"), []byte("{\"run\":{\"id\":\"bad\"}}\nnot json\n"), 0644))
	_, err := readArchive(dir, "bad")
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
}
