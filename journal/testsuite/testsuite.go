// Package testsuite is the conformance suite every journal backend runs.
package testsuite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/battlesnakeio/chainsnake/journal"
	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/require"
)

func frame(id string, cycle int64) *game.Frame {
	return &game.Frame{
		RunID:    id,
		Cycle:    cycle,
		Identity: "0x00000000000000000000000000000000000000aa",
		Snapshot: &game.Snapshot{
			Score:  uint64(cycle) * 10,
			Moves:  uint64(cycle),
			Head:   game.Position{X: int(cycle), Y: 1},
			Food:   []game.Position{{X: 3, Y: 4}},
			Minted: map[int]bool{1: true},
		},
		Board: game.DefaultBoard,
		Time:  time.Unix(1700000000+cycle, 0).UTC(),
	}
}

func newRun(t *testing.T, s journal.Store) string {
	key := uuid.NewV4().String()
	err := s.CreateRun(context.Background(), &journal.Run{
		ID:         key,
		Status:     journal.RunRunning,
		Identities: []string{"0xaa", "0xbb"},
		Board:      game.DefaultBoard,
		Created:    time.Unix(1700000000, 0).UTC(),
	})
	require.Nil(t, err)
	return key
}

func testStoreRuns(t *testing.T, s journal.Store) {
	key := newRun(t, s)
	ctx := context.Background()

	r, err := s.GetRun(ctx, key)
	require.Nil(t, err)
	require.Equal(t, key, r.ID)
	require.Equal(t, journal.RunRunning, r.Status)
	require.Equal(t, []string{"0xaa", "0xbb"}, r.Identities)
	require.Equal(t, game.DefaultBoard, r.Board)

	// NotFound error thrown.
	_, err = s.GetRun(ctx, key+"-missing")
	require.Equal(t, journal.ErrNotFound, err)
}

func testStoreRunStatus(t *testing.T, s journal.Store) {
	key := newRun(t, s)
	ctx := context.Background()

	err := s.SetRunStatus(ctx, key, journal.RunComplete)
	require.Nil(t, err)

	r, err := s.GetRun(ctx, key)
	require.Nil(t, err)
	require.Equal(t, journal.RunComplete, r.Status)

	err = s.SetRunStatus(ctx, key+"-missing", journal.RunError)
	require.Equal(t, journal.ErrNotFound, err)
}

func testStoreFrames(t *testing.T, s journal.Store) {
	key := newRun(t, s)
	ctx := context.Background()

	// Empty run.
	frames, err := s.ListFrames(ctx, key, 10, 0)
	require.Nil(t, err)
	require.Equal(t, 0, len(frames))

	// Append to a missing run.
	err = s.AppendFrames(ctx, key+"-missing", frame(key, 0))
	require.Equal(t, journal.ErrNotFound, err)

	err = s.AppendFrames(ctx, key, frame(key, 0), frame(key, 1))
	require.Nil(t, err)
	err = s.AppendFrames(ctx, key, frame(key, 2))
	require.Nil(t, err)

	frames, err = s.ListFrames(ctx, key, 10, 0)
	require.Nil(t, err)
	require.Equal(t, 3, len(frames))
	for i, f := range frames {
		require.Equal(t, int64(i), f.Cycle)
	}
	require.Equal(t, frame(key, 1).Snapshot, frames[1].Snapshot)
	require.True(t, frame(key, 1).Time.Equal(frames[1].Time))

	// Limit and offset.
	frames, err = s.ListFrames(ctx, key, 1, 1)
	require.Nil(t, err)
	require.Equal(t, 1, len(frames))
	require.Equal(t, int64(1), frames[0].Cycle)

	// Negative offset counts from the end.
	frames, err = s.ListFrames(ctx, key, 10, -1)
	require.Nil(t, err)
	require.Equal(t, 1, len(frames))
	require.Equal(t, int64(2), frames[0].Cycle)

	// Too high offset.
	frames, err = s.ListFrames(ctx, key, 10, 100)
	require.Nil(t, err)
	require.Equal(t, 0, len(frames))

	// Missing run.
	frames, err = s.ListFrames(ctx, key+"-missing", 1, 0)
	require.Equal(t, journal.ErrNotFound, err)
	require.Equal(t, 0, len(frames))
}

func testStoreConcurrentWriters(t *testing.T, s journal.Store) {
	key := newRun(t, s)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(20)
	for i := 0; i < 20; i++ {
		go func(i int) {
			defer wg.Done()
			require.NoError(t, s.AppendFrames(ctx, key, frame(key, int64(i))))
		}(i)
	}
	wg.Wait()

	frames, err := s.ListFrames(ctx, key, 100, 0)
	require.Nil(t, err)
	require.Equal(t, 20, len(frames))
}

// Suite will execute the store testsuite.
func Suite(t *testing.T, s journal.Store, pretest func()) {
	s = journal.InstrumentStore(s)
	t.Run("Runs", func(t *testing.T) { pretest(); testStoreRuns(t, s) })
	t.Run("RunStatus", func(t *testing.T) { pretest(); testStoreRunStatus(t, s) })
	t.Run("Frames", func(t *testing.T) { pretest(); testStoreFrames(t, s) })
	t.Run("ConcurrentWriters", func(t *testing.T) { pretest(); testStoreConcurrentWriters(t, s) })
}
