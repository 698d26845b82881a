package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/battlesnakeio/chainsnake/journal"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func frame(identity string, cycle int64) *game.Frame {
	return &game.Frame{
		RunID:    "run",
		Cycle:    cycle,
		Identity: identity,
		Board:    game.DefaultBoard,
		Snapshot: &game.Snapshot{Moves: uint64(cycle), Minted: map[int]bool{}},
	}
}

func get(t *testing.T, s *Server, path string, out interface{}) int {
	req, _ := http.NewRequest("GET", path, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if out != nil && rr.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out))
	}
	return rr.Code
}

func TestStatus(t *testing.T) {
	s := New(":0", nil)

	resp := &StatusResponse{}
	require.Equal(t, http.StatusOK, get(t, s, "/status", resp))
	require.Empty(t, resp.Frames)

	require.NoError(t, s.Render([]*game.Frame{frame("0xaa", 1), frame("0xbb", 1)}))
	require.NoError(t, s.Render([]*game.Frame{frame("0xaa", 2)}))

	require.Equal(t, http.StatusOK, get(t, s, "/status", resp))
	require.Len(t, resp.Frames, 2)
	require.Equal(t, "0xaa", resp.Frames[0].Identity)
	require.Equal(t, int64(2), resp.Frames[0].Cycle)
	require.Equal(t, "0xbb", resp.Frames[1].Identity)
}

func TestCORS(t *testing.T) {
	s := New(":0", nil)
	req, _ := http.NewRequest("GET", "/status", nil)
	req.Header.Set("Origin", "http://example.com")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRuns(t *testing.T) {
	store := journal.InMemStore()
	ctx := context.Background()
	require.NoError(t, store.CreateRun(ctx, &journal.Run{ID: "run", Identities: []string{"0xaa"}}))
	require.NoError(t, store.AppendFrames(ctx, "run", frame("0xaa", 0), frame("0xaa", 1), frame("0xaa", 2)))
	s := New(":0", store)

	run := &RunResponse{}
	require.Equal(t, http.StatusOK, get(t, s, "/runs/run", run))
	require.Equal(t, "run", run.Run.ID)
	require.Len(t, run.Frames, 1)
	require.Equal(t, int64(2), run.Frames[0].Cycle)

	frames := &StatusResponse{}
	require.Equal(t, http.StatusOK, get(t, s, "/runs/run/frames?limit=2&offset=0", frames))
	require.Len(t, frames.Frames, 2)

	require.Equal(t, http.StatusBadRequest, get(t, s, "/runs/run/frames?limit=x", nil))
	require.Equal(t, http.StatusNotFound, get(t, s, "/runs/missing", nil))
	require.Equal(t, http.StatusNotFound, get(t, s, "/runs/missing/frames", nil))
	require.Equal(t, http.StatusNotFound, get(t, New(":0", nil), "/runs/run", nil))
}

func TestSocket(t *testing.T) {
	s := New(":0", nil)
	require.NoError(t, s.Render([]*game.Frame{frame("0xaa", 1)}))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/socket"
	c, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))

	// Latest frames first.
	f := &game.Frame{}
	require.NoError(t, c.ReadJSON(f))
	require.Equal(t, int64(1), f.Cycle)

	// Wait for the subscription before publishing.
	require.Eventually(t, func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return len(s.subs) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Render([]*game.Frame{frame("0xaa", 2)}))
	require.NoError(t, c.ReadJSON(f))
	require.Equal(t, int64(2), f.Cycle)
}
