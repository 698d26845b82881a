package commands

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/battlesnakeio/chainsnake/agent"
	"github.com/battlesnakeio/chainsnake/api"
	"github.com/battlesnakeio/chainsnake/config"
	"github.com/battlesnakeio/chainsnake/game"
	"github.com/battlesnakeio/chainsnake/journal"
	termbox "github.com/nsf/termbox-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestSocketURL(t *testing.T) {
	require.Equal(t, "ws://localhost:3015/socket", socketURL("http://localhost:3015"))
	require.Equal(t, "wss://agent.example.com/socket", socketURL("https://agent.example.com"))
}

func TestGetJSON(t *testing.T) {
	srv := api.New(":0", nil)
	require.NoError(t, srv.Render([]*game.Frame{{Identity: "0xaa", Cycle: 4}}))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	orig := apiAddr
	apiAddr = ts.URL
	defer func() { apiAddr = orig }()

	out := &api.StatusResponse{}
	require.NoError(t, getJSON("/status", out))
	require.Len(t, out.Frames, 1)
	require.Equal(t, int64(4), out.Frames[0].Cycle)

	require.Error(t, getJSON("/runs/missing", &api.RunResponse{}))
}

func TestOpenJournal(t *testing.T) {
	orig := journalBackend
	defer func() { journalBackend = orig }()

	journalBackend = "inmem"
	store, closeStore, err := openJournal()
	require.NoError(t, err)
	defer closeStore()
	_, err = store.GetRun(context.Background(), "missing")
	require.Equal(t, journal.ErrNotFound, err)

	journalBackend = "etcd"
	_, _, err = openJournal()
	require.Error(t, err)
}

func TestRunAgentLogsFailureToFile(t *testing.T) {
	origLog, origRenderer, origAPI, origPlayers := logFile, renderer, apiListen, devPlayers
	defer func() {
		logFile, renderer, apiListen, devPlayers = origLog, origRenderer, origAPI, origPlayers
		log.SetOutput(os.Stderr)
	}()

	logFile = filepath.Join(t.TempDir(), "agent.log")
	renderer = "none"
	apiListen = ""
	devPlayers = 0

	err := playDev()
	require.Equal(t, agent.ErrNoFundedIdentity, errors.Cause(err))
	require.Equal(t, os.Stderr, log.StandardLogger().Out)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "agent failed")
	require.Contains(t, string(data), "no funded identity")
}

func TestRunAgentRejectsEmptyBoard(t *testing.T) {
	origWidth, origRenderer, origAPI := config.BoardWidth, renderer, apiListen
	defer func() { config.BoardWidth, renderer, apiListen = origWidth, origRenderer, origAPI }()

	config.BoardWidth = 0
	renderer = "none"
	apiListen = ""
	require.Error(t, playDev())
}

func TestQuitOnKey(t *testing.T) {
	events := make(chan termbox.Event)
	var stops int32
	release := quitOnKey(
		func() termbox.Event { return <-events },
		func() { events <- termbox.Event{Type: termbox.EventInterrupt} },
		func() { atomic.AddInt32(&stops, 1) },
	)

	events <- termbox.Event{Type: termbox.EventKey, Ch: 'x'}
	events <- termbox.Event{Type: termbox.EventKey, Ch: 'q'}
	events <- termbox.Event{Type: termbox.EventKey, Key: termbox.KeyEsc}
	release()
	require.Equal(t, int32(2), atomic.LoadInt32(&stops))
}
