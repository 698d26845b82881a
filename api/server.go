// Package api serves the agent's latest frames over HTTP and streams new
// frames over a websocket. The server is itself a render sink.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/battlesnakeio/chainsnake/journal"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

// subscriberBuffer is how many frames a slow websocket client may lag
// before frames are dropped for it.
const subscriberBuffer = 64

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Frames []*game.Frame `json:"frames"`
}

// RunResponse is the body of GET /runs/:id.
type RunResponse struct {
	Run    *journal.Run  `json:"run"`
	Frames []*game.Frame `json:"frames"`
}

// Server is the status API.
type Server struct {
	hs       *http.Server
	store    journal.Store
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	latest map[string]*game.Frame
	order  []string
	subs   map[chan *game.Frame]struct{}
}

// New returns a server listening on addr. store may be nil, in which case
// the /runs routes answer 404.
func New(addr string, store journal.Store) *Server {
	s := &Server{
		store:  store,
		latest: map[string]*game.Frame{},
		subs:   map[chan *game.Frame]struct{}{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	router := httprouter.New()
	router.GET("/status", s.status)
	router.GET("/socket", s.socket)
	router.GET("/runs/:id", s.run)
	router.GET("/runs/:id/frames", s.runFrames)

	s.hs = &http.Server{
		Addr: addr,
		Handler: cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet},
		}).Handler(router),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.hs.Handler }

// WaitForExit serves until the server is shut down.
func (s *Server) WaitForExit() {
	log.WithField("addr", s.hs.Addr).Info("status api listening")
	if err := s.hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("error while listening")
	}
}

// Shutdown stops the server and closes every websocket stream.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
	s.mu.Unlock()
	return s.hs.Shutdown(ctx)
}

// Render records the frames as the latest per identity and pushes them to
// every websocket subscriber.
func (s *Server) Render(frames []*game.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range frames {
		if _, ok := s.latest[f.Identity]; !ok {
			s.order = append(s.order, f.Identity)
		}
		s.latest[f.Identity] = f
		for ch := range s.subs {
			select {
			case ch <- f:
			default:
				log.WithField("identity", f.Identity).Debug("websocket subscriber lagging, frame dropped")
			}
		}
	}
	return nil
}

// Latest returns the latest frame of every identity, in first seen order.
func (s *Server) Latest() []*game.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	frames := make([]*game.Frame, 0, len(s.order))
	for _, id := range s.order {
		frames = append(frames, s.latest[id])
	}
	return frames
}

func (s *Server) subscribe() (chan *game.Frame, []*game.Frame) {
	ch := make(chan *game.Frame, subscriberBuffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch, s.Latest()
}

func (s *Server) unsubscribe(ch chan *game.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
}

func (s *Server) status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, &StatusResponse{Frames: s.Latest()})
}

func (s *Server) socket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch, initial := s.subscribe()
	defer s.unsubscribe(ch)

	// The read side only exists to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, f := range initial {
		if err := conn.WriteJSON(f); err != nil {
			return
		}
	}
	for {
		select {
		case f, ok := <-ch:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func (s *Server) run(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, journal.ErrNotFound)
		return
	}
	run, err := s.store.GetRun(r.Context(), ps.ByName("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	frames, err := s.store.ListFrames(r.Context(), run.ID, len(run.Identities), -len(run.Identities))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &RunResponse{Run: run, Frames: frames})
}

func (s *Server) runFrames(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, journal.ErrNotFound)
		return
	}
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	frames, err := s.store.ListFrames(r.Context(), ps.ByName("id"), limit, offset)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &StatusResponse{Frames: frames})
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", name)
	}
	return n, nil
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Cause(err) == journal.ErrNotFound {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("unable to write response")
	}
}
