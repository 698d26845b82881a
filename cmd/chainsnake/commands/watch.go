package commands

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/battlesnakeio/chainsnake/render"
	"github.com/gorilla/websocket"
	termbox "github.com/nsf/termbox-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "watches a running agent through its status api",
	Run: func(*cobra.Command, []string) {
		if err := watch(); err != nil {
			log.WithError(err).Fatal("watch failed")
		}
	},
}

func socketURL(addr string) string {
	u := url.URL{Scheme: "ws", Host: strings.TrimPrefix(strings.TrimPrefix(addr, "http://"), "https://"), Path: "/socket"}
	if strings.HasPrefix(addr, "https://") {
		u.Scheme = "wss"
	}
	return u.String()
}

func streamFrames(c *websocket.Conn, frames *frameHolder, done chan<- error) {
	for {
		mt, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				err = nil
			}
			done <- err
			return
		}

		switch mt {
		case websocket.TextMessage:
			frame := &game.Frame{}
			if err := json.Unmarshal(message, frame); err != nil {
				done <- errors.Wrap(err, "unmarshal frame")
				return
			}
			frames.append(frame)
		default:
			log.WithField("type", mt).Debug("unhandled message type")
		}
	}
}

func watch() error {
	u := socketURL(apiAddr)
	c, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		return errors.Wrapf(err, "dial %s", u)
	}
	defer c.Close()

	frames := &frameHolder{}
	streamDone := make(chan error, 1)
	go streamFrames(c, frames, streamDone)

	tb, err := render.NewTermbox("chainsnake watch")
	if err != nil {
		return err
	}
	defer tb.Close()

	eventQueue := setupEventQueue()
	cycle := time.NewTicker(200 * time.Millisecond)
	defer cycle.Stop()

	seen := -1
	for {
		select {
		case ev := <-eventQueue:
			if ev.Type == termbox.EventKey && (ev.Key == termbox.KeyEsc || ev.Key == termbox.KeyCtrlC || ev.Ch == 'q') {
				return nil
			}
		case err := <-streamDone:
			if err := tb.Render(frames.frames()); err != nil {
				return err
			}
			tbprint(0, 0, "Stream closed. Press any key to exit...")
			termbox.PollEvent()
			return err
		case <-cycle.C:
			if n := frames.received(); n != seen {
				seen = n
				if err := tb.Render(frames.frames()); err != nil {
					return err
				}
			}
		}
	}
}

func setupEventQueue() <-chan termbox.Event {
	eventQueue := make(chan termbox.Event)
	go func(ev chan<- termbox.Event) {
		for {
			ev <- termbox.PollEvent()
		}
	}(eventQueue)
	return eventQueue
}

func tbprint(x, y int, msg string) {
	for _, c := range msg {
		termbox.SetCell(x, y, c, termbox.ColorDefault, termbox.ColorDefault)
		x++
	}
	if err := termbox.Flush(); err != nil {
		log.WithError(err).Error("error while flushing termbox")
	}
}
