package commands

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/battlesnakeio/chainsnake/agent"
	"github.com/battlesnakeio/chainsnake/api"
	"github.com/battlesnakeio/chainsnake/chain"
	"github.com/battlesnakeio/chainsnake/config"
	"github.com/battlesnakeio/chainsnake/executor"
	"github.com/battlesnakeio/chainsnake/game"
	"github.com/battlesnakeio/chainsnake/journal"
	"github.com/battlesnakeio/chainsnake/journal/filestore"
	"github.com/battlesnakeio/chainsnake/journal/redisstore"
	"github.com/battlesnakeio/chainsnake/journal/sqlstore"
	"github.com/battlesnakeio/chainsnake/render"
	termbox "github.com/nsf/termbox-go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// Flags shared by the commands that run an agent.
var (
	renderer       = "termbox"
	journalBackend = "inmem"
	journalArgs    = ""
	apiListen      = ":3015"
	promEnable     = false
	promListen     = ":9000"
	cycleDelay     = config.CycleDelay
	finality       = config.FinalityTimeout
	parallel       = 1
	bounded        = false
)

func agentFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("agent", pflag.ExitOnError)
	fs.StringVarP(&renderer, "renderer", "r", renderer, "render sink, as one of: [termbox, text, none]")
	fs.StringVarP(&journalBackend, "journal", "j", journalBackend, "journal backend, as one of: [inmem, file, redis, sql]")
	fs.StringVar(&journalArgs, "journal-args", journalArgs, "options to pass to the journal backend (directory or URL)")
	fs.StringVar(&apiListen, "api-listen", apiListen, "status api address, empty to disable")
	fs.BoolVar(&promEnable, "prometheus", promEnable, "enable prometheus metrics")
	fs.StringVar(&promListen, "prometheus-listen", promListen, "prometheus http endpoint")
	fs.DurationVar(&cycleDelay, "cycle-delay", cycleDelay, "pause after every identity cycle")
	fs.DurationVar(&finality, "finality-timeout", finality, "how long to wait for a transaction to be final")
	fs.IntVar(&parallel, "parallel", parallel, "run up to this many identity cycles concurrently")
	fs.BoolVar(&bounded, "bounded", bounded, "never submit a move leaving the board")
	return fs
}

func prometheus() {
	if !promEnable {
		log.Debug("prometheus exporter not enabled")
		return
	}

	log.WithField("addr", promListen).Info("starting prometheus exporter")
	go func() {
		r := http.NewServeMux()
		r.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(promListen, r); err != nil {
			log.WithError(err).Warn("prometheus failed to listen")
		}
	}()
}

// openJournal returns the instrumented store and a func releasing the
// backend's connections.
func openJournal() (journal.Store, func(), error) {
	var store journal.Store
	var err error
	switch journalBackend {
	case "inmem":
		store = journal.InMemStore()
	case "file":
		store = filestore.NewFileStore(journalArgs)
	case "redis":
		store, err = redisstore.NewStore(journalArgs)
	case "sql":
		store, err = sqlstore.NewSQLStore(journalArgs)
	default:
		return nil, nil, errors.Errorf("invalid journal backend %q", journalBackend)
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, "unable to start %s journal", journalBackend)
	}

	closer := func() {}
	if c, ok := store.(io.Closer); ok {
		closer = func() {
			if err := c.Close(); err != nil {
				log.WithError(err).Error("unable to close journal")
			}
		}
	}
	return journal.InstrumentStore(store), closer, nil
}

// logOutput points logs at --log-file, or at ~/.chainsnake/chainsnake.log
// while the termbox renderer owns the terminal. The returned func puts logs
// back on stderr and closes the file; it is nil when logs stay on stderr.
func logOutput() (func(), error) {
	path := logFile
	if path == "" && renderer == "termbox" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		path = filepath.Join(home, ".chainsnake", "chainsnake.log")
	}
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

// runAgent wires the sinks around a gateway and plays until every identity
// holds the terminal tier, the user quits or a signal arrives.
func runAgent(gateway chain.Gateway, ids []*chain.Identity, tiers game.Tiers) (err error) {
	board, err := config.Board()
	if err != nil {
		return err
	}
	prometheus()

	restore, err := logOutput()
	if err != nil {
		return errors.Wrap(err, "log file")
	}
	if restore != nil {
		defer func() {
			if err != nil {
				log.WithError(err).Error("agent failed")
			}
			restore()
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openJournal()
	if err != nil {
		return err
	}
	defer closeStore()

	sinks := []render.Renderer{}
	switch renderer {
	case "termbox":
		tb, err := render.NewTermbox("chainsnake")
		if err != nil {
			return errors.Wrap(err, "termbox")
		}
		defer tb.Close()
		release := quitOnKey(termbox.PollEvent, termbox.Interrupt, stop)
		defer release()
		sinks = append(sinks, tb)
	case "text":
		sinks = append(sinks, render.NewText(os.Stdout))
	case "none":
	default:
		return errors.Errorf("invalid renderer %q", renderer)
	}

	if apiListen != "" {
		srv := api.New(apiListen, store)
		sinks = append(sinks, srv)
		go srv.WaitForExit()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.WithError(err).Warn("status api shutdown")
			}
		}()
	}

	a := &agent.Agent{
		Gateway:    gateway,
		Executor:   executor.New(gateway, finality),
		Identities: ids,
		Tiers:      tiers,
		Board:      board,
		Bounded:    bounded,
		CycleDelay: cycleDelay,
		Parallel:   parallel,
		Renderer:   render.Multi(sinks...),
		Journal:    store,
		RunID:      uuid.NewV4().String(),
	}
	log.WithField("run", a.RunID).WithField("identities", len(ids)).Info("starting agent")

	err = a.Run(ctx)
	if errors.Cause(err) == context.Canceled {
		log.Info("stopped")
		return nil
	}
	return err
}

// quitOnKey cancels the run on Esc, q or Ctrl-C while termbox owns the
// keyboard. The returned func interrupts the poller and waits for it to exit,
// it must run before termbox is closed.
func quitOnKey(poll func() termbox.Event, interrupt func(), stop func()) func() {
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		for {
			ev := poll()
			switch {
			case ev.Type == termbox.EventInterrupt:
				return
			case ev.Type == termbox.EventKey && (ev.Key == termbox.KeyEsc || ev.Key == termbox.KeyCtrlC || ev.Ch == 'q'):
				stop()
			}
		}
	}()
	return func() {
		interrupt()
		<-exited
	}
}
