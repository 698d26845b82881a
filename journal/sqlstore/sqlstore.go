// Package sqlstore is a journal backend on postgres.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq" // Import pq driver.

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/battlesnakeio/chainsnake/journal"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const migrations = `
CREATE TABLE IF NOT EXISTS runs (
	id VARCHAR(255) PRIMARY KEY,
	value jsonb,
	created timestamp default now()
);
CREATE TABLE IF NOT EXISTS run_frames (
	id VARCHAR(255),
	seq INTEGER,
	value jsonb,
	PRIMARY KEY (id, seq)
);
`

// NewSQLStore returns a new store using a postgres database.
func NewSQLStore(url string) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err = db.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "ping postgres")
	}

	if _, err = db.ExecContext(ctx, migrations); err != nil {
		return nil, errors.Wrap(err, "migrate")
	}
	return &Store{db: db}, nil
}

// Store represents an SQL store.
type Store struct {
	db *sql.DB
}

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

// transact is a transaction wrapper, helps avoid failed to close connections.
func (s *Store) transact(
	ctx context.Context, txFunc func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			if rErr := tx.Rollback(); rErr != nil {
				log.WithError(rErr).Error("rollback failed")
			}
			panic(p) // re-throw panic after Rollback
		} else if err != nil {
			// err is non-nil; don't change it
			if rErr := tx.Rollback(); rErr != nil {
				log.WithError(rErr).Error("rollback failed")
			}
		} else {
			err = tx.Commit() // err is nil; if Commit returns error update err
		}
	}()
	err = txFunc(tx)
	return err
}

// CreateRun inserts or replaces a run.
func (s *Store) CreateRun(ctx context.Context, r *journal.Run) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, value) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET value=$2`,
		r.ID, data,
	)
	return err
}

// SetRunStatus is used to set a specific run status. This operation is
// atomic.
func (s *Store) SetRunStatus(ctx context.Context, id string, status journal.RunStatus) error {
	return s.transact(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE runs SET value = jsonb_set(value, '{status}', to_jsonb($2::text)) WHERE id = $1`,
			id, string(status),
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return journal.ErrNotFound
		}
		return nil
	})
}

// GetRun will fetch the run.
func (s *Store) GetRun(ctx context.Context, id string) (*journal.Run, error) {
	r := s.db.QueryRowContext(ctx, "SELECT value FROM runs WHERE id=$1", id)

	var data []byte
	if err := r.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, journal.ErrNotFound
		}
		return nil, err
	}

	run := &journal.Run{}
	if err := json.Unmarshal(data, run); err != nil {
		return nil, err
	}
	return run, nil
}

// AppendFrames appends frames after the run's last sequence number.
func (s *Store) AppendFrames(ctx context.Context, id string, frames ...*game.Frame) error {
	return s.transact(ctx, func(tx *sql.Tx) error {
		// Lock the run row so concurrent appends get distinct sequences.
		var exists string
		if err := tx.QueryRowContext(ctx,
			"SELECT id FROM runs WHERE id=$1 FOR UPDATE", id,
		).Scan(&exists); err != nil {
			if err == sql.ErrNoRows {
				return journal.ErrNotFound
			}
			return err
		}

		var last *int
		if err := tx.QueryRowContext(ctx,
			"SELECT MAX(seq) FROM run_frames WHERE id=$1", id,
		).Scan(&last); err != nil && err != sql.ErrNoRows {
			return err
		}
		seq := -1
		if last != nil {
			seq = *last
		}

		for _, f := range frames {
			seq++
			data, err := json.Marshal(f)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_frames (id, seq, value) VALUES ($1, $2, $3)`,
				id, seq, data,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListFrames will list frames by an offset and limit, it supports negative
// offset.
func (s *Store) ListFrames(ctx context.Context, id string, limit, offset int) ([]*game.Frame, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM run_frames WHERE id=$1", id,
	).Scan(&n); err != nil {
		return nil, err
	}
	start, end := journal.Window(n, limit, offset)

	rows, err := s.db.QueryContext(ctx,
		`SELECT value FROM run_frames WHERE id=$1 ORDER BY seq ASC LIMIT $2 OFFSET $3`,
		id, end-start, start,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	frames := []*game.Frame{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		frame := &game.Frame{}
		if err := json.Unmarshal(data, frame); err != nil {
			return nil, err
		}

		frames = append(frames, frame)
	}
	return frames, rows.Err()
}
