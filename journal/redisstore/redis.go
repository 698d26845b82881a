// Package redisstore is a journal backend on redis: one JSON string per run
// and one list of JSON frames per run.
package redisstore

import (
	"context"
	"encoding/json"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/battlesnakeio/chainsnake/journal"
	"github.com/go-redis/redis"
	"github.com/pkg/errors"
)

// Store is a redis backed journal.
type Store struct {
	client *redis.Client
}

// NewStore will create a new instance of an underlying redis client, so it
// should not be re-created across goroutines. See go-redis ParseURL for the
// URL format. The connection is tested immediately.
func NewStore(connectURL string) (*Store, error) {
	o, err := redis.ParseURL(connectURL)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse redis URL")
	}

	client := redis.NewClient(o)

	if err := client.Ping().Err(); err != nil {
		return nil, errors.Wrap(err, "unable to connect")
	}

	return &Store{client: client}, nil
}

// Close closes the underlying client.
func (rs *Store) Close() error { return rs.client.Close() }

func runKey(id string) string    { return "chainsnake:run:" + id }
func framesKey(id string) string { return "chainsnake:frames:" + id }

// CreateRun inserts or replaces a run.
func (rs *Store) CreateRun(ctx context.Context, r *journal.Run) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return rs.client.WithContext(ctx).Set(runKey(r.ID), data, 0).Err()
}

// SetRunStatus updates a run's status.
func (rs *Store) SetRunStatus(ctx context.Context, id string, status journal.RunStatus) error {
	r, err := rs.GetRun(ctx, id)
	if err != nil {
		return err
	}
	r.Status = status
	return rs.CreateRun(ctx, r)
}

// GetRun will fetch the run.
func (rs *Store) GetRun(ctx context.Context, id string) (*journal.Run, error) {
	data, err := rs.client.WithContext(ctx).Get(runKey(id)).Bytes()
	if err == redis.Nil {
		return nil, journal.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r := &journal.Run{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, errors.Wrapf(err, "decode run %s", id)
	}
	return r, nil
}

func (rs *Store) requireRun(ctx context.Context, id string) error {
	n, err := rs.client.WithContext(ctx).Exists(runKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return journal.ErrNotFound
	}
	return nil
}

// AppendFrames pushes frames onto the run's list.
func (rs *Store) AppendFrames(ctx context.Context, id string, frames ...*game.Frame) error {
	if err := rs.requireRun(ctx, id); err != nil {
		return err
	}
	if len(frames) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(frames))
	for _, f := range frames {
		data, err := json.Marshal(f)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	return rs.client.WithContext(ctx).RPush(framesKey(id), values...).Err()
}

// ListFrames will list frames by an offset and limit, it supports negative
// offset.
func (rs *Store) ListFrames(ctx context.Context, id string, limit, offset int) ([]*game.Frame, error) {
	if err := rs.requireRun(ctx, id); err != nil {
		return nil, err
	}
	c := rs.client.WithContext(ctx)
	n, err := c.LLen(framesKey(id)).Result()
	if err != nil {
		return nil, err
	}
	start, end := journal.Window(int(n), limit, offset)
	frames := []*game.Frame{}
	if start == end {
		return frames, nil
	}
	values, err := c.LRange(framesKey(id), int64(start), int64(end-1)).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		f := &game.Frame{}
		if err := json.Unmarshal([]byte(v), f); err != nil {
			return nil, errors.Wrapf(err, "decode frame of run %s", id)
		}
		frames = append(frames, f)
	}
	return frames, nil
}
