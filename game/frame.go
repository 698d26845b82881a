package game

import "time"

// Frame is one rendered view of a player's snapshot. Frames are what the
// render sinks draw, what the journal stores and what the status API streams.
type Frame struct {
	RunID    string    `json:"run_id"`
	Cycle    int64     `json:"cycle"`
	Identity string    `json:"identity"`
	Snapshot *Snapshot `json:"snapshot"`
	Board    Board     `json:"board"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}
