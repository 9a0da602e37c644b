package stats

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time view of a run's progress.
type Snapshot struct {
	State          string    `json:"state"`
	StartedAt      time.Time `json:"started_at"`
	CurrentPostID  int       `json:"current_post_id"`
	Misses         int       `json:"consecutive_misses"`
	PostsProcessed int       `json:"posts_processed"`
	PostsMissing   int       `json:"posts_missing"`
	PostsAbandoned int       `json:"posts_abandoned"`
	TopicsCreated  int       `json:"topics_created"`
	TopicsReused   int       `json:"topics_reused"`
	MainPostsSent  int       `json:"main_posts_sent"`
	AlbumsSent     int       `json:"albums_sent"`
	MediaSent      int       `json:"media_sent"`
	Placeholders   int       `json:"placeholders_sent"`
	Reason         string    `json:"termination_reason,omitempty"`
}

// Tracker collects run counters. The migration worker writes; the status server reads snapshots.
type Tracker struct {
	mu sync.Mutex
	s  Snapshot
}

func NewTracker(now time.Time) *Tracker {
	return &Tracker{s: Snapshot{State: "starting", StartedAt: now}}
}

// Update applies fn to the counters under the lock.
func (t *Tracker) Update(fn func(s *Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.s)
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}
