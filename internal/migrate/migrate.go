package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"tg-forum-migrator/internal/backoff"
	"tg-forum-migrator/internal/collector"
	"tg-forum-migrator/internal/config"
	"tg-forum-migrator/internal/cursor"
	"tg-forum-migrator/internal/directory"
	"tg-forum-migrator/internal/dispatch"
	"tg-forum-migrator/internal/resolver"
	"tg-forum-migrator/internal/stats"
	"tg-forum-migrator/internal/types"
)

// Remote is everything the migrator needs from the messaging platform.
// FetchPost returns types.ErrPostNotFound for ids with no post.
type Remote interface {
	directory.Lister
	resolver.Creator
	collector.ThreadReader
	dispatch.Sender
	FetchPost(ctx context.Context, id int) (types.Post, error)
}

const (
	ReasonMissThreshold = "miss threshold reached"
	ReasonMaxPostID     = "max post id reached"
	ReasonInterrupted   = "interrupted"
)

// Migrator copies channel posts into forum topics, one post at a time.
type Migrator struct {
	Config  config.Config
	Remote  Remote
	Policy  *backoff.Policy
	Tracker *stats.Tracker
	Logger  *log.Logger
}

// New returns a Migrator with the production backoff policy.
func New(cfg config.Config, remote Remote, tracker *stats.Tracker, logger *log.Logger) *Migrator {
	return &Migrator{
		Config:  cfg,
		Remote:  remote,
		Policy:  backoff.NewPolicy(logger.WithPrefix("backoff")),
		Tracker: tracker,
		Logger:  logger,
	}
}

type run struct {
	*Migrator
	resolver  *resolver.Resolver
	collector *collector.Collector
	engine    *dispatch.Engine
}

// Run scans the source channel from the configured start id until the scan ends.
// Only a failure to list the target forum's topics is returned as an error;
// everything that goes wrong with an individual post is logged and the scan moves on.
func (m *Migrator) Run(ctx context.Context) (stats.Snapshot, error) {
	dir, err := directory.Load(ctx, m.Remote, m.Config.TopicListLimit)
	if err != nil {
		m.Tracker.Update(func(s *stats.Snapshot) { s.State = "failed" })
		return m.Tracker.Snapshot(), fmt.Errorf("load forum topics: %w", err)
	}
	m.Logger.Info("forum topics loaded", "count", dir.Len())

	r := &run{
		Migrator: m,
		resolver: &resolver.Resolver{
			Directory:   dir,
			Creator:     m.Remote,
			IconEmojiID: m.Config.IconEmojiID,
			Logger:      m.Logger.WithPrefix("topics"),
		},
		collector: &collector.Collector{Reader: m.Remote, Logger: m.Logger.WithPrefix("comments")},
		engine:    &dispatch.Engine{Sender: m.Remote, Policy: m.Policy, Logger: m.Logger.WithPrefix("dispatch")},
	}

	m.Tracker.Update(func(s *stats.Snapshot) { s.State = "running" })
	reason := r.scan(ctx, cursor.New(m.Config.StartPostID, m.Config.MissThreshold, m.Config.MaxPostID))
	m.Tracker.Update(func(s *stats.Snapshot) {
		s.State = "finished"
		s.Reason = reason
	})

	sum := m.Tracker.Snapshot()
	m.Logger.Info("migration finished",
		"reason", reason,
		"last_post", sum.CurrentPostID,
		"processed", sum.PostsProcessed,
		"abandoned", sum.PostsAbandoned,
		"missing", sum.PostsMissing,
		"topics_created", sum.TopicsCreated,
		"topics_reused", sum.TopicsReused,
		"albums", sum.AlbumsSent,
		"media", sum.MediaSent,
		"placeholders", sum.Placeholders,
	)
	return sum, nil
}

func (r *run) scan(ctx context.Context, cur *cursor.Cursor) string {
	for {
		if ctx.Err() != nil {
			return ReasonInterrupted
		}
		id := cur.Current()
		r.Tracker.Update(func(s *stats.Snapshot) {
			s.CurrentPostID = id
			s.Misses = cur.Misses()
		})

		post, err := r.fetch(ctx, id)
		switch {
		case err == nil:
			cur.Hit()
			r.process(ctx, post)
		case ctx.Err() != nil:
			return ReasonInterrupted
		default:
			if errors.Is(err, types.ErrPostNotFound) {
				r.Logger.Debug("post not found, skipped", "post", id)
			} else {
				r.Logger.Error("post fetch failed, counted as missing", "post", id, "err", err)
			}
			r.Tracker.Update(func(s *stats.Snapshot) { s.PostsMissing++ })
			if cur.Miss() {
				r.Logger.Warn("too many consecutive missing posts, stopping", "post", id, "misses", cur.Misses())
				return ReasonMissThreshold
			}
		}

		if !cur.Advance() {
			return ReasonMaxPostID
		}
	}
}

// fetch waits out rate limits on reads and retries the same id.
func (r *run) fetch(ctx context.Context, id int) (types.Post, error) {
	for {
		post, err := r.Remote.FetchPost(ctx, id)
		var rl *types.RateLimitError
		if !errors.As(err, &rl) {
			return post, err
		}
		r.Logger.Warn("rate limited while fetching, waiting", "post", id, "wait", rl.Wait)
		if err := r.Policy.Sleep(ctx, rl.Wait); err != nil {
			return types.Post{}, err
		}
	}
}

func (r *run) process(ctx context.Context, post types.Post) {
	topic, err := r.resolver.Resolve(ctx, post)
	if err != nil {
		if ctx.Err() != nil {
			r.Logger.Warn("interrupted while resolving topic", "post", post.ID)
			return
		}
		r.Logger.Error("topic unavailable, post skipped", "post", post.ID, "topic", resolver.Title(post), "err", err)
		r.Tracker.Update(func(s *stats.Snapshot) { s.PostsAbandoned++ })
		return
	}
	r.Tracker.Update(func(s *stats.Snapshot) {
		if topic.Origin == types.OriginCreated {
			s.TopicsCreated++
		} else {
			s.TopicsReused++
		}
	})

	if r.engine.SendMain(ctx, post, topic.AnchorID) {
		r.Tracker.Update(func(s *stats.Snapshot) { s.MainPostsSent++ })
	}

	items, err := r.collector.Collect(ctx, post.ID)
	if err != nil {
		if ctx.Err() != nil {
			r.Logger.Warn("interrupted while reading comments", "post", post.ID, "topic", topic.Title)
			return
		}
		r.Logger.Error("comment thread unavailable, post skipped", "post", post.ID, "topic", topic.Title, "err", err)
		r.Tracker.Update(func(s *stats.Snapshot) { s.PostsAbandoned++ })
		return
	}

	if len(items) == 0 {
		if r.engine.SendPlaceholder(ctx, post.ID, topic.AnchorID) {
			r.Tracker.Update(func(s *stats.Snapshot) { s.Placeholders++ })
		}
	} else {
		albums, media := r.engine.SendAlbums(ctx, post.ID, items, topic.AnchorID)
		r.Tracker.Update(func(s *stats.Snapshot) {
			s.AlbumsSent += albums
			s.MediaSent += media
		})
	}
	r.Tracker.Update(func(s *stats.Snapshot) { s.PostsProcessed++ })
}
