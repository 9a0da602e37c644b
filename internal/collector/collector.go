package collector

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"tg-forum-migrator/internal/types"
)

// ThreadReader enumerates a post's comment thread, oldest reply first.
type ThreadReader interface {
	Replies(ctx context.Context, postID int) ([]types.Reply, error)
}

// Collector gathers the photos and videos of a post's comment thread.
type Collector struct {
	Reader ThreadReader
	Logger *log.Logger
}

// Collect returns the thread's photo and video replies in their original order.
func (c *Collector) Collect(ctx context.Context, postID int) ([]types.MediaItem, error) {
	replies, err := c.Reader.Replies(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("read comment thread of post %d: %w", postID, err)
	}

	var items []types.MediaItem
	for _, r := range replies {
		if r.Media == nil {
			c.Logger.Debug("comment has no photo or video, skipped", "post", postID, "comment", r.ID)
			continue
		}
		items = append(items, types.MediaItem{Media: *r.Media, Caption: r.Text, Entities: r.Entities})
	}
	return items, nil
}
