package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"tg-forum-migrator/internal/directory"
	"tg-forum-migrator/internal/types"
)

// ErrAnchorUnresolved means a topic was created but its anchor message could not be determined.
var ErrAnchorUnresolved = errors.New("topic anchor id unresolved")

// Creator creates forum topics.
type Creator interface {
	CreateTopic(ctx context.Context, title string, iconEmojiID int64) (types.CreationOutcome, error)
}

// Resolver maps posts to topics, creating topics the forum does not have yet.
type Resolver struct {
	Directory   *directory.Directory
	Creator     Creator
	IconEmojiID int64
	Logger      *log.Logger
}

// Title derives the topic title of a post: its second line when not blank, else "Post #<id>".
func Title(post types.Post) string {
	lines := strings.Split(post.Text, "\n")
	if len(lines) >= 2 {
		if t := strings.TrimSpace(lines[1]); t != "" {
			return t
		}
	}
	return fmt.Sprintf("Post #%d", post.ID)
}

// Resolve returns the topic for the post, reusing an existing one with the same title.
func (r *Resolver) Resolve(ctx context.Context, post types.Post) (types.Topic, error) {
	title := Title(post)
	if id, ok := r.Directory.Get(title); ok {
		r.Logger.Info("topic exists, reusing", "post", post.ID, "topic", title, "anchor", id)
		return types.Topic{Title: title, AnchorID: id, Origin: types.OriginExisting}, nil
	}

	outcome, err := r.Creator.CreateTopic(ctx, title, r.IconEmojiID)
	if err != nil {
		return types.Topic{}, fmt.Errorf("create topic %q: %w", title, err)
	}

	id, ok := outcome.Anchor()
	if !ok {
		r.Logger.Debug("creation response has no anchor, re-listing topics", "topic", title)
		if err := r.Directory.Reload(ctx); err != nil {
			return types.Topic{}, fmt.Errorf("resolve anchor of %q: %w", title, err)
		}
		id, ok = r.Directory.Get(title)
	}
	if !ok {
		return types.Topic{}, fmt.Errorf("%w: %q", ErrAnchorUnresolved, title)
	}

	r.Directory.Put(title, id)
	r.Logger.Info("topic created", "post", post.ID, "topic", title, "anchor", id)
	return types.Topic{Title: title, AnchorID: id, Origin: types.OriginCreated}, nil
}
