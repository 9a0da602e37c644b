package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"tg-forum-migrator/internal/types"
)

// Lister lists the target forum's topics, at most limit of them.
type Lister interface {
	ListTopics(ctx context.Context, limit int) ([]types.Topic, error)
}

// Directory maps trimmed topic titles to their anchor message ids.
// It is owned by the single migration worker and is not safe for concurrent use.
type Directory struct {
	lister Lister
	limit  int
	byName map[string]entry
}

type entry struct {
	anchor int
	origin types.TopicOrigin
}

// Load lists the forum's topics and builds a Directory from them.
func Load(ctx context.Context, lister Lister, limit int) (*Directory, error) {
	d := &Directory{lister: lister, limit: limit}
	if err := d.Reload(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Reload lists the forum again and adds titles not yet known. Entries already
// resolved during this run are kept, even when the bounded listing no longer includes them.
func (d *Directory) Reload(ctx context.Context) error {
	topics, err := d.lister.ListTopics(ctx, d.limit)
	if err != nil {
		return fmt.Errorf("list forum topics: %w", err)
	}
	if d.byName == nil {
		d.byName = make(map[string]entry, len(topics))
	}
	for _, t := range topics {
		title := strings.TrimSpace(t.Title)
		if _, seen := d.byName[title]; seen {
			continue
		}
		d.byName[title] = entry{anchor: t.AnchorID, origin: types.OriginExisting}
	}
	return nil
}

// Get returns the anchor id for an exact trimmed title.
func (d *Directory) Get(title string) (int, bool) {
	e, ok := d.byName[strings.TrimSpace(title)]
	return e.anchor, ok
}

// Put records a topic created during this run.
func (d *Directory) Put(title string, anchorID int) {
	d.byName[strings.TrimSpace(title)] = entry{anchor: anchorID, origin: types.OriginCreated}
}

func (d *Directory) Len() int {
	return len(d.byName)
}

// Topics returns the directory entries sorted by title.
func (d *Directory) Topics() []types.Topic {
	out := make([]types.Topic, 0, len(d.byName))
	for title, e := range d.byName {
		out = append(out, types.Topic{Title: title, AnchorID: e.anchor, Origin: e.origin})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}
