package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/gotd/td/tg"

	"tg-forum-migrator/internal/logging"
	"tg-forum-migrator/internal/types"
)

type fakeReader struct {
	replies []types.Reply
	err     error
}

func (f fakeReader) Replies(context.Context, int) ([]types.Reply, error) {
	return f.replies, f.err
}

func TestCollectKeepsMediaInOrder(t *testing.T) {
	r := fakeReader{replies: []types.Reply{
		{ID: 1, Text: "a", Media: &types.Media{Kind: types.MediaPhoto, ID: 11}},
		{ID: 2, Text: "just text"},
		{ID: 3, Media: &types.Media{Kind: types.MediaVideo, ID: 33}},
		{ID: 4, Text: "b", Media: &types.Media{Kind: types.MediaPhoto, ID: 44}},
	}}
	c := &Collector{Reader: r, Logger: logging.Discard()}

	got, err := c.Collect(context.Background(), 100)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len=%d, want 3", len(got))
	}
	wantIDs := []int64{11, 33, 44}
	wantCaptions := []string{"a", "", "b"}
	for i, it := range got {
		if it.Media.ID != wantIDs[i] || it.Caption != wantCaptions[i] {
			t.Fatalf("item %d = %+v, want media %d caption %q", i, it, wantIDs[i], wantCaptions[i])
		}
	}
}

func TestCollectKeepsCaptionEntities(t *testing.T) {
	italic := []tg.MessageEntityClass{&tg.MessageEntityItalic{Offset: 0, Length: 3}}
	r := fakeReader{replies: []types.Reply{
		{ID: 1, Text: "cap", Entities: italic, Media: &types.Media{Kind: types.MediaPhoto, ID: 11}},
	}}
	c := &Collector{Reader: r, Logger: logging.Discard()}

	got, err := c.Collect(context.Background(), 100)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 1 || len(got[0].Entities) != 1 {
		t.Fatalf("items=%+v, want one item carrying the italic entity", got)
	}
	if _, ok := got[0].Entities[0].(*tg.MessageEntityItalic); !ok {
		t.Fatalf("entity=%T, want italic", got[0].Entities[0])
	}
}

func TestCollectEmptyThread(t *testing.T) {
	c := &Collector{Reader: fakeReader{}, Logger: logging.Discard()}
	got, err := c.Collect(context.Background(), 100)
	if err != nil || len(got) != 0 {
		t.Fatalf("Collect = %v, %v; want empty, nil", got, err)
	}
}

func TestCollectError(t *testing.T) {
	boom := errors.New("CHANNEL_PRIVATE")
	c := &Collector{Reader: fakeReader{err: boom}, Logger: logging.Discard()}
	if _, err := c.Collect(context.Background(), 100); !errors.Is(err, boom) {
		t.Fatalf("err=%v, want wrapped %v", err, boom)
	}
}
