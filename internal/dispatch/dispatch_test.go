package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gotd/td/tg"

	"tg-forum-migrator/internal/backoff"
	"tg-forum-migrator/internal/logging"
	"tg-forum-migrator/internal/types"
)

type albumCall struct {
	items    []types.MediaItem
	caption  string
	entities []tg.MessageEntityClass
	replyTo  int
}

type fakeSender struct {
	albums        []albumCall
	media         int
	mediaEntities []tg.MessageEntityClass
	texts         []string
	albumErrs     []error
}

func (f *fakeSender) SendMedia(_ context.Context, _ types.Media, _ string, entities []tg.MessageEntityClass, _ int) error {
	f.media++
	f.mediaEntities = entities
	return nil
}

func (f *fakeSender) SendAlbum(_ context.Context, items []types.MediaItem, caption string, entities []tg.MessageEntityClass, replyTo int) error {
	f.albums = append(f.albums, albumCall{items: append([]types.MediaItem(nil), items...), caption: caption, entities: entities, replyTo: replyTo})
	if len(f.albumErrs) > 0 {
		err := f.albumErrs[0]
		f.albumErrs = f.albumErrs[1:]
		return err
	}
	return nil
}

func (f *fakeSender) SendText(_ context.Context, text string, _ int) error {
	f.texts = append(f.texts, text)
	return nil
}

func newEngine(s *fakeSender, slept *[]time.Duration) *Engine {
	return &Engine{
		Sender: s,
		Policy: &backoff.Policy{
			Sleep: func(_ context.Context, d time.Duration) error {
				*slept = append(*slept, d)
				return nil
			},
			Pace:   func() time.Duration { return 0 },
			Logger: logging.Discard(),
		},
		Logger: logging.Discard(),
	}
}

func items(n int) []types.MediaItem {
	out := make([]types.MediaItem, n)
	for i := range out {
		out[i] = types.MediaItem{Media: types.Media{Kind: types.MediaPhoto, ID: int64(i + 1)}}
	}
	return out
}

func TestSendAlbumsChunksInOrder(t *testing.T) {
	s := &fakeSender{}
	var slept []time.Duration
	e := newEngine(s, &slept)

	albums, media := e.SendAlbums(context.Background(), 1, items(23), 77)
	if albums != 3 || media != 23 {
		t.Fatalf("albums=%d media=%d, want 3, 23", albums, media)
	}
	if len(s.albums) != 3 {
		t.Fatalf("album calls=%d, want 3", len(s.albums))
	}
	wantSizes := []int{10, 10, 3}
	next := int64(1)
	for i, call := range s.albums {
		if len(call.items) != wantSizes[i] {
			t.Fatalf("album %d size=%d, want %d", i, len(call.items), wantSizes[i])
		}
		if call.replyTo != 77 {
			t.Fatalf("album %d replyTo=%d, want 77", i, call.replyTo)
		}
		for _, it := range call.items {
			if it.Media.ID != next {
				t.Fatalf("album %d out of order: got media %d, want %d", i, it.Media.ID, next)
			}
			next++
		}
	}
}

func TestSendAlbumsCaption(t *testing.T) {
	in := items(12)
	in[3].Caption = "first"
	in[5].Caption = "second"
	s := &fakeSender{}
	var slept []time.Duration
	newEngine(s, &slept).SendAlbums(context.Background(), 1, in, 5)

	if s.albums[0].caption != "first" {
		t.Fatalf("chunk 0 caption=%q, want first", s.albums[0].caption)
	}
	if s.albums[1].caption != "" {
		t.Fatalf("chunk 1 caption=%q, want empty", s.albums[1].caption)
	}
}

func TestSendAlbumsRateLimitRetriedOnce(t *testing.T) {
	rl := &types.RateLimitError{Wait: 5 * time.Second}
	s := &fakeSender{albumErrs: []error{rl, rl}}
	var slept []time.Duration
	e := newEngine(s, &slept)

	albums, _ := e.SendAlbums(context.Background(), 1, items(3), 5)
	if albums != 0 {
		t.Fatalf("albums=%d, want 0", albums)
	}
	if len(s.albums) != 2 {
		t.Fatalf("album attempts=%d, want 2", len(s.albums))
	}
	if len(s.albums[1].items) != 3 || s.albums[1].items[2].Media.ID != 3 {
		t.Fatalf("retry carried different contents: %+v", s.albums[1].items)
	}
	if len(slept) != 1 || slept[0] != 5*time.Second {
		t.Fatalf("slept=%v, want [5s]", slept)
	}
}

func TestSendAlbumsFailureDoesNotStopNextChunk(t *testing.T) {
	s := &fakeSender{albumErrs: []error{errors.New("MEDIA_INVALID")}}
	var slept []time.Duration
	albums, media := newEngine(s, &slept).SendAlbums(context.Background(), 1, items(15), 5)
	if albums != 1 || media != 5 {
		t.Fatalf("albums=%d media=%d, want 1, 5", albums, media)
	}
}

func TestSendMainSkipsWithoutMedia(t *testing.T) {
	s := &fakeSender{}
	var slept []time.Duration
	e := newEngine(s, &slept)

	if e.SendMain(context.Background(), types.Post{ID: 1, Text: "x"}, 5) {
		t.Fatalf("SendMain reported sent for a post without media")
	}
	if s.media != 0 || len(s.texts) != 0 {
		t.Fatalf("unexpected dispatch: media=%d texts=%v", s.media, s.texts)
	}

	post := types.Post{ID: 2, Text: "x", Media: &types.Media{Kind: types.MediaVideo}}
	if !e.SendMain(context.Background(), post, 5) || s.media != 1 {
		t.Fatalf("SendMain did not send media, calls=%d", s.media)
	}
}

func TestCaptionEntitiesForwarded(t *testing.T) {
	bold := []tg.MessageEntityClass{&tg.MessageEntityBold{Offset: 0, Length: 4}}
	link := []tg.MessageEntityClass{&tg.MessageEntityTextURL{Offset: 0, Length: 5, URL: "https://example.org"}}
	s := &fakeSender{}
	var slept []time.Duration
	e := newEngine(s, &slept)

	post := types.Post{ID: 1, Text: "Bold\nTitle", Entities: bold, Media: &types.Media{Kind: types.MediaPhoto}}
	if !e.SendMain(context.Background(), post, 5) {
		t.Fatalf("SendMain failed")
	}
	if len(s.mediaEntities) != 1 {
		t.Fatalf("main post entities=%v, want the post's bold entity", s.mediaEntities)
	}
	if _, ok := s.mediaEntities[0].(*tg.MessageEntityBold); !ok {
		t.Fatalf("main post entity=%T, want bold", s.mediaEntities[0])
	}

	in := items(3)
	in[1].Caption = "click"
	in[1].Entities = link
	e.SendAlbums(context.Background(), 1, in, 5)
	if len(s.albums) != 1 || s.albums[0].caption != "click" || len(s.albums[0].entities) != 1 {
		t.Fatalf("album call=%+v, want caption click with one entity", s.albums)
	}
	if u, ok := s.albums[0].entities[0].(*tg.MessageEntityTextURL); !ok || u.URL != "https://example.org" {
		t.Fatalf("album entity=%v, want the caption's text link", s.albums[0].entities[0])
	}
}

func TestSendMainPaceInterrupted(t *testing.T) {
	s := &fakeSender{}
	e := &Engine{
		Sender: s,
		Policy: &backoff.Policy{
			Sleep:  func(context.Context, time.Duration) error { return context.Canceled },
			Pace:   func() time.Duration { return time.Second },
			Logger: logging.Discard(),
		},
		Logger: logging.Discard(),
	}
	post := types.Post{ID: 2, Media: &types.Media{Kind: types.MediaPhoto}}
	if !e.SendMain(context.Background(), post, 5) {
		t.Fatalf("SendMain reported failure for a post that was sent")
	}
}

func TestSendPlaceholder(t *testing.T) {
	s := &fakeSender{}
	var slept []time.Duration
	if !newEngine(s, &slept).SendPlaceholder(context.Background(), 1, 5) {
		t.Fatalf("SendPlaceholder failed")
	}
	if len(s.texts) != 1 || s.texts[0] != Placeholder {
		t.Fatalf("texts=%v", s.texts)
	}
}

func TestChunkEmpty(t *testing.T) {
	if got := Chunk(nil, AlbumSize); len(got) != 0 {
		t.Fatalf("Chunk(nil)=%v", got)
	}
}
