package dispatch

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/gotd/td/tg"

	"tg-forum-migrator/internal/backoff"
	"tg-forum-migrator/internal/types"
)

const (
	// AlbumSize is the largest number of items one album message may carry.
	AlbumSize = 10
	// Placeholder is sent under a topic whose comment thread had no media.
	Placeholder = "Content lost, attempting recovery."
)

// Sender is the outbound half of the remote client. Entities format the caption.
type Sender interface {
	SendMedia(ctx context.Context, media types.Media, caption string, entities []tg.MessageEntityClass, replyTo int) error
	SendAlbum(ctx context.Context, items []types.MediaItem, caption string, entities []tg.MessageEntityClass, replyTo int) error
	SendText(ctx context.Context, text string, replyTo int) error
}

// Engine sends content into a topic. Failures are logged and absorbed; the returned
// counts only include dispatches that went through.
type Engine struct {
	Sender Sender
	Policy *backoff.Policy
	Logger *log.Logger
}

// SendMain re-sends the post's own photo or video with the full post text and its formatting as caption.
// It reports whether something was sent.
func (e *Engine) SendMain(ctx context.Context, post types.Post, anchor int) bool {
	if post.Media == nil {
		e.Logger.Info("main post has no photo or video, skipped", "post", post.ID)
		return false
	}
	err := e.Policy.Do(ctx, "send main post", func(ctx context.Context) error {
		return e.Sender.SendMedia(ctx, *post.Media, post.Text, post.Entities, anchor)
	})
	if err != nil {
		e.Logger.Error("main post dispatch failed", "post", post.ID, "anchor", anchor, "err", err)
		return false
	}
	e.Logger.Info("main post sent", "post", post.ID, "kind", post.Media.Kind)
	return true
}

// SendAlbums sends items as consecutive albums of at most AlbumSize, preserving order.
// It returns the number of albums and media items that were sent.
func (e *Engine) SendAlbums(ctx context.Context, postID int, items []types.MediaItem, anchor int) (albums, media int) {
	for _, chunk := range Chunk(items, AlbumSize) {
		caption, entities := FirstCaption(chunk)
		err := e.Policy.Do(ctx, "send album", func(ctx context.Context) error {
			return e.Sender.SendAlbum(ctx, chunk, caption, entities, anchor)
		})
		if err != nil {
			e.Logger.Error("album dispatch failed", "post", postID, "anchor", anchor, "items", len(chunk), "err", err)
			if ctx.Err() != nil {
				return albums, media
			}
			continue
		}
		albums++
		media += len(chunk)
		e.Logger.Info("album sent", "post", postID, "items", len(chunk))
	}
	return albums, media
}

// SendPlaceholder replies to the topic with the fixed placeholder text.
func (e *Engine) SendPlaceholder(ctx context.Context, postID int, anchor int) bool {
	e.Logger.Warn("no media in comments, sending placeholder", "post", postID)
	err := e.Policy.Do(ctx, "send placeholder", func(ctx context.Context) error {
		return e.Sender.SendText(ctx, Placeholder, anchor)
	})
	if err != nil {
		e.Logger.Error("placeholder dispatch failed", "post", postID, "anchor", anchor, "err", err)
		return false
	}
	return true
}

// Chunk splits items into contiguous slices of at most size elements.
func Chunk(items []types.MediaItem, size int) [][]types.MediaItem {
	var chunks [][]types.MediaItem
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// FirstCaption returns the first non-empty caption of the chunk with its entities.
func FirstCaption(chunk []types.MediaItem) (string, []tg.MessageEntityClass) {
	for _, it := range chunk {
		if it.Caption != "" {
			return it.Caption, it.Entities
		}
	}
	return "", nil
}
