package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/gotd/td/tg"
)

// ErrPostNotFound is returned by a fetch when the source channel has no post with the requested id.
var ErrPostNotFound = errors.New("post not found")

// MediaKind identifies the payload kinds the migrator carries over.
type MediaKind int

const (
	MediaPhoto MediaKind = iota + 1
	MediaVideo
)

func (k MediaKind) String() string {
	switch k {
	case MediaPhoto:
		return "photo"
	case MediaVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Media is a reference to an already uploaded photo or video that can be re-sent without downloading it.
type Media struct {
	Kind          MediaKind
	ID            int64
	AccessHash    int64
	FileReference []byte
}

// Post is one broadcast-channel message. Entities carry the formatting of Text
// (bold, links, ...) and are sent along whenever Text is re-sent.
type Post struct {
	ID       int
	Text     string
	Entities []tg.MessageEntityClass
	Media    *Media
}

// Reply is one message of a post's comment thread.
type Reply struct {
	ID       int
	Text     string
	Entities []tg.MessageEntityClass
	Media    *Media
}

// MediaItem is a collected comment-thread media payload with its caption.
type MediaItem struct {
	Media    Media
	Caption  string
	Entities []tg.MessageEntityClass
}

// TopicOrigin tells whether a topic existed before the run or was created by it.
type TopicOrigin int

const (
	OriginExisting TopicOrigin = iota
	OriginCreated
)

// Topic is a forum topic and the anchor message all its content replies to.
type Topic struct {
	Title    string
	AnchorID int
	Origin   TopicOrigin
}

// CreationOutcome is the result of a topic creation call: either the anchor id
// was present in the response, or it has to be found some other way.
type CreationOutcome struct {
	anchor   int
	resolved bool
}

// AnchorResolved is an outcome carrying the new topic's anchor id.
func AnchorResolved(id int) CreationOutcome {
	return CreationOutcome{anchor: id, resolved: true}
}

// Unresolved is an outcome where the response did not contain the anchor id.
func Unresolved() CreationOutcome {
	return CreationOutcome{}
}

// Anchor returns the anchor id and whether it was resolved.
func (o CreationOutcome) Anchor() (int, bool) {
	return o.anchor, o.resolved
}

// RateLimitError signals that the remote side refused the request and asked to wait before retrying.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.Wait)
}
