package telegram

import (
	"bufio"
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/query"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"tg-forum-migrator/internal/backoff"
	"tg-forum-migrator/internal/config"
	"tg-forum-migrator/internal/types"
)

const repliesPage = 100

// Client talks to Telegram as a user account: it reads the source channel and writes into the target forum.
type Client struct {
	api    *tg.Client
	source *tg.InputChannel
	target *tg.InputChannel
	logger *log.Logger
}

// Run connects, logs in if the session is not authorized yet, resolves both channels
// and calls fn with a ready Client. The connection is closed when fn returns.
func Run(ctx context.Context, cfg config.Config, logger *log.Logger, fn func(ctx context.Context, c *Client) error) error {
	client := telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: cfg.SessionPath},
	})

	return client.Run(ctx, func(ctx context.Context) error {
		flow := auth.NewFlow(
			auth.Constant(cfg.Phone, cfg.Password, auth.CodeAuthenticatorFunc(promptCode)),
			auth.SendCodeOptions{},
		)
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		logger.Info("authorized", "session", cfg.SessionPath)

		api := client.API()
		source, err := resolveChannel(ctx, api, cfg.SourceChannelID)
		if err != nil {
			return fmt.Errorf("resolve source channel: %w", err)
		}
		target, err := resolveChannel(ctx, api, cfg.TargetChannelID)
		if err != nil {
			return fmt.Errorf("resolve target channel: %w", err)
		}

		return fn(ctx, &Client{api: api, source: source, target: target, logger: logger})
	})
}

func promptCode(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	fmt.Fprint(os.Stderr, "Enter login code: ")
	code, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(code), nil
}

// resolveChannel finds the access hash of a channel the account has joined.
func resolveChannel(ctx context.Context, api *tg.Client, id int64) (*tg.InputChannel, error) {
	want := BareChannelID(id)
	iter := query.GetDialogs(api).BatchSize(100).Iter()
	for iter.Next(ctx) {
		if p, ok := iter.Value().Peer.(*tg.InputPeerChannel); ok && p.ChannelID == want {
			return &tg.InputChannel{ChannelID: p.ChannelID, AccessHash: p.AccessHash}, nil
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("channel %d not found among dialogs", id)
}

// BareChannelID strips the Bot API "-100" marker from a channel id.
func BareChannelID(id int64) int64 {
	const marker = -1000000000000
	switch {
	case id <= marker:
		return marker - id
	case id < 0:
		return -id
	default:
		return id
	}
}

func peerOf(ch *tg.InputChannel) *tg.InputPeerChannel {
	return &tg.InputPeerChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash}
}

// FetchPost reads one source channel post. Empty slots map to types.ErrPostNotFound.
func (c *Client) FetchPost(ctx context.Context, id int) (types.Post, error) {
	res, err := c.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
		Channel: c.source,
		ID:      []tg.InputMessageClass{&tg.InputMessageID{ID: id}},
	})
	if err != nil {
		return types.Post{}, wrap(err)
	}
	for _, m := range messagesOf(res) {
		switch msg := m.(type) {
		case *tg.Message:
			if msg.ID == id {
				return postOf(msg), nil
			}
		case *tg.MessageService:
			if msg.ID == id {
				return types.Post{ID: msg.ID}, nil
			}
		}
	}
	return types.Post{}, types.ErrPostNotFound
}

// Replies returns the post's discussion thread, oldest first. A post without a
// discussion thread has no replies.
func (c *Client) Replies(ctx context.Context, postID int) ([]types.Reply, error) {
	var out []types.Reply
	offset := 0
	for {
		res, err := c.api.MessagesGetReplies(ctx, &tg.MessagesGetRepliesRequest{
			Peer:     peerOf(c.source),
			MsgID:    postID,
			OffsetID: offset,
			Limit:    repliesPage,
		})
		if err != nil {
			if d, ok := tgerr.AsFloodWait(err); ok {
				c.logger.Warn("rate limited while reading comments, waiting", "post", postID, "wait", d)
				if err := backoff.Sleep(ctx, d); err != nil {
					return nil, err
				}
				continue
			}
			if tgerr.Is(err, "MSG_ID_INVALID") {
				return nil, nil
			}
			return nil, err
		}

		msgs := messagesOf(res)
		for _, m := range msgs {
			if msg, ok := m.(*tg.Message); ok {
				out = append(out, replyOf(msg))
			}
		}
		if len(msgs) < repliesPage {
			break
		}
		last := msgs[len(msgs)-1].GetID()
		if last == offset {
			break
		}
		offset = last
	}
	slices.Reverse(out)
	return out, nil
}

// ListTopics lists up to limit topics of the target forum. The anchor is the topic id,
// which is the id of the service message that opened the topic.
func (c *Client) ListTopics(ctx context.Context, limit int) ([]types.Topic, error) {
	res, err := c.api.ChannelsGetForumTopics(ctx, &tg.ChannelsGetForumTopicsRequest{
		Channel: c.target,
		Limit:   limit,
	})
	if err != nil {
		return nil, wrap(err)
	}
	topics := make([]types.Topic, 0, len(res.Topics))
	for _, t := range res.Topics {
		if ft, ok := t.(*tg.ForumTopic); ok {
			topics = append(topics, types.Topic{Title: ft.Title, AnchorID: ft.ID, Origin: types.OriginExisting})
		}
	}
	return topics, nil
}

func (c *Client) CreateTopic(ctx context.Context, title string, iconEmojiID int64) (types.CreationOutcome, error) {
	req := &tg.ChannelsCreateForumTopicRequest{
		Channel:  c.target,
		Title:    title,
		RandomID: rand.Int64(),
	}
	if iconEmojiID != 0 {
		req.SetIconEmojiID(iconEmojiID)
	}
	upd, err := c.api.ChannelsCreateForumTopic(ctx, req)
	if err != nil {
		return types.Unresolved(), wrap(err)
	}
	return outcomeOf(upd), nil
}

func (c *Client) SendMedia(ctx context.Context, media types.Media, caption string, entities []tg.MessageEntityClass, replyTo int) error {
	_, err := c.api.MessagesSendMedia(ctx, sendMediaRequest(peerOf(c.target), media, caption, entities, replyTo))
	return wrap(err)
}

// SendAlbum sends items as one grouped message. The caption is attached to the first item.
func (c *Client) SendAlbum(ctx context.Context, items []types.MediaItem, caption string, entities []tg.MessageEntityClass, replyTo int) error {
	_, err := c.api.MessagesSendMultiMedia(ctx, sendAlbumRequest(peerOf(c.target), items, caption, entities, replyTo))
	return wrap(err)
}

func sendMediaRequest(peer tg.InputPeerClass, media types.Media, caption string, entities []tg.MessageEntityClass, replyTo int) *tg.MessagesSendMediaRequest {
	req := &tg.MessagesSendMediaRequest{
		Peer:     peer,
		ReplyTo:  &tg.InputReplyToMessage{ReplyToMsgID: replyTo},
		Media:    inputMedia(media),
		Message:  caption,
		RandomID: rand.Int64(),
	}
	if len(entities) > 0 {
		req.SetEntities(entities)
	}
	return req
}

func sendAlbumRequest(peer tg.InputPeerClass, items []types.MediaItem, caption string, entities []tg.MessageEntityClass, replyTo int) *tg.MessagesSendMultiMediaRequest {
	multi := make([]tg.InputSingleMedia, len(items))
	for i, it := range items {
		multi[i] = tg.InputSingleMedia{Media: inputMedia(it.Media), RandomID: rand.Int64()}
	}
	if len(multi) > 0 {
		multi[0].Message = caption
		if len(entities) > 0 {
			multi[0].SetEntities(entities)
		}
	}
	return &tg.MessagesSendMultiMediaRequest{
		Peer:       peer,
		ReplyTo:    &tg.InputReplyToMessage{ReplyToMsgID: replyTo},
		MultiMedia: multi,
	}
}

func (c *Client) SendText(ctx context.Context, text string, replyTo int) error {
	_, err := c.api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:     peerOf(c.target),
		ReplyTo:  &tg.InputReplyToMessage{ReplyToMsgID: replyTo},
		Message:  text,
		RandomID: rand.Int64(),
	})
	return wrap(err)
}

// wrap turns FLOOD_WAIT errors into types.RateLimitError.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if d, ok := tgerr.AsFloodWait(err); ok {
		return &types.RateLimitError{Wait: d}
	}
	return err
}

func messagesOf(res tg.MessagesMessagesClass) []tg.MessageClass {
	switch v := res.(type) {
	case *tg.MessagesMessages:
		return v.Messages
	case *tg.MessagesMessagesSlice:
		return v.Messages
	case *tg.MessagesChannelMessages:
		return v.Messages
	default:
		return nil
	}
}

func postOf(msg *tg.Message) types.Post {
	entities, _ := msg.GetEntities()
	return types.Post{ID: msg.ID, Text: msg.Message, Entities: entities, Media: mediaOf(msg)}
}

func replyOf(msg *tg.Message) types.Reply {
	entities, _ := msg.GetEntities()
	return types.Reply{ID: msg.ID, Text: msg.Message, Entities: entities, Media: mediaOf(msg)}
}

// mediaOf extracts a photo or video reference. Other media kinds yield nil.
func mediaOf(msg *tg.Message) *types.Media {
	media, ok := msg.GetMedia()
	if !ok {
		return nil
	}
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		p, ok := m.GetPhoto()
		if !ok {
			return nil
		}
		photo, ok := p.(*tg.Photo)
		if !ok {
			return nil
		}
		return &types.Media{Kind: types.MediaPhoto, ID: photo.ID, AccessHash: photo.AccessHash, FileReference: photo.FileReference}
	case *tg.MessageMediaDocument:
		d, ok := m.GetDocument()
		if !ok {
			return nil
		}
		doc, ok := d.(*tg.Document)
		if !ok {
			return nil
		}
		for _, a := range doc.Attributes {
			if _, ok := a.(*tg.DocumentAttributeVideo); ok {
				return &types.Media{Kind: types.MediaVideo, ID: doc.ID, AccessHash: doc.AccessHash, FileReference: doc.FileReference}
			}
		}
	}
	return nil
}

func inputMedia(m types.Media) tg.InputMediaClass {
	if m.Kind == types.MediaVideo {
		return &tg.InputMediaDocument{ID: &tg.InputDocument{ID: m.ID, AccessHash: m.AccessHash, FileReference: m.FileReference}}
	}
	return &tg.InputMediaPhoto{ID: &tg.InputPhoto{ID: m.ID, AccessHash: m.AccessHash, FileReference: m.FileReference}}
}

// outcomeOf finds the topic's opening service message among the creation updates.
func outcomeOf(upd tg.UpdatesClass) types.CreationOutcome {
	var updates []tg.UpdateClass
	switch u := upd.(type) {
	case *tg.Updates:
		updates = u.Updates
	case *tg.UpdatesCombined:
		updates = u.Updates
	}
	for _, u := range updates {
		if m, ok := u.(*tg.UpdateNewChannelMessage); ok {
			return types.AnchorResolved(m.Message.GetID())
		}
	}
	return types.Unresolved()
}
