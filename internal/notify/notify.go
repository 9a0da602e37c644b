package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"tg-forum-migrator/internal/stats"
)

// Notifier delivers the end-of-run summary.
type Notifier func(ctx context.Context, sum stats.Snapshot) error

// NewNotifier returns a Notifier that posts the summary to a chat through the Telegram Bot API.
// With no token it returns a Notifier that does nothing.
func NewNotifier(baseURL, token, chatID string) Notifier {
	if token == "" {
		return func(context.Context, stats.Snapshot) error { return nil }
	}

	client := retryablehttp.NewClient()
	client.Logger = nil
	return newNotifier(client, baseURL, token, chatID)
}

func newNotifier(client *retryablehttp.Client, baseURL, token, chatID string) Notifier {
	return func(ctx context.Context, sum stats.Snapshot) error {
		url := fmt.Sprintf("%s/bot%s/sendMessage", baseURL, token)
		body := map[string]any{
			"chat_id": chatID,
			"text":    Format(sum),
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}

		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return redact(err, token)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return redact(err, token)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("bot api sendMessage failed: status %d", resp.StatusCode)
		}
		return nil
	}
}

// redact removes the bot token from transport errors, which quote the request URL.
func redact(err error, token string) error {
	return fmt.Errorf("bot api sendMessage: %s", strings.ReplaceAll(err.Error(), token, "***"))
}

// Format renders a summary as a short plain-text report.
func Format(sum stats.Snapshot) string {
	return fmt.Sprintf(
		"Migration finished (%s) at post #%d\nprocessed: %d, abandoned: %d, missing: %d\ntopics created: %d, reused: %d\nmain posts: %d, albums: %d (%d media), placeholders: %d",
		sum.Reason, sum.CurrentPostID,
		sum.PostsProcessed, sum.PostsAbandoned, sum.PostsMissing,
		sum.TopicsCreated, sum.TopicsReused,
		sum.MainPostsSent, sum.AlbumsSent, sum.MediaSent, sum.Placeholders,
	)
}
