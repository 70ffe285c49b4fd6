package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sieve-chat/sieve/automod/event"

	"golang.org/x/time/rate"
)

// Mirrors moderation log entries to a Slack channel, for operators. Delivered regardless of whether the community has a log channel configured.
type SlackNotifier struct {
	SlackWebhookURL string
	// optional; defaults to http.DefaultClient
	Client *http.Client
	// optional; paces webhook posts to stay under Slack's per-webhook rate limit. Posts over the limit are dropped, not queued.
	Limiter *rate.Limiter
}

var ErrSlackRateLimited = errors.New("slack mirror rate limited, entry dropped")

// Incoming webhooks accept roughly one message per second, with short bursts.
func NewSlackLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(1), 4)
}

var _ Notifier = (*SlackNotifier)(nil)

func (n *SlackNotifier) SendLog(ctx context.Context, community event.CommunityID, channel event.ChannelID, entry LogEntry) error {
	if n.Limiter != nil && !n.Limiter.Allow() {
		return ErrSlackRateLimited
	}
	return n.sendSlackMsg(ctx, slackBody(community, entry))
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

func slackBody(community event.CommunityID, entry LogEntry) string {
	msg := fmt.Sprintf("⚠️ %s ⚠️\n", entry.Title)
	msg += fmt.Sprintf("community: `%s`\n", community)
	if entry.Description != "" {
		// slack uses single asterisks for bold
		msg += strings.ReplaceAll(entry.Description, "**", "*") + "\n"
	}
	for _, f := range entry.Fields {
		msg += fmt.Sprintf("%s: `%s`\n", f.Name, f.Value)
	}
	return msg
}
