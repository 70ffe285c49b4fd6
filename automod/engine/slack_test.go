package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sieve-chat/sieve/automod/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestSlackNotifier(t *testing.T) {
	assert := assert.New(t)

	var got SlackWebhookBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &got))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	n := SlackNotifier{SlackWebhookURL: srv.URL}
	entry := newAccountLogEntry(event.User{ID: "u2", Tag: "newbie"}, 3, true, time.Now())
	// delivered even without a log channel
	assert.NoError(n.SendLog(context.Background(), "c1", "", entry))
	assert.Contains(got.Text, "Potential Alt Account Detected")
	assert.Contains(got.Text, "*newbie* has been kicked")
	assert.Contains(got.Text, "Account Age: `3 days`")
	assert.Contains(got.Text, "community: `c1`")
}

func TestSlackNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n := SlackNotifier{SlackWebhookURL: srv.URL}
	err := n.SendLog(context.Background(), "c1", "modlog", LogEntry{Title: "x"})
	assert.Error(t, err)
}

func TestSlackNotifierRateLimited(t *testing.T) {
	assert := assert.New(t)

	posts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts++
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// one token, refilled far in the future
	n := SlackNotifier{SlackWebhookURL: srv.URL, Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)}
	assert.NoError(n.SendLog(context.Background(), "c1", "", LogEntry{Title: "first"}))

	start := time.Now()
	err := n.SendLog(context.Background(), "c1", "", LogEntry{Title: "second"})
	assert.ErrorIs(err, ErrSlackRateLimited)
	assert.Less(time.Since(start), time.Second)
	assert.Equal(1, posts)
}

func TestUserMessage(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("boom", UserMessage(&ValidationError{Message: "boom"}))
	assert.Equal("I was unable to complete that action.", UserMessage(&ActionError{Action: "notify", Err: io.EOF}))
	// internal detail never leaks
	assert.Equal("Something went wrong while running that command.", UserMessage(io.ErrUnexpectedEOF))

	err := &ActionError{Action: "kick", Err: io.EOF}
	assert.ErrorIs(err, ErrActionFailed)
	assert.ErrorIs(err, io.EOF)
}

func TestFormatDuration(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("1 minute", formatDuration(time.Minute))
	assert.Equal("10 minutes", formatDuration(10*time.Minute))
	assert.Equal("1m30s", formatDuration(90*time.Second))
}

func TestSlackMirrorDoesNotDelayEnforcement(t *testing.T) {
	assert := assert.New(t)
	fix := EngineTestFixture()
	defer fix.Close()
	fix.Engine.Rules = RuleSet{MemberJoinRules: []MemberJoinRuleFunc{youngAccountRule}}
	setLogChannel(t, fix, "c1", "modlog")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// the only token is spent up front
	limiter := rate.NewLimiter(rate.Every(2*time.Second), 1)
	require.True(t, limiter.Allow())
	slack := &SlackNotifier{SlackWebhookURL: srv.URL, Limiter: limiter}
	fix.Engine.Notifiers = []Notifier{slack, fix.Notifier}

	ctx, cancel := context.WithTimeout(context.Background(), 2100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := fix.Engine.ProcessMemberJoin(ctx, testJoin(fix, 2*24*time.Hour))
	assert.NoError(err)
	assert.Less(time.Since(start), 500*time.Millisecond)
	assert.Len(fix.Platform.CallsTo("KickMember"), 1)

	// the channel sink still gets the entry the mirror dropped
	entries := fix.Notifier.Entries()
	require.Len(t, entries, 1)
	assert.Equal("**newbie#0002** has been kicked for having a new account.", entries[0].Entry.Description)
}
