package engine

import (
	"context"
	"time"

	"github.com/sieve-chat/sieve/automod/event"
)

const (
	ColorOrange = 0xFFA500
	ColorRed    = 0xFF0000
)

type LogField struct {
	Name   string
	Value  string
	Inline bool
}

// Structured moderation log record, rendered by each Notifier in its own format.
type LogEntry struct {
	// "kick", "ban", "timeout", "new-account"
	Kind        string
	Title       string
	Description string
	Color       int
	Fields      []LogField
	Footer      string
	Timestamp   time.Time
}

// Interface for a type that can deliver moderation log entries.
//
// The channel is the community's configured log channel, or empty when none is set. Channel-based sinks drop entries with an empty channel; operator mirrors (eg, Slack) may deliver them anyway.
type Notifier interface {
	SendLog(ctx context.Context, community event.CommunityID, channel event.ChannelID, entry LogEntry) error
}
