package engine

import (
	"fmt"
	"time"

	"github.com/sieve-chat/sieve/automod/event"
)

var enforcementTitles = map[string]string{
	"kick":    "Member Kicked",
	"ban":     "Member Banned",
	"timeout": "Member Timed Out",
}

func userField(u event.User) string {
	return fmt.Sprintf("%s (%s)", u.Tag, u.ID)
}

func formatDuration(d time.Duration) string {
	if d%time.Minute == 0 {
		m := int64(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}

// Log entry for a kick, ban, or timeout. Duration is only included for timeouts.
func enforcementLogEntry(action string, target event.User, moderator, reason string, d time.Duration, ts time.Time) LogEntry {
	color := ColorRed
	if action == "timeout" {
		color = ColorOrange
	}
	fields := []LogField{
		{Name: "Action", Value: action, Inline: true},
		{Name: "Target", Value: userField(target), Inline: true},
		{Name: "Moderator", Value: moderator, Inline: true},
		{Name: "Reason", Value: reason},
	}
	if action == "timeout" {
		fields = append(fields, LogField{Name: "Duration", Value: formatDuration(d), Inline: true})
	}
	return LogEntry{
		Kind:      action,
		Title:     enforcementTitles[action],
		Color:     color,
		Fields:    fields,
		Footer:    "Moderation Log",
		Timestamp: ts,
	}
}

// The description reflects whether the kick went through.
func newAccountLogEntry(member event.User, ageDays int, kicked bool, ts time.Time) LogEntry {
	desc := fmt.Sprintf("**%s** has been kicked for having a new account.", member.Tag)
	if !kicked {
		desc = fmt.Sprintf("**%s** was flagged for having a new account (could not kick).", member.Tag)
	}
	return LogEntry{
		Kind:        "new-account",
		Title:       "Potential Alt Account Detected",
		Description: desc,
		Color:       ColorRed,
		Fields: []LogField{
			{Name: "User", Value: userField(member), Inline: true},
			{Name: "Account Age", Value: fmt.Sprintf("%d days", ageDays), Inline: true},
		},
		Footer:    "Automated Alt Account Detection",
		Timestamp: ts,
	}
}
