package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sieve-chat/sieve/automod/engine"
	"github.com/sieve-chat/sieve/automod/event"
)

// discord only bulk-deletes messages younger than two weeks
const bulkDeleteMaxAge = 14 * 24 * time.Hour

// Engine platform binding over a discordgo session. Also acts as the channel Notifier for moderation logs.
type Platform struct {
	Session *discordgo.Session
	Logger  *slog.Logger
}

var _ engine.Platform = (*Platform)(nil)
var _ engine.Notifier = (*Platform)(nil)

func NewPlatform(session *discordgo.Session, logger *slog.Logger) *Platform {
	if logger == nil {
		logger = slog.Default()
	}
	return &Platform{
		Session: session,
		Logger:  logger.With("system", "discord"),
	}
}

func (p *Platform) DeleteMessage(ctx context.Context, channel event.ChannelID, msg event.MessageID) error {
	return p.Session.ChannelMessageDelete(string(channel), string(msg), discordgo.WithContext(ctx))
}

func (p *Platform) SendMessage(ctx context.Context, channel event.ChannelID, content string) error {
	_, err := p.Session.ChannelMessageSend(string(channel), content, discordgo.WithContext(ctx))
	return err
}

func (p *Platform) KickMember(ctx context.Context, community event.CommunityID, user event.UserID, reason string) error {
	return p.Session.GuildMemberDeleteWithReason(string(community), string(user), reason, discordgo.WithContext(ctx))
}

func (p *Platform) BanMember(ctx context.Context, community event.CommunityID, user event.UserID, reason string) error {
	return p.Session.GuildBanCreateWithReason(string(community), string(user), reason, 0, discordgo.WithContext(ctx))
}

func (p *Platform) TimeoutMember(ctx context.Context, community event.CommunityID, user event.UserID, d time.Duration, reason string) error {
	until := time.Now().Add(d)
	return p.Session.GuildMemberTimeout(string(community), string(user), &until, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

// Messages older than two weeks are skipped, as the platform refuses to bulk-delete them.
func (p *Platform) BulkDelete(ctx context.Context, channel event.ChannelID, count int) (int, error) {
	msgs, err := p.Session.ChannelMessages(string(channel), count, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("fetching recent messages: %w", err)
	}
	ids := recentMessageIDs(msgs, time.Now())
	switch len(ids) {
	case 0:
		return 0, nil
	case 1:
		// the bulk endpoint requires at least two messages
		if err := p.Session.ChannelMessageDelete(string(channel), ids[0], discordgo.WithContext(ctx)); err != nil {
			return 0, err
		}
		return 1, nil
	default:
		if err := p.Session.ChannelMessagesBulkDelete(string(channel), ids, discordgo.WithContext(ctx)); err != nil {
			return 0, err
		}
		return len(ids), nil
	}
}

func recentMessageIDs(msgs []*discordgo.Message, now time.Time) []string {
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if now.Sub(m.Timestamp) >= bulkDeleteMaxAge {
			continue
		}
		ids = append(ids, m.ID)
	}
	return ids
}

func (p *Platform) Self() event.User {
	if p.Session.State == nil || p.Session.State.User == nil {
		return event.User{Bot: true}
	}
	return userFromDiscord(p.Session.State.User)
}

func (p *Platform) SelfCapabilities(ctx context.Context, community event.CommunityID) (event.CapabilitySet, error) {
	self := p.Self()
	if self.ID == "" {
		return event.CapabilitySet{}, fmt.Errorf("session not ready")
	}
	perms, err := p.memberPermissions(ctx, string(community), string(self.ID))
	if err != nil {
		return event.CapabilitySet{}, err
	}
	return CapabilitiesFromPermissions(perms), nil
}

// Guild-level permissions of a member, preferring the gateway state cache and falling back to REST.
func (p *Platform) memberPermissions(ctx context.Context, guildID, userID string) (int64, error) {
	guild, err := p.Session.State.Guild(guildID)
	if err != nil {
		guild, err = p.Session.Guild(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return 0, fmt.Errorf("fetching guild: %w", err)
		}
	}
	member, err := p.Session.State.Member(guildID, userID)
	if err != nil {
		member, err = p.Session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		if err != nil {
			return 0, fmt.Errorf("fetching member: %w", err)
		}
	}
	return guildPermissions(guild, member), nil
}

// Sends the entry as an embed to the community's log channel. Entries without a channel are dropped.
func (p *Platform) SendLog(ctx context.Context, community event.CommunityID, channel event.ChannelID, entry engine.LogEntry) error {
	if channel == "" {
		p.Logger.Debug("no moderation log channel configured, dropping entry", "community", community, "kind", entry.Kind)
		return nil
	}
	_, err := p.Session.ChannelMessageSendEmbed(string(channel), EmbedFromLogEntry(entry), discordgo.WithContext(ctx))
	return err
}

func EmbedFromLogEntry(entry engine.LogEntry) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       entry.Title,
		Description: entry.Description,
		Color:       entry.Color,
	}
	if !entry.Timestamp.IsZero() {
		embed.Timestamp = entry.Timestamp.UTC().Format(time.RFC3339)
	}
	if entry.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: entry.Footer}
	}
	for _, f := range entry.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return embed
}

func userFromDiscord(u *discordgo.User) event.User {
	return event.User{
		ID:  event.UserID(u.ID),
		Tag: u.String(),
		Bot: u.Bot,
	}
}
