package discord

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sieve-chat/sieve/automod/cachestore"
	"github.com/sieve-chat/sieve/automod/engine"
	"github.com/sieve-chat/sieve/automod/event"
)

// Gateway intents needed by the handlers: guilds, guild messages (with content), and guild members.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent | discordgo.IntentsGuildMembers

// Feeds gateway events into the engine.
type Handler struct {
	Engine   *engine.Engine
	Platform *Platform
	Logger   *slog.Logger
	// bound on the engine work (including platform calls) done for a single event
	EventTimeout time.Duration
	// optional; holds author permissions fetched over REST when the gateway state cache misses
	Cache cachestore.CacheStore

	ctx context.Context
}

func NewHandler(ctx context.Context, eng *engine.Engine, plat *Platform, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Engine:       eng,
		Platform:     plat,
		Logger:       logger.With("system", "discord-handler"),
		EventTimeout: 30 * time.Second,
		ctx:          ctx,
	}
}

// Registers event handlers on the session. Must be called before the session is opened.
func (h *Handler) Register(s *discordgo.Session) {
	s.AddHandler(h.onReady)
	s.AddHandler(h.onMessageCreate)
	s.AddHandler(h.onGuildMemberAdd)
	s.AddHandler(h.onInteractionCreate)
}

func (h *Handler) eventContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(h.ctx, h.EventTimeout)
}

func (h *Handler) onReady(s *discordgo.Session, r *discordgo.Ready) {
	h.Logger.Info("logged in", "user", r.User.String(), "guilds", len(r.Guilds))
}

func (h *Handler) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// direct messages and system messages have no guild or author to moderate
	if m.GuildID == "" || m.Author == nil {
		return
	}
	ctx, cancel := h.eventContext()
	defer cancel()

	var caps event.CapabilitySet
	if !m.Author.Bot {
		perms, err := s.State.UserChannelPermissions(m.Author.ID, m.ChannelID)
		if err != nil {
			perms, err = cachedPermissions(ctx, h.Logger, h.Cache, m.ChannelID, m.Author.ID, func() (int64, error) {
				return s.UserChannelPermissions(m.Author.ID, m.ChannelID, discordgo.WithContext(ctx))
			})
		}
		if err != nil {
			// treated as unprivileged
			h.Logger.Warn("failed to resolve author permissions", "guild", m.GuildID, "author", m.Author.ID, "err", err)
		}
		caps = CapabilitiesFromPermissions(perms)
	}

	evt := messageEvent(m.Message, caps)
	if _, err := h.Engine.ProcessMessage(ctx, evt); err != nil {
		h.Logger.Error("failed to process message", "guild", m.GuildID, "message", m.ID, "err", err)
	}
}

const permissionCacheName = "channel-perms"

// Looks up a member's channel permission bitmask in the cache, falling back to fetch. Cache errors are not fatal.
func cachedPermissions(ctx context.Context, logger *slog.Logger, cache cachestore.CacheStore, channelID, userID string, fetch func() (int64, error)) (int64, error) {
	if cache == nil {
		return fetch()
	}
	key := channelID + "/" + userID
	if val, ok, err := cache.Get(ctx, permissionCacheName, key); err == nil && ok {
		if perms, err := strconv.ParseInt(val, 10, 64); err == nil {
			return perms, nil
		}
	}
	perms, err := fetch()
	if err != nil {
		return 0, err
	}
	if err := cache.Set(ctx, permissionCacheName, key, strconv.FormatInt(perms, 10)); err != nil {
		logger.Warn("failed to cache member permissions", "channel", channelID, "user", userID, "err", err)
	}
	return perms, nil
}

func messageEvent(m *discordgo.Message, caps event.CapabilitySet) event.MessageEvent {
	return event.MessageEvent{
		Community:          event.CommunityID(m.GuildID),
		Channel:            event.ChannelID(m.ChannelID),
		Message:            event.MessageID(m.ID),
		Author:             userFromDiscord(m.Author),
		Body:               m.Content,
		AuthorCapabilities: caps,
	}
}

func (h *Handler) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil {
		return
	}
	evt, err := memberJoinEvent(m.Member)
	if err != nil {
		h.Logger.Error("failed to parse member join", "guild", m.GuildID, "member", m.User.ID, "err", err)
		return
	}
	ctx, cancel := h.eventContext()
	defer cancel()
	if _, err := h.Engine.ProcessMemberJoin(ctx, evt); err != nil {
		h.Logger.Error("failed to process member join", "guild", m.GuildID, "member", m.User.ID, "err", err)
	}
}

// Account creation time is encoded in the user's snowflake ID.
func memberJoinEvent(m *discordgo.Member) (event.MemberJoinEvent, error) {
	created, err := discordgo.SnowflakeTimestamp(m.User.ID)
	if err != nil {
		return event.MemberJoinEvent{}, err
	}
	return event.MemberJoinEvent{
		Community:        event.CommunityID(m.GuildID),
		Member:           userFromDiscord(m.User),
		AccountCreatedAt: created,
		JoinedAt:         m.JoinedAt,
	}, nil
}

func (h *Handler) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	var reply engine.Reply
	if i.GuildID == "" || i.Member == nil {
		reply = engine.Reply{Content: "Commands can only be used in a server.", Ephemeral: true}
	} else {
		ctx, cancel := h.eventContext()
		defer cancel()
		reply = h.Engine.ProcessCommand(ctx, commandEvent(i.Interaction))
	}
	if err := s.InteractionRespond(i.Interaction, interactionResponse(reply)); err != nil {
		h.Logger.Error("failed to respond to interaction", "guild", i.GuildID, "err", err)
	}
}

// Converts a guild slash-command interaction into an engine command. A user option whose member is not resolved is left out, meaning "not in the server".
func commandEvent(i *discordgo.Interaction) event.CommandEvent {
	data := i.ApplicationCommandData()
	cmd := event.CommandEvent{
		Community:         event.CommunityID(i.GuildID),
		Channel:           event.ChannelID(i.ChannelID),
		Actor:             userFromDiscord(i.Member.User),
		ActorCapabilities: CapabilitiesFromPermissions(i.Member.Permissions),
		Name:              data.Name,
		Args: event.CommandArgs{
			Strings:  map[string]string{},
			Integers: map[string]int64{},
			Users:    map[string]event.User{},
			Channels: map[string]event.ChannelID{},
		},
	}
	for _, opt := range data.Options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			cmd.Args.Strings[opt.Name] = opt.StringValue()
		case discordgo.ApplicationCommandOptionInteger:
			cmd.Args.Integers[opt.Name] = opt.IntValue()
		case discordgo.ApplicationCommandOptionChannel:
			if id, ok := opt.Value.(string); ok {
				cmd.Args.Channels[opt.Name] = event.ChannelID(id)
			}
		case discordgo.ApplicationCommandOptionUser:
			id, ok := opt.Value.(string)
			if !ok || data.Resolved == nil {
				continue
			}
			if _, member := data.Resolved.Members[id]; !member {
				continue
			}
			if u, ok := data.Resolved.Users[id]; ok {
				cmd.Args.Users[opt.Name] = userFromDiscord(u)
			}
		}
	}
	return cmd
}

func interactionResponse(reply engine.Reply) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{Content: reply.Content}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}
