package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/sieve-chat/sieve/automod/event"
	"github.com/sieve-chat/sieve/automod/helpers"
	"github.com/sieve-chat/sieve/automod/policystore"
	"github.com/sieve-chat/sieve/automod/ratelimit"
)

// The primary interface exposed to rules. All other contexts derive from this "base" struct.
type BaseContext struct {
	// Actual golang "context.Context", if needed for timeouts etc
	Ctx context.Context
	// Any errors encountered while processing methods on this struct (or sub-types) get rolled up in this nullable field
	Err error
	// slog logger handle, with event-specific structured fields pre-populated. Pointer, but expected to never be nil.
	Logger *slog.Logger

	Community event.CommunityID
	// Snapshot of the community policy at the time the event was received
	Policy policystore.CommunityPolicy

	engine  *Engine // NOTE: pointer, but expected never to be nil
	effects *Effects
}

// A single message posted to a community channel.
type MessageContext struct {
	BaseContext

	Message event.MessageEvent
}

// A member joining a community.
type MemberContext struct {
	BaseContext

	Join event.MemberJoinEvent
}

func NewMessageContext(ctx context.Context, eng *Engine, policy policystore.CommunityPolicy, evt event.MessageEvent) MessageContext {
	return MessageContext{
		BaseContext: BaseContext{
			Ctx:       ctx,
			Err:       nil,
			Logger:    eng.Logger.With("community", evt.Community, "channel", evt.Channel, "author", evt.Author.ID, "message", evt.Message),
			Community: evt.Community,
			Policy:    policy,
			engine:    eng,
			effects:   &Effects{},
		},
		Message: evt,
	}
}

func NewMemberContext(ctx context.Context, eng *Engine, policy policystore.CommunityPolicy, evt event.MemberJoinEvent) MemberContext {
	return MemberContext{
		BaseContext: BaseContext{
			Ctx:       ctx,
			Err:       nil,
			Logger:    eng.Logger.With("community", evt.Community, "member", evt.Member.ID),
			Community: evt.Community,
			Policy:    policy,
			engine:    eng,
			effects:   &Effects{},
		},
		Join: evt,
	}
}

// Engine configuration, read-only.
func (c *BaseContext) Config() Config {
	return c.engine.Config
}

// Current time according to the engine clock.
func (c *BaseContext) Now() time.Time {
	return c.engine.now()
}

// Returns the named term list. Errors are rolled up in c.Err, and result in an empty list.
func (c *BaseContext) Terms(name string) []string {
	terms, err := c.engine.Sets.Terms(c.Ctx, name)
	if err != nil {
		c.Logger.Error("term list lookup failed", "set", name, "err", err)
		c.Err = err
		return nil
	}
	return terms
}

// Records one unit of activity for the given key in the burst limiter.
func (c *BaseContext) RecordActivity(key string) ratelimit.Result {
	if c.engine.Limiter == nil {
		return ratelimit.Result{}
	}
	return c.engine.Limiter.Hit(key)
}

// True once any rule has made a non-Allow decision for this event.
func (c *BaseContext) Decided() bool {
	return c.effects.Decided()
}

func (c *BaseContext) Decision() Decision {
	return c.effects.Decision()
}

func (c *BaseContext) decide(d Decision) {
	if !c.effects.Decide(d) {
		c.Logger.Debug("decision already made, ignoring", "kind", d.Kind, "rule", d.Rule)
	}
}

// Requests deletion of the message, with a notice posted to the channel once deleted.
func (c *MessageContext) DeleteMessage(rule, reason, notice string) {
	c.decide(Decision{
		Kind:    DeleteMessage,
		Reason:  reason,
		Subject: c.Message.Author.ID,
		Rule:    rule,
		Notice:  notice,
	})
}

// Requests a timeout of the message author, for the configured spam timeout duration.
func (c *MessageContext) TimeoutAuthor(rule, reason string) {
	c.decide(Decision{
		Kind:     TimeoutUser,
		Reason:   reason,
		Subject:  c.Message.Author.ID,
		Rule:     rule,
		Duration: c.engine.Config.SpamTimeout,
	})
}

// Requests that the joining member be removed from the community.
func (c *MemberContext) KickMember(rule, reason string) {
	c.decide(Decision{
		Kind:    KickUser,
		Reason:  reason,
		Subject: c.Join.Member.ID,
		Rule:    rule,
	})
}

// Whole days since the joining account was created, measured against the engine clock.
func (c *MemberContext) AccountAgeDays() int {
	return helpers.AccountAgeDays(c.Join.AccountCreatedAt, c.Now())
}
