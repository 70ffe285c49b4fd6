package engine

import (
	"context"
	"fmt"

	"github.com/sieve-chat/sieve/automod/event"
)

// Resolves the engine's own identity and capabilities in the community, used as the actor for automated enforcement.
//
// A failed lookup yields an empty capability set, so the enforcement step is denied rather than attempted blind.
func (eng *Engine) selfActor(ctx context.Context, community event.CommunityID) Actor {
	caps, err := eng.Platform.SelfCapabilities(ctx, community)
	if err != nil {
		eng.Logger.Warn("failed to resolve own capabilities", "community", community, "err", err)
		caps = event.CapabilitySet{}
	}
	return Actor{User: eng.Platform.Self(), Capabilities: caps}
}

// Carries out a decision made by message rules. Failures are logged, never retried.
func (eng *Engine) enforceMessageDecision(ctx context.Context, c *MessageContext, dec Decision) {
	var err error
	switch dec.Kind {
	case Allow:
		return
	case DeleteMessage:
		err = eng.enforceDelete(ctx, c, dec)
	case TimeoutUser:
		err = eng.enforceSpamTimeout(ctx, c, dec)
	default:
		err = fmt.Errorf("unexpected decision for message event: %s", dec.Kind)
	}
	if err != nil {
		c.Logger.Error("automated enforcement failed", "decision", dec.Kind, "rule", dec.Rule, "err", err)
	}
}

func (eng *Engine) enforceMemberDecision(ctx context.Context, c *MemberContext, dec Decision) {
	var err error
	switch dec.Kind {
	case Allow:
		return
	case KickUser:
		err = eng.enforceNewAccountKick(ctx, c, dec)
	default:
		err = fmt.Errorf("unexpected decision for member event: %s", dec.Kind)
	}
	if err != nil {
		c.Logger.Error("automated enforcement failed", "decision", dec.Kind, "rule", dec.Rule, "err", err)
	}
}

func (eng *Engine) enforceDelete(ctx context.Context, c *MessageContext, dec Decision) error {
	actor := eng.selfActor(ctx, c.Community)
	if err := actor.Require(event.CapManageMessages); err != nil {
		actionCount.WithLabelValues("delete", "denied").Inc()
		return err
	}
	if err := eng.Platform.DeleteMessage(ctx, c.Message.Channel, c.Message.Message); err != nil {
		actionCount.WithLabelValues("delete", "failed").Inc()
		return &ActionError{Action: "delete", Err: err}
	}
	actionCount.WithLabelValues("delete", "ok").Inc()

	if dec.Notice == "" {
		return nil
	}
	if err := eng.Platform.SendMessage(ctx, c.Message.Channel, dec.Notice); err != nil {
		return &ActionError{Action: "notify", Err: err}
	}
	return nil
}

// The burst window has already been discarded by the limiter by the time this runs, whatever the outcome here.
func (eng *Engine) enforceSpamTimeout(ctx context.Context, c *MessageContext, dec Decision) error {
	actor := eng.selfActor(ctx, c.Community)
	if err := actor.Require(event.CapModerateMembers); err != nil {
		actionCount.WithLabelValues("timeout", "denied").Inc()
		return err
	}
	author := c.Message.Author
	if err := eng.Platform.TimeoutMember(ctx, c.Community, author.ID, dec.Duration, dec.Reason); err != nil {
		actionCount.WithLabelValues("timeout", "failed").Inc()
		return &ActionError{Action: "timeout", Err: err}
	}
	actionCount.WithLabelValues("timeout", "ok").Inc()

	eng.sendLog(ctx, c.Community, c.Policy.ModLogChannelID, enforcementLogEntry("timeout", author, actor.User.Tag, dec.Reason, dec.Duration, eng.now()))
	if err := eng.Platform.SendMessage(ctx, c.Message.Channel, fmt.Sprintf("%s has been timed out for spamming.", author.Tag)); err != nil {
		return &ActionError{Action: "notify", Err: err}
	}
	return nil
}

// The log entry is always attempted after the kick, whether or not the kick went through.
func (eng *Engine) enforceNewAccountKick(ctx context.Context, c *MemberContext, dec Decision) error {
	member := c.Join.Member
	err := eng.kickNewAccount(ctx, c.Community, member.ID, dec.Reason)
	eng.sendLog(ctx, c.Community, c.Policy.ModLogChannelID, newAccountLogEntry(member, c.AccountAgeDays(), err == nil, eng.now()))
	return err
}

func (eng *Engine) kickNewAccount(ctx context.Context, community event.CommunityID, user event.UserID, reason string) error {
	actor := eng.selfActor(ctx, community)
	if err := actor.Require(event.CapKickMembers); err != nil {
		actionCount.WithLabelValues("kick", "denied").Inc()
		return err
	}
	if err := eng.Platform.KickMember(ctx, community, user, reason); err != nil {
		actionCount.WithLabelValues("kick", "failed").Inc()
		return &ActionError{Action: "kick", Err: err}
	}
	actionCount.WithLabelValues("kick", "ok").Inc()
	return nil
}

// Delivers a log entry to every notifier. Delivery failures are logged and never fail the calling action.
func (eng *Engine) sendLog(ctx context.Context, community event.CommunityID, channelID *string, entry LogEntry) {
	channel := event.ChannelID("")
	if channelID != nil {
		channel = event.ChannelID(*channelID)
	}
	for _, n := range eng.Notifiers {
		if err := n.SendLog(ctx, community, channel, entry); err != nil {
			logDeliveryErrorCount.Inc()
			eng.Logger.Warn("failed to deliver moderation log entry", "community", community, "kind", entry.Kind, "err", err)
		}
	}
}
