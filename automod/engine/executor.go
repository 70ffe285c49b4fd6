package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sieve-chat/sieve/automod/event"
	"github.com/sieve-chat/sieve/automod/policystore"
)

const (
	DefaultReason = "No reason provided"

	PurgeMin = 1
	PurgeMax = 100

	TimeoutMinMinutes = 1
	// platform ceiling on member timeouts (28 days)
	TimeoutMaxMinutes = 28 * 24 * 60
)

func reasonOrDefault(reason string) string {
	if reason == "" {
		return DefaultReason
	}
	return reason
}

func targetPresent(target *event.User) error {
	if target == nil {
		return &ValidationError{Message: "That user is not in the server."}
	}
	return nil
}

// Removes the target from the community. A nil target means the user is not a member.
//
// The actor's capability is checked before anything else; a denied request has no side-effects.
func (eng *Engine) Kick(ctx context.Context, community event.CommunityID, actor Actor, target *event.User, reason string) error {
	if err := actor.Require(event.CapKickMembers); err != nil {
		actionCount.WithLabelValues("kick", "denied").Inc()
		return err
	}
	if err := targetPresent(target); err != nil {
		return err
	}
	reason = reasonOrDefault(reason)
	if err := eng.Platform.KickMember(ctx, community, target.ID, reason); err != nil {
		actionCount.WithLabelValues("kick", "failed").Inc()
		eng.Logger.Error("kick failed", "community", community, "target", target.ID, "actor", actor.User.ID, "err", err)
		return &ActionError{Action: "kick", Err: err}
	}
	actionCount.WithLabelValues("kick", "ok").Inc()
	eng.logEnforcement(ctx, community, "kick", *target, actor, reason, 0)
	return nil
}

func (eng *Engine) Ban(ctx context.Context, community event.CommunityID, actor Actor, target *event.User, reason string) error {
	if err := actor.Require(event.CapBanMembers); err != nil {
		actionCount.WithLabelValues("ban", "denied").Inc()
		return err
	}
	if err := targetPresent(target); err != nil {
		return err
	}
	reason = reasonOrDefault(reason)
	if err := eng.Platform.BanMember(ctx, community, target.ID, reason); err != nil {
		actionCount.WithLabelValues("ban", "failed").Inc()
		eng.Logger.Error("ban failed", "community", community, "target", target.ID, "actor", actor.User.ID, "err", err)
		return &ActionError{Action: "ban", Err: err}
	}
	actionCount.WithLabelValues("ban", "ok").Inc()
	eng.logEnforcement(ctx, community, "ban", *target, actor, reason, 0)
	return nil
}

func (eng *Engine) Timeout(ctx context.Context, community event.CommunityID, actor Actor, target *event.User, minutes int64, reason string) error {
	if err := actor.Require(event.CapModerateMembers); err != nil {
		actionCount.WithLabelValues("timeout", "denied").Inc()
		return err
	}
	if err := targetPresent(target); err != nil {
		return err
	}
	if minutes < TimeoutMinMinutes || minutes > TimeoutMaxMinutes {
		return validationErrorf("Timeout duration must be between %d and %d minutes.", TimeoutMinMinutes, TimeoutMaxMinutes)
	}
	reason = reasonOrDefault(reason)
	d := time.Duration(minutes) * time.Minute
	if err := eng.Platform.TimeoutMember(ctx, community, target.ID, d, reason); err != nil {
		actionCount.WithLabelValues("timeout", "failed").Inc()
		eng.Logger.Error("timeout failed", "community", community, "target", target.ID, "actor", actor.User.ID, "err", err)
		return &ActionError{Action: "timeout", Err: err}
	}
	actionCount.WithLabelValues("timeout", "ok").Inc()
	eng.logEnforcement(ctx, community, "timeout", *target, actor, reason, d)
	return nil
}

// Bulk-deletes recent messages in the channel. Returns the number the platform reports deleted.
func (eng *Engine) Purge(ctx context.Context, community event.CommunityID, channel event.ChannelID, actor Actor, amount int64) (int, error) {
	if err := actor.Require(event.CapManageMessages); err != nil {
		actionCount.WithLabelValues("purge", "denied").Inc()
		return 0, err
	}
	if amount < PurgeMin || amount > PurgeMax {
		return 0, validationErrorf("You can only delete between %d and %d messages.", PurgeMin, PurgeMax)
	}
	n, err := eng.Platform.BulkDelete(ctx, channel, int(amount))
	if err != nil {
		actionCount.WithLabelValues("purge", "failed").Inc()
		eng.Logger.Error("purge failed", "community", community, "channel", channel, "actor", actor.User.ID, "err", err)
		return 0, &ActionError{Action: "purge", Err: err}
	}
	actionCount.WithLabelValues("purge", "ok").Inc()
	return n, nil
}

// Flips a boolean policy feature, returning its new value.
//
// On a persistence failure the new value is still returned (and is in effect), together with an error wrapping ErrPersistence.
func (eng *Engine) TogglePolicy(ctx context.Context, community event.CommunityID, actor Actor, feature string) (bool, error) {
	if err := actor.Require(event.CapManageCommunity); err != nil {
		actionCount.WithLabelValues("toggle", "denied").Inc()
		return false, err
	}
	var enabled bool
	_, err := eng.Policies.Update(ctx, string(community), func(p *policystore.CommunityPolicy) error {
		v, err := p.Toggle(feature)
		enabled = v
		return err
	})
	if err != nil {
		return enabled, eng.policyUpdateError(community, "toggle", err)
	}
	actionCount.WithLabelValues("toggle", "ok").Inc()
	eng.Logger.Info("policy feature toggled", "community", community, "feature", feature, "enabled", enabled, "actor", actor.User.ID)
	return enabled, nil
}

func (eng *Engine) SetLogChannel(ctx context.Context, community event.CommunityID, actor Actor, channel event.ChannelID) error {
	if err := actor.Require(event.CapManageCommunity); err != nil {
		actionCount.WithLabelValues("setlogchannel", "denied").Inc()
		return err
	}
	if channel == "" {
		return &ValidationError{Message: "Please choose a channel."}
	}
	_, err := eng.Policies.Update(ctx, string(community), func(p *policystore.CommunityPolicy) error {
		p.SetLogChannel(string(channel))
		return nil
	})
	if err != nil {
		return eng.policyUpdateError(community, "setlogchannel", err)
	}
	actionCount.WithLabelValues("setlogchannel", "ok").Inc()
	eng.Logger.Info("moderation log channel set", "community", community, "channel", channel, "actor", actor.User.ID)
	return nil
}

func (eng *Engine) policyUpdateError(community event.CommunityID, action string, err error) error {
	switch {
	case errors.Is(err, policystore.ErrUnknownFeature):
		return &ValidationError{Message: "That feature does not exist."}
	case errors.Is(err, policystore.ErrInvalidCommunity):
		return &ValidationError{Message: "This command can only be used in a server."}
	case errors.Is(err, policystore.ErrPersistence):
		actionCount.WithLabelValues(action, "persistence-failed").Inc()
		eng.Logger.Error("failed to persist community policy", "community", community, "action", action, "err", err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	default:
		actionCount.WithLabelValues(action, "failed").Inc()
		eng.Logger.Error("failed to update community policy", "community", community, "action", action, "err", err)
		return fmt.Errorf("updating community policy: %w", err)
	}
}

func (eng *Engine) logEnforcement(ctx context.Context, community event.CommunityID, action string, target event.User, actor Actor, reason string, d time.Duration) {
	policy, err := eng.Policies.GetOrCreate(ctx, string(community))
	if err != nil {
		eng.Logger.Warn("could not load policy for moderation log", "community", community, "err", err)
		return
	}
	eng.sendLog(ctx, community, policy.ModLogChannelID, enforcementLogEntry(action, target, actor.User.Tag, reason, d, eng.now()))
}
