package engine

import (
	"context"
	"time"

	"github.com/sieve-chat/sieve/automod/event"
)

// Outbound side-effects on the chat platform. Implemented by the platform binding, and by a recording fake in tests.
//
// Every method may fail; the engine never assumes success.
type Platform interface {
	DeleteMessage(ctx context.Context, channel event.ChannelID, msg event.MessageID) error
	SendMessage(ctx context.Context, channel event.ChannelID, content string) error
	KickMember(ctx context.Context, community event.CommunityID, user event.UserID, reason string) error
	BanMember(ctx context.Context, community event.CommunityID, user event.UserID, reason string) error
	TimeoutMember(ctx context.Context, community event.CommunityID, user event.UserID, d time.Duration, reason string) error
	// Deletes up to count recent messages from the channel, returning the number actually deleted.
	BulkDelete(ctx context.Context, channel event.ChannelID, count int) (int, error)
	// Identity of the engine's own account, used as the actor for automated enforcement
	Self() event.User
	// Capabilities held by the engine's own account in the community
	SelfCapabilities(ctx context.Context, community event.CommunityID) (event.CapabilitySet, error)
}

// The member (or the engine itself) on whose behalf an action is performed.
type Actor struct {
	User         event.User
	Capabilities event.CapabilitySet
}

func (a Actor) Require(c event.Capability) error {
	if !a.Capabilities.Has(c) {
		return &PermissionError{Actor: a.User.ID, Required: c}
	}
	return nil
}
