package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sieve-chat/sieve/automod/event"
	"github.com/sieve-chat/sieve/automod/policystore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	target    = event.User{ID: "u9", Tag: "troll#0009"}
	moderator = Actor{
		User: event.User{ID: "mod1", Tag: "mod#0001"},
		Capabilities: event.NewCapabilitySet(
			event.CapManageMessages,
			event.CapKickMembers,
			event.CapBanMembers,
			event.CapModerateMembers,
			event.CapManageCommunity,
		),
	}
	member = Actor{User: event.User{ID: "u1", Tag: "user#0001"}}
)

func setLogChannel(t *testing.T, fix *TestFixture, community event.CommunityID, channel string) {
	_, err := fix.Engine.Policies.Update(context.Background(), string(community), func(p *policystore.CommunityPolicy) error {
		p.SetLogChannel(channel)
		return nil
	})
	require.NoError(t, err)
}

func TestExecutorPermissionDenied(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := EngineTestFixture()
	defer fix.Close()
	tgt := target

	errs := []error{
		fix.Engine.Kick(ctx, "c1", member, &tgt, "bye"),
		fix.Engine.Ban(ctx, "c1", member, &tgt, "bye"),
		fix.Engine.Timeout(ctx, "c1", member, &tgt, 10, "bye"),
		fix.Engine.SetLogChannel(ctx, "c1", member, "ch9"),
	}
	_, err := fix.Engine.Purge(ctx, "c1", "ch1", member, 10)
	errs = append(errs, err)
	_, err = fix.Engine.TogglePolicy(ctx, "c1", member, "wordfilter")
	errs = append(errs, err)

	for _, err := range errs {
		assert.ErrorIs(err, ErrPermissionDenied)
		assert.Equal("You do not have permission to use this command!", UserMessage(err))
	}
	// no platform calls, no log entries, and no policy mutation (or even creation)
	assert.Empty(fix.Platform.Calls())
	assert.Equal(0, fix.Notifier.Attempts())
	assert.Equal(0, fix.Backend.Saves())
}

func TestExecutorPermissionChecksActorNotTarget(t *testing.T) {
	assert := assert.New(t)
	fix := EngineTestFixture()
	defer fix.Close()

	// holding ban does not allow a kick
	actor := Actor{User: member.User, Capabilities: event.NewCapabilitySet(event.CapBanMembers)}
	tgt := target
	err := fix.Engine.Kick(context.Background(), "c1", actor, &tgt, "")
	var pe *PermissionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(event.CapKickMembers, pe.Required)
}

func TestExecutorKick(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := EngineTestFixture()
	defer fix.Close()
	tgt := target

	// target not in the community
	err := fix.Engine.Kick(ctx, "c1", moderator, nil, "bye")
	assert.ErrorIs(err, ErrValidation)
	assert.Equal("That user is not in the server.", UserMessage(err))

	// no log channel: action succeeds, nothing delivered
	assert.NoError(fix.Engine.Kick(ctx, "c1", moderator, &tgt, ""))
	kicks := fix.Platform.CallsTo("KickMember")
	require.Len(t, kicks, 1)
	assert.Equal(DefaultReason, kicks[0].Reason)
	assert.Equal(event.UserID("u9"), kicks[0].User)
	assert.Empty(fix.Notifier.Entries())

	setLogChannel(t, fix, "c1", "modlog")
	assert.NoError(fix.Engine.Kick(ctx, "c1", moderator, &tgt, "rude"))
	entries := fix.Notifier.Entries()
	require.Len(t, entries, 1)
	e := entries[0].Entry
	assert.Equal("kick", e.Kind)
	assert.Equal("Member Kicked", e.Title)
	assert.Equal([]LogField{
		{Name: "Action", Value: "kick", Inline: true},
		{Name: "Target", Value: "troll#0009 (u9)", Inline: true},
		{Name: "Moderator", Value: "mod#0001", Inline: true},
		{Name: "Reason", Value: "rude"},
	}, e.Fields)
}

func TestExecutorActionFailed(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := EngineTestFixture()
	defer fix.Close()
	setLogChannel(t, fix, "c1", "modlog")
	tgt := target

	fix.Platform.Fail("BanMember", errors.New("missing permissions"))
	err := fix.Engine.Ban(ctx, "c1", moderator, &tgt, "spam")
	assert.ErrorIs(err, ErrActionFailed)
	assert.Equal("I was unable to ban the user.", UserMessage(err))
	// no log entry for a failed action
	assert.Equal(0, fix.Notifier.Attempts())

	fix.Platform.Fail("TimeoutMember", errors.New("target outranks bot"))
	err = fix.Engine.Timeout(ctx, "c1", moderator, &tgt, 5, "spam")
	assert.ErrorIs(err, ErrActionFailed)
	assert.Equal("I was unable to timeout the user.", UserMessage(err))

	fix.Platform.Fail("BulkDelete", errors.New("messages too old"))
	_, err = fix.Engine.Purge(ctx, "c1", "ch1", moderator, 5)
	assert.ErrorIs(err, ErrActionFailed)
	assert.Equal("I was unable to purge messages.", UserMessage(err))
}

func TestExecutorTimeout(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := EngineTestFixture()
	defer fix.Close()
	setLogChannel(t, fix, "c1", "modlog")
	tgt := target

	for _, minutes := range []int64{0, -1, TimeoutMaxMinutes + 1} {
		err := fix.Engine.Timeout(ctx, "c1", moderator, &tgt, minutes, "")
		assert.ErrorIs(err, ErrValidation)
	}
	assert.Empty(fix.Platform.Calls())

	assert.NoError(fix.Engine.Timeout(ctx, "c1", moderator, &tgt, 15, ""))
	calls := fix.Platform.CallsTo("TimeoutMember")
	require.Len(t, calls, 1)
	assert.Equal(15*time.Minute, calls[0].Duration)
	assert.Equal(DefaultReason, calls[0].Reason)

	entries := fix.Notifier.Entries()
	require.Len(t, entries, 1)
	assert.Equal(ColorOrange, entries[0].Entry.Color)
	assert.Contains(entries[0].Entry.Fields, LogField{Name: "Duration", Value: "15 minutes", Inline: true})
}

func TestExecutorPurgeValidation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := EngineTestFixture()
	defer fix.Close()

	for _, amount := range []int64{0, 101, -5} {
		_, err := fix.Engine.Purge(ctx, "c1", "ch1", moderator, amount)
		assert.ErrorIs(err, ErrValidation, "amount=%d", amount)
		assert.Equal("You can only delete between 1 and 100 messages.", UserMessage(err))
	}
	assert.Empty(fix.Platform.Calls())

	for _, amount := range []int64{1, 100} {
		n, err := fix.Engine.Purge(ctx, "c1", "ch1", moderator, amount)
		assert.NoError(err)
		assert.Equal(int(amount), n)
	}
	assert.Len(fix.Platform.CallsTo("BulkDelete"), 2)
	// purges are not written to the moderation log
	assert.Equal(0, fix.Notifier.Attempts())
}

func TestExecutorToggleIsFlip(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := EngineTestFixture()
	defer fix.Close()

	enabled, err := fix.Engine.TogglePolicy(ctx, "c1", moderator, "wordfilter")
	assert.NoError(err)
	assert.False(enabled)
	enabled, err = fix.Engine.TogglePolicy(ctx, "c1", moderator, "wordFilterEnabled")
	assert.NoError(err)
	assert.True(enabled)

	p, err := fix.Engine.Policies.GetOrCreate(ctx, "c1")
	assert.NoError(err)
	assert.Equal(policystore.DefaultPolicy(), p)

	_, err = fix.Engine.TogglePolicy(ctx, "c1", moderator, "nonsense")
	assert.ErrorIs(err, ErrValidation)
}

func TestExecutorPersistenceFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := EngineTestFixture()
	defer fix.Close()
	fix.Backend.SetFailSaves(true)

	enabled, err := fix.Engine.TogglePolicy(ctx, "c1", moderator, "wordfilter")
	assert.ErrorIs(err, ErrPersistence)
	assert.False(enabled)
	assert.Equal("There was an error saving the setting.", UserMessage(err))

	// the in-memory value changed anyway
	p, err := fix.Engine.Policies.GetOrCreate(ctx, "c1")
	assert.NoError(err)
	assert.False(p.WordFilterEnabled)

	err = fix.Engine.SetLogChannel(ctx, "c1", moderator, "modlog")
	assert.ErrorIs(err, ErrPersistence)
	p, _ = fix.Engine.Policies.GetOrCreate(ctx, "c1")
	ch, ok := p.LogChannel()
	assert.True(ok)
	assert.Equal("modlog", ch)
}

func TestExecutorInvalidCommunity(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fix := EngineTestFixture()
	defer fix.Close()

	_, err := fix.Engine.TogglePolicy(ctx, "", moderator, "wordfilter")
	assert.ErrorIs(err, ErrValidation)
	assert.NotErrorIs(err, ErrPersistence)
	assert.Equal("This command can only be used in a server.", UserMessage(err))

	err = fix.Engine.SetLogChannel(ctx, "", moderator, "modlog")
	assert.ErrorIs(err, ErrValidation)
	assert.NotErrorIs(err, ErrPersistence)
}
