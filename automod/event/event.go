package event

import (
	"time"
)

// Opaque platform identifiers. The engine never parses these.
type CommunityID string
type ChannelID string
type UserID string
type MessageID string

// Summary of a chat account, as needed by rules and log rendering.
type User struct {
	ID UserID
	// Human-readable display tag (eg, "name" or "name#1234")
	Tag string
	Bot bool
}

// Mention string for the user, rendered by the platform as a link.
func (u User) Mention() string {
	return "<@" + string(u.ID) + ">"
}

// Represents a single new message posted to a community channel.
type MessageEvent struct {
	Community CommunityID
	Channel   ChannelID
	Message   MessageID
	Author    User
	Body      string
	// Capabilities held by the author in this channel, resolved by the platform binding
	AuthorCapabilities CapabilitySet
}

// Represents a member joining a community.
type MemberJoinEvent struct {
	Community        CommunityID
	Member           User
	AccountCreatedAt time.Time
	JoinedAt         time.Time
}

// Represents an invocation of one of the engine's commands by a community member.
type CommandEvent struct {
	Community CommunityID
	Channel   ChannelID
	Actor     User
	// Capabilities held by the invoking member
	ActorCapabilities CapabilitySet
	// Name of the command, eg "kick"
	Name string
	Args CommandArgs
}

// Parsed command arguments. Argument names match the option names in the engine's command table.
type CommandArgs struct {
	Strings  map[string]string
	Integers map[string]int64
	// Resolved community members, keyed by option name. A missing key for a supplied user option means the user is not in the community.
	Users    map[string]User
	Channels map[string]ChannelID
}

func (a CommandArgs) String(name string) (string, bool) {
	v, ok := a.Strings[name]
	return v, ok
}

func (a CommandArgs) Integer(name string) (int64, bool) {
	v, ok := a.Integers[name]
	return v, ok
}

func (a CommandArgs) User(name string) (User, bool) {
	v, ok := a.Users[name]
	return v, ok
}

func (a CommandArgs) Channel(name string) (ChannelID, bool) {
	v, ok := a.Channels[name]
	return v, ok
}
