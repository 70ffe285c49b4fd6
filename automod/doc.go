// Auto-moderation engine for group-chat communities.
//
// This package (`github.com/sieve-chat/sieve/automod`) contains a small "rules engine" which inspects new messages and member joins, and carries out graduated enforcement: deleting a message, timing out a member who posts in bursts, or removing freshly created accounts. Moderators can also invoke a fixed set of commands (kick, ban, timeout, purge, and policy changes), which run through the same capability-checked executor. Per-community policy is held in a small durable store; burst windows are in-memory only.
//
// Rules themselves live in `automod/rules`, and the chat platform binding in `automod/platform/discord`. See `cmd/sieve` for a daemon built on this package.
package automod
