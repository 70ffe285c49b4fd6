package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/sieve-chat/sieve/automod/event"
)

var permissionCapabilities = []struct {
	perm int64
	cap  event.Capability
}{
	{discordgo.PermissionManageMessages, event.CapManageMessages},
	{discordgo.PermissionKickMembers, event.CapKickMembers},
	{discordgo.PermissionBanMembers, event.CapBanMembers},
	{discordgo.PermissionModerateMembers, event.CapModerateMembers},
	{discordgo.PermissionManageServer, event.CapManageCommunity},
}

// Maps a discord permission bitmask to the engine's capability set. Administrator implies every capability.
func CapabilitiesFromPermissions(perms int64) event.CapabilitySet {
	admin := perms&discordgo.PermissionAdministrator != 0
	caps := event.CapabilitySet{}
	for _, pc := range permissionCapabilities {
		if admin || perms&pc.perm != 0 {
			caps = caps.With(pc.cap)
		}
	}
	return caps
}

// Inverse of CapabilitiesFromPermissions for a single capability, used for default command visibility.
func PermissionForCapability(c event.Capability) int64 {
	for _, pc := range permissionCapabilities {
		if pc.cap == c {
			return pc.perm
		}
	}
	return 0
}

// Guild-level permissions of a member: the @everyone role plus each of the member's roles. Channel overwrites are not applied.
func guildPermissions(guild *discordgo.Guild, member *discordgo.Member) int64 {
	if member.User != nil && guild.OwnerID == member.User.ID {
		return discordgo.PermissionAll
	}
	var perms int64
	for _, role := range guild.Roles {
		// the @everyone role shares the guild's ID
		if role.ID == guild.ID {
			perms |= role.Permissions
			break
		}
	}
	for _, role := range guild.Roles {
		for _, id := range member.Roles {
			if role.ID == id {
				perms |= role.Permissions
				break
			}
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}
