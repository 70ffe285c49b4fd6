package event

import (
	"sort"
	"strings"
)

// A named permission an actor may hold in a community. Decoupled from any platform permission encoding.
type Capability uint32

const (
	CapManageMessages Capability = 1 << iota
	CapKickMembers
	CapBanMembers
	CapModerateMembers
	CapManageCommunity
)

var capabilityNames = map[Capability]string{
	CapManageMessages:  "manage-messages",
	CapKickMembers:     "kick-members",
	CapBanMembers:      "ban-members",
	CapModerateMembers: "moderate-members",
	CapManageCommunity: "manage-guild",
}

func (c Capability) String() string {
	if n, ok := capabilityNames[c]; ok {
		return n
	}
	return "unknown"
}

// Immutable set of capabilities. The zero value is the empty set.
type CapabilitySet struct {
	bits Capability
}

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s.bits |= c
	}
	return s
}

func (s CapabilitySet) Has(c Capability) bool {
	return c != 0 && s.bits&c == c
}

func (s CapabilitySet) With(c Capability) CapabilitySet {
	return CapabilitySet{bits: s.bits | c}
}

func (s CapabilitySet) Empty() bool {
	return s.bits == 0
}

func (s CapabilitySet) String() string {
	names := []string{}
	for c, n := range capabilityNames {
		if s.Has(c) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return "[" + strings.Join(names, " ") + "]"
}
