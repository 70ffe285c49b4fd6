package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilitySet(t *testing.T) {
	assert := assert.New(t)

	var empty CapabilitySet
	assert.True(empty.Empty())
	assert.False(empty.Has(CapKickMembers))
	assert.False(empty.Has(0))

	s := NewCapabilitySet(CapKickMembers, CapManageMessages)
	assert.True(s.Has(CapKickMembers))
	assert.True(s.Has(CapManageMessages))
	assert.False(s.Has(CapBanMembers))
	assert.Equal("[kick-members manage-messages]", s.String())

	s2 := s.With(CapBanMembers)
	assert.True(s2.Has(CapBanMembers))
	// original is unchanged
	assert.False(s.Has(CapBanMembers))
}

func TestCommandArgs(t *testing.T) {
	assert := assert.New(t)

	args := CommandArgs{
		Strings:  map[string]string{"reason": "rude"},
		Integers: map[string]int64{"amount": 10},
	}
	r, ok := args.String("reason")
	assert.True(ok)
	assert.Equal("rude", r)
	n, ok := args.Integer("amount")
	assert.True(ok)
	assert.Equal(int64(10), n)

	// nil maps are safe to read
	_, ok = args.User("user")
	assert.False(ok)
	_, ok = args.Channel("channel")
	assert.False(ok)

	u := User{ID: "123", Tag: "someone"}
	assert.Equal("<@123>", u.Mention())
}
