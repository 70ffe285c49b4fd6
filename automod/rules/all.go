package rules

import (
	"github.com/sieve-chat/sieve/automod"
)

// Content checks run before the burst limiter, so a filtered message never counts towards a burst.
func DefaultRules() automod.RuleSet {
	rules := automod.RuleSet{
		MessageRules: []automod.MessageRuleFunc{
			WordFilterMessageRule,
			ScamLinkMessageRule,
			MessageBurstRule,
		},
		MemberJoinRules: []automod.MemberJoinRuleFunc{
			NewAccountMemberRule,
		},
	}
	return rules
}
