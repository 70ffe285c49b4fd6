package rules

import (
	"fmt"

	"github.com/sieve-chat/sieve/automod"
	"github.com/sieve-chat/sieve/automod/helpers"
)

var _ automod.MemberJoinRuleFunc = NewAccountMemberRule

// Removes members whose account is strictly younger than the configured minimum age, in whole days.
func NewAccountMemberRule(c *automod.MemberContext) error {
	minDays := c.Config().MinAccountAgeDays
	if minDays <= 0 {
		return nil
	}
	if helpers.AccountIsYoungerThanDays(c.Join.AccountCreatedAt, c.Now(), minDays) {
		c.Logger.Info("new account joined", "account_age_days", c.AccountAgeDays())
		c.KickMember("new-account", fmt.Sprintf("Account age is less than %d days.", minDays))
	}
	return nil
}
