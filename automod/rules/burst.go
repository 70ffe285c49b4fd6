package rules

import (
	"github.com/sieve-chat/sieve/automod"
)

var _ automod.MessageRuleFunc = MessageBurstRule

// Times out members who post more than the limiter threshold within one window. No capability is exempt.
//
// Windows are keyed by member only, so a burst spread across communities still counts.
func MessageBurstRule(c *automod.MessageContext) error {
	res := c.RecordActivity(string(c.Message.Author.ID))
	if res.Exceeded {
		c.Logger.Info("message burst detected", "count", res.Count)
		c.TimeoutAuthor("message-burst", "Spamming")
	}
	return nil
}
