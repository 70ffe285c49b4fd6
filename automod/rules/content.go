package rules

import (
	"fmt"

	"github.com/sieve-chat/sieve/automod"
	"github.com/sieve-chat/sieve/automod/event"
	"github.com/sieve-chat/sieve/automod/keyword"
	"github.com/sieve-chat/sieve/automod/setstore"
)

var _ automod.MessageRuleFunc = WordFilterMessageRule

// Deletes messages containing a forbidden word, when the community has the word filter enabled.
//
// Members who could delete the message themselves (manage-messages) are exempt.
func WordFilterMessageRule(c *automod.MessageContext) error {
	if !c.Policy.WordFilterEnabled {
		return nil
	}
	word := keyword.ContainsAny(c.Message.Body, c.Terms(setstore.ForbiddenWords))
	if word == "" {
		return nil
	}
	if c.Message.AuthorCapabilities.Has(event.CapManageMessages) {
		c.Logger.Debug("forbidden word from privileged member, not moderating", "rule", "word-filter")
		return nil
	}
	notice := fmt.Sprintf("Hey, %s! Your message was deleted for containing a forbidden word. Please review the server rules.", c.Message.Author.Mention())
	c.DeleteMessage("word-filter", "forbidden word", notice)
	return nil
}

var _ automod.MessageRuleFunc = ScamLinkMessageRule

// Deletes messages with a link that also mention a known scam keyword. Either on its own is fine.
//
// Members holding kick-members are exempt.
func ScamLinkMessageRule(c *automod.MessageContext) error {
	kw := keyword.ScamLink(c.Message.Body, c.Terms(setstore.ScamKeywords))
	if kw == "" {
		return nil
	}
	if c.Message.AuthorCapabilities.Has(event.CapKickMembers) {
		c.Logger.Debug("scam link from privileged member, not moderating", "rule", "scam-link", "keyword", kw)
		return nil
	}
	notice := fmt.Sprintf("Hey, %s! I've detected a potential scam link and deleted your message. Please be careful and do not click on suspicious links.", c.Message.Author.Mention())
	c.DeleteMessage("scam-link", fmt.Sprintf("scam link (%s)", kw), notice)
	return nil
}
