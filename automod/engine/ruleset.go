package engine

// Holds configuration of which rules of various types should be run, and helps dispatch events to those rules.
//
// Rules run in order. Once a rule has made a decision, the remaining rules for that event are skipped.
type RuleSet struct {
	MessageRules    []MessageRuleFunc
	MemberJoinRules []MemberJoinRuleFunc
}

func (r *RuleSet) CallMessageRules(c *MessageContext) error {
	for _, f := range r.MessageRules {
		if c.Decided() {
			return nil
		}
		err := f(c)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *RuleSet) CallMemberJoinRules(c *MemberContext) error {
	for _, f := range r.MemberJoinRules {
		if c.Decided() {
			return nil
		}
		err := f(c)
		if err != nil {
			return err
		}
	}
	return nil
}
