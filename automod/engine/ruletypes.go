package engine

type MessageRuleFunc = func(c *MessageContext) error
type MemberJoinRuleFunc = func(c *MemberContext) error
