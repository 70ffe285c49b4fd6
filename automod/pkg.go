package automod

import (
	"github.com/sieve-chat/sieve/automod/engine"
)

type Engine = engine.Engine
type Config = engine.Config
type RuleSet = engine.RuleSet
type Decision = engine.Decision

type Platform = engine.Platform
type Actor = engine.Actor
type Notifier = engine.Notifier
type LogEntry = engine.LogEntry
type SlackNotifier = engine.SlackNotifier

type MessageContext = engine.MessageContext
type MemberContext = engine.MemberContext

type MessageRuleFunc = engine.MessageRuleFunc
type MemberJoinRuleFunc = engine.MemberJoinRuleFunc

var (
	Allow         = engine.Allow
	DeleteMessage = engine.DeleteMessage
	TimeoutUser   = engine.TimeoutUser
	KickUser      = engine.KickUser

	DefaultConfig = engine.DefaultConfig
)
