package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sieve-chat/sieve/automod/event"
	"github.com/sieve-chat/sieve/automod/keyword"
	"github.com/sieve-chat/sieve/automod/policystore"
	"github.com/sieve-chat/sieve/automod/ratelimit"
	"github.com/sieve-chat/sieve/automod/setstore"
)

var _ MessageRuleFunc = simpleRule

func simpleRule(c *MessageContext) error {
	if term := keyword.ContainsAny(c.Message.Body, c.Terms(setstore.ForbiddenWords)); term != "" {
		c.DeleteMessage("simple", "forbidden word", "no "+term+" here")
	}
	return nil
}

// One recorded outbound call to the platform.
type PlatformCall struct {
	Method    string
	Community event.CommunityID
	Channel   event.ChannelID
	Message   event.MessageID
	User      event.UserID
	Content   string
	Reason    string
	Duration  time.Duration
	Count     int
}

// Fake Platform which records every call, and can be told to fail specific methods.
type RecordingPlatform struct {
	mu       sync.Mutex
	calls    []PlatformCall
	failures map[string]error
	self     event.User
	selfCaps event.CapabilitySet
}

var _ Platform = (*RecordingPlatform)(nil)

// Starts out holding every capability.
func NewRecordingPlatform() *RecordingPlatform {
	return &RecordingPlatform{
		failures: make(map[string]error),
		self:     event.User{ID: "bot0", Tag: "Sieve#0001", Bot: true},
		selfCaps: event.NewCapabilitySet(
			event.CapManageMessages,
			event.CapKickMembers,
			event.CapBanMembers,
			event.CapModerateMembers,
			event.CapManageCommunity,
		),
	}
}

// Makes every later call to the named method (eg, "KickMember") return err. A nil err clears the failure.
func (p *RecordingPlatform) Fail(method string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failures, method)
		return
	}
	p.failures[method] = err
}

func (p *RecordingPlatform) SetSelfCapabilities(caps event.CapabilitySet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selfCaps = caps
}

func (p *RecordingPlatform) Calls() []PlatformCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PlatformCall, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *RecordingPlatform) CallsTo(method string) []PlatformCall {
	var out []PlatformCall
	for _, c := range p.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (p *RecordingPlatform) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

// records the call (even if it fails) and returns the configured failure, if any
func (p *RecordingPlatform) record(call PlatformCall) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return p.failures[call.Method]
}

func (p *RecordingPlatform) DeleteMessage(ctx context.Context, channel event.ChannelID, msg event.MessageID) error {
	return p.record(PlatformCall{Method: "DeleteMessage", Channel: channel, Message: msg})
}

func (p *RecordingPlatform) SendMessage(ctx context.Context, channel event.ChannelID, content string) error {
	return p.record(PlatformCall{Method: "SendMessage", Channel: channel, Content: content})
}

func (p *RecordingPlatform) KickMember(ctx context.Context, community event.CommunityID, user event.UserID, reason string) error {
	return p.record(PlatformCall{Method: "KickMember", Community: community, User: user, Reason: reason})
}

func (p *RecordingPlatform) BanMember(ctx context.Context, community event.CommunityID, user event.UserID, reason string) error {
	return p.record(PlatformCall{Method: "BanMember", Community: community, User: user, Reason: reason})
}

func (p *RecordingPlatform) TimeoutMember(ctx context.Context, community event.CommunityID, user event.UserID, d time.Duration, reason string) error {
	return p.record(PlatformCall{Method: "TimeoutMember", Community: community, User: user, Duration: d, Reason: reason})
}

func (p *RecordingPlatform) BulkDelete(ctx context.Context, channel event.ChannelID, count int) (int, error) {
	if err := p.record(PlatformCall{Method: "BulkDelete", Channel: channel, Count: count}); err != nil {
		return 0, err
	}
	return count, nil
}

func (p *RecordingPlatform) Self() event.User {
	return p.self
}

func (p *RecordingPlatform) SelfCapabilities(ctx context.Context, community event.CommunityID) (event.CapabilitySet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selfCaps, nil
}

type RecordedLog struct {
	Community event.CommunityID
	Channel   event.ChannelID
	Entry     LogEntry
}

// Fake Notifier which behaves like a channel sink: entries without a channel are counted as attempts, then dropped.
type RecordingNotifier struct {
	mu       sync.Mutex
	attempts int
	entries  []RecordedLog
}

var _ Notifier = (*RecordingNotifier)(nil)

func (n *RecordingNotifier) SendLog(ctx context.Context, community event.CommunityID, channel event.ChannelID, entry LogEntry) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attempts++
	if channel == "" {
		return nil
	}
	n.entries = append(n.entries, RecordedLog{Community: community, Channel: channel, Entry: entry})
	return nil
}

func (n *RecordingNotifier) Attempts() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.attempts
}

// Entries actually delivered to a log channel.
func (n *RecordingNotifier) Entries() []RecordedLog {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]RecordedLog, len(n.entries))
	copy(out, n.entries)
	return out
}

type TestFixture struct {
	Engine   *Engine
	Platform *RecordingPlatform
	Notifier *RecordingNotifier
	Backend  *policystore.MemBackend
	Sets     *setstore.MemSetStore
	// value returned by the engine clock
	Now time.Time
}

func EngineTestFixture() *TestFixture {
	rules := RuleSet{
		MessageRules: []MessageRuleFunc{
			simpleRule,
		},
	}
	backend := policystore.NewMemBackend()
	policies, err := policystore.NewStore(context.Background(), backend, slog.Default())
	if err != nil {
		panic(err)
	}
	plat := NewRecordingPlatform()
	notifier := &RecordingNotifier{}
	fix := &TestFixture{
		Platform: plat,
		Notifier: notifier,
		Backend:  backend,
		Sets:     setstore.NewDefaultSetStore(),
		Now:      time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	fix.Engine = &Engine{
		Logger:    slog.Default(),
		Config:    DefaultConfig(),
		Rules:     rules,
		Policies:  policies,
		Sets:      fix.Sets,
		Limiter:   ratelimit.NewBurstLimiter(ratelimit.DefaultConfig(), nil),
		Platform:  plat,
		Notifiers: []Notifier{notifier},
		Clock:     func() time.Time { return fix.Now },
	}
	return fix
}

// Stops pending limiter timers.
func (fix *TestFixture) Close() {
	if fix.Engine.Limiter != nil {
		fix.Engine.Limiter.Stop()
	}
}
