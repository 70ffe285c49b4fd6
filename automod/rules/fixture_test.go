package rules

import (
	"github.com/sieve-chat/sieve/automod/engine"
	"github.com/sieve-chat/sieve/automod/event"
	"github.com/sieve-chat/sieve/automod/ratelimit"
)

// Engine fixture running the default rules, with the burst limiter on a manual clock.
func engineFixture() (*engine.TestFixture, *ratelimit.ManualClock) {
	fix := engine.EngineTestFixture()
	clk := ratelimit.NewManualClock(fix.Now)
	fix.Engine.Limiter.Stop()
	fix.Engine.Limiter = ratelimit.NewBurstLimiter(ratelimit.DefaultConfig(), clk)
	fix.Engine.Rules = DefaultRules()
	return fix, clk
}

func message(body string, caps ...event.Capability) event.MessageEvent {
	return event.MessageEvent{
		Community:          "c1",
		Channel:            "ch1",
		Message:            "m1",
		Author:             event.User{ID: "u1", Tag: "user#0001"},
		Body:               body,
		AuthorCapabilities: event.NewCapabilitySet(caps...),
	}
}
