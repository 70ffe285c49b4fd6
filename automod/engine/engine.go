package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sieve-chat/sieve/automod/event"
	"github.com/sieve-chat/sieve/automod/helpers"
	"github.com/sieve-chat/sieve/automod/policystore"
	"github.com/sieve-chat/sieve/automod/ratelimit"
	"github.com/sieve-chat/sieve/automod/setstore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("sieve/automod")

// Engine-level tunables. The burst limiter carries its own config.
type Config struct {
	// How long a member is timed out for tripping the burst limiter
	SpamTimeout time.Duration
	// Joining accounts strictly younger than this many whole days are removed
	MinAccountAgeDays int
}

func DefaultConfig() Config {
	return Config{
		SpamTimeout:       60 * time.Second,
		MinAccountAgeDays: 7,
	}
}

// runtime for executing rules, managing state, and performing moderation actions.
//
// Policies, Sets, and Platform must be non-nil. Limiter may be nil, in which case burst tracking is disabled.
type Engine struct {
	Logger   *slog.Logger
	Config   Config
	Rules    RuleSet
	Policies policystore.PolicyStore
	Sets     setstore.SetStore
	Limiter  *ratelimit.BurstLimiter
	Platform Platform
	// moderation log destinations; the platform's log channel sink, plus optional mirrors
	Notifiers []Notifier
	// optional override of time.Now, for tests
	Clock func() time.Time
}

func (eng *Engine) now() time.Time {
	if eng.Clock != nil {
		return eng.Clock()
	}
	return time.Now()
}

// Runs message rules against a newly posted message, and carries out any resulting decision.
//
// Enforcement failures are logged and counted, not returned: the returned error only indicates that the event could not be evaluated at all.
func (eng *Engine) ProcessMessage(ctx context.Context, evt event.MessageEvent) (dec Decision, err error) {
	// similar to an HTTP server, we want to recover any panics from rule execution
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("automod event execution exception", "err", r, "community", evt.Community, "message", evt.Message)
			eventErrorCount.WithLabelValues("message").Inc()
			dec = Decision{}
			err = fmt.Errorf("rule execution panic: %v", r)
		}
	}()

	ctx, span := tracer.Start(ctx, "ProcessMessage")
	defer span.End()
	span.SetAttributes(attribute.String("community", string(evt.Community)))

	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("message").Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues("message").Inc()

	// never moderate other bots (or ourselves)
	if evt.Author.Bot {
		return Decision{}, nil
	}

	policy, err := eng.Policies.GetOrCreate(ctx, string(evt.Community))
	if err != nil {
		eventErrorCount.WithLabelValues("message").Inc()
		return Decision{}, fmt.Errorf("loading community policy: %w", err)
	}

	c := NewMessageContext(ctx, eng, policy, evt)
	if err := eng.Rules.CallMessageRules(&c); err != nil {
		eventErrorCount.WithLabelValues("message").Inc()
		return Decision{}, fmt.Errorf("rule execution failed: %w", err)
	}
	if c.Err != nil {
		eventErrorCount.WithLabelValues("message").Inc()
		c.Logger.Warn("rule execution soft error", "err", c.Err)
	}

	dec = c.Decision()
	eng.canonicalLogLine(&c.BaseContext, "message", dec, "body_hash", helpers.HashOfString(evt.Body))
	span.SetAttributes(attribute.String("decision", dec.Kind.String()))
	eng.enforceMessageDecision(ctx, &c, dec)
	return dec, nil
}

// Runs member-join rules against a newly joined member, and carries out any resulting decision.
func (eng *Engine) ProcessMemberJoin(ctx context.Context, evt event.MemberJoinEvent) (dec Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("automod event execution exception", "err", r, "community", evt.Community, "member", evt.Member.ID)
			eventErrorCount.WithLabelValues("member-join").Inc()
			dec = Decision{}
			err = fmt.Errorf("rule execution panic: %v", r)
		}
	}()

	ctx, span := tracer.Start(ctx, "ProcessMemberJoin")
	defer span.End()
	span.SetAttributes(attribute.String("community", string(evt.Community)))

	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("member-join").Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues("member-join").Inc()

	policy, err := eng.Policies.GetOrCreate(ctx, string(evt.Community))
	if err != nil {
		eventErrorCount.WithLabelValues("member-join").Inc()
		return Decision{}, fmt.Errorf("loading community policy: %w", err)
	}

	c := NewMemberContext(ctx, eng, policy, evt)
	if err := eng.Rules.CallMemberJoinRules(&c); err != nil {
		eventErrorCount.WithLabelValues("member-join").Inc()
		return Decision{}, fmt.Errorf("rule execution failed: %w", err)
	}
	if c.Err != nil {
		eventErrorCount.WithLabelValues("member-join").Inc()
		c.Logger.Warn("rule execution soft error", "err", c.Err)
	}

	dec = c.Decision()
	eng.canonicalLogLine(&c.BaseContext, "member-join", dec, "account_age_days", c.AccountAgeDays())
	span.SetAttributes(attribute.String("decision", dec.Kind.String()))
	eng.enforceMemberDecision(ctx, &c, dec)
	return dec, nil
}

// One structured line per processed event. Message bodies are only ever logged as a hash.
func (eng *Engine) canonicalLogLine(c *BaseContext, eventType string, dec Decision, extra ...any) {
	decisionCount.WithLabelValues(eventType, dec.Kind.String()).Inc()
	args := []any{
		"event_type", eventType,
		"decision", dec.Kind.String(),
		"rule", dec.Rule,
		"reason", dec.Reason,
	}
	args = append(args, extra...)
	if c.Err != nil {
		args = append(args, "err", c.Err)
	}
	c.Logger.Info("canonical-event-line", args...)
}
