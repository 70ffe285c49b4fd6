package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sieve-chat/sieve/automod/event"

	"go.opentelemetry.io/otel/attribute"
)

type OptionType int

const (
	OptionString OptionType = iota + 1
	OptionInteger
	OptionUser
	OptionChannel
)

type OptionChoice struct {
	Name  string
	Value string
}

type CommandOption struct {
	Name        string
	Description string
	Type        OptionType
	Required    bool
	Choices     []OptionChoice
}

// Response to a command invocation. Ephemeral replies are only shown to the invoking member.
type Reply struct {
	Content   string
	Ephemeral bool
}

type commandHandler func(ctx context.Context, eng *Engine, cmd *event.CommandEvent, actor Actor) (Reply, error)

// Declarative description of a command: the argument shape the platform should register, and the capability required to invoke it.
type Command struct {
	Name        string
	Description string
	// Zero means any member may invoke the command
	Capability event.Capability
	Options    []CommandOption

	run commandHandler
}

var commandTable = []Command{
	{
		Name:        "ping",
		Description: "Replies with Pong!",
		run:         runPing,
	},
	{
		Name:        "kick",
		Description: "Kicks a user from the server.",
		Capability:  event.CapKickMembers,
		Options: []CommandOption{
			{Name: "user", Description: "The user to kick.", Type: OptionUser, Required: true},
			{Name: "reason", Description: "The reason for kicking.", Type: OptionString},
		},
		run: runKick,
	},
	{
		Name:        "ban",
		Description: "Bans a user from the server.",
		Capability:  event.CapBanMembers,
		Options: []CommandOption{
			{Name: "user", Description: "The user to ban.", Type: OptionUser, Required: true},
			{Name: "reason", Description: "The reason for banning.", Type: OptionString},
		},
		run: runBan,
	},
	{
		Name:        "timeout",
		Description: "Times out a user for a specified duration.",
		Capability:  event.CapModerateMembers,
		Options: []CommandOption{
			{Name: "user", Description: "The user to timeout.", Type: OptionUser, Required: true},
			{Name: "duration", Description: "The duration of the timeout in minutes.", Type: OptionInteger, Required: true},
			{Name: "reason", Description: "The reason for the timeout.", Type: OptionString},
		},
		run: runTimeout,
	},
	{
		Name:        "purge",
		Description: "Deletes a specified number of messages from the channel.",
		Capability:  event.CapManageMessages,
		Options: []CommandOption{
			{Name: "amount", Description: "The number of messages to delete (1-100).", Type: OptionInteger, Required: true},
		},
		run: runPurge,
	},
	{
		Name:        "toggle",
		Description: "Toggles a bot feature on or off.",
		Capability:  event.CapManageCommunity,
		Options: []CommandOption{
			{
				Name:        "feature",
				Description: "The feature to toggle.",
				Type:        OptionString,
				Required:    true,
				Choices:     []OptionChoice{{Name: "wordfilter", Value: "wordFilterEnabled"}},
			},
		},
		run: runToggle,
	},
	{
		Name:        "setlogchannel",
		Description: "Sets the channel for moderation logs.",
		Capability:  event.CapManageCommunity,
		Options: []CommandOption{
			{Name: "channel", Description: "The channel to set as the moderation log channel.", Type: OptionChannel, Required: true},
		},
		run: runSetLogChannel,
	},
}

// The full command table, in registration order.
func Commands() []Command {
	out := make([]Command, len(commandTable))
	copy(out, commandTable)
	return out
}

func LookupCommand(name string) (Command, bool) {
	for _, c := range commandTable {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

// Dispatches a command invocation to its handler, and renders the outcome as a reply.
//
// Errors never escape: they are logged and turned into a short ephemeral message.
func (eng *Engine) ProcessCommand(ctx context.Context, cmd event.CommandEvent) (reply Reply) {
	logger := eng.Logger.With("community", cmd.Community, "channel", cmd.Channel, "actor", cmd.Actor.ID, "command", cmd.Name)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("automod command execution exception", "err", r)
			eventErrorCount.WithLabelValues("command").Inc()
			reply = Reply{Content: UserMessage(nil), Ephemeral: true}
		}
	}()

	ctx, span := tracer.Start(ctx, "ProcessCommand")
	defer span.End()
	span.SetAttributes(attribute.String("command", cmd.Name))

	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("command").Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues("command").Inc()

	def, ok := LookupCommand(cmd.Name)
	if !ok {
		commandCount.WithLabelValues("unknown", "invalid").Inc()
		logger.Warn("unknown command")
		return Reply{Content: "Unknown command.", Ephemeral: true}
	}

	actor := Actor{User: cmd.Actor, Capabilities: cmd.ActorCapabilities}
	err := eng.checkCommand(&def, &cmd, actor)
	if err == nil {
		reply, err = def.run(ctx, eng, &cmd, actor)
	}
	if err != nil {
		outcome := commandOutcome(err)
		commandCount.WithLabelValues(def.Name, outcome).Inc()
		logger.Info("command rejected", "outcome", outcome, "err", err)
		return Reply{Content: UserMessage(err), Ephemeral: true}
	}
	commandCount.WithLabelValues(def.Name, "ok").Inc()
	logger.Info("command executed")
	return reply
}

// Capability first, then argument shape. User options are checked by the executor, since a missing user means "not a member".
func (eng *Engine) checkCommand(def *Command, cmd *event.CommandEvent, actor Actor) error {
	if def.Capability != 0 {
		if err := actor.Require(def.Capability); err != nil {
			return err
		}
	}
	for _, opt := range def.Options {
		if !opt.Required {
			continue
		}
		var present bool
		switch opt.Type {
		case OptionString:
			_, present = cmd.Args.String(opt.Name)
		case OptionInteger:
			_, present = cmd.Args.Integer(opt.Name)
		case OptionChannel:
			_, present = cmd.Args.Channel(opt.Name)
		case OptionUser:
			present = true
		}
		if !present {
			return validationErrorf("Missing required option: %s", opt.Name)
		}
	}
	return nil
}

func commandOutcome(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "denied"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrActionFailed):
		return "failed"
	case errors.Is(err, ErrPersistence):
		return "not-persisted"
	default:
		return "error"
	}
}

func userArg(cmd *event.CommandEvent, name string) *event.User {
	u, ok := cmd.Args.User(name)
	if !ok {
		return nil
	}
	return &u
}

// Renders a feature value from the command choices (or a stored field name) as its display name.
func featureDisplayName(feature string) string {
	switch feature {
	case "wordFilterEnabled", "wordfilter":
		return "wordfilter"
	default:
		return feature
	}
}

func runPing(ctx context.Context, eng *Engine, cmd *event.CommandEvent, actor Actor) (Reply, error) {
	return Reply{Content: "Pong!"}, nil
}

func runKick(ctx context.Context, eng *Engine, cmd *event.CommandEvent, actor Actor) (Reply, error) {
	target := userArg(cmd, "user")
	reason, _ := cmd.Args.String("reason")
	if err := eng.Kick(ctx, cmd.Community, actor, target, reason); err != nil {
		return Reply{}, err
	}
	return Reply{Content: fmt.Sprintf("%s has been kicked for: %s", target.Tag, reasonOrDefault(reason))}, nil
}

func runBan(ctx context.Context, eng *Engine, cmd *event.CommandEvent, actor Actor) (Reply, error) {
	target := userArg(cmd, "user")
	reason, _ := cmd.Args.String("reason")
	if err := eng.Ban(ctx, cmd.Community, actor, target, reason); err != nil {
		return Reply{}, err
	}
	return Reply{Content: fmt.Sprintf("%s has been banned for: %s", target.Tag, reasonOrDefault(reason))}, nil
}

func runTimeout(ctx context.Context, eng *Engine, cmd *event.CommandEvent, actor Actor) (Reply, error) {
	target := userArg(cmd, "user")
	minutes, _ := cmd.Args.Integer("duration")
	reason, _ := cmd.Args.String("reason")
	if err := eng.Timeout(ctx, cmd.Community, actor, target, minutes, reason); err != nil {
		return Reply{}, err
	}
	return Reply{Content: fmt.Sprintf("%s has been timed out for %d minutes. Reason: %s", target.Tag, minutes, reasonOrDefault(reason))}, nil
}

func runPurge(ctx context.Context, eng *Engine, cmd *event.CommandEvent, actor Actor) (Reply, error) {
	amount, _ := cmd.Args.Integer("amount")
	n, err := eng.Purge(ctx, cmd.Community, cmd.Channel, actor, amount)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Content: fmt.Sprintf("Successfully deleted %d messages.", n), Ephemeral: true}, nil
}

func runToggle(ctx context.Context, eng *Engine, cmd *event.CommandEvent, actor Actor) (Reply, error) {
	feature, _ := cmd.Args.String("feature")
	enabled, err := eng.TogglePolicy(ctx, cmd.Community, actor, feature)
	if err != nil {
		return Reply{}, err
	}
	status := "disabled"
	if enabled {
		status = "enabled"
	}
	return Reply{Content: fmt.Sprintf("The %s feature has been **%s**.", featureDisplayName(feature), status)}, nil
}

func runSetLogChannel(ctx context.Context, eng *Engine, cmd *event.CommandEvent, actor Actor) (Reply, error) {
	channel, _ := cmd.Args.Channel("channel")
	if err := eng.SetLogChannel(ctx, cmd.Community, actor, channel); err != nil {
		return Reply{}, err
	}
	return Reply{Content: fmt.Sprintf("Moderation log channel has been set to <#%s>.", channel)}, nil
}
