package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sieve-chat/sieve/automod/platform/discord"
	"github.com/sieve-chat/sieve/util/cliutil"

	"github.com/bwmarrin/discordgo"
	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "sieve",
		Usage:   "chat community moderation daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "discord-token",
			Usage:   "bot token for the discord gateway and REST API",
			EnvVars: []string{"DISCORD_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"SIEVE_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log output format (text or json)",
			EnvVars: []string{"SIEVE_LOG_FMT", "LOG_FMT"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		deployCommandsCmd,
	}

	return app.Run(args)
}

func configLogger(cctx *cli.Context) (*slog.Logger, error) {
	return cliutil.SetupSlog(cliutil.LogOptions{
		LogLevel:  cctx.String("log-level"),
		LogFormat: cctx.String("log-format"),
	})
}

func newSession(cctx *cli.Context) (*discordgo.Session, error) {
	token := cctx.String("discord-token")
	if token == "" {
		return nil, fmt.Errorf("a discord bot token is required (--discord-token or DISCORD_TOKEN)")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discord.Intents
	return session, nil
}

// Accepts either a bare port number (as in $PORT) or a full listen address.
func bindAddress(s string) string {
	if s == "" {
		return ":3000"
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return s
		}
	}
	return ":" + s
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "connect to the gateway and moderate communities",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "port, or IP and port, to listen on for liveness and metrics HTTP",
			Value:   ":3000",
			EnvVars: []string{"SIEVE_BIND", "PORT"},
		},
		&cli.StringFlag{
			Name:    "settings-path",
			Usage:   "path of the JSON file community settings are persisted to",
			Value:   "./settings.json",
			EnvVars: []string{"SIEVE_SETTINGS_PATH"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis server URL; when set, community settings persist to redis instead of the settings file",
			EnvVars: []string{"SIEVE_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "sets-json",
			Usage:   "path to JSON file with named term lists, overriding the defaults",
			EnvVars: []string{"SIEVE_SETS_JSON"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "Slack incoming webhook URL to mirror the moderation log to",
			EnvVars: []string{"SIEVE_SLACK_WEBHOOK_URL", "SLACK_WEBHOOK_URL"},
		},
		&cli.IntFlag{
			Name:    "spam-threshold",
			Usage:   "messages allowed per user within one spam window",
			Value:   5,
			EnvVars: []string{"SIEVE_SPAM_THRESHOLD"},
		},
		&cli.DurationFlag{
			Name:    "spam-window",
			Usage:   "length of the per-user message burst window",
			Value:   10 * time.Second,
			EnvVars: []string{"SIEVE_SPAM_WINDOW"},
		},
		&cli.DurationFlag{
			Name:    "spam-timeout",
			Usage:   "how long a member is timed out for spamming",
			Value:   60 * time.Second,
			EnvVars: []string{"SIEVE_SPAM_TIMEOUT"},
		},
		&cli.IntFlag{
			Name:    "min-account-age",
			Usage:   "accounts younger than this many days are removed on join (0 disables)",
			Value:   7,
			EnvVars: []string{"SIEVE_MIN_ACCOUNT_AGE"},
		},
	},
	Action: runDaemon,
}

func runDaemon(cctx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := configLogger(cctx)
	if err != nil {
		return err
	}

	stopTracing, err := configOTEL(ctx, "sieve")
	if err != nil {
		return err
	}
	defer stopTracing()

	session, err := newSession(cctx)
	if err != nil {
		return err
	}
	platform := discord.NewPlatform(session, logger)

	config := Config{
		SettingsPath:    cctx.String("settings-path"),
		RedisURL:        cctx.String("redis-url"),
		SetsFileJSON:    cctx.String("sets-json"),
		SlackWebhookURL: cctx.String("slack-webhook-url"),
		SpamThreshold:   cctx.Int("spam-threshold"),
		SpamWindow:      cctx.Duration("spam-window"),
		SpamTimeout:     cctx.Duration("spam-timeout"),
		MinAccountAge:   cctx.Int("min-account-age"),
		Logger:          logger,
	}
	eng, err := NewEngine(ctx, platform, config)
	if err != nil {
		return err
	}
	cache, err := NewCache(config)
	if err != nil {
		return err
	}

	handler := discord.NewHandler(ctx, eng, platform, logger)
	handler.Cache = cache
	handler.Register(session)

	srv := NewServer(logger, bindAddress(cctx.String("bind")))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run)
	g.Go(func() error {
		if err := session.Open(); err != nil {
			return fmt.Errorf("opening gateway session: %w", err)
		}
		logger.Info("gateway session open")
		<-gctx.Done()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		if err := session.Close(); err != nil {
			logger.Error("closing gateway session", "err", err)
		}
		eng.Limiter.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("graceful shutdown complete")
	return nil
}

var deployCommandsCmd = &cli.Command{
	Name:  "deploy-commands",
	Usage: "register the slash commands with discord, replacing any existing global commands",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "discord-app-id",
			Usage:    "discord application (client) ID",
			Required: true,
			EnvVars:  []string{"DISCORD_CLIENT_ID"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := cctx.Context
		logger, err := configLogger(cctx)
		if err != nil {
			return err
		}
		session, err := newSession(cctx)
		if err != nil {
			return err
		}
		logger.Info("deploying application commands")
		n, err := discord.DeployCommands(ctx, session, cctx.String("discord-app-id"))
		if err != nil {
			return err
		}
		logger.Info("successfully deployed application commands", "count", n)
		return nil
	},
}
