package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sieve-chat/sieve/automod/cachestore"
	"github.com/sieve-chat/sieve/automod/engine"
	"github.com/sieve-chat/sieve/automod/policystore"
	"github.com/sieve-chat/sieve/automod/ratelimit"
	"github.com/sieve-chat/sieve/automod/rules"
	"github.com/sieve-chat/sieve/automod/setstore"
	"github.com/sieve-chat/sieve/util/robusthttp"
)

// how long REST-resolved member permissions are trusted
const permissionCacheTTL = time.Minute

type Config struct {
	SettingsPath    string
	RedisURL        string
	SetsFileJSON    string
	SlackWebhookURL string
	SpamThreshold   int
	SpamWindow      time.Duration
	SpamTimeout     time.Duration
	MinAccountAge   int
	Logger          *slog.Logger
}

// Assembles the engine and its stores around a platform binding. The platform is also registered as the first log sink when it implements engine.Notifier.
func NewEngine(ctx context.Context, platform engine.Platform, config Config) (*engine.Engine, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	var backend policystore.Backend
	if config.RedisURL != "" {
		rb, err := policystore.NewRedisBackend(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis policy backend: %v", err)
		}
		logger.Info("persisting community policies to redis", "key", rb.Key)
		backend = rb
	} else {
		logger.Info("persisting community policies to file", "path", config.SettingsPath)
		backend = policystore.NewFileBackend(config.SettingsPath)
	}
	policies, err := policystore.NewStore(ctx, backend, logger)
	if err != nil {
		return nil, err
	}

	sets := setstore.NewDefaultSetStore()
	if config.SetsFileJSON != "" {
		if err := sets.LoadFromFileJSON(config.SetsFileJSON); err != nil {
			return nil, fmt.Errorf("initializing in-process setstore: %v", err)
		} else {
			logger.Info("loaded set config from JSON", "path", config.SetsFileJSON)
		}
	}

	limiter := ratelimit.NewBurstLimiter(ratelimit.Config{
		Threshold: config.SpamThreshold,
		Window:    config.SpamWindow,
	}, nil)

	engCfg := engine.DefaultConfig()
	if config.SpamTimeout > 0 {
		engCfg.SpamTimeout = config.SpamTimeout
	}
	engCfg.MinAccountAgeDays = config.MinAccountAge

	eng := engine.Engine{
		Logger:   logger,
		Config:   engCfg,
		Rules:    rules.DefaultRules(),
		Policies: policies,
		Sets:     sets,
		Limiter:  limiter,
		Platform: platform,
	}
	if n, ok := platform.(engine.Notifier); ok {
		eng.Notifiers = append(eng.Notifiers, n)
	}
	if config.SlackWebhookURL != "" {
		logger.Info("mirroring moderation log to slack")
		eng.Notifiers = append(eng.Notifiers, &engine.SlackNotifier{
			SlackWebhookURL: config.SlackWebhookURL,
			Client:          robusthttp.NewClient(robusthttp.WithLogger(logger)),
			Limiter:         engine.NewSlackLimiter(),
		})
	}
	return &eng, nil
}

// Cache for platform lookups, shared via redis when configured.
func NewCache(config Config) (cachestore.CacheStore, error) {
	if config.RedisURL != "" {
		csh, err := cachestore.NewRedisCacheStore(config.RedisURL, permissionCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis cachestore: %v", err)
		}
		return csh, nil
	}
	return cachestore.NewMemCacheStore(5_000, permissionCacheTTL), nil
}
