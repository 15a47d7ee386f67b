package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"

	"github.com/crimson-sun/flightwatch/internal/config"
	"github.com/crimson-sun/flightwatch/internal/engine/dedup"
	"github.com/crimson-sun/flightwatch/internal/output"
	"github.com/crimson-sun/flightwatch/internal/output/discord"
	"github.com/crimson-sun/flightwatch/internal/output/file"
	"github.com/crimson-sun/flightwatch/internal/output/multi"
	"github.com/crimson-sun/flightwatch/internal/output/stdout"
	"github.com/crimson-sun/flightwatch/internal/output/webhook"
)

// newNotifier builds the configured destinations, fanning out through
// multi when there is more than one.
func newNotifier(cfg config.Config, session *discordgo.Session, format output.Formatter) (output.Notifier, error) {
	var notifiers []output.Notifier
	for _, kind := range cfg.Notifier.Kinds {
		switch kind {
		case "discord":
			if session == nil {
				return nil, fmt.Errorf("discord notifier: no session")
			}
			notifiers = append(notifiers, discord.New(session, cfg.Discord.ChannelID, format))
		case "webhook":
			opts := []webhook.Option{
				webhook.WithFormatter(format),
				webhook.WithTimeout(cfg.Notifier.DeliveryTimeout),
			}
			if cfg.Notifier.WebhookPlain {
				opts = append(opts, webhook.WithPlainText())
			}
			notifiers = append(notifiers, webhook.New(cfg.Notifier.WebhookURL, opts...))
		case "stdout":
			notifiers = append(notifiers, stdout.New(cfg.Notifier.Pretty))
		default:
			return nil, fmt.Errorf("unknown notifier %q", kind)
		}
	}

	if cfg.Notifier.AuditFile != "" {
		audit, err := file.New(cfg.Notifier.AuditFile, file.WithMaxSize(cfg.Notifier.AuditMaxSize))
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, audit)
	}

	if len(notifiers) == 1 {
		return notifiers[0], nil
	}
	return multi.New(cfg.Engine.DedupWindow, notifiers...), nil
}

// newStore returns the Redis store when REDIS_URL is set, otherwise an
// in-process one. The returned func releases the store's resources.
func newStore(ctx context.Context, cfg config.Config) (dedup.Store, func(), error) {
	if !cfg.Redis.Enabled() {
		return dedup.NewMemory(dedup.Config{Window: cfg.Engine.DedupWindow}), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	slog.InfoContext(ctx, "redis connected", "prefix", cfg.Redis.Prefix)

	store := dedup.NewRedis(client, dedup.RedisConfig{Prefix: cfg.Redis.Prefix, Window: cfg.Engine.DedupWindow})
	return store, func() { client.Close() }, nil
}
