package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/flightwatch/internal/airports"
	"github.com/crimson-sun/flightwatch/internal/bot"
	"github.com/crimson-sun/flightwatch/internal/config"
	"github.com/crimson-sun/flightwatch/internal/connector"
	"github.com/crimson-sun/flightwatch/internal/engine"
	"github.com/crimson-sun/flightwatch/internal/http/router"
	"github.com/crimson-sun/flightwatch/internal/id"
	"github.com/crimson-sun/flightwatch/internal/logging"
	"github.com/crimson-sun/flightwatch/internal/model"
	"github.com/crimson-sun/flightwatch/internal/output"
	"github.com/crimson-sun/flightwatch/internal/output/async"
	"github.com/crimson-sun/flightwatch/internal/pipeline"
	"github.com/crimson-sun/flightwatch/internal/scheduler"
	"github.com/crimson-sun/flightwatch/internal/telemetry"

	// Register connector implementations.
	_ "github.com/crimson-sun/flightwatch/internal/connector/file"
	_ "github.com/crimson-sun/flightwatch/internal/connector/ivao"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))

	watch := model.NewWatchList(cfg.Engine.Airports...)

	tel, err := telemetry.Setup(ctx, cfg.OTel, telemetry.ServiceAttributes(watch.Codes(), cfg.Schedule.Spec)...)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up telemetry", "error", err)
		os.Exit(1)
	}
	if tel != nil {
		logging.InitOTel(cfg.OTel.ServiceName)
		slog.InfoContext(ctx, "telemetry enabled", "endpoint", cfg.OTel.Endpoint)
	}

	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	format := output.Formatter{Airports: loadAirports(ctx, cfg.Engine.AirportsCSV)}

	ctor, err := connector.Get(cfg.Connector.Provider)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get connector", "error", err, "available", connector.Providers())
		os.Exit(1)
	}
	fetcher, err := ctor(connector.Config{
		Provider: cfg.Connector.Provider,
		Endpoint: cfg.Connector.Endpoint,
		APIKey:   cfg.Connector.APIKey,
		Extra:    cfg.Connector.Extra,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create connector", "error", err)
		os.Exit(1)
	}

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up reported store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	var discord *discordgo.Session
	if cfg.Discord.Enabled() {
		discord, err = openDiscord(cfg.Discord.Token)
		if err != nil {
			slog.ErrorContext(ctx, "failed to open discord session", "error", err)
			os.Exit(1)
		}
		defer discord.Close()
	}

	notifier, err := newNotifier(cfg, discord, format)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up notifier", "error", err)
		os.Exit(1)
	}

	var janitor *bot.Janitor
	if d, ok := notifier.(output.Deleter); ok && cfg.Notifier.Retention > 0 {
		janitor = bot.NewJanitor(d, cfg.Notifier.Retention)
	}

	session := engine.New(watch, store, time.Now())
	dispatcher := async.New(notifier,
		async.WithWorkers(cfg.Notifier.Workers),
		async.WithTimeout(cfg.Notifier.DeliveryTimeout),
	)
	pipe := pipeline.New(fetcher, session, dispatcher,
		pipeline.WithFetchTimeout(cfg.Connector.FetchTimeout),
		pipeline.WithOnDelivered(func(_ context.Context, _ model.Notification, r model.Receipt) {
			janitor.Schedule(r)
		}),
	)
	defer pipe.Close()

	if discord != nil {
		remove := bot.New(pipe, format).Register(discord)
		defer remove()
	}

	sched, err := scheduler.New(cfg.Schedule.Spec, func(ctx context.Context) error {
		_, err := pipe.Pass(ctx)
		return err
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create scheduler", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "flightwatch starting",
		"connector", cfg.Connector.Provider,
		"airports", session.WatchList().Codes(),
		"notifiers", cfg.Notifier.Kinds,
		"schedule", cfg.Schedule.Spec,
		"redis", cfg.Redis.Enabled(),
	)

	if cfg.Schedule.RunOnStart {
		if err := sched.RunNow(ctx); err != nil {
			slog.WarnContext(ctx, "startup pass failed", "error", err)
		}
	}
	sched.Start()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.HTTP.Enabled() {
		server := newHTTPServer(cfg, pipe, session, sched.Spec())
		g.Go(func() error {
			slog.InfoContext(gctx, "http server starting", "addr", cfg.HTTP.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "http server error", "error", err)
	}

	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		slog.WarnContext(shutdownCtx, "pass still running at shutdown", "error", err)
	}
	janitor.Stop()
	if err := tel.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}

func loadAirports(ctx context.Context, path string) *airports.Directory {
	if path == "" {
		return nil
	}
	dir, err := airports.Load(path)
	if err != nil {
		slog.WarnContext(ctx, "airport metadata unavailable, using bare codes", "path", path, "error", err)
		return nil
	}
	slog.InfoContext(ctx, "airport metadata loaded", "airports", dir.Len())
	return dir
}

func openDiscord(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = bot.Intents
	if err := s.Open(); err != nil {
		return nil, err
	}
	return s, nil
}

func newHTTPServer(cfg config.Config, pipe *pipeline.Pipeline, session *engine.Session, schedule string) *http.Server {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := router.New(router.Config{
		ServiceName: cfg.OTel.ServiceName,
		Tracing:     cfg.OTel.Enabled(),
		Schedule:    schedule,
	}, pipe, session)

	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
