package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/park285/cheese-fics/internal/archive"
	"github.com/park285/cheese-fics/internal/config"
	"github.com/park285/cheese-fics/internal/fics"
	"github.com/park285/cheese-fics/internal/msgcat"
	"github.com/park285/cheese-fics/internal/obslog"
	"github.com/park285/cheese-fics/internal/store"
	"github.com/park285/cheese-fics/internal/uplink"
	"github.com/park285/cheese-fics/internal/watch"
	"github.com/park285/cheese-fics/pkg/ficsdto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "ficswatch.yaml", "optional YAML config file")
	envFile := flag.String("env", ".env", "dotenv file with credentials")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("env file error: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(cfg.Log); err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = obslog.Sync() }()
	logger := obslog.L()

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("ficswatch_exit", zap.Error(err))
		_ = obslog.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return err
	}

	queue := fics.NewEventQueue(cfg.EventQueueSize, logger)
	client := fics.New(fics.Options{
		Host:           cfg.FICS.Host,
		Port:           cfg.FICS.Port,
		Interface:      cfg.FICS.Interface,
		DialTimeout:    cfg.FICS.DialTimeout,
		LoginTimeout:   cfg.FICS.LoginTimeout,
		CommandTimeout: cfg.FICS.CommandTimeout,
		Logger:         logger,
	})
	client.SetEventHandler(queue.Handle)
	defer func() { _ = client.Close() }()

	opts := watch.Options{
		Client:   client,
		Catalog:  cat,
		Out:      os.Stdout,
		Host:     cfg.FICS.Host,
		Username: cfg.FICS.Username,
		Logger:   logger,
	}

	if cfg.Redis.URL != "" {
		ropt, err := store.ParseRedisURL(cfg.Redis.URL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(ropt)
		defer func() { _ = rdb.Close() }()
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = rdb.Ping(pctx).Err()
		cancel()
		if err != nil {
			return err
		}
		opts.Cache = store.NewStore(rdb)
	}

	if cfg.Database.URL != "" {
		repo, err := archive.NewRepository(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer func() { _ = repo.Close() }()
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		opts.Archive = repo
	}

	var hub *uplink.WebSocket
	if cfg.Uplink.Enabled() {
		headers := func() map[string]string {
			if cfg.Uplink.Token == "" {
				return nil
			}
			return map[string]string{"Authorization": "Bearer " + cfg.Uplink.Token}
		}
		var hook *uplink.Client
		if cfg.Uplink.BaseURL != "" {
			hook = uplink.NewClient(cfg.Uplink.BaseURL,
				uplink.WithHeaderProvider(headers),
				uplink.WithTimeout(cfg.Uplink.Timeout),
				uplink.WithRetry(cfg.Uplink.Retry),
			)
		}
		var h uplink.Hub
		if cfg.Uplink.WSURL != "" {
			hub = uplink.NewWebSocket(cfg.Uplink.WSURL, cfg.Uplink.MaxReconnect, logger)
			hub.SetHeaderProvider(headers)
			hub.OnStateChange(func(s uplink.State) {
				logger.Info("uplink_hub_state", zap.String("state", s.String()))
			})
			h = hub
		}
		opts.Egress = uplink.NewEgress(cfg.Uplink.Mode, cfg.Uplink.DryRun, hook, h, logger)
	}

	w := watch.New(opts)

	if hub != nil {
		hub.OnCommand(func(cmd ficsdto.Command) {
			if err := w.HandleCommand(ctx, cmd); err != nil {
				logger.Warn("uplink_command_failed", zap.String("action", cmd.Action), zap.Error(err))
			}
		})
		if err := hub.Connect(ctx); err != nil {
			logger.Warn("uplink_hub_unavailable", zap.Error(err))
		}
		defer func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = hub.Close(cctx)
		}()
	}

	if err := client.Connect(ctx, cfg.FICS.Username, cfg.FICS.Password); err != nil {
		return err
	}
	// Drain while logging in so early chat and the ready event are not dropped.
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx, queue.Events()) }()

	if err := client.WaitReady(ctx); err != nil {
		return err
	}
	if err := w.HandleCommand(ctx, ficsdto.Command{Action: ficsdto.ActionListGames}); err != nil {
		return err
	}
	if cfg.FICS.Observe > 0 {
		if err := w.HandleCommand(ctx, ficsdto.Command{Action: ficsdto.ActionObserve, GameID: cfg.FICS.Observe}); err != nil {
			return err
		}
	}
	return <-errCh
}
