package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"

	"castfeed/internal/config"
	"castfeed/internal/hook"
	"castfeed/internal/identity"
	"castfeed/internal/metrics"
	"castfeed/internal/notify"
	"castfeed/internal/pipeline"
	"castfeed/internal/profile"
	"castfeed/internal/server"
	"castfeed/internal/stats"
	kit "castfeed/internal/transport"
	"castfeed/internal/transport/telegram"
	"castfeed/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (json or yaml)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	logSvc, log := logx.New(logCfg(cfg))
	defer logSvc.Close()
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	lookupTimeout, _ := config.ParseDurationOrDefault("identity.timeout", cfg.Identity.Timeout, 8*time.Second)
	cacheTTL, _ := config.ParseDurationOrDefault("identity.cache_ttl", cfg.Identity.CacheTTL, profile.DefaultTTL)

	client := identity.NewClient(identity.ClientConfig{
		BaseURL: cfg.Identity.BaseURL,
		APIKey:  cfg.Identity.APIKey,
		Timeout: lookupTimeout,
	}, log.With(logx.String("comp", "identity")))

	cache := profile.NewCache(client, cacheTTL, cfg.Cache.Size, log.With(logx.String("comp", "profile")))
	last := profile.NewLastKnown()
	diff := profile.NewEngine(cache, last, log.With(logx.String("comp", "diff")))
	dedup := hook.NewDeduper(cfg.Webhook.DedupSize)

	reg := prometheus.NewRegistry()
	met := metrics.New(reg)

	adapter, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	notifySvc := notify.New(notifyCfg(cfg), adapter, met, log.With(logx.String("comp", "notify")))
	notifySvc.Start(ctx)

	pipe := pipeline.New(cfg.Webhook.Secret, channels(cfg), dedup, cache, diff, notifySvc, met, log.With(logx.String("comp", "pipeline")))

	srv := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		WebhookPath:     cfg.Server.Path,
		SignatureHeader: cfg.Webhook.SignatureHeader,
	}, pipe, reg, log.With(logx.String("comp", "http")))

	rep := stats.New(dedup, cache, last, log.With(logx.String("comp", "stats")))
	if err := rep.Start(); err != nil {
		log.Warn("stats job not started", logx.Err(err))
	}
	defer rep.Stop()

	// Hot reload: secret, channels, log level, notifier rate.
	sub := mgr.Subscribe(4)
	defer mgr.Unsubscribe(sub)
	go func() { _ = mgr.Watch(ctx) }()
	go func() {
		for nc := range sub {
			logSvc.Apply(logCfg(nc))
			notifySvc.Apply(notifyCfg(nc))
			pipe.Apply(nc.Webhook.Secret, channels(nc))
			srv.SetSignatureHeader(nc.Webhook.SignatureHeader)
			log.Info("runtime config applied")
		}
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	if err := srv.Start(ctx); err != nil {
		log.Error("http server failed", logx.Err(err))
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	// Drain queued notifications before exit.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	notifySvc.Stop(stopCtx)
	stopCancel()
}

func logCfg(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func notifyCfg(cfg *config.Config) notify.Config {
	retryBase, _ := config.ParseDurationOrDefault("notifier.retry_base", cfg.Notifier.RetryBase, 500*time.Millisecond)
	retryMaxDelay, _ := config.ParseDurationOrDefault("notifier.retry_max_delay", cfg.Notifier.RetryMaxDelay, 10*time.Second)
	return notify.Config{
		Workers:       cfg.Notifier.Workers,
		QueueSize:     cfg.Notifier.QueueSize,
		RatePerSec:    cfg.Notifier.RatePerSec,
		RetryMax:      cfg.Notifier.RetryMax,
		RetryBase:     retryBase,
		RetryMaxDelay: retryMaxDelay,
	}
}

func channels(cfg *config.Config) pipeline.Channels {
	th := cfg.Telegram.Channels.ThreadID
	return pipeline.Channels{
		Follows:  kit.ChatTarget{ChatID: cfg.Telegram.Channels.Follows, ThreadID: th},
		Activity: kit.ChatTarget{ChatID: cfg.Telegram.Channels.Activity, ThreadID: th},
		Trades:   kit.ChatTarget{ChatID: cfg.Telegram.Channels.Trades, ThreadID: th},
	}
}
