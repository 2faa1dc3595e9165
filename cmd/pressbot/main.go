package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pressbot/internal/adapter/channel"
	"pressbot/internal/adapter/cms"
	"pressbot/internal/adapter/image"
	"pressbot/internal/adapter/llm"
	"pressbot/internal/adapter/settings"
	"pressbot/internal/adapter/tool"
	"pressbot/internal/domain"
	"pressbot/internal/infra/config"
	"pressbot/internal/infra/logger"
	"pressbot/internal/infra/metrics"
	"pressbot/internal/infra/tracer"
	"pressbot/internal/usecase"
	"pressbot/internal/usecase/scheduling"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, closeLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closeLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	log.Info("starting pressbot", "config", fmt.Sprintf("%+v", cfg.Redacted()))

	// Persistence and outbound clients.
	settingsStore, err := settings.NewSQLiteStore(cfg.Settings.DBPath)
	if err != nil {
		return fmt.Errorf("open settings store: %w", err)
	}
	defer settingsStore.Close()

	articleClient := cms.NewClient(cfg.CMS, log)
	imageSearcher := image.NewSearcher(cfg.Images, log)
	imageGenerator := image.NewGenerator(cfg.LLM, cfg.Images, log)

	// Tools.
	registry := tool.NewRegistry(log)
	for _, tl := range tool.NewArticleTools(articleClient, log).All() {
		if err := registry.Register(tl); err != nil {
			return fmt.Errorf("register tool: %w", err)
		}
	}
	for _, tl := range tool.NewSettingsTools(settingsStore, log).All() {
		if err := registry.Register(tl); err != nil {
			return fmt.Errorf("register tool: %w", err)
		}
	}
	if err := registry.Register(tool.NewSearchImagesTool(imageSearcher, log)); err != nil {
		return fmt.Errorf("register tool: %w", err)
	}
	if err := registry.Register(tool.NewGenerateImageTool(imageGenerator, log)); err != nil {
		return fmt.Errorf("register tool: %w", err)
	}
	log.Info("tools registered", "count", len(registry.List()))

	// Model provider behind a circuit breaker.
	var provider domain.LLMProvider = llm.NewOpenAIProvider(cfg.LLM, log)
	provider = llm.NewCircuitBreakerProvider(provider, cfg.LLM.Breaker, log)

	// Agent core.
	sessions := usecase.NewSessionStore(usecase.SessionStoreOptions{
		MaxSessions:        cfg.Agent.MaxSessions,
		MaxContextMessages: cfg.Agent.MaxContextMessages,
		TTL:                config.Duration(cfg.Agent.SessionTTL, config.DefaultSessionTTL),
	})
	limiter := usecase.NewRateLimiter(
		cfg.Agent.RateMaxMessages,
		config.Duration(cfg.Agent.RateWindow, config.DefaultRateWindow),
	)
	engine := usecase.NewEngine(usecase.EngineDeps{
		LLM:             provider,
		Tools:           registry,
		Sessions:        sessions,
		Limiter:         limiter,
		Logger:          log,
		SystemPrompt:    cfg.Agent.SystemPrompt,
		MaxIterations:   cfg.Agent.MaxIterations,
		ToolTimeout:     config.Duration(cfg.Agent.ToolTimeout, config.DefaultToolTimeout),
		RateLimitNotice: cfg.Agent.RateLimitNotice,
	})

	// Cleanup scheduler.
	if cfg.Scheduler.Enabled {
		sched := scheduling.NewScheduler(log)
		sched.RegisterAction(scheduling.ActionSessionSweep, func(ctx context.Context) error {
			if n := sessions.Sweep(); n > 0 {
				log.Info("swept stale sessions", "count", n)
			}
			return nil
		})
		sched.RegisterAction(scheduling.ActionRateLimitSweep, func(ctx context.Context) error {
			limiter.Sweep()
			return nil
		})
		if err := sched.AddTask(scheduling.ScheduledTask{
			Name:     "session-sweep",
			Schedule: cfg.Scheduler.SweepInterval,
			Action:   scheduling.ActionSessionSweep,
		}); err != nil {
			return fmt.Errorf("add sweep task: %w", err)
		}
		if err := sched.AddTask(scheduling.ScheduledTask{
			Name:     "ratelimit-sweep",
			Schedule: cfg.Scheduler.SweepInterval,
			Action:   scheduling.ActionRateLimitSweep,
		}); err != nil {
			return fmt.Errorf("add sweep task: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	// Metrics endpoint.
	if cfg.Metrics.Enabled {
		mx := metrics.NewServer(cfg.Metrics.Addr, log)
		mx.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mx.Stop(shutdownCtx); err != nil {
				log.Warn("metrics shutdown failed", "error", err)
			}
		}()
	}

	// Telegram channel.
	var opts []channel.TelegramOption
	opts = append(opts, channel.WithSessionResetter(sessions))
	if cfg.Telegram.MentionOnly {
		opts = append(opts, channel.WithTelegramMentionOnly(true))
	}
	tg := channel.NewTelegramChannel(cfg.Telegram.Token, log, opts...)

	handler := func(ctx context.Context, msg domain.InboundMessage) error {
		reply, err := engine.Handle(ctx, msg.ChatID, msg.Content)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			log.Error("agent failed", "chat_id", msg.ChatID, "error", err)
			return tg.Send(ctx, domain.OutboundMessage{
				ChatID:  msg.ChatID,
				Content: "Something went wrong on my side. Please try again.",
				IsError: true,
			})
		}
		return tg.Send(ctx, domain.OutboundMessage{
			ChatID:    msg.ChatID,
			Content:   reply.Text,
			ImageURLs: reply.ImageURLs,
		})
	}

	if err := tg.Start(ctx, handler); err != nil {
		return fmt.Errorf("start telegram channel: %w", err)
	}

	log.Info("pressbot is running")
	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := tg.Stop(shutdownCtx); err != nil {
		log.Warn("telegram stop failed", "error", err)
	}
	return nil
}
