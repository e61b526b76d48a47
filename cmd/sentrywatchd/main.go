// Command sentrywatchd runs the monitoring engine's daemon loop: it opens
// the embedded store, wires the fetch/agent/notification infrastructure,
// and drives the scheduler until it receives SIGINT/SIGTERM. Target and
// reminder definitions themselves are populated externally (by the CLI
// collaborator out of this module's scope); this process only consumes
// what is already in the store.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"sentrywatch/internal/domain/entity"
	"sentrywatch/internal/infra/agentproc"
	"sentrywatch/internal/infra/fetcher"
	"sentrywatch/internal/infra/healthserver"
	"sentrywatch/internal/infra/notifier"
	"sentrywatch/internal/infra/ratelimit"
	"sentrywatch/internal/infra/scheduler"
	"sentrywatch/internal/infra/store/sqlite"
	"sentrywatch/internal/observability/logging"
	"sentrywatch/internal/pkg/config"
	"sentrywatch/internal/usecase/agent"
	"sentrywatch/internal/usecase/notify"
	"sentrywatch/internal/usecase/orchestrator"
)

const defaultAgentSystemPrompt = `You are a change-judgment assistant. You receive an Agent Context ` +
	`describing a detected change to a monitored page and must answer with ` +
	`exactly one JSON object: {"notify":bool,"title":string,"bullets":[string],` +
	`"summary":string,"memory_update":{"counters":{},"last_values":{},"notes":[]},` +
	`"global_observation":string}. No prose outside the JSON object.`

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	configMetrics := config.NewConfigMetrics("daemon")
	cfg := config.LoadDaemonConfigFromEnv(logger, configMetrics)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid daemon configuration", slog.Any("error", err))
		os.Exit(1)
	}

	st, err := sqlite.Open(sqlite.DefaultConfig(cfg.DBPath))
	if err != nil {
		logger.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close store", slog.Any("error", err))
		}
	}()

	fetchRegistry := buildFetchRegistry(logger)
	limiter := ratelimit.New(cfg.RateLimits)
	dispatcher := buildDispatcher(logger)
	agentBridge := buildAgentBridge(cfg)
	profile := loadInterestProfile(logger)

	orch := orchestrator.New(st, fetchRegistry, agentBridge, dispatcher, profile, orchestrator.DefaultConfig())
	sched := scheduler.New(st, orch, limiter, dispatcher, cfg.DataDir, logger)

	health := healthserver.New(addr(cfg.HealthPort), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := health.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server stopped unexpectedly", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		sched.Stop()
	}()

	health.SetReady(true)
	logger.Info("sentrywatchd started", slog.String("db_path", cfg.DBPath), slog.Int("health_port", cfg.HealthPort))

	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("sentrywatchd stopped")
}

func addr(port int) string {
	return ":" + strconv.Itoa(port)
}

// buildFetchRegistry wires one Fetcher per engine the content pipeline can
// be pointed at, loading the shared URL-fetch tunables from FETCH_* env
// vars (fail-open, per internal/infra/fetcher.LoadConfigFromEnv).
func buildFetchRegistry(logger *slog.Logger) *fetcher.Registry {
	fetchCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("failed to load fetch configuration, using defaults", slog.Any("error", err))
		fetchCfg = fetcher.DefaultConfig()
	}

	remoteURL := os.Getenv("HEADLESS_REMOTE_URL")

	return fetcher.NewRegistry(map[entity.FetchEngine]fetcher.Fetcher{
		entity.EngineHTTP:            fetcher.NewHTTPFetcher(fetchCfg),
		entity.EngineRSS:             fetcher.NewRSSFetcher(fetchCfg),
		entity.EngineShell:           fetcher.NewShellFetcher(fetchCfg.Timeout),
		entity.EngineHeadlessBrowser: fetcher.NewHeadlessFetcher(fetchCfg, remoteURL),
	})
}

// buildAgentBridge wires the subprocess-backed reasoning agent. The agent
// is still consulted per-target only when that target's Agent.Enabled is
// true; building the bridge unconditionally costs nothing since Invoke is
// never called for targets that opt out.
func buildAgentBridge(cfg config.DaemonConfig) *agent.Bridge {
	runner := agentproc.NewRunner(agentproc.Config{
		Command:  cfg.AgentCommand,
		Timeout:  cfg.AgentTimeout,
		MaxTurns: cfg.AgentMaxTurns,
	})
	systemPrompt := os.Getenv("AGENT_SYSTEM_PROMPT")
	if systemPrompt == "" {
		systemPrompt = defaultAgentSystemPrompt
	}
	return agent.NewBridge(runner, systemPrompt)
}

// buildDispatcher wires one Notifier per channel tag plus an optional
// environment-configured global default notification target, used to back
// any target or reminder that doesn't set its own NotifyTo.
func buildDispatcher(logger *slog.Logger) *notify.Dispatcher {
	const timeout = 30 * time.Second

	notifiers := map[entity.ChannelTag]notifier.Notifier{
		entity.ChannelNtfy:     notifier.NewNtfyNotifier(timeout),
		entity.ChannelSlack:    notifier.NewSlackNotifier(timeout),
		entity.ChannelDiscord:  notifier.NewDiscordNotifier(timeout),
		entity.ChannelGotify:   notifier.NewGotifyNotifier(timeout),
		entity.ChannelTelegram: notifier.NewTelegramNotifier(timeout),
		entity.ChannelPushover: notifier.NewPushoverNotifier(timeout),
		entity.ChannelMatrix:   notifier.NewMatrixNotifier(timeout),
		entity.ChannelShell:    notifier.NewShellNotifier(timeout),
	}
	if emailCfg, ok := loadEmailConfig(logger); ok {
		notifiers[entity.ChannelEmail] = notifier.NewEmailNotifier(emailCfg)
	} else {
		notifiers[entity.ChannelEmail] = notifier.NewNoOpNotifier()
	}

	global := loadGlobalNotificationTarget(logger)
	return notify.NewDispatcher(notifiers, global)
}

// loadInterestProfile reads an optional YAML-encoded interest profile from
// SENTRYWATCH_PROFILE_PATH. Its on-disk format is an external-collaborator
// concern (same as target/reminder definitions); this loader only needs to
// turn it into the in-memory entity.InterestProfile the agent bridge reads.
func loadInterestProfile(logger *slog.Logger) *entity.InterestProfile {
	path := os.Getenv("SENTRYWATCH_PROFILE_PATH")
	if path == "" {
		return nil
	}
	profile, err := config.LoadInterestProfile(path)
	if err != nil {
		logger.Warn("failed to load interest profile, proceeding without one", slog.Any("error", err))
		return nil
	}
	return profile
}

// loadGlobalNotificationTarget builds the fallback NotificationTarget any
// target/reminder without its own NotifyTo uses, from GLOBAL_NOTIFY_* env
// vars. It returns nil when GLOBAL_NOTIFY_CHANNEL is unset or not a known
// channel, meaning no global default is configured.
func loadGlobalNotificationTarget(logger *slog.Logger) *entity.NotificationTarget {
	channel := entity.ChannelTag(strings.ToLower(os.Getenv("GLOBAL_NOTIFY_CHANNEL")))
	if channel == "" {
		return nil
	}
	if !channel.Valid() {
		logger.Warn("GLOBAL_NOTIFY_CHANNEL is not a recognized channel, no global default configured", slog.String("channel", string(channel)))
		return nil
	}

	return &entity.NotificationTarget{
		Channel:          channel,
		NtfyTopic:        os.Getenv("GLOBAL_NOTIFY_NTFY_TOPIC"),
		NtfyServerURL:    os.Getenv("GLOBAL_NOTIFY_NTFY_SERVER_URL"),
		SlackWebhookURL:  os.Getenv("GLOBAL_NOTIFY_SLACK_WEBHOOK_URL"),
		DiscordWebhook:   os.Getenv("GLOBAL_NOTIFY_DISCORD_WEBHOOK_URL"),
		GotifyURL:        os.Getenv("GLOBAL_NOTIFY_GOTIFY_URL"),
		GotifyToken:      os.Getenv("GLOBAL_NOTIFY_GOTIFY_TOKEN"),
		TelegramToken:    os.Getenv("GLOBAL_NOTIFY_TELEGRAM_TOKEN"),
		TelegramChatID:   os.Getenv("GLOBAL_NOTIFY_TELEGRAM_CHAT_ID"),
		PushoverToken:    os.Getenv("GLOBAL_NOTIFY_PUSHOVER_TOKEN"),
		PushoverUser:     os.Getenv("GLOBAL_NOTIFY_PUSHOVER_USER"),
		MatrixHomeserver: os.Getenv("GLOBAL_NOTIFY_MATRIX_HOMESERVER"),
		MatrixRoomID:     os.Getenv("GLOBAL_NOTIFY_MATRIX_ROOM_ID"),
		MatrixToken:      os.Getenv("GLOBAL_NOTIFY_MATRIX_TOKEN"),
		EmailTo:          os.Getenv("GLOBAL_NOTIFY_EMAIL_TO"),
		ShellCommand:     os.Getenv("GLOBAL_NOTIFY_SHELL_COMMAND"),
	}
}

func loadEmailConfig(logger *slog.Logger) (notifier.EmailConfig, bool) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return notifier.EmailConfig{}, false
	}
	port := 587
	if raw := os.Getenv("SMTP_PORT"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			logger.Warn("invalid SMTP_PORT, using default", slog.String("value", raw))
		} else {
			port = parsed
		}
	}
	return notifier.EmailConfig{
		SMTPHost: host,
		SMTPPort: port,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}, true
}
