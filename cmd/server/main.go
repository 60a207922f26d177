package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lunchpaillola/docusign-voice/internal/config"
	healthhandler "github.com/lunchpaillola/docusign-voice/internal/health/handler"
	oauthhandler "github.com/lunchpaillola/docusign-voice/internal/oauth/handler"
	"github.com/lunchpaillola/docusign-voice/internal/oauth/repository"
	oauthservice "github.com/lunchpaillola/docusign-voice/internal/oauth/service"
	"github.com/lunchpaillola/docusign-voice/internal/policy/engine"
	"github.com/lunchpaillola/docusign-voice/internal/security"
	"github.com/lunchpaillola/docusign-voice/internal/server"
	"github.com/lunchpaillola/docusign-voice/internal/telemetry"
	telemetryotel "github.com/lunchpaillola/docusign-voice/internal/telemetry/otel"
	"github.com/lunchpaillola/docusign-voice/internal/verification"
	verifyhandler "github.com/lunchpaillola/docusign-voice/internal/verification/handler"
	verifyservice "github.com/lunchpaillola/docusign-voice/internal/verification/service"
	"github.com/lunchpaillola/docusign-voice/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	metrics, err := telemetry.NewMetrics(providers.Meter("docuvoice"))
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}
	emitter := telemetryotel.NewEventEmitter(providers.LoggerProvider)

	stores, err := repository.Open(cfg.StoreDriver, cfg.DatabaseURL, cfg.AutoMigrate)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer stores.Close()

	policy, err := engine.LoadOPAEvaluator(ctx, cfg.DialPolicyPath)
	if err != nil {
		log.Fatalf("dial policy: %v", err)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	clients, err := security.NewClientAuthenticator(cfg.OAuthClientID, cfg.OAuthClientSecret, cfg.OAuthClientSecretHash, hasher)
	if err != nil {
		log.Fatalf("oauth client: %v", err)
	}
	tokens := security.NewTokenProvider(cfg.JWTSecretKey, cfg.AccessTTL())
	oauthSvc := oauthservice.NewOAuthService(stores.States, stores.Tokens, clients, tokens,
		oauthservice.Config{
			AuthorizationCode: cfg.AuthorizationCode,
			StateTTL:          cfg.StateTTL(),
			SingleUse:         cfg.OAuthStateSingleUse,
		}, emitter, metrics, logger)

	script := verifyservice.DefaultScriptConfig()
	script.AgentName = cfg.AgentName
	script.CompanyName = cfg.CompanyName
	script.ModelProvider = cfg.VapiModelProvider
	script.Model = cfg.VapiModel
	script.MaxDurationSeconds = cfg.VerifyMaxCallSeconds
	orchestrator := verifyservice.NewCallOrchestrator(voice.NewClient(cfg.VapiAPIKey, cfg.VapiBaseURL),
		verifyservice.OrchestratorConfig{
			PhoneNumberID: cfg.VapiPhoneNumberID,
			PollInterval:  cfg.PollInterval(),
			CallDeadline:  cfg.CallDeadline(),
			Script:        script,
		}, metrics, logger)
	attempts := verification.NewMemoryAttemptStore(cfg.Cooldown(), cfg.AttemptHold())
	verifySvc := verifyservice.NewService(attempts, orchestrator, logger,
		verifyservice.WithDialPolicy(policy),
		verifyservice.WithTelemetry(emitter, metrics),
		verifyservice.WithDefaultRegion(cfg.DefaultRegion),
	)

	deps := server.Deps{
		Logger:         logger,
		Prefix:         cfg.APIPrefix,
		AllowedOrigins: cfg.AllowedOrigins(),
		Verify:         verifyhandler.NewHandler(verifySvc),
		OAuth:          oauthhandler.NewHandler(oauthSvc, cfg.APIPrefix, logger),
		Health:         healthhandler.NewHandler(oauthSvc, policy),
		Debug:          !cfg.IsProduction(),
	}
	if cfg.RequireBearerAuth {
		deps.BearerTokens = tokens
		deps.IssuedTokens = oauthSvc
	}
	srv := server.NewHTTPServer(cfg.HTTPAddr, server.NewRouter(deps), cfg.HTTPWriteTimeout())

	go server.RunJanitor(ctx, server.DefaultPurgeInterval, logger, map[string]server.PurgeFunc{
		"oauth": oauthSvc.PurgeExpired,
		"attempts": func(context.Context) (int64, error) {
			return int64(attempts.Prune()), nil
		},
	})

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.HTTPAddr), slog.String("prefix", cfg.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down http server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.CallDeadline())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", slog.String("error", err.Error()))
	}
	// Let in-flight EmitAsync calls finish before the exporters close.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(context.Background()); err != nil {
		logger.Warn("otel shutdown", slog.String("error", err.Error()))
	}
	logger.Info("http server stopped")
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
