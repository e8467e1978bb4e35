package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sentryd/sentryd/internal/cache"
	"github.com/sentryd/sentryd/internal/classifier"
	"github.com/sentryd/sentryd/internal/config"
	"github.com/sentryd/sentryd/internal/controller"
	"github.com/sentryd/sentryd/internal/credentials"
	"github.com/sentryd/sentryd/internal/feedback"
	"github.com/sentryd/sentryd/internal/overrides"
	"github.com/sentryd/sentryd/internal/registry"
	"github.com/sentryd/sentryd/internal/scheduler"
	"github.com/sentryd/sentryd/internal/store"
)

// app holds every long-lived component wired together from config, shared
// by every subcommand that needs more than a bare config read.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.Store
	controller *controller.Controller
	overrides  *overrides.Engine
	registry   *registry.Registry
	feedback   *feedback.Service
	dial       scheduler.Dialer
	accounts   map[string]config.AccountConfig
}

// newLogger builds the process-wide slog.Logger at the level named by
// cfg.LogLevel, following the teacher's config-driven text handler setup.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level: %w", err)
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	})), nil
}

// buildApp loads config from configPath and wires every component the CLI
// needs: storage, the optional Redis-backed geo/domain cache, the
// classifier pipeline, the override engine, the model registry, the
// controller, and the feedback service.
func buildApp(configPath string) (*app, error) {
	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", cfg.DataDir, err)
	}

	s, err := store.Open(cfg.DataDir + "/sentryd.db")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	redisClient, err := cache.NewClient(cfg.Redis)
	if err != nil {
		logger.Warn("redis cache unavailable, falling back to store-backed cache", "error", err)
	}
	geoCache := cache.New(redisClient, s, ttlFromMinutes(cfg.Redis.TTLMins), logger)

	storedPatterns, err := s.ListAllSubcategoryPatterns()
	if err != nil {
		return nil, fmt.Errorf("load subcategory patterns: %w", err)
	}
	rawPatterns := make([]classifier.RawPattern, 0, len(storedPatterns))
	for _, p := range storedPatterns {
		rawPatterns = append(rawPatterns, classifier.RawPattern{Category: p.Category, Subcategory: p.Subcategory, Pattern: p.Pattern, Weight: p.Weight})
	}
	patterns, err := classifier.CompilePatterns(rawPatterns)
	if err != nil {
		return nil, fmt.Errorf("compile subcategory patterns: %w", err)
	}

	pipeline := classifier.NewPipeline(geoCache, cfg.Classifier.TaxonomyV2RolloutPct, patterns)
	ov := overrides.New(s)
	ctrl := controller.New(s, pipeline, ov, logger)

	reg, err := registry.New(s, logger)
	if err != nil {
		return nil, fmt.Errorf("load model registry: %w", err)
	}
	fb := feedback.New(s, reg, logger)

	accounts := make(map[string]config.AccountConfig, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		accounts[a.Name] = a
	}

	return &app{
		cfg: cfg, logger: logger, store: s, controller: ctrl, overrides: ov,
		registry: reg, feedback: fb, dial: rotationTrackingDialer(s, logger), accounts: accounts,
	}, nil
}

// rotationTrackingDialer wraps the production Dialer with a credential
// rotation check: every dial observes the account's resolved
// credential against its rotation history before connecting, so an
// app-password change shows up in the ledger even on accounts the
// operator never explicitly flags.
func rotationTrackingDialer(s *store.Store, logger *slog.Logger) scheduler.Dialer {
	tracker := credentials.NewTracker(s)
	base := scheduler.DialIMAP(logger)
	return func(account config.AccountConfig) controller.IMAPClient {
		accountID, err := s.UpsertAccount(account.Email, account.Name, account.Provider)
		if err != nil {
			logger.Warn("credential rotation check skipped: could not resolve account", "account", account.Name, "error", err)
			return base(account)
		}
		rotated, err := tracker.Observe(accountID, account.IMAP.CredentialHandle)
		if err != nil {
			logger.Warn("credential rotation check failed", "account", account.Name, "error", err)
		} else if rotated {
			logger.Info("credential rotation detected", "account", account.Name)
		}
		return base(account)
	}
}

func ttlFromMinutes(mins int) time.Duration {
	if mins <= 0 {
		return time.Hour
	}
	return time.Duration(mins) * time.Minute
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) account(name string) (config.AccountConfig, error) {
	account, ok := a.accounts[name]
	if !ok {
		return config.AccountConfig{}, fmt.Errorf("unknown account %q (check accounts: in config)", name)
	}
	return account, nil
}
