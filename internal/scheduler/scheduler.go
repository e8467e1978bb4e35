// Package scheduler runs the periodic process-mode batch sweep over
// every configured account (spec.md §4.8). It replaces the teacher's
// generic Task/Schedule/Payload model — built for arbitrary wake/
// service/automation/webhook fan-out — with a single fixed-interval
// job, since spec.md needs exactly one payload kind: run process mode
// for account X. The timer core is github.com/go-co-op/gocron in place
// of the teacher's hand-rolled time.AfterFunc bookkeeping, and the
// single-run guard is internal/store's scheduler_lock row rather than
// the teacher's in-memory running flag, so two sentryd processes
// sharing a database can't double-run the same account.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/sentryd/sentryd/internal/config"
	"github.com/sentryd/sentryd/internal/controller"
	"github.com/sentryd/sentryd/internal/imapadapter"
	"github.com/sentryd/sentryd/internal/store"
)

// LockStore is the subset of internal/store.Store the scheduler needs
// beyond the Controller it already wraps — narrowed to an interface so
// tests can swap in a fake without a SQLite file.
type LockStore interface {
	UpsertAccount(email, name, provider string) (int64, error)
	AcquireSchedulerLock(name, owner string) (bool, error)
	ReleaseSchedulerLock(name, owner string) error
	RecordMetric(name string, value float64) error
}

// Dialer builds the IMAP client for one account's sweep. A thin
// indirection over imapadapter.NewClient so tests can substitute a
// fake client without a real network.
type Dialer func(account config.AccountConfig) controller.IMAPClient

// Scheduler runs every configured account's process-mode sweep on a
// fixed interval, one gocron job per process, serialized against other
// sentryd processes sharing the same database via LockStore's
// scheduler_lock.
type Scheduler struct {
	store      LockStore
	controller *controller.Controller
	accounts   []config.AccountConfig
	global     config.ClassifierConfig
	cfg        config.SchedulerConfig
	logger     *slog.Logger
	dial       Dialer

	mu    sync.Mutex
	inner *gocron.Scheduler
}

// New builds a Scheduler over an already-constructed Controller.
func New(s LockStore, ctrl *controller.Controller, accounts []config.AccountConfig, global config.ClassifierConfig, cfg config.SchedulerConfig, logger *slog.Logger, dial Dialer) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store: s, controller: ctrl, accounts: accounts, global: global,
		cfg: cfg, logger: logger, dial: dial,
	}
}

// DialIMAP is the production Dialer, wiring config.AccountConfig's
// already-environment-expanded credential handle straight through to
// imapadapter.NewClient as the account password.
func DialIMAP(logger *slog.Logger) Dialer {
	return func(account config.AccountConfig) controller.IMAPClient {
		return imapadapter.NewClient(account.Name, account.IMAP, account.IMAP.CredentialHandle, logger)
	}
}

// Start begins the periodic sweep, running once every
// cfg.IntervalMinutes.
func (sch *Scheduler) Start(ctx context.Context) error {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	if sch.inner != nil {
		return nil
	}

	interval := sch.cfg.IntervalMinutes
	if interval <= 0 {
		interval = 30
	}

	inner := gocron.NewScheduler(time.UTC)
	if _, err := inner.Every(interval).Minutes().Do(func() {
		sch.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("schedule batch sweep: %w", err)
	}
	sch.inner = inner
	sch.inner.StartAsync()
	sch.logger.Info("scheduler started", "interval_minutes", interval, "accounts", len(sch.accounts))
	return nil
}

// Stop halts the scheduler. Jobs already in flight run to completion.
func (sch *Scheduler) Stop() {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	if sch.inner == nil {
		return
	}
	sch.inner.Stop()
	sch.inner = nil
	sch.logger.Info("scheduler stopped")
}

// RunOnce sweeps every configured account once, up to
// cfg.MaxConcurrentAccounts at a time. Each account's run is guarded by
// its own scheduler_lock row, so a sweep that's still running when the
// next tick fires simply skips that account rather than overlapping it.
func (sch *Scheduler) RunOnce(ctx context.Context) {
	limit := sch.cfg.MaxConcurrentAccounts
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for _, account := range sch.accounts {
		account := account
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			sch.runAccount(ctx, account)
		}()
	}
	wg.Wait()
}

func (sch *Scheduler) runAccount(ctx context.Context, account config.AccountConfig) {
	lockName := "account:" + account.Name
	owner := uuid.NewString()

	acquired, err := sch.store.AcquireSchedulerLock(lockName, owner)
	if err != nil {
		sch.logger.Error("scheduler lock check failed", "account", account.Name, "error", err)
		return
	}
	if !acquired {
		sch.logger.Info("skipping account, previous run still in flight", "account", account.Name)
		return
	}
	defer func() {
		if err := sch.store.ReleaseSchedulerLock(lockName, owner); err != nil {
			sch.logger.Error("scheduler lock release failed", "account", account.Name, "error", err)
		}
	}()

	timeoutMins := sch.cfg.PerSessionTimeoutMins
	if timeoutMins <= 0 {
		timeoutMins = 10
	}
	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMins)*time.Minute)
	defer cancel()

	start := time.Now()
	accountID, err := sch.store.UpsertAccount(account.Email, account.Name, account.Provider)
	if err != nil {
		sch.logger.Error("batch sweep failed to resolve account", "account", account.Name, "error", err)
		return
	}

	client := sch.dial(account)
	sess, err := sch.controller.Run(runCtx, client, accountID, account, sch.global, store.ModeProcess)
	duration := time.Since(start)
	_ = sch.store.RecordMetric("scheduler.sweep_duration_seconds", duration.Seconds())

	if err != nil {
		sch.logger.Error("batch sweep failed", "account", account.Name, "error", err, "duration", duration)
		return
	}
	sch.logger.Info("batch sweep complete",
		"account", account.Name, "examined", sess.Examined, "deleted", sess.Deleted,
		"preserved", sess.Preserved, "skipped", sess.Skipped, "errors", sess.Errored,
		"duration", duration)
}
