package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sentryd/sentryd/internal/api"
	"github.com/sentryd/sentryd/internal/buildinfo"
	"github.com/sentryd/sentryd/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the batch scheduler and HTTP control surface",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp(configFile)
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("starting sentryd", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "accounts", len(a.cfg.Accounts))

	sch := scheduler.New(a.store, a.controller, a.cfg.Accounts, a.cfg.Classifier, a.cfg.Scheduler, a.logger, a.dial)
	if err := sch.Start(context.Background()); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sch.Stop()

	srv := api.New(a.cfg.Listen.Address, a.cfg.Listen.Port, a.store, a.controller, a.feedback, a.overrides, a.cfg.Classifier, a.accounts, a.dial, a.logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		a.logger.Info("shutdown signal received")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	if err := srv.Start(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("control surface failed: %w", err)
	}

	a.logger.Info("sentryd stopped")
	return nil
}
