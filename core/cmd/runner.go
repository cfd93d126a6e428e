// Package cmd hosts the shared service runner used by the binaries.
package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/murende/soko/core/bootstrap"
	coreconfig "github.com/murende/soko/core/config"
	"github.com/murende/soko/core/gateway"
	"github.com/murende/soko/core/logger"
	"github.com/murende/soko/core/session"
	"github.com/murende/soko/core/ussd"
)

// Options describe how to load configuration and bootstrap the service.
// The function fields exist for tests; nil selects the real implementation.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig     func(path string) (*coreconfig.Config, error)
	Bootstrap      func(opts bootstrap.Options) (*bootstrap.Result, error)
	ShutdownLogger func() error
}

// Run loads configuration, bootstraps the service and serves gateway
// callbacks until a termination signal arrives.
func Run(opts Options) error {
	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}
	if cfgPath == "" {
		return fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
	}

	loadConfig := opts.LoadConfig
	if loadConfig == nil {
		loadConfig = coreconfig.Load
	}
	log.Printf("loading config: %s", cfgPath)
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	boot := opts.Bootstrap
	if boot == nil {
		boot = bootstrap.Run
	}
	startedAt := time.Now()
	res, err := boot(bootstrap.Options{Config: cfg})
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	defer res.Close()

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sweeper, err := session.StartSweeper(ctx, res.Store, cfg.Session.SweepSchedule)
	if err != nil {
		return fmt.Errorf("cmd: sweeper init failed: %w", err)
	}
	defer sweeper.Stop()

	formatter := ussd.Formatter{MaxPayloadRunes: cfg.Gateway.MaxPayloadRunes}
	handler := gateway.NewHandler(res.Engine, res.Store, formatter,
		time.Duration(cfg.Gateway.DependencyTimeoutMS)*time.Millisecond)
	app := gateway.NewServer(cfg, handler)

	addr := fmt.Sprintf("%s:%d", cfg.Gateway.Listen, cfg.Gateway.Port)
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(addr)
	}()

	logger.Info(logger.Background(), "app", "app ready",
		slog.String("addr", addr),
		slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
	)

	select {
	case <-ctx.Done():
		logger.Info(logger.Background(), "app", "shutting down...")
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return fmt.Errorf("cmd: server shutdown failed: %w", err)
		}
		return nil
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("cmd: server failed: %w", err)
		}
		return nil
	}
}
