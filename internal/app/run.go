package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"
	"walletpnl/internal/config"
)

// Run assembles the container, starts it, waits for a signal or a server failure and stops
func Run(cfg *config.Config) error {
	ctxBuild, cancelBuild := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBuild()

	container, err := Build(ctxBuild, cfg)
	if err != nil {
		return err
	}
	defer container.Cleanup()

	if err = container.Start(); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var serveErr error
	select {
	case <-sigCtx.Done():
	case serveErr = <-container.app.Errors():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err = container.Stop(shutdownCtx); err != nil {
		return err
	}

	if serveErr != nil {
		return fmt.Errorf("http server is failed, error=%w", serveErr)
	}
	return nil
}
