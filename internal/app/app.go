package app

import (
	"context"

	"gitlab.com/nevasik7/alerting/logger"
)

type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

type App struct {
	log     logger.Logger
	httpSrv HTTPServer
	errCh   chan error
}

func NewApp(log logger.Logger, httpSrv HTTPServer) *App {
	return &App{log: log, httpSrv: httpSrv, errCh: make(chan error, 1)}
}

// Start runs the HTTP server in the background, a serve failure lands on Errors
func (a *App) Start() error {
	a.log.Debug("App started begin...")

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil {
			a.log.Errorf("HTTP server is failed, error=%v", err)
			a.errCh <- err
		}
	}()

	a.log.Info("App started")
	return nil
}

func (a *App) Errors() <-chan error {
	return a.errCh
}

func (a *App) Shutdown(ctx context.Context) error {
	a.log.Debug("App stopped begin...")

	if err := a.httpSrv.Shutdown(ctx); err != nil {
		return err
	}

	a.log.Info("App stopped")
	return nil
}
