package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
	"walletpnl/internal/scheduler"
	"walletpnl/internal/service"
	"walletpnl/pkg/httputil"

	"gitlab.com/nevasik7/alerting/logger"
)

const readinessTimeout = 5 * time.Second

// WalletAnalyzer is the part of the wallet service the API depends on
type WalletAnalyzer interface {
	AnalyzeWallet(ctx context.Context, address string, limit int, before string) (*service.Report, error)
	Limiters() []scheduler.Stats
}

// Check reports the health of one external dependency
type Check func(ctx context.Context) error

type Handler struct {
	Log    logger.Logger
	Wallet WalletAnalyzer
	Checks map[string]Check // redis, nats... only the enabled ones
}

func NewHandler(log logger.Logger, wallet WalletAnalyzer, checks map[string]Check) *Handler {
	if wallet == nil {
		panic("wallet service cannot be nil")
	}
	if checks == nil {
		checks = map[string]Check{}
	}

	return &Handler{Log: log, Wallet: wallet, Checks: checks}
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	if err := httputil.JSON(w, http.StatusOK, map[string]any{}, nil); err != nil {
		h.Log.Errorf("Healthz handler error: %s", err.Error())
	}
}

// Readiness pings every configured dependency
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if failed := h.checkDependencies(ctx); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for name := range failed {
			names = append(names, name)
		}
		sort.Strings(names)

		err := httputil.Error(w, r, http.StatusServiceUnavailable, httputil.CodeDependenciesUnhealthy,
			fmt.Sprintf("dependencies check failed: %s", strings.Join(names, ", ")), failed)
		if err != nil {
			h.Log.Errorf("Readiness handler error: %s", err.Error())
		}
		return
	}

	if err := httputil.JSON(w, http.StatusOK, map[string]string{"dependencies": "healthy"}, nil); err != nil {
		h.Log.Errorf("Readiness handler error: %s", err.Error())
	}
}

func (h *Handler) checkDependencies(ctx context.Context) map[string]string {
	failed := make(map[string]string)
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			h.Log.Warnf("Dependency %s is unhealthy, error=%v", name, err)
			failed[name] = err.Error()
		}
	}

	return failed
}
