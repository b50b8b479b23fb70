package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"walletpnl/internal/domain"
	"walletpnl/internal/scheduler"
	"walletpnl/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

// Trades analyzes one page of a wallet's history: GET /api/trades/{address}?limit=N&before=SIG
func (h *Handler) Trades(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(chi.URLParam(r, "address"))

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, r, http.StatusBadRequest, httputil.CodeBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	before := strings.TrimSpace(r.URL.Query().Get("before"))

	report, err := h.Wallet.AnalyzeWallet(r.Context(), address, limit, before)
	if err != nil {
		status, code := classifyError(err)
		if status >= http.StatusInternalServerError {
			h.Log.Errorf("Failed analyze wallet %s, error=%v", address, err)
		}
		h.writeError(w, r, status, code, err.Error())
		return
	}

	if err = httputil.JSON(w, http.StatusOK, report, map[string]string{"Cache-Control": "no-store"}); err != nil {
		h.Log.Errorf("Trades handler error: %s", err.Error())
	}
}

// Limiters exposes the live state of the outbound schedulers
func (h *Handler) Limiters(w http.ResponseWriter, _ *http.Request) {
	stats := h.Wallet.Limiters()
	if stats == nil {
		stats = []scheduler.Stats{}
	}

	if err := httputil.JSON(w, http.StatusOK, stats, nil); err != nil {
		h.Log.Errorf("Limiters handler error: %s", err.Error())
	}
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEmptyAddress),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidCursor):
		return http.StatusBadRequest, httputil.CodeBadRequest
	case errors.Is(err, scheduler.ErrRateLimited):
		return http.StatusServiceUnavailable, httputil.CodeUpstreamThrottled
	default:
		return http.StatusBadGateway, httputil.CodeUpstreamFailed
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if err := httputil.Error(w, r, status, code, message, nil); err != nil {
		h.Log.Errorf("Failed write error response, error=%v", err)
	}
}
