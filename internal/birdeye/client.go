package birdeye

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"walletpnl/internal/config"
	"walletpnl/internal/domain"

	"gitlab.com/nevasik7/alerting/logger"
)

const maxErrorBody = 512

// HTTPError is returned for any non-2xx answer; StatusCode lets the scheduler classify 429 as throttling
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("birdeye responded with status=%d body=%q", e.Status, e.Body)
}

func (e *HTTPError) StatusCode() int { return e.Status }

type historyResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Items []domain.PricePoint `json:"items"`
	} `json:"data"`
}

// Client fetches one chunk of token price history per call. Pacing is the caller's concern.
type Client struct {
	log       logger.Logger
	http      *http.Client
	baseURL   string
	apiKey    string
	chain     string
	timeframe string
}

func New(log logger.Logger, cfg *config.BirdeyeConfig, httpClient *http.Client) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required to the birdeye client")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("birdeye base url is required")
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	chain := cfg.Chain
	if chain == "" {
		chain = "solana"
	}
	timeframe := cfg.Timeframe
	if timeframe == "" {
		timeframe = "30m"
	}

	if cfg.APIKey == "" {
		log.Warn("Birdeye api key is empty, requests will be sent without X-API-KEY")
	}

	return &Client{
		log:       log,
		http:      httpClient,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		chain:     chain,
		timeframe: timeframe,
	}, nil
}

// HistoryChunk returns the samples BirdEye has for mint in [from, to]. success=false or no items is an empty chunk, not an error.
func (c *Client) HistoryChunk(ctx context.Context, mint string, from, to int64) ([]domain.PricePoint, error) {
	q := url.Values{}
	q.Set("address", mint)
	q.Set("address_type", "token")
	q.Set("type", c.timeframe)
	q.Set("time_from", strconv.FormatInt(from, 10))
	q.Set("time_to", strconv.FormatInt(to, 10))
	q.Set("ui_amount_mode", "raw")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/history_price?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build birdeye request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-chain", c.chain)
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("birdeye request for %s failed: %w", mint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	var out historyResponse
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode birdeye response for %s: %w", mint, err)
	}

	if !out.Success || len(out.Data.Items) == 0 {
		c.log.Debugf("Birdeye returned no items for mint=%s from=%d to=%d", mint, from, to)
		return nil, nil
	}

	return out.Data.Items, nil
}
