package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/achupradeep3050/crypto/internal/domain"
	"go.uber.org/zap"
)

// URLSource yields the current gateway base URL. config.Settings satisfies it.
type URLSource interface {
	GatewayURL() string
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// AgentClient talks to the execution agent over HTTP. The base URL is read
// on every call so a settings change applies to the next request.
type AgentClient struct {
	urls   URLSource
	client *http.Client
	logger *zap.Logger
}

func NewAgentClient(urls URLSource, logger *zap.Logger) *AgentClient {
	return &AgentClient{
		urls: urls,
		// no client-wide cap; callers bound each call with a context deadline
		client: &http.Client{},
		logger: logger,
	}
}

func (c *AgentClient) sendRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(jsonBody)
	}

	base := strings.TrimRight(c.urls.GatewayURL(), "/")
	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}

// GetCandles returns the newest n bars, oldest first.
func (c *AgentClient) GetCandles(ctx context.Context, symbol, timeframe string, n int) ([]domain.Candle, error) {
	path := fmt.Sprintf("/data/%s/%s?n=%d", url.PathEscape(symbol), url.PathEscape(timeframe), n)
	resp, err := c.sendRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Time       int64   `json:"time"`
		Open       float64 `json:"open"`
		High       float64 `json:"high"`
		Low        float64 `json:"low"`
		Close      float64 `json:"close"`
		TickVolume float64 `json:"tick_volume"`
	}
	if err := json.Unmarshal(resp, &rows); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no candles for %s %s", domain.ErrDataUnavailable, symbol, timeframe)
	}

	candles := make([]domain.Candle, 0, len(rows))
	for _, r := range rows {
		candles = append(candles, domain.Candle{
			Time:   r.Time,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.TickVolume,
		})
	}
	return candles, nil
}

func (c *AgentClient) GetAccount(ctx context.Context) (*domain.AccountSnapshot, error) {
	resp, err := c.sendRequest(ctx, http.MethodGet, "/account", nil)
	if err != nil {
		return nil, err
	}

	var acc domain.AccountSnapshot
	if err := json.Unmarshal(resp, &acc); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	acc.UpdatedAt = time.Now()
	return &acc, nil
}

func (c *AgentClient) SubmitOrder(ctx context.Context, order domain.OrderRequest) (*domain.OrderResult, error) {
	resp, err := c.sendRequest(ctx, http.MethodPost, "/trade", order)
	if err != nil {
		return nil, err
	}

	var result domain.OrderResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("decode order result: %w", err)
	}

	c.logger.Info("Order accepted",
		zap.String("symbol", order.Symbol),
		zap.Int64("order", result.Order),
		zap.Int("retcode", result.Retcode))
	return &result, nil
}

// Ping checks the agent root endpoint and returns its service name.
func (c *AgentClient) Ping(ctx context.Context) (string, error) {
	resp, err := c.sendRequest(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return "", err
	}
	var status struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	if err := json.Unmarshal(resp, &status); err != nil {
		return "", fmt.Errorf("decode status: %w", err)
	}
	return fmt.Sprintf("%s (%s)", status.Service, status.Status), nil
}
