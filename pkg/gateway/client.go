package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/angelmondragon/rentmarket-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
)

const (
	defaultBaseURL        = "https://api.sandbox.midtrans.com/v2"
	defaultTimeout        = 15 * time.Second
	expiryLayout          = "2006-01-02 15:04:05"
	responseBodyReadLimit = 64 * 1024
	errorBodyReadLimit    = 1024
)

var errServerKeyRequired = errors.New("gateway server key is required")

// Client talks to the payment gateway Core API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	serverKey  string
	location   *time.Location
	logger     *logger.Logger
	observer   Observer
}

// Observer receives the outcome and latency of every gateway call.
type Observer interface {
	ObserveGateway(operation string, err error, duration time.Duration)
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured Core API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithObserver reports call latency, typically to Prometheus.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithLogger enables request/response logging.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logger = logg
	}
}

// NewClient builds the gateway client from configuration.
func NewClient(cfg config.GatewayConfig, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(cfg.ServerKey)
	if key == "" {
		return nil, errServerKeyRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	loc := time.UTC
	if tz := strings.TrimSpace(cfg.ExpiryTimezone); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load gateway expiry timezone %q: %w", tz, err)
		}
		loc = parsed
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		serverKey:  key,
		location:   loc,
	}
	if cfg.BaseURL != "" {
		client.baseURL = strings.TrimSpace(cfg.BaseURL)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ServerKey returns the shared secret used for notification signatures.
func (c *Client) ServerKey() string {
	if c == nil {
		return ""
	}
	return c.serverKey
}

// Charge creates a payment for req and returns the gateway's response. Any
// transport failure or non-2xx status surfaces as DEPENDENCY_ERROR.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	if strings.TrimSpace(req.TransactionDetails.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal charge request")
	}

	c.log(ctx, "start", "charge", map[string]any{
		"order_number": req.TransactionDetails.OrderID,
		"payment_type": req.PaymentType,
		"gross_amount": req.TransactionDetails.GrossAmount,
		"email":        customerEmail(req.CustomerDetails),
	})

	resp, err := c.do(ctx, http.MethodPost, c.buildURL("charge"), payload, "charge")
	// the Core API reports business failures in the body with HTTP 200
	if err == nil && !resp.Succeeded() {
		err = rejected("charge", resp, pkgerrors.CodeDependency)
	}
	if err != nil {
		c.log(ctx, "error", "charge", map[string]any{"order_number": req.TransactionDetails.OrderID, "error": err.Error()})
		return nil, err
	}

	c.log(ctx, "success", "charge", map[string]any{
		"order_number":       resp.OrderID,
		"transaction_id":     resp.TransactionID,
		"transaction_status": resp.TransactionStatus,
	})
	return resp, nil
}

// Status fetches the current gateway view of an order.
func (c *Client) Status(ctx context.Context, orderID string) (*ChargeResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	trimmed := strings.TrimSpace(orderID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	resp, err := c.do(ctx, http.MethodGet, c.buildURL(url.PathEscape(trimmed)+"/status"), nil, "status")
	if err != nil {
		return nil, err
	}
	// expired or denied transactions answer with 4xx body codes but still
	// carry a transaction_status
	if resp.TransactionStatus == "" {
		code := pkgerrors.CodeDependency
		if strings.TrimSpace(resp.StatusCode) == "404" {
			code = pkgerrors.CodeNotFound
		}
		return nil, rejected("status", resp, code)
	}
	return resp, nil
}

// ParseExpiry interprets expiry_time in the gateway's local time zone.
func (c *Client) ParseExpiry(raw string) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	loc := time.UTC
	if c != nil && c.location != nil {
		loc = c.location
	}
	parsed, err := time.ParseInLocation(expiryLayout, trimmed, loc)
	if err != nil {
		return nil, fmt.Errorf("parse expiry time %q: %w", raw, err)
	}
	utc := parsed.UTC()
	return &utc, nil
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, op string) (out *ChargeResponse, err error) {
	if c.observer != nil {
		start := time.Now()
		defer func() { c.observer.ObserveGateway(op, err, time.Since(start)) }()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("build %s request", op))
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.SetBasicAuth(c.serverKey, "")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("execute %s request", op))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			fmt.Sprintf("gateway %s request failed", op)).
			WithDetails(map[string]any{"http_status": resp.StatusCode})
	}

	var decoded ChargeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(&decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s response", op))
	}
	return &decoded, nil
}

func rejected(op string, out *ChargeResponse, code pkgerrors.Code) error {
	return pkgerrors.Wrap(code,
		fmt.Errorf("status_code %s: %s", out.StatusCode, out.StatusMessage),
		fmt.Sprintf("gateway %s rejected", op)).
		WithDetails(map[string]any{"status_code": out.StatusCode, "status_message": out.StatusMessage})
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("gateway.%s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("gateway.%s.%s", op, phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"key", "secret", "email", "phone", "token"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func customerEmail(details *CustomerDetails) string {
	if details == nil {
		return ""
	}
	return details.Email
}
