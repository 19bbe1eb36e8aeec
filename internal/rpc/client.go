// Package rpc implements the JSON-RPC client for the remote ledger
// endpoint: clock reads, ledger account initialization, and event
// submission.
package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pathledger/pathledger/internal/errors"
	"github.com/pathledger/pathledger/internal/event"
	"github.com/pathledger/pathledger/internal/ratelimit"
)

const (
	// Clock reads happen before every submission; keep them polite.
	defaultClockRPS   = 2.0
	defaultClockBurst = 5

	defaultTimeout = 30 * time.Second

	methodGetClock    = "getClock"
	methodInitAccount = "initAccount"
	methodSubmitEvent = "submitEvent"
)

// Config holds the remote ledger connection settings.
type Config struct {
	// Endpoint is the HTTP URL of the ledger's JSON-RPC interface.
	Endpoint string
	// AgentID identifies this agent's ledger account.
	AgentID string
	// Timeout bounds each HTTP round trip. Zero means the default.
	Timeout time.Duration
	// ClockRPS limits clock reads per second. Zero means the default.
	ClockRPS float64
}

// Client is a rate-limited JSON-RPC client for the remote ledger.
type Client struct {
	http     *http.Client
	limiter  *ratelimit.MethodLimiter
	logger   *slog.Logger
	endpoint string
	agentID  string
}

// New creates a ledger RPC client.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.Configuration("ledger endpoint is required")
	}
	if cfg.AgentID == "" {
		return nil, errors.Configuration("agent id is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	rps := cfg.ClockRPS
	if rps == 0 {
		rps = defaultClockRPS
	}

	return &Client{
		http:     &http.Client{Timeout: timeout},
		limiter:  ratelimit.New(rps, defaultClockBurst),
		logger:   logger,
		endpoint: cfg.Endpoint,
		agentID:  cfg.AgentID,
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse[T any] struct {
	Result *T        `json:"result"`
	Error  *rpcError `json:"error"`
}

// clockResult is the getClock response payload.
type clockResult struct {
	UnixTimestamp int64 `json:"unixTimestamp"`
}

// accountParams identifies the agent's ledger account.
type accountParams struct {
	AgentID string `json:"agentId"`
}

// submitParams carries one wire-encoded event.
type submitParams struct {
	AgentID string `json:"agentId"`
	Event   string `json:"event"` // base64 of the wire encoding
}

// Clock reads the remote ledger's current time in unix seconds. Calls
// are rate limited so a busy event stream cannot flood the endpoint
// with clock reads.
func (c *Client) Clock(ctx context.Context) (int64, error) {
	if err := c.limiter.Wait(ctx, methodGetClock); err != nil {
		return 0, errors.Wrap(err, errors.CodeTransport, "rate limit wait")
	}

	result, err := call[clockResult](ctx, c, methodGetClock, nil)
	if err != nil {
		return 0, err
	}
	return result.UnixTimestamp, nil
}

// InitAccount creates this agent's ledger account. An account that
// already exists is success: initialization is idempotent across agent
// restarts.
func (c *Client) InitAccount(ctx context.Context) error {
	_, err := call[struct{}](ctx, c, methodInitAccount, accountParams{AgentID: c.agentID})
	if err != nil {
		if errors.Is(err, errors.ErrRejected) && strings.Contains(err.Error(), "already in use") {
			c.logger.Info("ledger account already initialized", "agent_id", c.agentID)
			return nil
		}
		return err
	}

	c.logger.Info("ledger account initialized", "agent_id", c.agentID)
	return nil
}

// SubmitEvent sends one event to the remote ledger in its wire
// encoding.
func (c *Client) SubmitEvent(ctx context.Context, ev event.Event) error {
	params := submitParams{
		AgentID: c.agentID,
		Event:   base64.StdEncoding.EncodeToString(event.MarshalEvent(ev)),
	}

	if _, err := call[struct{}](ctx, c, methodSubmitEvent, params); err != nil {
		return err
	}

	c.logger.Debug("event submitted", "path", ev.Path, "type", ev.Type.String())
	return nil
}

// call executes one JSON-RPC round trip and decodes the typed result.
// Failures to reach or speak to the endpoint are Transport errors; an
// error the endpoint itself returned is Rejected.
func call[T any](ctx context.Context, c *Client, method string, params any) (T, error) {
	var zero T

	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return zero, errors.Wrapf(err, errors.CodeSerialization, "marshal %s request", method)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return zero, errors.Wrapf(err, errors.CodeTransport, "create %s request", method)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("ledger rpc", "method", method)

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, errors.Wrapf(err, errors.CodeTransport, "execute %s request", method)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, errors.Wrapf(err, errors.CodeTransport, "read %s response", method)
	}

	if resp.StatusCode != http.StatusOK {
		return zero, errors.Transportf("%s returned status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse[T]
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return zero, errors.Wrapf(err, errors.CodeSerialization, "decode %s response", method)
	}

	if rpcResp.Error != nil {
		return zero, errors.Rejectedf("%s rejected: %s (code %d)", method, rpcResp.Error.Message, rpcResp.Error.Code)
	}
	if rpcResp.Result == nil {
		return zero, errors.Serializationf("%s response has neither result nor error", method)
	}
	return *rpcResp.Result, nil
}
