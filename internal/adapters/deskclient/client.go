// Package deskclient is the client library for the trading desk server.
// It serializes orders to the desk wire format and posts them over HTTP.
package deskclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"tradingdesk/internal/domain"
	"tradingdesk/internal/ports"
	"tradingdesk/internal/protos/orders"
)

const (
	defaultServerURL = "http://localhost:8080"
	defaultUserID    = "default_user"
	defaultTimeout   = 10 * time.Second

	contentType = "application/x-protobuf"
)

// Client implements the ports.OrderPlacer interface against the desk server's
// POST /order endpoint. One synchronous request per call, no retry, no
// backoff; a transport failure is returned to the caller as-is.
//
// Each Client owns its own configuration; nothing is process-global. Calls
// are expected to be sequential within one strategy process, so SetUserID
// carries no thread-safety guarantee.
type Client struct {
	serverURL  string
	userID     string
	httpClient *http.Client
	logger     ports.Logger
	out        io.Writer
}

// Config holds configuration specific to the desk client.
type Config struct {
	ServerURL string        // empty: $DESK_SERVER_URL, then http://localhost:8080
	UserID    string        // empty: $USER_ID, then "default_user"
	Timeout   time.Duration // request timeout; <= 0 means 10s
	Logger    ports.Logger
	Out       io.Writer // destination for order report lines; nil means os.Stdout
}

// New creates a new desk client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for desk client")
	}

	serverURL := cfg.ServerURL
	if serverURL == "" {
		serverURL = envOr("DESK_SERVER_URL", defaultServerURL)
	}
	userID := cfg.UserID
	if userID == "" {
		userID = envOr("USER_ID", defaultUserID)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	cfg.Logger.Info(context.Background(), "Desk client configured",
		map[string]interface{}{"serverURL": serverURL, "userID": userID, "timeout": timeout.String()})

	return &Client{
		serverURL:  serverURL,
		userID:     userID,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
		out:        out,
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SetUserID changes the identity attached to all subsequent requests.
func (c *Client) SetUserID(userID string) {
	c.userID = userID
}

// ServerURL returns the configured server URL.
func (c *Client) ServerURL() string {
	return c.serverURL
}

// PlaceOrder submits one order to the desk server and returns the decoded
// response. Empty OrderType and TimeInForce default to market/day; empty
// limit and stop prices are omitted from the wire message, so an explicit
// empty value cannot be distinguished from an absent one. No further
// client-side validation happens: the server owns enum and numeric checks,
// and its rejections come back as a failure-status response, not an error.
//
// The outcome is also reported as a single line on the configured output
// stream, which callers scraping console output rely on.
func (c *Client) PlaceOrder(ctx context.Context, params ports.OrderParams) (*orders.OrderResponse, error) {
	orderType := params.OrderType
	if orderType == "" {
		orderType = domain.DefaultOrderType
	}
	tif := params.TimeInForce
	if tif == "" {
		tif = domain.DefaultTimeInForce
	}

	req := &orders.OrderRequest{
		Symbol:      params.Symbol,
		Qty:         params.Qty,
		Side:        string(params.Side),
		OrderType:   string(orderType),
		TimeInForce: string(tif),
		LimitPrice:  params.LimitPrice,
		StopPrice:   params.StopPrice,
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/order", bytes.NewReader(req.Marshal()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("X-User-ID", c.userID)

	c.logger.Debug(ctx, "Submitting order",
		map[string]interface{}{"symbol": req.Symbol, "qty": req.Qty, "side": req.Side, "orderType": req.OrderType})

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Transport failures propagate unmodified; the caller decides
		// whether to continue its input loop.
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	resp := &orders.OrderResponse{}
	if err := resp.Unmarshal(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrDecodeResponse, err)
	}

	if resp.Status == "success" {
		fmt.Fprintf(c.out, "✓ Order placed: %s - %s %s %s\n", resp.OrderID, resp.Symbol, resp.Qty, resp.Side)
	} else {
		fmt.Fprintf(c.out, "✗ Order failed: %s\n", resp.Message)
	}

	return resp, nil
}
