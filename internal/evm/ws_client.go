package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Head is a minimal view of a newHeads notification.
type Head struct {
	Number uint64
}

// HeadClientConfig configures the head subscription client.
type HeadClientConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is the maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultHeadClientConfig returns default head client configuration.
func DefaultHeadClientConfig() HeadClientConfig {
	return HeadClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// HeadClient subscribes to newHeads over a websocket endpoint. It carries
// a single subscription and resubscribes after reconnects. Heads are a
// liveness hint for the scanner, so the notification channel drops under
// backpressure instead of blocking the reader.
type HeadClient struct {
	endpoint string
	config   HeadClientConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	heads chan Head
	subID string
	subMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewHeadClient connects to the endpoint and subscribes to newHeads.
func NewHeadClient(ctx context.Context, endpoint string, config *HeadClientConfig) (*HeadClient, error) {
	cfg := DefaultHeadClientConfig()
	if config != nil {
		cfg = *config
	}

	c := &HeadClient{
		endpoint: endpoint,
		config:   cfg,
		heads:    make(chan Head, 64),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	if err := c.subscribe(); err != nil {
		c.conn.Close()
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// Heads returns the channel of incoming head notifications. The channel
// is closed when the client is closed.
func (c *HeadClient) Heads() <-chan Head {
	return c.heads
}

// connect establishes the websocket connection.
func (c *HeadClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// subscribe sends the eth_subscribe request and waits for the
// subscription ID on the same connection.
func (c *HeadClient) subscribe() error {
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_subscribe",
		Params:  []interface{}{"newHeads"},
	}

	c.connMu.Lock()
	conn := c.conn
	if conn == nil {
		c.connMu.Unlock()
		return fmt.Errorf("not connected")
	}
	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := conn.WriteJSON(req)
	c.connMu.Unlock()
	if err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read subscribe response: %w", err)
	}

	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		return fmt.Errorf("unmarshal subscribe response: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("subscribe rejected: %s", resp.Error.Message)
	}
	if resp.Result == "" {
		return fmt.Errorf("subscribe returned empty subscription id")
	}

	c.subMu.Lock()
	c.subID = resp.Result
	c.subMu.Unlock()
	return nil
}

// Close closes the websocket connection and the heads channel.
func (c *HeadClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	close(c.heads)
	return nil
}

// readLoop reads messages and dispatches head notifications.
func (c *HeadClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay *= 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect re-dials and resubscribes after a connection error.
func (c *HeadClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, next read error triggers another attempt
		return
	}

	if err := c.subscribe(); err != nil {
		c.connMu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.connMu.Unlock()
	}
}

// handleMessage processes one incoming websocket message.
func (c *HeadClient) handleMessage(message []byte) {
	var notif wsHeadNotification
	if err := json.Unmarshal(message, &notif); err != nil {
		return
	}
	if notif.Method != "eth_subscription" || notif.Params == nil {
		return
	}

	c.subMu.Lock()
	subID := c.subID
	c.subMu.Unlock()
	if notif.Params.Subscription != subID {
		return
	}

	number, err := HexToUint64(notif.Params.Result.Number)
	if err != nil {
		return
	}

	select {
	case c.heads <- Head{Number: number}:
	default:
		// Scanner polls anyway; a dropped hint is harmless.
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *HeadClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string   `json:"jsonrpc"`
	ID      uint64   `json:"id"`
	Result  string   `json:"result"` // subscription ID
	Error   *wsError `json:"error"`
}

type wsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wsHeadNotification struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  *wsHeadParams `json:"params"`
}

type wsHeadParams struct {
	Subscription string       `json:"subscription"`
	Result       wsHeadResult `json:"result"`
}

type wsHeadResult struct {
	Number string `json:"number"`
}
