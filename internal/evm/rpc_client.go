package evm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
)

// HTTPClient implements Reader using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint   string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
	requestID  atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the per-attempt retry delay increment.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new ledger JSON-RPC client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with bounded retries and linear backoff.
// A JSON "null" result is reported as ErrNotFound.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Linear backoff
			delay += c.retryDelay
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if rpcResp.Result == nil || bytes.Equal(rpcResp.Result, []byte("null")) {
			return ErrNotFound
		}

		if result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// LatestBlockNumber returns the current chain head height.
func (c *HTTPClient) LatestBlockNumber(ctx context.Context) (uint64, error) {
	var result string
	if err := c.call(ctx, "eth_blockNumber", nil, &result); err != nil {
		return 0, err
	}
	return HexToUint64(result)
}

// rawBlock is the raw RPC response for eth_getBlockByNumber.
type rawBlock struct {
	Number       string  `json:"number"`
	Hash         string  `json:"hash"`
	Timestamp    string  `json:"timestamp"`
	Transactions []rawTx `json:"transactions"`
}

type rawTx struct {
	Hash     string  `json:"hash"`
	From     string  `json:"from"`
	To       *string `json:"to"`
	Input    string  `json:"input"`
	GasPrice string  `json:"gasPrice"`
	Gas      string  `json:"gas"`
}

// BlockByNumber retrieves a block with full transactions.
func (c *HTTPClient) BlockByNumber(ctx context.Context, number uint64) (*Block, error) {
	params := []interface{}{Uint64ToHex(number), true}

	var result rawBlock
	if err := c.call(ctx, "eth_getBlockByNumber", params, &result); err != nil {
		return nil, err
	}

	block := &Block{
		Number: number,
		Hash:   result.Hash,
	}
	if ts, err := HexToUint64(result.Timestamp); err == nil {
		block.Time = int64(ts)
	}

	for _, raw := range result.Transactions {
		tx := Transaction{
			Hash: raw.Hash,
			From: NormalizeAddress(raw.From),
		}
		if raw.To != nil {
			tx.To = NormalizeAddress(*raw.To)
		}
		if input, err := HexToBytes(raw.Input); err == nil {
			tx.Input = input
		}
		if gasPrice, err := HexToUint64(raw.GasPrice); err == nil {
			tx.GasPriceWei = gasPrice
		}
		if gas, err := HexToUint64(raw.Gas); err == nil {
			tx.Gas = gas
		}
		block.Transactions = append(block.Transactions, tx)
	}

	return block, nil
}

// rawReceipt is the raw RPC response for eth_getTransactionReceipt.
type rawReceipt struct {
	TransactionHash string   `json:"transactionHash"`
	Status          string   `json:"status"`
	ContractAddress *string  `json:"contractAddress"`
	Logs            []rawLog `json:"logs"`
}

type rawLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// TransactionReceipt retrieves the receipt for a mined transaction.
func (c *HTTPClient) TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	params := []interface{}{txHash}

	var result rawReceipt
	if err := c.call(ctx, "eth_getTransactionReceipt", params, &result); err != nil {
		return nil, err
	}

	receipt := &Receipt{TxHash: result.TransactionHash}
	if status, err := HexToUint64(result.Status); err == nil {
		receipt.Status = status
	}
	if result.ContractAddress != nil {
		receipt.ContractAddress = NormalizeAddress(*result.ContractAddress)
	}

	for _, raw := range result.Logs {
		lg := Log{
			Address: NormalizeAddress(raw.Address),
			Topics:  raw.Topics,
		}
		if data, err := HexToBytes(raw.Data); err == nil {
			lg.Data = data
		}
		receipt.Logs = append(receipt.Logs, lg)
	}

	return receipt, nil
}

// CallContract executes a read-only eth_call at the latest block.
func (c *HTTPClient) CallContract(ctx context.Context, to string, data []byte) ([]byte, error) {
	params := []interface{}{
		map[string]string{
			"to":   to,
			"data": BytesToHex(data),
		},
		"latest",
	}

	var result string
	if err := c.call(ctx, "eth_call", params, &result); err != nil {
		return nil, err
	}

	return HexToBytes(result)
}

// Ensure HTTPClient implements Reader
var _ Reader = (*HTTPClient)(nil)
