package evm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPClient_LatestBlockNumber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "eth_blockNumber" {
			t.Errorf("expected method eth_blockNumber, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "0x4cb2f",
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	n, err := client.LatestBlockNumber(context.Background())
	if err != nil {
		t.Fatalf("LatestBlockNumber: %v", err)
	}
	if n != 0x4cb2f {
		t.Errorf("expected 0x4cb2f, got %#x", n)
	}
}

func TestHTTPClient_BlockByNumber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "eth_getBlockByNumber" {
			t.Errorf("expected method eth_getBlockByNumber, got %s", req.Method)
		}
		if len(req.Params) != 2 || req.Params[0] != "0x10" || req.Params[1] != true {
			t.Errorf("unexpected params: %v", req.Params)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"number":    "0x10",
				"hash":      "0xabc",
				"timestamp": "0x65432100",
				"transactions": []map[string]interface{}{
					{
						"hash":     "0xdead",
						"from":     "0xAAAABBBBCCCCDDDDEEEEFFFF0000111122223333",
						"to":       "0x4444555566667777888899990000AAAABBBBCCCC",
						"input":    "0x519ebb10",
						"gasPrice": "0x12a05f200", // 5 gwei
						"gas":      "0x30d40",
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	block, err := client.BlockByNumber(context.Background(), 16)
	if err != nil {
		t.Fatalf("BlockByNumber: %v", err)
	}

	if block.Number != 16 {
		t.Errorf("expected number 16, got %d", block.Number)
	}
	if block.Time != 0x65432100 {
		t.Errorf("expected time %d, got %d", 0x65432100, block.Time)
	}
	if len(block.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(block.Transactions))
	}

	tx := block.Transactions[0]
	if tx.From != "0xaaaabbbbccccddddeeeeffff0000111122223333" {
		t.Errorf("from not normalized: %s", tx.From)
	}
	if tx.To != "0x4444555566667777888899990000aaaabbbbcccc" {
		t.Errorf("to not normalized: %s", tx.To)
	}
	if tx.GasPriceWei != 5_000_000_000 {
		t.Errorf("expected gas price 5 gwei, got %d wei", tx.GasPriceWei)
	}
	if tx.Gas != 200_000 {
		t.Errorf("expected gas 200000, got %d", tx.Gas)
	}
	if len(tx.Input) != 4 {
		t.Errorf("expected 4-byte input, got %d bytes", len(tx.Input))
	}
}

func TestHTTPClient_NullResultIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  nil,
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	_, err := client.TransactionReceipt(context.Background(), "0xmissing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if IsTransient(err) {
		t.Error("ErrNotFound must not be classified transient")
	}
}

func TestHTTPClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "0x1",
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(5*time.Millisecond),
	)

	n, err := client.LatestBlockNumber(context.Background())
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1, got %d", n)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestHTTPClient_CallContract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "eth_call" {
			t.Errorf("expected method eth_call, got %s", req.Method)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "0x00000000000000000000000000000000000000000000000000000000000000ff",
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	out, err := client.CallContract(context.Background(), "0xplatform", []byte{0x51, 0x9e, 0xbb, 0x10})
	if err != nil {
		t.Fatalf("CallContract: %v", err)
	}
	if len(out) != 32 {
		t.Fatalf("expected 32-byte word, got %d", len(out))
	}
	if out[31] != 0xff {
		t.Errorf("expected last byte 0xff, got %#x", out[31])
	}
}

func TestWordAddress(t *testing.T) {
	data := make([]byte, 64)
	copy(data[44:64], []byte{
		0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa,
		0xbb, 0xcc, 0xdd, 0xee, 0xff, 0x00, 0x11, 0x22, 0x33, 0x44,
	})

	addr, ok := WordAddress(data, 32)
	if !ok {
		t.Fatal("expected address in second word")
	}
	if addr != "0x112233445566778899aabbccddeeff0011223344" {
		t.Errorf("unexpected address: %s", addr)
	}

	if _, ok := WordAddress(data, 64); ok {
		t.Error("expected out-of-range offset to fail")
	}
}
