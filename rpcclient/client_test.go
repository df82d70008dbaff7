package rpcclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "eth_chainId", req.Method)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "0x1",
		})
	}))
	defer server.Close()

	var result string
	err := New(0).Call(context.Background(), server.URL, "eth_chainId", &result)

	require.NoError(t, err)
	assert.Equal(t, "0x1", result)
}

func TestCallTimeoutIsTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	err := New(50 * time.Millisecond).Call(context.Background(), server.URL, "eth_gasPrice", nil)

	require.Error(t, err)
	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, KindTransport, rpcErr.Kind)
}

func TestCallErrorEnvelopeIsProtocol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32000, "message": "header not found"},
		})
	}))
	defer server.Close()

	var result string
	err := New(0).Call(context.Background(), server.URL, "eth_getBlockByNumber", &result, "latest", false)

	require.Error(t, err)
	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, KindProtocol, rpcErr.Kind)
	// The RPC error message is propagated as the failure reason.
	assert.Contains(t, err.Error(), "header not found")
}

func TestCallConnectionRefusedIsTransport(t *testing.T) {
	err := New(time.Second).Call(context.Background(), "http://127.0.0.1:1", "eth_gasPrice", nil)

	require.Error(t, err)
	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, KindTransport, rpcErr.Kind)
}
