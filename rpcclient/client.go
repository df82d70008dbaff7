package rpcclient

import (
	"context"
	"fmt"
	"net"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

// DefaultTimeout bounds a single RPC call, dial included.
const DefaultTimeout = 10 * time.Second

// ErrorKind classifies an RPC failure.
type ErrorKind string

const (
	// KindTransport covers timeouts, dial failures and broken connections.
	KindTransport ErrorKind = "transport"
	// KindProtocol covers JSON-RPC error envelopes and malformed bodies.
	KindProtocol ErrorKind = "protocol"
)

// Error is the failure surfaced by Client.Call. The resolver layer treats
// both kinds identically (try the next endpoint); Kind exists for logging.
type Error struct {
	Endpoint string
	Method   string
	Kind     ErrorKind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc %s %s failed (%s): %v", e.Method, e.Endpoint, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client issues single JSON-RPC calls with a bounded timeout. It performs no
// retries; endpoint fallback is the resolver's responsibility.
type Client struct {
	timeout time.Duration
}

// New creates a new RPC client instance.
//
// Parameters:
// - timeout: the per-call timeout. Zero selects DefaultTimeout.
//
// Returns:
// - *Client: the new client instance.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{timeout: timeout}
}

// Call dials the endpoint and issues one JSON-RPC request, decoding the
// result into result. The in-flight request is cancelled when the timeout
// expires.
//
// Parameters:
// - ctx: the context for managing the request.
// - endpoint: the RPC endpoint URL.
// - method: the JSON-RPC method name.
// - result: the destination for the decoded result, may be nil.
// - params: the positional JSON-RPC parameters.
//
// Returns:
// - error: an *Error describing the failure, nil on success.
func (c *Client) Call(ctx context.Context, endpoint string, method string, result interface{}, params ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := gethrpc.DialContext(ctx, endpoint)
	if err != nil {
		return &Error{Endpoint: endpoint, Method: method, Kind: KindTransport, Err: err}
	}
	defer conn.Close()

	if err := conn.CallContext(ctx, result, method, params...); err != nil {
		return &Error{Endpoint: endpoint, Method: method, Kind: classify(err), Err: err}
	}

	return nil
}

// classify maps a call failure to its error kind. Context expiry and network
// failures are transport errors; everything else (error envelopes, bodies
// that fail to decode) is a protocol error.
func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransport
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransport
	}

	return KindProtocol
}
