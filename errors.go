package xcb

import (
	"strings"

	"github.com/pkg/errors"
)

// Returned by PendingTx when the node no longer knows the transaction.
var ErrTxDropped = errors.New("transaction dropped from the mempool")

/*
Failure to reach a node or to make sense of its response: connection errors,
non-2xx HTTP statuses, malformed JSON-RPC frames, closed transports. Errors
reported by the node itself arrive as *RpcError instead.
*/
type TransportError struct {
	Op  string
	Err error
}

func (self TransportError) Error() string {
	return "transport error in " + self.Op + ": " + self.Err.Error()
}

func (self TransportError) Unwrap() error { return self.Err }

func transportErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(TransportError{Op: op, Err: err})
}

// Malformed hex, RLP or JSON input.
type EncodingError struct {
	What string
	Err  error
}

func (self EncodingError) Error() string {
	return "failed to decode " + self.What + ": " + self.Err.Error()
}

func (self EncodingError) Unwrap() error { return self.Err }

func encodingErr(what string, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(EncodingError{What: what, Err: err})
}

// A transaction request that could not be completed for sending.
type FillError struct {
	Field  string
	Reason string
}

func (self FillError) Error() string {
	return "failed to fill " + self.Field + ": " + self.Reason
}

/*
Wraps an error as it crosses a middleware layer. Exactly one of "Err" and
"Inner" is set: "Err" when the layer itself failed, "Inner" when the layer
below it did.
*/
type MiddlewareError struct {
	Layer string
	Err   error
	Inner error
}

func (self *MiddlewareError) Error() string {
	if self.Inner != nil {
		return self.Inner.Error()
	}
	return self.Layer + ": " + self.Err.Error()
}

func (self *MiddlewareError) Unwrap() error {
	if self.Inner != nil {
		return self.Inner
	}
	return self.Err
}

func layerErr(layer string, err error) error {
	if err == nil {
		return nil
	}
	return &MiddlewareError{Layer: layer, Err: err}
}

func innerErr(layer string, err error) error {
	if err == nil {
		return nil
	}
	return &MiddlewareError{Layer: layer, Inner: err}
}

/*
Peels off layers that merely passed an error through. Returns the error raised
by the innermost failing component, or nil if the error was raised by a
middleware layer rather than by something below it.
*/
func AsInner(err error) error {
	for {
		var mw *MiddlewareError
		if !errors.As(err, &mw) {
			return err
		}
		if mw.Inner == nil {
			return nil
		}
		err = mw.Inner
	}
}

// True if the node rejected a transaction because of its nonce.
func IsNonceError(err error) bool {
	var rpcErr *RpcError
	if !errors.As(err, &rpcErr) {
		return false
	}
	msg := strings.ToLower(rpcErr.Message)
	return strings.Contains(msg, "nonce too low") ||
		strings.Contains(msg, "nonce too high") ||
		strings.Contains(msg, "invalid nonce")
}
