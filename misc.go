package xcb

import (
	"time"
	"unsafe"

	"go.uber.org/zap"
)

// "Magic" words understood by RPC methods that expect a block number.
const (
	BlockNumberEarliest  = "earliest"
	BlockNumberLatest    = "latest"
	BlockNumberPending   = "pending"
	BlockNumberFinalized = "finalized"
	BlockNumberSafe      = "safe"
)

// Zero-initialized arrays for equality comparisons.
var (
	ZeroAddress Address
	ZeroWord    Word
	ZeroHash    Hash
	ZeroBloom   Bloom
)

var (
	// Determines the default reconnect interval of long-lived RPC transports,
	// such as WsTrans. Configurable on per-transport basis.
	defaultReconnectInterval = time.Second

	// Polling interval of providers and pending transactions. Matches the
	// expected block time of the public networks.
	defaultPollInterval = 7 * time.Second

	// Polling interval for nodes running on the local machine.
	localPollInterval = 2 * time.Second

	// How many polls a pending transaction survives while the node doesn't
	// know about it.
	defaultRetries = 3
)

// Nil loggers are allowed everywhere and discard their output.
func logger(log *zap.SugaredLogger) *zap.SugaredLogger {
	if log == nil {
		return zap.NewNop().Sugar()
	}
	return log
}

/*
Reinterprets a byte slice as a string, saving an allocation. The bytes must not
be modified afterwards.
*/
func bytesToMutableString(bytes []byte) string {
	if len(bytes) == 0 {
		return ""
	}
	return unsafe.String(&bytes[0], len(bytes))
}

/*
Returns a byte slice backed by the provided string. The bytes must be treated as
read-only: strings may live in constant storage.
*/
func stringToBytesUnsafe(str string) []byte {
	if len(str) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(str), len(str))
}

// Launches a goroutine, returning a channel that will close on completion,
// transmitting its error or panic, if any.
func gogo(fun func() error) chan error {
	out := make(chan error, 1)

	go func() {
		defer func() {
			err, _ := recover().(error)
			if err != nil {
				select {
				case out <- err:
				default:
				}
			}
			close(out)
		}()

		err := fun()
		if err != nil {
			out <- err
		}
	}()

	return out
}
