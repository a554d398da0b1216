package xcb

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const jsonRpcVersion = "2.0"

var errDisconnected = errors.New("disconnected from RPC server")

/*
Common interface implemented by RPC transports. Obtained via "Dial" and passed
to the various RPC functions.
*/
type Trans interface {
	/**
	Should make an RPC request and decode the response body into `out`, which
	must be a pointer. Node-reported failures are returned as *RpcError, anything
	else as TransportError.
	*/
	Call(ctx context.Context, out interface{}, method string, params ...interface{}) error

	/**
	Should register a subscription and block until it's finished, sending values
	over the provided channel and returning the error that interrupted it, if
	any. Before returning, should always close the output channel and, if
	possible, send an unsubscribe command to the server.

	In case of non-cancelation error, the caller is expected to wait via
	`.Connected()`, then retry.

	If the channel is full, new values may be dropped. The caller is responsible
	for ensuring the channel has enough space.
	*/
	Subscribe(ctx context.Context, out chan []byte, params ...interface{}) error

	/**
	Should return a channel that becomes closed when the transport is connected.
	Stateless transports such as HTTP should always return a closed channel.
	*/
	Connected() chan struct{}
}

/*
Chooses the appropriate transport for the given URL. Waits until connected, if
possible. The optional logger is used for background logging, if that's relevant
for the chosen transport.
*/
func Dial(rpcPath string, log *zap.SugaredLogger) (Trans, error) {
	rpcUrl, err := url.Parse(rpcPath)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	switch rpcUrl.Scheme {
	case "ws", "wss":
		return DialWs(*rpcUrl, log)
	case "http", "https":
		return HttpTrans{Url: *rpcUrl}, nil
	}
	return nil, errors.Errorf("unsupported RPC path: %v", rpcPath)
}

// Stateless HTTP transport. Doesn't support subscriptions.
type HttpTrans struct {
	Url url.URL

	// Defaults to "http.DefaultClient".
	Client *http.Client
}

// Since an HTTP transport is "always connected", this returns a channel that's
// always closed.
func (self HttpTrans) Connected() chan struct{} { return alwaysConnected }

var alwaysConnected = func() chan struct{} {
	out := make(chan struct{})
	close(out)
	return out
}()

func (self HttpTrans) client() *http.Client {
	if self.Client != nil {
		return self.Client
	}
	return http.DefaultClient
}

// Makes an RPC call.
func (self HttpTrans) Call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	var body bytes.Buffer
	err := json.NewEncoder(&body).Encode(rpcRequest{
		Jsonrpc: jsonRpcVersion,
		Id:      randomId(),
		Method:  method,
		Params:  nonNilParams(params),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, self.Url.String(), &body)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := self.client().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.WithStack(ctx.Err())
		}
		return transportErr(method, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		bytes, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return transportErr(method, errors.Errorf("%s\n%s", res.Status, bytes))
	}

	rpcRes := rpcResponse{Result: out}
	err = json.NewDecoder(res.Body).Decode(&rpcRes)
	if err != nil {
		return transportErr(method, errors.Wrap(err, "failed to decode RPC response"))
	}
	// Note: `error((*RpcError)(nil)) != nil` !!!
	if rpcRes.Error != nil {
		return errors.WithStack(rpcRes.Error)
	}
	return nil
}

// Not implemented for the HTTP transport. Always returns an error.
func (self HttpTrans) Subscribe(_ context.Context, out chan []byte, _ ...interface{}) error {
	close(out)
	return transportErr("subscribe", errors.New("HTTP RPC transport doesn't support streaming"))
}

/*
Stateful websocket transport. Supports RPC calls, subscriptions, and automatic
reconnect. The ".ReconnectInterval" property defaults to 1s, can be modified.
*/
type WsTrans struct {
	Url               url.URL
	Logger            *zap.SugaredLogger
	ReconnectInterval time.Duration

	stateLock sync.Mutex
	connected chan struct{}
	conn      *websocket.Conn
	closed    chan struct{}
	closeOnce sync.Once

	// Unavoidable bottleneck
	writeLock sync.Mutex

	subLock sync.Mutex
	subs    map[string]chan either
}

/*
Attempts to establish a websocket connection to the RPC node at the given URL.
Waits until the connection is established. Starts a background loop that
reconnects on failure until "Close" is called.
*/
func DialWs(url url.URL, log *zap.SugaredLogger) (*WsTrans, error) {
	transport := &WsTrans{
		Url:               url,
		Logger:            logger(log),
		ReconnectInterval: defaultReconnectInterval,
		connected:         make(chan struct{}),
		closed:            make(chan struct{}),
		subs:              map[string]chan either{},
	}

	err := transport.connect()
	if err != nil {
		return nil, err
	}

	go transport.run()
	return transport, nil
}

func (self *WsTrans) run() {
	for {
		err := self.receiveLoop()
		if self.isClosed() {
			return
		}
		self.Logger.Warnw("disconnected from RPC node", "url", self.Url.String(), "error", err)

		for {
			self.Logger.Debugw("waiting before reconnecting", "url", self.Url.String())

			select {
			case <-self.closed:
				return
			case <-time.After(self.ReconnectInterval):
			}

			err := self.connect()
			if err == nil {
				self.Logger.Infow("reconnected to RPC node", "url", self.Url.String())
				break
			}
			self.Logger.Warnw("failed to connect to RPC node", "url", self.Url.String(), "error", err)
		}
	}
}

func (self *WsTrans) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(self.Url.String(), nil)
	if err != nil {
		return transportErr("connect", err)
	}

	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	if self.isClosed() {
		conn.Close()
		return transportErr("connect", errDisconnected)
	}
	self.conn = conn
	close(self.connected)
	return nil
}

func (self *WsTrans) currentConn() *websocket.Conn {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.conn
}

func (self *WsTrans) receiveLoop() error {
	conn := self.currentConn()

	defer func() {
		self.stateLock.Lock()
		self.connected = make(chan struct{})
		self.stateLock.Unlock()
		conn.Close()
		self.clearSubs(transportErr("receive", errDisconnected))
	}()

	/**
	Note: we receive and unmarshal separately. A receiving failure indicates
	a disconnect. An unmarshaling error indicates a malformed message, but
	not necessarily a connection problem.
	*/
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var head struct{ Id string }
		err = json.Unmarshal(payload, &head)
		if err != nil {
			self.Logger.Warnw("failed to decode RPC message", "url", self.Url.String(), "error", err)
			continue
		}

		if len(head.Id) != 0 {
			var body json.RawMessage
			res := rpcResponse{Result: &body}
			err = json.Unmarshal(payload, &res)
			if err != nil {
				self.Logger.Warnw("failed to decode RPC response", "url", self.Url.String(), "error", err)
				continue
			}

			// Note: `error((*RpcError)(nil)) != nil` !!!
			if res.Error != nil {
				err = errors.WithStack(res.Error)
			}

			self.dispatchToSub(head.Id, []byte(body), err)
			continue
		}

		// When ID is missing, assume it's a notification:
		// https://www.jsonrpc.org/specification#notification
		var notification rpcNotification
		err = json.Unmarshal(payload, &notification)
		if err != nil {
			self.Logger.Warnw("failed to decode RPC notification", "url", self.Url.String(), "error", err)
			continue
		}
		self.dispatchToSub(notification.Params.Subscription, notification.Params.Result, nil)
	}
}

/*
Returns a channel that becomes closed when the transport is connected. If the
transport is currently connected, the channel is closed.
*/
func (self *WsTrans) Connected() chan struct{} {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.connected
}

/*
Stops the reconnect loop and closes the connection. Pending calls and
subscriptions fail with a TransportError.
*/
func (self *WsTrans) Close() error {
	var err error
	self.closeOnce.Do(func() {
		self.stateLock.Lock()
		close(self.closed)
		conn := self.conn
		self.stateLock.Unlock()
		if conn != nil {
			err = conn.Close()
		}
	})
	return errors.WithStack(err)
}

func (self *WsTrans) isClosed() bool {
	select {
	case <-self.closed:
		return true
	default:
		return false
	}
}

// Makes an RPC call.
func (self *WsTrans) Call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	id := randomId()
	sub := make(chan either, 1)
	self.registerSub(id, sub)
	defer self.unregisterSub(id)

	err := self.send(id, method, params...)
	if err != nil {
		return transportErr(method, err)
	}

	select {
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	case either, ok := <-sub:
		if !ok {
			return transportErr(method, errDisconnected)
		}
		if either.err != nil {
			return either.err
		}
		if either.val == nil {
			return nil
		}
		err := json.Unmarshal(either.val, out)
		if err != nil {
			return transportErr(method, errors.Wrap(err, "failed to decode RPC response"))
		}
		return nil
	}
}

func (self *WsTrans) send(id string, method string, params ...interface{}) error {
	conn := self.currentConn()
	if conn == nil || self.isClosed() {
		return errDisconnected
	}

	self.writeLock.Lock()
	defer self.writeLock.Unlock()
	err := conn.WriteJSON(rpcRequest{
		Jsonrpc: jsonRpcVersion,
		Id:      id,
		Method:  method,
		Params:  nonNilParams(params),
	})
	return errors.WithStack(err)
}

/*
Creates a subscription with the given params, sending raw messages over the
provided channel. The caller is expected to handle decoding on their own.

Returns an error when the context is canceled, or when the connection is
interrupted. Does NOT automatically resubscribe.
*/
func (self *WsTrans) Subscribe(ctx context.Context, out chan []byte, params ...interface{}) error {
	defer close(out)

	var subId string
	err := self.Call(ctx, &subId, "xcb_subscribe", params...)
	if err != nil {
		return err
	}
	if subId == "" {
		return transportErr("xcb_subscribe", errors.New("received empty subscription ID"))
	}
	defer func() {
		go self.send(randomId(), "xcb_unsubscribe", subId)
	}()

	sub := make(chan either, cap(out)+1)
	self.registerSub(subId, sub)
	defer self.unregisterSub(subId)

	for {
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case either, ok := <-sub:
			if !ok {
				return transportErr("xcb_subscribe", errDisconnected)
			}
			if either.err != nil {
				return either.err
			}
			select {
			case out <- either.val:
			default:
				self.Logger.Warnw("dropping subscription message: channel full", "subscription", subId)
			}
		}
	}
}

func (self *WsTrans) registerSub(id string, sub chan either) {
	self.subLock.Lock()
	self.subs[id] = sub
	self.subLock.Unlock()
}

func (self *WsTrans) unregisterSub(id string) {
	self.subLock.Lock()
	delete(self.subs, id)
	self.subLock.Unlock()
}

func (self *WsTrans) dispatchToSub(id string, val []byte, err error) {
	self.subLock.Lock()
	defer self.subLock.Unlock()

	sub := self.subs[id]
	if sub != nil {
		select {
		case sub <- either{val: val, err: err}:
		default:
		}
	}
}

func (self *WsTrans) clearSubs(err error) {
	self.subLock.Lock()
	defer self.subLock.Unlock()

	for _, sub := range self.subs {
		if err != nil {
			select {
			case sub <- either{err: err}:
			default:
			}
		}
		close(sub)
	}
	self.subs = map[string]chan either{}
}

func randomId() string {
	return uuid.NewString()
}

// Nodes reject a missing params array.
func nonNilParams(params []interface{}) []interface{} {
	if params == nil {
		return []interface{}{}
	}
	return params
}
