/*
In-process JSON-RPC node for tests. Serves HTTP POST requests at "/" and
websocket connections at "/ws". Methods are answered by handlers registered
with "Handle"; unknown methods fail with the JSON-RPC "method not found" error.

Websocket connections also support "xcb_subscribe" and "xcb_unsubscribe".
Notifications are pushed with "Notify".
*/
package xcbtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dimfeld/httptreemux/v5"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Answers one RPC method. Returning an *Error produces a JSON-RPC error
// response; any other error becomes an internal error.
type Handler func(params []json.RawMessage) (interface{}, error)

// JSON-RPC error object.
type Error struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (self *Error) Error() string { return self.Message }

const (
	codeMethodNotFound = -32601
	codeInternal       = -32603
	codeParse          = -32700
)

type Server struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	lock     sync.Mutex
	handlers map[string]Handler
	calls    map[string]int
	conns    map[*wsConn]struct{}
	subs     map[string]*wsConn
	nextSub  int
}

type wsConn struct {
	conn      *websocket.Conn
	writeLock sync.Mutex
}

func (self *wsConn) write(val interface{}) error {
	self.writeLock.Lock()
	defer self.writeLock.Unlock()
	return self.conn.WriteJSON(val)
}

func NewServer() *Server {
	self := &Server{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		handlers: map[string]Handler{},
		calls:    map[string]int{},
		conns:    map[*wsConn]struct{}{},
		subs:     map[string]*wsConn{},
	}

	mux := httptreemux.NewContextMux()
	mux.Handle(http.MethodPost, "/", self.serveHttp)
	mux.Handle(http.MethodGet, "/ws", self.serveWs)
	self.server = httptest.NewServer(mux)
	return self
}

// HTTP endpoint.
func (self *Server) URL() string { return self.server.URL }

// Websocket endpoint.
func (self *Server) WsURL() string {
	return "ws" + strings.TrimPrefix(self.server.URL, "http") + "/ws"
}

// Closes all connections and stops the server.
func (self *Server) Close() {
	self.lock.Lock()
	for conn := range self.conns {
		conn.conn.Close()
	}
	self.lock.Unlock()
	self.server.Close()
}

func (self *Server) Handle(method string, fn Handler) {
	self.lock.Lock()
	defer self.lock.Unlock()
	self.handlers[method] = fn
}

// Answers the method with a fixed result.
func (self *Server) HandleResult(method string, result interface{}) {
	self.Handle(method, func([]json.RawMessage) (interface{}, error) {
		return result, nil
	})
}

// Answers the method with a fixed error.
func (self *Server) HandleError(method string, code int64, message string) {
	self.Handle(method, func([]json.RawMessage) (interface{}, error) {
		return nil, &Error{Code: code, Message: message}
	})
}

// How many times the method was called, over any transport.
func (self *Server) Calls(method string) int {
	self.lock.Lock()
	defer self.lock.Unlock()
	return self.calls[method]
}

// IDs of active subscriptions, in creation order.
func (self *Server) Subscriptions() []string {
	self.lock.Lock()
	defer self.lock.Unlock()

	out := make([]string, 0, len(self.subs))
	for id := range self.subs {
		out = append(out, id)
	}
	sortSubIds(out)
	return out
}

// Pushes a notification for the subscription to the connection that owns it.
func (self *Server) Notify(subId string, payload interface{}) error {
	self.lock.Lock()
	conn := self.subs[subId]
	self.lock.Unlock()

	if conn == nil {
		return errors.Errorf(`unknown subscription %q`, subId)
	}

	result, err := json.Marshal(payload)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(conn.write(notification{
		Jsonrpc: "2.0",
		Method:  "xcb_subscription",
		Params: notificationParams{
			Subscription: subId,
			Result:       result,
		},
	}))
}

// Drops every websocket connection, as if the node restarted.
func (self *Server) Disconnect() {
	self.lock.Lock()
	defer self.lock.Unlock()
	for conn := range self.conns {
		conn.conn.Close()
	}
}

type request struct {
	Jsonrpc string            `json:"jsonrpc"`
	Id      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type response struct {
	Jsonrpc string          `json:"jsonrpc"`
	Id      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type notification struct {
	Jsonrpc string             `json:"jsonrpc"`
	Method  string             `json:"method"`
	Params  notificationParams `json:"params"`
}

type notificationParams struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

func (self *Server) serveHttp(rew http.ResponseWriter, req *http.Request) {
	var body request
	err := json.NewDecoder(req.Body).Decode(&body)
	if err != nil {
		writeJson(rew, response{Jsonrpc: "2.0", Error: &Error{Code: codeParse, Message: err.Error()}})
		return
	}
	writeJson(rew, self.respond(body, nil))
}

func writeJson(rew http.ResponseWriter, val interface{}) {
	rew.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rew).Encode(val)
}

func (self *Server) serveWs(rew http.ResponseWriter, req *http.Request) {
	raw, err := self.upgrader.Upgrade(rew, req, nil)
	if err != nil {
		return
	}
	conn := &wsConn{conn: raw}

	self.lock.Lock()
	self.conns[conn] = struct{}{}
	self.lock.Unlock()

	defer func() {
		self.lock.Lock()
		delete(self.conns, conn)
		for id, owner := range self.subs {
			if owner == conn {
				delete(self.subs, id)
			}
		}
		self.lock.Unlock()
		raw.Close()
	}()

	for {
		var body request
		err := raw.ReadJSON(&body)
		if err != nil {
			return
		}
		err = conn.write(self.respond(body, conn))
		if err != nil {
			return
		}
	}
}

func (self *Server) respond(req request, conn *wsConn) response {
	out := response{Jsonrpc: "2.0", Id: req.Id}

	self.lock.Lock()
	self.calls[req.Method]++
	handler := self.handlers[req.Method]
	self.lock.Unlock()

	if handler == nil && conn != nil {
		switch req.Method {
		case "xcb_subscribe":
			out.Result = self.subscribe(conn)
			return out
		case "xcb_unsubscribe":
			out.Result = self.unsubscribe(req.Params)
			return out
		}
	}

	if handler == nil {
		out.Error = &Error{Code: codeMethodNotFound, Message: "the method " + req.Method + " does not exist/is not available"}
		return out
	}

	result, err := handler(req.Params)
	if err != nil {
		var rpcErr *Error
		if errors.As(err, &rpcErr) {
			out.Error = rpcErr
		} else {
			out.Error = &Error{Code: codeInternal, Message: err.Error()}
		}
		return out
	}
	if result == nil {
		out.Result = json.RawMessage("null")
	} else {
		out.Result = result
	}
	return out
}

func (self *Server) subscribe(conn *wsConn) string {
	self.lock.Lock()
	defer self.lock.Unlock()
	self.nextSub++
	id := "0x" + strconv.FormatInt(int64(self.nextSub), 16)
	self.subs[id] = conn
	return id
}

func (self *Server) unsubscribe(params []json.RawMessage) bool {
	if len(params) == 0 {
		return false
	}
	var id string
	if json.Unmarshal(params[0], &id) != nil {
		return false
	}

	self.lock.Lock()
	defer self.lock.Unlock()
	_, ok := self.subs[id]
	delete(self.subs, id)
	return ok
}

// Hex ids without leading zeros: shorter ones were created first.
func sortSubIds(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
}

// Decodes a positional parameter. Panics on malformed input, which fails the
// test that sent it.
func Param(params []json.RawMessage, index int, out interface{}) {
	if index >= len(params) {
		panic(errors.Errorf(`missing param %v`, index))
	}
	err := json.Unmarshal(params[index], out)
	if err != nil {
		panic(errors.Wrapf(err, `malformed param %v`, index))
	}
}
