package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zjrosen/autoaccept/internal/log"
)

type request struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type message struct {
	ID     int64           `json:"id"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ProtocolError  `json:"error,omitempty"`
}

type response struct {
	result json.RawMessage
	err    error
}

// conn is one Page Connection: a websocket to a single page plus the
// commands awaiting a response on it.
type conn struct {
	pageID string
	port   int
	seq    uint64
	ws     *websocket.Conn

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[int64]chan response
	closed    bool

	// injectMu serializes injection so concurrent callers evaluate the
	// script once.
	injectMu sync.Mutex
	injected atomic.Bool
	done     chan struct{}
	onClose  func(*conn)
}

func newConn(pageID string, port int, seq uint64, ws *websocket.Conn, onClose func(*conn)) *conn {
	return &conn{
		pageID:  pageID,
		port:    port,
		seq:     seq,
		ws:      ws,
		pending: make(map[int64]chan response),
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

// track registers id as pending. It fails once the connection has closed.
func (c *conn) track(id int64) (chan response, error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if c.closed {
		return nil, ErrNotConnected
	}
	ch := make(chan response, 1)
	c.pending[id] = ch
	return ch, nil
}

// take removes id from the pending set. Only the caller that gets ok=true may
// complete the command.
func (c *conn) take(id int64) (chan response, bool) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	return ch, ok
}

func (c *conn) pendingCount() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return len(c.pending)
}

func (c *conn) isOpen() bool {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return !c.closed
}

func (c *conn) send(ctx context.Context, id int64, method string, params any, timeout time.Duration) (json.RawMessage, error) {
	ch, err := c.track(id)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(request{ID: id, Method: method, Params: params})
	if err != nil {
		c.take(id)
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}

	c.writeMu.Lock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(timeout))
	err = c.ws.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		c.take(id)
		return nil, fmt.Errorf("writing %s: %w", method, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		return resp.result, resp.err
	case <-timer.C:
		if _, ok := c.take(id); ok {
			return nil, ErrCommandTimeout
		}
	case <-ctx.Done():
		if _, ok := c.take(id); ok {
			return nil, ctx.Err()
		}
	}
	// The reader or teardown claimed the entry first and is delivering.
	resp := <-ch
	return resp.result, resp.err
}

func (c *conn) readLoop() {
	defer c.teardown()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && c.isOpen() {
				log.Debug(log.CatCDP, "Page channel read failed", "page", c.pageID, "error", err)
			}
			return
		}
		c.dispatch(data)
	}
}

func (c *conn) dispatch(data []byte) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Debug(log.CatCDP, "Discarding malformed frame", "page", c.pageID, "error", err)
		return
	}
	if msg.ID == 0 {
		// Protocol event; nothing subscribes to events.
		return
	}
	ch, ok := c.take(msg.ID)
	if !ok {
		log.Debug(log.CatCDP, "Discarding response for unknown command", "page", c.pageID, "id", msg.ID)
		return
	}
	if msg.Error != nil {
		ch <- response{err: msg.Error}
		return
	}
	ch <- response{result: msg.Result}
}

// teardown fails every pending command and detaches the connection. Safe to call repeatedly.
func (c *conn) teardown() {
	c.pendingMu.Lock()
	if c.closed {
		c.pendingMu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[int64]chan response)
	c.pendingMu.Unlock()

	for _, ch := range pending {
		ch <- response{err: ErrConnectionClosed}
	}
	_ = c.ws.Close()
	close(c.done)
	if c.onClose != nil {
		c.onClose(c)
	}
}

// close sends a close frame and tears the connection down.
func (c *conn) close() {
	c.writeMu.Lock()
	err := c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		log.Debug(log.CatCDP, "Close frame failed", "page", c.pageID, "error", err)
	}
	c.teardown()
}
