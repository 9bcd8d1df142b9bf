// Package cdp discovers debuggable editor pages and drives the in-page
// classifier over the Chrome DevTools Protocol.
package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/autoaccept/internal/classifier"
	"github.com/zjrosen/autoaccept/internal/log"
	"github.com/zjrosen/autoaccept/internal/tracing"
)

const tracerName = "autoaccept/cdp"

// Options configures a Client.
type Options struct {
	Host                string
	Ports               []int
	DiscoveryTimeout    time.Duration
	ConnectTimeout      time.Duration
	CommandTimeout      time.Duration
	RediscoveryInterval time.Duration
	// Script is the rendered classifier injected into every page.
	Script   string
	Entitled bool
}

// DefaultOptions returns the stock ports and timeouts.
func DefaultOptions() Options {
	ports := make([]int, 0, 11)
	for p := 9222; p <= 9232; p++ {
		ports = append(ports, p)
	}
	return Options{
		Host:                "127.0.0.1",
		Ports:               ports,
		DiscoveryTimeout:    time.Second,
		ConnectTimeout:      5 * time.Second,
		CommandTimeout:      5 * time.Second,
		RediscoveryInterval: 10 * time.Second,
	}
}

// AcceptResult summarizes one accept pass across all pages.
type AcceptResult struct {
	Pages   int
	Clicked int
	Blocked int
	Labels  []string
}

// PageInfo describes an open Page Connection.
type PageInfo struct {
	ID       string
	Port     int
	Injected bool
}

// Client owns the Page Connections and their pending commands.
type Client struct {
	opts       Options
	discoverer *Discoverer
	dialer     *websocket.Dialer

	mu       sync.Mutex
	conns    map[string]*conn
	entitled bool
	seq      uint64

	nextID atomic.Int64

	// discoverMu serializes discovery passes.
	discoverMu sync.Mutex

	runMu   sync.Mutex
	cancel  context.CancelFunc
	loopWG  sync.WaitGroup
	running bool
}

// NewClient creates a Client. It does nothing until Start or DiscoverAndConnect.
func NewClient(opts Options) *Client {
	d := DefaultOptions()
	if opts.Host == "" {
		opts.Host = d.Host
	}
	if len(opts.Ports) == 0 {
		opts.Ports = d.Ports
	}
	if opts.DiscoveryTimeout <= 0 {
		opts.DiscoveryTimeout = d.DiscoveryTimeout
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = d.ConnectTimeout
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = d.CommandTimeout
	}
	if opts.RediscoveryInterval <= 0 {
		opts.RediscoveryInterval = d.RediscoveryInterval
	}
	return &Client{
		opts:       opts,
		discoverer: NewDiscoverer(opts.Host, opts.Ports, opts.DiscoveryTimeout),
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.ConnectTimeout,
		},
		conns:    make(map[string]*conn),
		entitled: opts.Entitled,
	}
}

// Discoverer exposes the page scanner used by the client.
func (c *Client) Discoverer() *Discoverer { return c.discoverer }

// SetEntitled updates the connection cap. Existing connections are kept.
func (c *Client) SetEntitled(entitled bool) {
	c.mu.Lock()
	changed := c.entitled != entitled
	c.entitled = entitled
	c.mu.Unlock()
	if changed {
		log.Info(log.CatCDP, "Entitlement changed", "entitled", entitled)
	}
}

// Entitled reports the current cap mode.
func (c *Client) Entitled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entitled
}

// limitReachedLocked reports whether another connection would exceed the cap.
func (c *Client) limitReachedLocked() bool {
	return !c.entitled && len(c.conns) >= 1
}

// ConnectionCount returns the number of open Page Connections.
func (c *Client) ConnectionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}

// Pages lists open connections in connection order.
func (c *Client) Pages() []PageInfo {
	snap := c.snapshot()
	out := make([]PageInfo, len(snap))
	for i, cn := range snap {
		out[i] = PageInfo{ID: cn.pageID, Port: cn.port, Injected: cn.injected.Load()}
	}
	return out
}

func (c *Client) snapshot() []*conn {
	c.mu.Lock()
	out := make([]*conn, 0, len(c.conns))
	for _, cn := range c.conns {
		out = append(out, cn)
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (c *Client) lookup(pageID string) *conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conns[pageID]
}

// register adds cn unless the page is already connected or the cap is reached.
func (c *Client) register(pageID string, port int, ws *websocket.Conn) (*conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.conns[pageID]; ok {
		return nil, ErrAlreadyConnected
	}
	if c.limitReachedLocked() {
		return nil, ErrConnectionLimit
	}
	c.seq++
	cn := newConn(pageID, port, c.seq, ws, c.unregister)
	c.conns[pageID] = cn
	return cn, nil
}

func (c *Client) unregister(cn *conn) {
	c.mu.Lock()
	if c.conns[cn.pageID] == cn {
		delete(c.conns, cn.pageID)
	}
	c.mu.Unlock()
	log.Debug(log.CatCDP, "Page disconnected", "page", cn.pageID)
}

// Connect opens a channel to page, registers it, and injects the classifier.
// It returns true only when a new Page Connection was registered.
func (c *Client) Connect(ctx context.Context, port int, page Page) bool {
	c.mu.Lock()
	_, exists := c.conns[page.ID]
	limited := c.limitReachedLocked()
	c.mu.Unlock()
	if exists || limited {
		return false
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	ws, resp, err := c.dialer.DialContext(dialCtx, page.WebSocketDebuggerURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		log.Debug(log.CatCDP, "Connect failed", "page", page.ID, "port", port, "error", err)
		return false
	}

	cn, err := c.register(page.ID, port, ws)
	if err != nil {
		log.Debug(log.CatCDP, "Dropping connection", "page", page.ID, "reason", err)
		_ = ws.Close()
		return false
	}
	log.SafeGo("cdp.readLoop", cn.readLoop)
	log.Info(log.CatCDP, "Connected to page", "page", page.ID, "port", port, "title", page.Title)

	if err := c.InjectClassifier(ctx, page.ID); err != nil {
		log.Debug(log.CatCDP, "Initial injection failed", "page", page.ID, "error", err)
	}
	return true
}

// SendCommand sends method with params to pageID and waits for its response.
func (c *Client) SendCommand(ctx context.Context, pageID, method string, params any) (json.RawMessage, error) {
	cn := c.lookup(pageID)
	if cn == nil || !cn.isOpen() {
		return nil, ErrNotConnected
	}

	id := c.nextID.Add(1)
	ctx, span := tracing.Tracer(tracerName).Start(ctx, method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cdp.page", pageID),
			attribute.Int64("cdp.id", id),
		),
	)
	result, err := cn.send(ctx, id, method, params, c.opts.CommandTimeout)
	tracing.End(span, err)
	return result, err
}

type evaluateResult struct {
	Result struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"result"`
	ExceptionDetails *struct {
		Text      string `json:"text"`
		Exception *struct {
			Description string `json:"description"`
		} `json:"exception"`
	} `json:"exceptionDetails"`
}

// Evaluate runs expression in the page and returns its by-value result.
func (c *Client) Evaluate(ctx context.Context, pageID, expression string) (json.RawMessage, error) {
	params := runtime.Evaluate(expression).WithReturnByValue(true)
	raw, err := c.SendCommand(ctx, pageID, runtime.CommandEvaluate, params)
	if err != nil {
		return nil, err
	}

	var res evaluateResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decoding evaluate result: %w", err)
	}
	if ex := res.ExceptionDetails; ex != nil {
		e := &EvaluateError{Text: ex.Text}
		if ex.Exception != nil {
			e.Description = ex.Exception.Description
		}
		return nil, e
	}
	return res.Result.Value, nil
}

func (c *Client) evaluateInto(ctx context.Context, pageID, expression string, out any) error {
	raw, err := c.Evaluate(ctx, pageID, expression)
	if err != nil {
		return err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// InjectClassifier evaluates the classifier once per connection.
func (c *Client) InjectClassifier(ctx context.Context, pageID string) error {
	cn := c.lookup(pageID)
	if cn == nil {
		return ErrNotConnected
	}
	if cn.injected.Load() {
		return nil
	}
	cn.injectMu.Lock()
	defer cn.injectMu.Unlock()
	if cn.injected.Load() {
		return nil
	}
	if _, err := c.Evaluate(ctx, pageID, c.opts.Script); err != nil {
		return fmt.Errorf("injecting classifier: %w", err)
	}
	cn.injected.Store(true)
	log.Debug(log.CatCDP, "Classifier injected", "page", pageID)
	return nil
}

// ExecuteAccept clicks the highest-priority actionable element on every page.
// Per-page failures are logged and skipped.
func (c *Client) ExecuteAccept(ctx context.Context, background bool) AcceptResult {
	ctx, span := tracing.Tracer(tracerName).Start(ctx, "cdp.ExecuteAccept",
		trace.WithAttributes(attribute.Bool("background", background)))
	defer span.End()

	var res AcceptResult
	for _, cn := range c.snapshot() {
		if !cn.isOpen() {
			continue
		}
		res.Pages++
		click, err := c.acceptOnPage(ctx, cn.pageID, background)
		if err != nil {
			log.Debug(log.CatCDP, "Accept pass failed", "page", cn.pageID, "error", err)
			continue
		}
		switch {
		case click.Clicked:
			res.Clicked++
			res.Labels = append(res.Labels, click.Text)
			log.Info(log.CatCDP, "Clicked", "page", cn.pageID, "label", click.Text, "total", click.Total)
		case click.Blocked:
			res.Blocked++
			log.Warn(log.CatSafety, "Refused banned command", "page", cn.pageID, "label", click.Text, "pattern", click.Pattern)
		}
	}
	span.SetAttributes(attribute.Int("clicked", res.Clicked), attribute.Int("pages", res.Pages))
	return res
}

func (c *Client) acceptOnPage(ctx context.Context, pageID string, background bool) (classifier.ClickResult, error) {
	var click classifier.ClickResult
	if err := c.InjectClassifier(ctx, pageID); err != nil {
		return click, err
	}

	var diag classifier.Diagnostics
	if err := c.evaluateInto(ctx, pageID, classifier.DiagnosticsExpr(), &diag); err != nil {
		return click, fmt.Errorf("diagnostics: %w", err)
	}
	log.Debug(log.CatCDP, "Diagnostics", "page", pageID,
		"clicks", diag.ClickCount, "pending", diag.PendingCount, "inputBox", diag.InputBoxVisible)

	var labels []string
	if err := c.evaluateInto(ctx, pageID, classifier.FindButtonsExpr(background), &labels); err != nil {
		return click, fmt.Errorf("findButtons: %w", err)
	}
	log.Debug(log.CatCDP, "Found buttons", "page", pageID, "count", len(labels), "labels", labels)

	if err := c.evaluateInto(ctx, pageID, classifier.ForceClickExpr(background), &click); err != nil {
		return click, fmt.Errorf("forceClick: %w", err)
	}
	return click, nil
}

// QueryStuckState returns the first stalled verdict across pages, else running.
// Pages that fail to answer are skipped.
func (c *Client) QueryStuckState(ctx context.Context, enabled bool) classifier.StuckState {
	for _, cn := range c.snapshot() {
		if !cn.isOpen() {
			continue
		}
		if err := c.InjectClassifier(ctx, cn.pageID); err != nil {
			log.Debug(log.CatCDP, "Stuck query skipped", "page", cn.pageID, "error", err)
			continue
		}
		var s classifier.StuckState
		if err := c.evaluateInto(ctx, cn.pageID, classifier.StuckStateExpr(enabled), &s); err != nil {
			log.Debug(log.CatCDP, "Stuck query failed", "page", cn.pageID, "error", err)
			continue
		}
		if s.IsStalled() {
			log.Debug(log.CatCDP, "Page stalled", "page", cn.pageID, "reason", s.Reason, "pending", s.PendingFor())
			return s
		}
	}
	return classifier.StuckState{State: classifier.Running}
}

// Stats sums page-side counters.
func (c *Client) Stats(ctx context.Context) classifier.Stats {
	var total classifier.Stats
	for _, cn := range c.snapshot() {
		var s classifier.Stats
		if err := c.evaluateInto(ctx, cn.pageID, classifier.StatsExpr(), &s); err != nil {
			log.Debug(log.CatCDP, "Stats query failed", "page", cn.pageID, "error", err)
			continue
		}
		total.Clicks += s.Clicks
		total.Blocked += s.Blocked
	}
	return total
}

// DiscoverAndConnect scans for pages and connects to new ones within the cap.
// It returns the number of new connections.
func (c *Client) DiscoverAndConnect(ctx context.Context) int {
	c.discoverMu.Lock()
	defer c.discoverMu.Unlock()

	c.mu.Lock()
	limited := c.limitReachedLocked()
	c.mu.Unlock()
	if limited {
		log.Debug(log.CatCDP, "Connection limit reached, skipping discovery")
		return 0
	}

	connected := 0
	for _, inst := range c.discoverer.Discover(ctx) {
		for _, page := range inst.Pages {
			c.mu.Lock()
			_, exists := c.conns[page.ID]
			limited = c.limitReachedLocked()
			c.mu.Unlock()
			if limited {
				log.Debug(log.CatCDP, "Connection limit reached, ignoring remaining pages")
				return connected
			}
			if exists {
				continue
			}
			if c.Connect(ctx, inst.Port, page) {
				connected++
			}
		}
	}
	return connected
}

// Start connects to available pages and rediscovers periodically until Stop.
// It reports whether at least one page is connected.
func (c *Client) Start(ctx context.Context) bool {
	c.runMu.Lock()
	if c.running {
		c.runMu.Unlock()
		return c.ConnectionCount() > 0
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.loopWG.Add(1)
	c.runMu.Unlock()

	c.DiscoverAndConnect(loopCtx)

	log.SafeGo("cdp.rediscover", func() {
		defer c.loopWG.Done()
		ticker := time.NewTicker(c.opts.RediscoveryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if n := c.DiscoverAndConnect(loopCtx); n > 0 {
					log.Info(log.CatCDP, "Rediscovery connected new pages", "count", n)
				}
			}
		}
	})
	return c.ConnectionCount() > 0
}

// Stop ends rediscovery, detaches the classifier, and closes every connection.
// Commands still in flight fail with ErrConnectionClosed.
func (c *Client) Stop() {
	c.runMu.Lock()
	if c.running {
		c.cancel()
		c.running = false
	}
	c.runMu.Unlock()
	c.loopWG.Wait()

	for _, cn := range c.snapshot() {
		if cn.injected.Load() {
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			if _, err := c.Evaluate(ctx, cn.pageID, classifier.StopExpr()); err != nil {
				log.Debug(log.CatCDP, "Stop hook failed", "page", cn.pageID, "error", err)
			}
			cancel()
		}
		cn.close()
	}
	log.Debug(log.CatCDP, "Client stopped")
}
