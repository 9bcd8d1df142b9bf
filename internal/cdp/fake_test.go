package cdp

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/autoaccept/internal/classifier"
)

// reply describes how a fake page answers one command.
type reply struct {
	value any
	err   *ProtocolError
	throw string
	delay time.Duration
	drop  bool
}

type evalFunc func(expr string) reply

// stockEval answers the classifier expressions with fixed results.
func stockEval(stuck classifier.StuckState, click classifier.ClickResult) evalFunc {
	return func(expr string) reply {
		switch {
		case strings.Contains(expr, "getStuckState("):
			return reply{value: stuck}
		case strings.Contains(expr, "forceClick("):
			return reply{value: click}
		case strings.Contains(expr, "findButtons("):
			if click.Clicked {
				return reply{value: []string{click.Text}}
			}
			return reply{value: []string{}}
		case strings.Contains(expr, "getDiagnostics("):
			return reply{value: classifier.Diagnostics{Observer: true}}
		case strings.Contains(expr, "getStats("):
			return reply{value: classifier.Stats{Clicks: 2, Blocked: 1}}
		case strings.Contains(expr, "__autoAcceptStop"):
			return reply{value: true}
		}
		return reply{value: map[string]string{"status": "loaded"}}
	}
}

type fakePage struct {
	id   string
	eval evalFunc
}

// fakeBrowser serves /json/list and one websocket per page, like a browser
// started with --remote-debugging-port.
type fakeBrowser struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	pages    []*fakePage
	upgrades map[string]int
	scripts  map[string]int
	sockets  map[string]*websocket.Conn
	methods  []string
}

func newFakeBrowser(t *testing.T) *fakeBrowser {
	t.Helper()
	b := &fakeBrowser{
		t:        t,
		upgrades: make(map[string]int),
		scripts:  make(map[string]int),
		sockets:  make(map[string]*websocket.Conn),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/json/list", b.handleList)
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"Browser": "Fake/1.0"})
	})
	mux.HandleFunc("/devtools/page/", b.handlePage)
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBrowser) port() int {
	u, err := url.Parse(b.srv.URL)
	require.NoError(b.t, err)
	_, p, err := net.SplitHostPort(u.Host)
	require.NoError(b.t, err)
	port, err := strconv.Atoi(p)
	require.NoError(b.t, err)
	return port
}

func (b *fakeBrowser) addPage(id string, eval evalFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pages = append(b.pages, &fakePage{id: id, eval: eval})
}

func (b *fakeBrowser) page(id string) *fakePage {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.pages {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (b *fakeBrowser) upgradeCount(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.upgrades[id]
}

func (b *fakeBrowser) totalUpgrades() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.upgrades {
		n += c
	}
	return n
}

func (b *fakeBrowser) scriptCount(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scripts[id]
}

// dropSocket closes the server side of a page channel.
func (b *fakeBrowser) dropSocket(id string) {
	b.mu.Lock()
	ws := b.sockets[id]
	b.mu.Unlock()
	if ws != nil {
		_ = ws.Close()
	}
}

func (b *fakeBrowser) handleList(w http.ResponseWriter, r *http.Request) {
	host := strings.TrimPrefix(b.srv.URL, "http://")
	b.mu.Lock()
	list := []map[string]string{
		{"id": "worker", "type": "service_worker", "title": "no debugger url"},
	}
	for _, p := range b.pages {
		list = append(list, map[string]string{
			"id":                   p.id,
			"type":                 "page",
			"title":                "Page " + p.id,
			"url":                  "vscode-file://workbench.html",
			"webSocketDebuggerUrl": "ws://" + host + "/devtools/page/" + p.id,
		})
	}
	b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (b *fakeBrowser) handlePage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/devtools/page/")
	p := b.page(id)
	if p == nil {
		http.NotFound(w, r)
		return
	}
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ws, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.upgrades[id]++
	b.sockets[id] = ws
	b.mu.Unlock()

	var writeMu sync.Mutex
	for {
		var req struct {
			ID     int64  `json:"id"`
			Method string `json:"method"`
			Params struct {
				Expression    string `json:"expression"`
				ReturnByValue bool   `json:"returnByValue"`
			} `json:"params"`
		}
		if err := ws.ReadJSON(&req); err != nil {
			return
		}
		b.mu.Lock()
		b.methods = append(b.methods, req.Method)
		if strings.Contains(req.Params.Expression, "window.__autoAcceptState") &&
			!strings.HasPrefix(req.Params.Expression, classifier.APIGlobal) {
			b.scripts[id]++
		}
		b.mu.Unlock()

		rep := p.eval(req.Params.Expression)
		go func(id int64, rep reply) {
			if rep.drop {
				return
			}
			time.Sleep(rep.delay)
			out := map[string]any{"id": id}
			switch {
			case rep.err != nil:
				out["error"] = rep.err
			case rep.throw != "":
				out["result"] = map[string]any{
					"result":           map[string]any{"type": "object"},
					"exceptionDetails": map[string]any{"text": "Uncaught", "exception": map[string]any{"description": rep.throw}},
				}
			default:
				out["result"] = map[string]any{"result": map[string]any{"type": "object", "value": rep.value}}
			}
			writeMu.Lock()
			_ = ws.WriteJSON(out)
			writeMu.Unlock()
		}(req.ID, rep)
	}
}

// rawSend writes an arbitrary frame to the page's client from the server side.
func (b *fakeBrowser) rawSend(id string, frame string) {
	b.mu.Lock()
	ws := b.sockets[id]
	b.mu.Unlock()
	require.NotNil(b.t, ws)
	require.NoError(b.t, ws.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func testScript(t *testing.T) string {
	t.Helper()
	s, err := classifier.Script(classifier.DefaultOptions())
	require.NoError(t, err)
	return s
}

func newTestClient(t *testing.T, entitled bool, browsers ...*fakeBrowser) *Client {
	t.Helper()
	ports := make([]int, 0, len(browsers))
	for _, b := range browsers {
		ports = append(ports, b.port())
	}
	c := NewClient(Options{
		Host:                "127.0.0.1",
		Ports:               ports,
		DiscoveryTimeout:    time.Second,
		ConnectTimeout:      2 * time.Second,
		CommandTimeout:      time.Second,
		RediscoveryInterval: 50 * time.Millisecond,
		Script:              testScript(t),
		Entitled:            entitled,
	})
	t.Cleanup(c.Stop)
	return c
}

// closedPort returns a port with no listener.
func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}
