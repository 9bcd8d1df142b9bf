package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zjrosen/autoaccept/internal/log"
)

// Page is one entry of the /json/list response.
type Page struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	Type                 string `json:"type"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Instance groups the debuggable pages found on one port.
type Instance struct {
	Port  int
	Pages []Page
}

// Discoverer lists debuggable pages on a range of local ports.
type Discoverer struct {
	host   string
	ports  []int
	client *http.Client
}

// NewDiscoverer creates a Discoverer. Each listing request is bounded by timeout.
func NewDiscoverer(host string, ports []int, timeout time.Duration) *Discoverer {
	if host == "" {
		host = "127.0.0.1"
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Discoverer{
		host:   host,
		ports:  ports,
		client: &http.Client{Timeout: timeout},
	}
}

// Ports returns the scanned port range.
func (d *Discoverer) Ports() []int { return d.ports }

// ListPages fetches the page list on port, keeping only pages with a debugger URL.
func (d *Discoverer) ListPages(ctx context.Context, port int) ([]Page, error) {
	url := "http://" + net.JoinHostPort(d.host, strconv.Itoa(port)) + "/json/list"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing pages on port %d: status %d", port, resp.StatusCode)
	}

	var all []Page
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, fmt.Errorf("decoding page list on port %d: %w", port, err)
	}

	pages := make([]Page, 0, len(all))
	for _, p := range all {
		if p.WebSocketDebuggerURL != "" {
			pages = append(pages, p)
		}
	}
	return pages, nil
}

// Discover scans every port concurrently and returns instances in port order.
// Unreachable ports are skipped: refused connections silently, other failures
// with a debug log line.
func (d *Discoverer) Discover(ctx context.Context) []Instance {
	found := make([][]Page, len(d.ports))

	g, gctx := errgroup.WithContext(ctx)
	for i, port := range d.ports {
		g.Go(func() error {
			pages, err := d.ListPages(gctx, port)
			if err != nil {
				if !IsConnectionRefused(err) {
					log.Debug(log.CatCDP, "Port scan failed", "port", port, "error", err)
				}
				return nil
			}
			if len(pages) == 0 {
				log.Debug(log.CatCDP, "Port open but no pages found", "port", port)
				return nil
			}
			found[i] = pages
			return nil
		})
	}
	_ = g.Wait()

	var instances []Instance
	for i, pages := range found {
		if len(pages) == 0 {
			continue
		}
		for _, p := range pages {
			log.Debug(log.CatCDP, "Found page", "port", d.ports[i], "id", p.ID, "title", p.Title, "type", p.Type)
		}
		instances = append(instances, Instance{Port: d.ports[i], Pages: pages})
	}
	return instances
}

// Available reports whether any port answers with at least one page.
func (d *Discoverer) Available(ctx context.Context) bool {
	return len(d.Discover(ctx)) > 0
}
