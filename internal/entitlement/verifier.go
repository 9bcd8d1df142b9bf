package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/zjrosen/autoaccept/internal/log"
)

// Verifier asks the license endpoint whether a user is entitled.
// Every failure is treated as not entitled.
type Verifier struct {
	endpoint string
	client   *http.Client
	cache    *cache.Cache
}

// NewVerifier creates a Verifier. An empty endpoint always verifies false.
// Positive and negative answers are cached for ttl.
func NewVerifier(endpoint string, ttl time.Duration, client *http.Client) *Verifier {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Verifier{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   client,
		cache:    cache.New(ttl, 2*ttl),
	}
}

type verifyResponse struct {
	IsPro *bool `json:"isPro"`
}

// Verify reports whether userID is entitled.
func (v *Verifier) Verify(ctx context.Context, userID string) bool {
	if v.endpoint == "" || userID == "" {
		return false
	}
	if cached, ok := v.cache.Get(userID); ok {
		return cached.(bool)
	}

	entitled, err := v.fetch(ctx, userID)
	if err != nil {
		log.Debug(log.CatLicense, "License check failed", "error", err)
		return false
	}
	v.cache.Set(userID, entitled, cache.DefaultExpiration)
	log.Info(log.CatLicense, "License verified", "entitled", entitled)
	return entitled
}

// Forget drops a cached answer so the next Verify asks the endpoint again.
func (v *Verifier) Forget(userID string) {
	v.cache.Delete(userID)
}

func (v *Verifier) fetch(ctx context.Context, userID string) (bool, error) {
	u := v.endpoint + "/verify?userId=" + url.QueryEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("license endpoint returned %d", resp.StatusCode)
	}
	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decoding license response: %w", err)
	}
	if body.IsPro == nil {
		return false, fmt.Errorf("license response missing isPro")
	}
	return *body.IsPro, nil
}

// WaitForUpgrade polls Verify until it succeeds, attempts run out, or ctx ends.
// Used after the user follows the upgrade link.
func (v *Verifier) WaitForUpgrade(ctx context.Context, userID string, interval time.Duration, attempts int) bool {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
		v.Forget(userID)
		if v.Verify(ctx, userID) {
			return true
		}
	}
	return false
}

// NewUserID returns a fresh anonymous user identifier.
func NewUserID() string {
	return uuid.NewString()
}

// UpgradeURL builds the checkout link for userID.
func UpgradeURL(base, userID string) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/upgrade?userId=" + url.QueryEscape(userID)
}
