package device

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/sentinel-identity/internal/core/domain"
	"github.com/arklim/sentinel-identity/internal/core/port"
)

// HiddenIP is the sentinel recorded when the public-IP lookup fails. Lookup
// failure degrades the fingerprint, never the collection.
const HiddenIP = "Hidden / Protected"

const (
	osUnknown      = "Unknown OS"
	browserUnknown = "Unknown"
)

// Collector derives a device fingerprint from a user-agent string and a
// public-IP lookup.
type Collector struct {
	resolver port.IPResolver
	log      *zap.Logger
}

// NewCollector constructs a collector. A nil resolver always records HiddenIP.
func NewCollector(resolver port.IPResolver, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{resolver: resolver, log: log}
}

// Collect classifies the runtime environment and resolves the public IP.
// It never fails: a lookup error substitutes the HiddenIP sentinel.
func (c *Collector) Collect(ctx context.Context, userAgent string) domain.DeviceFingerprint {
	ip := HiddenIP
	if c.resolver != nil {
		resolved, err := c.resolver.PublicIP(ctx)
		if err != nil {
			c.log.Warn("public ip lookup failed", zap.Error(err))
		} else if resolved != "" {
			ip = resolved
		}
	}

	return domain.DeviceFingerprint{
		IP:        ip,
		OS:        ClassifyOS(userAgent),
		Browser:   ClassifyBrowser(userAgent),
		UserAgent: userAgent,
		LastSeen:  time.Now().UTC(),
	}
}

// ClassifyOS maps a user-agent string to an OS family. Checks run in order
// and the last match wins, so "like Mac" (iOS devices) overrides the plain
// "Mac" hit and Android overrides the "Linux" hit.
func ClassifyOS(userAgent string) string {
	os := osUnknown
	if strings.Contains(userAgent, "Win") {
		os = "Windows"
	}
	if strings.Contains(userAgent, "Mac") {
		os = "macOS"
	}
	if strings.Contains(userAgent, "Linux") {
		os = "Linux"
	}
	if strings.Contains(userAgent, "Android") {
		os = "Android"
	}
	if strings.Contains(userAgent, "like Mac") {
		os = "iOS"
	}
	return os
}

// ClassifyBrowser maps a user-agent string to a browser family. Order
// matters: Chrome ships a "Safari" token, so the Safari check requires the
// absence of "Chrome", and Edge is detected by its "Edg" token.
func ClassifyBrowser(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "Edg"):
		return "Edge"
	case strings.Contains(userAgent, "Chrome"):
		return "Chrome"
	case strings.Contains(userAgent, "Firefox"):
		return "Firefox"
	case strings.Contains(userAgent, "Safari"):
		return "Safari"
	default:
		return browserUnknown
	}
}

// HTTPIPResolver resolves the public IP via an ipify-style JSON endpoint.
type HTTPIPResolver struct {
	url    string
	client *http.Client
}

// NewHTTPIPResolver constructs a resolver against the given lookup URL.
func NewHTTPIPResolver(url string, timeout time.Duration) *HTTPIPResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPIPResolver{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// PublicIP performs the lookup.
func (r *HTTPIPResolver) PublicIP(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return "", fmt.Errorf("build ip lookup request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ip lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip lookup: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("read ip lookup response: %w", err)
	}

	var payload struct {
		IP string `json:"ip"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode ip lookup response: %w", err)
	}
	if payload.IP == "" {
		return "", fmt.Errorf("ip lookup returned empty address")
	}

	return payload.IP, nil
}
