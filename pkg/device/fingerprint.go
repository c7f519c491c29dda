package device

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

const (
	UnknownBrowser = "unknown-browser"
	UnknownOS      = "unknown-os"

	DeviceTypeDesktop = "desktop"
	DeviceTypeMobile  = "mobile"
	DeviceTypeTablet  = "tablet"

	// LoopbackIP is used when no client address can be resolved from the request
	LoopbackIP = "127.0.0.1"

	maxUserAgentLength = 512
)

// Fingerprint is the coarse device class a user agent normalizes to.
// Two user agents with the same browser family, OS family and device type
// are treated as the same device.
type Fingerprint struct {
	Browser    string
	OS         string
	DeviceType string
}

// Hash returns the SHA-256 hex digest of the fingerprint fields
func (f Fingerprint) Hash() string {
	sum := sha256.Sum256([]byte(f.Browser + "|" + f.OS + "|" + f.DeviceType))
	return hex.EncodeToString(sum[:])
}

// ParseUserAgent classifies a user agent string. Unparseable or empty input
// degrades to the unknown-browser/unknown-os/desktop triple.
func ParseUserAgent(userAgent string) Fingerprint {
	fp := Fingerprint{
		Browser:    UnknownBrowser,
		OS:         UnknownOS,
		DeviceType: DeviceTypeDesktop,
	}

	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return fp
	}

	ua := useragent.New(userAgent)
	if ua.Bot() {
		return fp
	}

	if name, _ := ua.Browser(); strings.TrimSpace(name) != "" {
		fp.Browser = strings.ToLower(strings.TrimSpace(name))
	}
	if osFamily := normalizeOS(ua.OSInfo().Name); osFamily != "" {
		fp.OS = osFamily
	}
	fp.DeviceType = detectDeviceType(userAgent, ua.Mobile())

	return fp
}

// HashUserAgent is the device hash used as the trust key for a user agent
func HashUserAgent(userAgent string) string {
	return ParseUserAgent(userAgent).Hash()
}

func normalizeOS(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	switch {
	case lower == "":
		return ""
	case strings.Contains(lower, "iphone"), strings.Contains(lower, "ipad"), strings.Contains(lower, "ios"):
		return "ios"
	case strings.Contains(lower, "android"):
		return "android"
	case strings.Contains(lower, "mac"):
		return "macos"
	case strings.Contains(lower, "windows"):
		return "windows"
	case strings.Contains(lower, "cros"), strings.Contains(lower, "chrome os"):
		return "chromeos"
	case strings.Contains(lower, "linux"), strings.Contains(lower, "ubuntu"):
		return "linux"
	default:
		return lower
	}
}

func detectDeviceType(userAgent string, mobile bool) string {
	lower := strings.ToLower(userAgent)
	if strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet") {
		return DeviceTypeTablet
	}
	if strings.Contains(lower, "android") && !strings.Contains(lower, "mobile") {
		return DeviceTypeTablet
	}
	if mobile || strings.Contains(lower, "mobile") {
		return DeviceTypeMobile
	}
	return DeviceTypeDesktop
}

// RequestContext is the request metadata the trust gate evaluates and records
type RequestContext struct {
	UserAgent      string `json:"user_agent"`
	AcceptLanguage string `json:"accept_language"`
	IP             string `json:"ip"`
	Timezone       string `json:"timezone,omitempty"`
}

// DeviceHash returns the trust key for the request's user agent
func (rc RequestContext) DeviceHash() string {
	return HashUserAgent(rc.UserAgent)
}

// ExtractRequestContext reads the trust-relevant headers from an HTTP request
func ExtractRequestContext(r *http.Request) RequestContext {
	return RequestContext{
		UserAgent:      TruncateUserAgent(r.UserAgent()),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		IP:             ClientIP(r),
		Timezone:       r.Header.Get("X-Timezone"),
	}
}

// ClientIP resolves the client address from X-Forwarded-For (first hop),
// then X-Real-IP, and falls back to the loopback address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.Split(forwarded, ",")[0]
		if ip := NormalizeIP(first); ip != "" {
			return ip
		}
	}
	if ip := NormalizeIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return LoopbackIP
}

// NormalizeIP strips an optional port and returns the canonical form of the
// address, or an empty string when it is not an IP.
func NormalizeIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	raw = strings.Trim(raw, "[]")
	ip := net.ParseIP(raw)
	if ip == nil {
		return ""
	}
	return ip.String()
}

// TruncateUserAgent caps a user agent at the stored column length
func TruncateUserAgent(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if len(userAgent) > maxUserAgentLength {
		return userAgent[:maxUserAgentLength]
	}
	return userAgent
}
