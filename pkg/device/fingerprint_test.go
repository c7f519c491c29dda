package device

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	chromeWindows120 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	chromeWindows121 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.6167.85 Safari/537.36"
	firefoxWindows   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0"
	safariIPhone     = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	safariIPad       = "Mozilla/5.0 (iPad; CPU OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	chromeAndroidTab = "Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	chromeAndroidMob = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	safariMac        = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"
)

func TestHashUserAgent_Deterministic(t *testing.T) {
	for _, ua := range []string{chromeWindows120, firefoxWindows, safariIPhone, "", "garbage"} {
		assert.Equal(t, HashUserAgent(ua), HashUserAgent(ua), ua)
		assert.Len(t, HashUserAgent(ua), 64)
	}
}

func TestHashUserAgent_CollapsesVersions(t *testing.T) {
	assert.Equal(t, HashUserAgent(chromeWindows120), HashUserAgent(chromeWindows121))
	assert.NotEqual(t, HashUserAgent(chromeWindows120), HashUserAgent(firefoxWindows))
}

func TestParseUserAgent_Empty(t *testing.T) {
	fp := ParseUserAgent("   ")
	assert.Equal(t, Fingerprint{Browser: UnknownBrowser, OS: UnknownOS, DeviceType: DeviceTypeDesktop}, fp)
	assert.Equal(t, Fingerprint{Browser: UnknownBrowser, OS: UnknownOS, DeviceType: DeviceTypeDesktop}.Hash(), HashUserAgent(""))
}

func TestParseUserAgent_Families(t *testing.T) {
	fp := ParseUserAgent(chromeWindows120)
	assert.Equal(t, "chrome", fp.Browser)
	assert.Equal(t, "windows", fp.OS)
	assert.Equal(t, DeviceTypeDesktop, fp.DeviceType)

	fp = ParseUserAgent(firefoxWindows)
	assert.Equal(t, "firefox", fp.Browser)
	assert.Equal(t, "windows", fp.OS)

	fp = ParseUserAgent(safariMac)
	assert.Equal(t, "safari", fp.Browser)
	assert.Equal(t, "macos", fp.OS)
	assert.Equal(t, DeviceTypeDesktop, fp.DeviceType)
}

func TestParseUserAgent_DeviceTypes(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"desktop", chromeWindows120, DeviceTypeDesktop},
		{"iphone", safariIPhone, DeviceTypeMobile},
		{"ipad", safariIPad, DeviceTypeTablet},
		{"android tablet", chromeAndroidTab, DeviceTypeTablet},
		{"android phone", chromeAndroidMob, DeviceTypeMobile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseUserAgent(tt.ua).DeviceType)
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "198.51.100.2"}, "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"invalid forwarded falls through", map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"port stripped", map[string]string{"X-Real-IP": "198.51.100.2:443"}, "198.51.100.2"},
		{"none", map[string]string{}, LoopbackIP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestExtractRequestContext(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/login/password", nil)
	r.Header.Set("User-Agent", chromeWindows120)
	r.Header.Set("Accept-Language", "en-US,en;q=0.9")
	r.Header.Set("X-Timezone", "Europe/Berlin")
	r.Header.Set("X-Forwarded-For", "203.0.113.7")

	rc := ExtractRequestContext(r)
	assert.Equal(t, chromeWindows120, rc.UserAgent)
	assert.Equal(t, "en-US,en;q=0.9", rc.AcceptLanguage)
	assert.Equal(t, "Europe/Berlin", rc.Timezone)
	assert.Equal(t, "203.0.113.7", rc.IP)
	assert.Equal(t, HashUserAgent(chromeWindows120), rc.DeviceHash())
}

func TestTruncateUserAgent(t *testing.T) {
	long := strings.Repeat("a", 600)
	assert.Len(t, TruncateUserAgent(long), 512)
	assert.Equal(t, "short", TruncateUserAgent(" short "))
}
