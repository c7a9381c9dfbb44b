package metadata

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"smartgn/pkg/requestcontext"

	"github.com/stretchr/testify/assert"
)

func TestMiddlewareHandler(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trusted    []netip.Prefix
		wantIP     string
	}{
		{
			name:       "untrusted peer ignores forwarded header",
			remoteAddr: "192.168.1.1:4000",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9"},
			wantIP:     "192.168.1.1",
		},
		{
			name:       "trusted proxy uses first forwarded hop",
			remoteAddr: "10.0.0.5:4000",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"},
			trusted:    []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
			wantIP:     "203.0.113.9",
		},
		{
			name:       "trusted proxy with garbage header falls back",
			remoteAddr: "10.0.0.5:4000",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			trusted:    []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
			wantIP:     "10.0.0.5",
		},
		{
			name:       "trusted proxy with real ip header",
			remoteAddr: "10.0.0.5:4000",
			headers:    map[string]string{"X-Real-IP": "198.51.100.4"},
			trusted:    []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
			wantIP:     "198.51.100.4",
		},
		{
			name:       "ipv6 peer",
			remoteAddr: "[2001:db8::1]:4000",
			wantIP:     "2001:db8::1",
		},
		{
			name:   "no remote addr",
			wantIP: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotIP, gotUA string
			h := NewMiddleware(tt.trusted...).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotIP = requestcontext.ClientIP(r.Context())
				gotUA = requestcontext.UserAgent(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set("User-Agent", "Mozilla/5.0")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.wantIP, gotIP)
			assert.Equal(t, "Mozilla/5.0", gotUA)
		})
	}
}
