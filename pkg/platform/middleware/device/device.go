// Package device labels the caller's device from its User-Agent for audit logs.
package device

import (
	"net/http"
	"strings"

	"smartgn/pkg/requestcontext"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// Middleware derives a device label from the User-Agent recorded by the metadata middleware.
// Register it after metadata.Middleware.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = requestcontext.WithDeviceLabel(ctx, Label(requestcontext.UserAgent(ctx)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Label renders a User-Agent as "Browser on OS", or "Browser on Platform" for mobiles.
func Label(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return unknownDevice
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "Bot"
	}

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	where := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		where = ua.Platform()
	}
	if where == "" {
		where = "Unknown OS"
	}
	return browser + " on " + where
}
