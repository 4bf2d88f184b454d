package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// SecureHeaders provides configurable security headers
type SecureHeaders struct {
	ContentSecurityPolicy string
	FrameOptions          string
	ReferrerPolicy        string
	PermissionsPolicy     string
	HSTSMaxAge            int
}

// DefaultSecureHeaders returns secure headers with default settings
func DefaultSecureHeaders() *SecureHeaders {
	return &SecureHeaders{
		FrameOptions:   "DENY",
		ReferrerPolicy: "strict-origin-when-cross-origin",
		HSTSMaxAge:     31536000,
	}
}

// Handler returns the middleware handler
func (sh *SecureHeaders) Handler(next http.Handler) http.Handler {
	csp := sh.ContentSecurityPolicy
	if csp == "" {
		csp = sh.defaultCSP()
	}
	permissions := sh.PermissionsPolicy
	if permissions == "" {
		permissions = sh.defaultPermissionsPolicy()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", sh.FrameOptions)
		h.Set("Referrer-Policy", sh.ReferrerPolicy)
		h.Set("Content-Security-Policy", csp)
		h.Set("Permissions-Policy", permissions)

		if r.TLS != nil && sh.HSTSMaxAge > 0 {
			h.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(sh.HSTSMaxAge)+"; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// defaultCSP allows the dashboard page, its inline script and the chart
// images it loads from the same origin.
func (sh *SecureHeaders) defaultCSP() string {
	directives := []string{
		"default-src 'self'",
		"script-src 'self' 'unsafe-inline'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data: blob:",
		"connect-src 'self' ws: wss:",
		"frame-ancestors 'none'",
	}
	return strings.Join(directives, "; ")
}

func (sh *SecureHeaders) defaultPermissionsPolicy() string {
	return "camera=(), microphone=(), geolocation=(), payment=()"
}

// SecurityHeaders applies DefaultSecureHeaders.
func SecurityHeaders(next http.Handler) http.Handler {
	return DefaultSecureHeaders().Handler(next)
}
