// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders. Listing reads carry a weak ETag, so
// GET and HEAD may be told to revalidate (no-cache) while every write,
// including the one that returns a listing's secret key, is no-store.
package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions selects the optional headers.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests only.
	// Leave it off unless the proxy-to-app hop is HTTPS as well.
	EnableHSTS bool
	HSTSMaxAge time.Duration // defaults to 180 days

	NoStore         bool // Cache-Control: no-store plus Pragma and Expires
	RevalidateReads bool // with NoStore, GET/HEAD get no-cache instead
	EnablePolicy    bool // Permissions-Policy and X-Permitted-Cross-Domain-Policies
}

// SecurityHeaders sets nosniff, frame denial and no-referrer on every
// response, plus whatever opt enables. When X-Request-ID is already set it
// is added to Access-Control-Expose-Headers.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	static := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	}
	if opt.EnablePolicy {
		static["Permissions-Policy"] = "geolocation=(), microphone=(), camera=(), payment=()"
		static["X-Permitted-Cross-Domain-Policies"] = "none"
	}

	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := fmt.Sprintf("max-age=%d; includeSubDomains; preload", int64(maxAge/time.Second))

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range static {
			h.Set(k, v)
		}

		if opt.NoStore {
			m := c.Request.Method
			if opt.RevalidateReads && (m == http.MethodGet || m == http.MethodHead) {
				h.Set("Cache-Control", "no-cache")
			} else {
				h.Set("Cache-Control", "no-store")
				h.Set("Pragma", "no-cache")
				h.Set("Expires", "0")
			}
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if h.Get(requestIDHeader) != "" {
			appendToken(h, "Access-Control-Expose-Headers", requestIDHeader)
		}
		c.Next()
	}
}

// appendToken adds tok to the comma-separated header name unless an equal
// token (case-insensitive) is already listed.
func appendToken(h http.Header, name, tok string) {
	cur := h.Get(name)
	if cur == "" {
		h.Set(name, tok)
		return
	}
	for _, t := range strings.Split(cur, ",") {
		if strings.EqualFold(strings.TrimSpace(t), tok) {
			return
		}
	}
	h.Set(name, cur+", "+tok)
}

// isHTTPS trusts X-Forwarded-Proto; the service is expected to sit behind a
// proxy that overwrites it.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
