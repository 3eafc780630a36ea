// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger. Bodies are never
// logged. Query strings and header values pass through a redactor first:
// listing secret keys and other named parameters or headers are masked
// outright, and emails, phone numbers and UUIDs are replaced wherever they
// appear.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const redacted = "[REDACTED]"

// RedactOptions adds to the built-in masks.
//
// MaskHeaders are header names (case-insensitive) masked in addition to
// Authorization, Cookie, Set-Cookie and X-Secret-Key. MaskQuery are query
// parameter names masked in addition to secretKey.
type RedactOptions struct {
	MaskHeaders []string
	MaskQuery   []string
}

var (
	// UUIDs go first: the phone pattern would otherwise eat their digit runs.
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

type redactor struct {
	headers map[string]struct{}
	params  []*regexp.Regexp
}

func newRedactor(opts RedactOptions) *redactor {
	r := &redactor{headers: map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
		"x-secret-key":  {},
	}}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.headers[h] = struct{}{}
		}
	}
	for _, q := range append([]string{"secretKey"}, opts.MaskQuery...) {
		if q = strings.TrimSpace(q); q != "" {
			r.params = append(r.params, regexp.MustCompile(`(?i)(^|&)(`+regexp.QuoteMeta(q)+`)=[^&]*`))
		}
	}
	return r
}

// text replaces identifiers and contact details in free text.
func (r *redactor) text(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// query masks named parameters, then redacts what is left.
func (r *redactor) query(raw string) string {
	raw = truncate(raw, maxQueryLogLength)
	for _, re := range r.params {
		raw = re.ReplaceAllString(raw, "${1}${2}="+redacted)
	}
	return r.text(raw)
}

func (r *redactor) header(h map[string][]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, vv := range h {
		if _, ok := r.headers[strings.ToLower(k)]; ok {
			d = d.Str(k, redacted)
			continue
		}
		d = d.Str(k, r.text(strings.Join(vv, ", ")))
	}
	return d
}

// RedactingLogger logs one line per request at info, warn for 4xx, or error
// for 5xx and for requests that recorded gin errors. Before the handler runs
// it attaches a request-scoped logger carrying request_id, method and route.
//
// "route" is the matched template (empty when nothing matched) and "path"
// the redacted URL path.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	rd := newRedactor(opts)

	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()

		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}

		attachLogger(c, log.With().
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("route", route).
			Logger())

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= 500 || len(c.Errors) > 0:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		default:
			ev = log.Info()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}

		ev.Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("route", route).
			Str("path", rd.text(c.Request.URL.Path)).
			Str("query", rd.query(c.Request.URL.RawQuery)).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Dict("headers", rd.header(c.Request.Header)).
			Msg("http_request")
	}
}
