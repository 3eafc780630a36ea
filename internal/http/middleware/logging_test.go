package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// swapGlobalLog points the global logger at a buffer for the test.
func swapGlobalLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	prev := log.Logger
	log.Logger = zerolog.New(buf)
	t.Cleanup(func() { log.Logger = prev })
	return buf
}

// logLines decodes every JSON line in buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

// lineWith returns the first line whose message is msg.
func lineWith(t *testing.T, lines []map[string]any, msg string) map[string]any {
	t.Helper()
	for _, l := range lines {
		if l["message"] == msg {
			return l
		}
	}
	t.Fatalf("no log line with message %q in %v", msg, lines)
	return nil
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	long := strings.Repeat("a", 129)
	cases := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"absent", "", false},
		{"simple", "abc-123", true},
		{"dotted and colons", "lb:1.req_9", true},
		{"spaces", "has spaces", false},
		{"control chars", "x\ty", false},
		{"too long", long, false},
		{"max length", long[:128], true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			r := gin.New()
			r.Use(RequestID())
			r.GET("/rid", func(c *gin.Context) {
				seen = c.GetString(requestIDKey)
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/rid", nil)
			if tc.incoming != "" {
				req.Header.Set(requestIDHeader, tc.incoming)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			if got != seen {
				t.Fatalf("header %q and context %q differ", got, seen)
			}
			if tc.keep {
				if got != tc.incoming {
					t.Fatalf("id = %q, want %q kept", got, tc.incoming)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected generated uuid, got %q", got)
			}
		})
	}
}

func TestLoggerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("global fallback", func(t *testing.T) {
		buf := swapGlobalLog(t)
		r := gin.New()
		r.Use(RequestID())
		r.GET("/x", func(c *gin.Context) {
			LoggerFrom(c).Info().Msg("plain")
			c.Status(http.StatusOK)
		})
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		line := lineWith(t, logLines(t, buf), "plain")
		if _, ok := line["request_id"]; ok {
			t.Fatalf("fallback logger should carry no request fields: %v", line)
		}
	})

	t.Run("request scoped", func(t *testing.T) {
		buf := swapGlobalLog(t)
		r := gin.New()
		r.Use(RequestID(), RedactingLogger(RedactOptions{}))
		r.GET("/products/:id", func(c *gin.Context) {
			LoggerFrom(c).Info().Msg("handler")
			zerolog.Ctx(c.Request.Context()).Info().Msg("service")
			c.Status(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodGet, "/products/abc", nil)
		req.Header.Set(requestIDHeader, "rid-7")
		r.ServeHTTP(httptest.NewRecorder(), req)

		lines := logLines(t, buf)
		for _, msg := range []string{"handler", "service"} {
			line := lineWith(t, lines, msg)
			if line["request_id"] != "rid-7" || line["route"] != "/products/:id" || line["method"] != "GET" {
				t.Fatalf("%s line missing request fields: %v", msg, line)
			}
		}
	})
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("before write", func(t *testing.T) {
		buf := swapGlobalLog(t)
		r := gin.New()
		r.Use(RequestID(), RedactingLogger(RedactOptions{}), Recovery())
		r.POST("/cart/:sessionId", func(c *gin.Context) { panic("cart exploded") })

		req := httptest.NewRequest(http.MethodPost, "/cart/s1", nil)
		req.Header.Set(requestIDHeader, "rid-p")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", w.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("body: %v", err)
		}
		if body["code"] != "internal_error" || body["request_id"] != "rid-p" {
			t.Fatalf("unexpected body %v", body)
		}

		lines := logLines(t, buf)
		p := lineWith(t, lines, "panic recovered")
		if p["panic"] != "cart exploded" || p["route"] != "/cart/:sessionId" {
			t.Fatalf("panic line = %v", p)
		}
		if p["stack"] == nil {
			t.Fatalf("panic line has no stack")
		}
		access := lineWith(t, lines, "http_request")
		if access["level"] != "error" || access["status"] != float64(500) {
			t.Fatalf("access line = %v", access)
		}
	})

	t.Run("after write", func(t *testing.T) {
		buf := swapGlobalLog(t)
		r := gin.New()
		r.Use(RequestID(), RedactingLogger(RedactOptions{}), Recovery())
		r.GET("/stream", func(c *gin.Context) {
			c.String(http.StatusOK, "partial")
			panic("late")
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stream", nil))

		if strings.Contains(w.Body.String(), "internal_error") {
			t.Fatalf("envelope written after body started: %q", w.Body.String())
		}
		lineWith(t, logLines(t, buf), "panic recovered")
	})
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"abcdefgh", 5, "abcde…"},
		{"abc", 0, "abc"},
		{"abc", -1, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
