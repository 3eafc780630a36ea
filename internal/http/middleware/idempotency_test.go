package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type lookupCall struct {
	session, key string
}

// newIdemEngine mounts the validator in front of a cart-add route that
// reports what the middleware stashed.
func newIdemEngine(opts IdempotencyOptions, lookup IdempotencyLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(opts, lookup))
	report := func(c *gin.Context) {
		key, _ := GetIdempotencyKey(c)
		c.JSON(http.StatusOK, gin.H{"key": key, "replay": IsReplay(c), "bypass": IsRateBypass(c)})
	}
	r.POST("/api/cart/:sessionId", report)
	r.GET("/api/cart/:sessionId", report)
	r.POST("/api/products", report)
	return r
}

func postWithKey(r http.Handler, method, path, key string) (int, map[string]any) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w.Code, body
}

func TestHelpers_DefaultAndWrongTypes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if _, ok := GetIdempotencyKey(c); ok || IsReplay(c) {
		t.Fatalf("helpers should report absent by default")
	}
	c.Set(ctxKeyIdemKey, 123)
	c.Set(ctxKeyIdemReplay, "yes")
	if _, ok := GetIdempotencyKey(c); ok || IsReplay(c) {
		t.Fatalf("non-string/non-bool values should read as absent")
	}
}

func TestIdempotencyValidator_LookupScopedToSession(t *testing.T) {
	var calls []lookupCall
	recorded := map[lookupCall]bool{{"sess-1", "add-1"}: true}
	lookup := func(_ context.Context, sid, key string, now time.Time) (bool, error) {
		if now.Location() != time.UTC {
			t.Errorf("lookup time should be UTC")
		}
		calls = append(calls, lookupCall{sid, key})
		return recorded[lookupCall{sid, key}], nil
	}
	r := newIdemEngine(IdempotencyOptions{}, lookup)

	tests := []struct {
		name       string
		method     string
		path       string
		key        string
		wantReplay bool
		wantKey    string
		wantLookup bool
	}{
		{"no header", http.MethodPost, "/api/cart/sess-1", "", false, "", false},
		{"recorded key", http.MethodPost, "/api/cart/sess-1", "add-1", true, "add-1", true},
		{"same key other session", http.MethodPost, "/api/cart/sess-2", "add-1", false, "add-1", true},
		{"padded key is trimmed", http.MethodPost, "/api/cart/sess-1", "  add-1 ", true, "add-1", true},
		{"route without session", http.MethodPost, "/api/products", "add-1", false, "add-1", false},
		{"GET is ignored", http.MethodGet, "/api/cart/sess-1", "add-1", false, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			calls = nil
			code, body := postWithKey(r, tc.method, tc.path, tc.key)
			if code != http.StatusOK {
				t.Fatalf("code = %d", code)
			}
			if body["replay"] != tc.wantReplay || body["bypass"] != tc.wantReplay {
				t.Fatalf("replay=%v bypass=%v, want %v", body["replay"], body["bypass"], tc.wantReplay)
			}
			if body["key"] != tc.wantKey {
				t.Fatalf("key = %v, want %q", body["key"], tc.wantKey)
			}
			if (len(calls) > 0) != tc.wantLookup {
				t.Fatalf("lookup calls = %v, want called=%v", calls, tc.wantLookup)
			}
		})
	}
}

func TestIdempotencyValidator_RejectsMalformedKeys(t *testing.T) {
	r := newIdemEngine(IdempotencyOptions{MaxLen: 8, Pattern: regexp.MustCompile(`^[a-z0-9-]+$`)}, nil)

	for _, key := range []string{"too-long-key", "UPPER", "with space"} {
		code, body := postWithKey(r, http.MethodPost, "/api/cart/s", key)
		if code != http.StatusBadRequest || body["code"] != "bad_idempotency_key" {
			t.Fatalf("key %q: code=%d body=%v", key, code, body)
		}
	}
	if code, _ := postWithKey(r, http.MethodPost, "/api/cart/s", "ok-1"); code != http.StatusOK {
		t.Fatalf("valid key rejected: %d", code)
	}
}

func TestIdempotencyValidator_DefaultLimits(t *testing.T) {
	r := newIdemEngine(IdempotencyOptions{}, nil)
	if code, _ := postWithKey(r, http.MethodPost, "/api/cart/s", strings.Repeat("k", 200)); code != http.StatusOK {
		t.Fatalf("200-byte key should pass, got %d", code)
	}
	if code, _ := postWithKey(r, http.MethodPost, "/api/cart/s", strings.Repeat("k", 201)); code != http.StatusBadRequest {
		t.Fatalf("201-byte key should fail, got %d", code)
	}
	if code, _ := postWithKey(r, http.MethodPost, "/api/cart/s", "a/b"); code != http.StatusBadRequest {
		t.Fatalf("slash is outside the default pattern, got %d", code)
	}
}

func TestIdempotencyValidator_LookupErrorIsAMiss(t *testing.T) {
	lookup := func(context.Context, string, string, time.Time) (bool, error) {
		return false, errors.New("database is locked")
	}
	r := newIdemEngine(IdempotencyOptions{}, lookup)

	code, body := postWithKey(r, http.MethodPost, "/api/cart/s", "k1")
	if code != http.StatusOK || body["replay"] != false || body["key"] != "k1" {
		t.Fatalf("code=%d body=%v", code, body)
	}
}
