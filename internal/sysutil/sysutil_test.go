package sysutil

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetLogLevel_AllVariants(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"  DeBuG  ", zerolog.DebugLevel}, // case + trim
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel}, // empty -> info
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel}, // alias
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel}, // default
	}

	for _, tc := range cases {
		SetLogLevel(tc.in)
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Fatalf("SetLogLevel(%q) -> %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestSetupLogger_InstallsGlobalsAndFields(t *testing.T) {
	origLevel := zerolog.GlobalLevel()
	origLog := log.Logger
	origCtx := zerolog.DefaultContextLogger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(origLevel)
		log.Logger = origLog
		zerolog.DefaultContextLogger = origCtx
	})

	var buf bytes.Buffer
	SetupLogger(&buf, "warn", false, "campus-market")

	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("level = %v, want warn", zerolog.GlobalLevel())
	}
	if zerolog.DefaultContextLogger == nil {
		t.Fatalf("DefaultContextLogger not installed")
	}

	// A context without a logger falls back to the installed one.
	zerolog.Ctx(context.Background()).Warn().Msg("from context")
	log.Info().Msg("filtered")

	out := buf.String()
	if !strings.Contains(out, `"service":"campus-market"`) || !strings.Contains(out, "from context") {
		t.Fatalf("unexpected output: %s", out)
	}
	if strings.Contains(out, "filtered") {
		t.Fatalf("info entry should be dropped at warn level: %s", out)
	}
}

func TestSetupLogger_Pretty(t *testing.T) {
	origLog := log.Logger
	origCtx := zerolog.DefaultContextLogger
	t.Cleanup(func() {
		log.Logger = origLog
		zerolog.DefaultContextLogger = origCtx
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	var buf bytes.Buffer
	l := SetupLogger(&buf, "info", true, "svc")
	l.Info().Msg("hello")
	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("pretty output should not be JSON: %s", buf.String())
	}
}

func TestFirstNonEmpty(t *testing.T) {
	// no args -> ""
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("FirstNonEmpty() = %q; want \"\"", got)
	}
	// only empties -> ""
	if got := FirstNonEmpty(" ", "\t", "\n"); got != "" {
		t.Fatalf("FirstNonEmpty(empties) = %q; want \"\"", got)
	}
	// picks first non-empty (preserves original spacing)
	if got := FirstNonEmpty("   ", "  hello  ", "world"); got != "  hello  " {
		t.Fatalf("FirstNonEmpty(...) = %q; want %q", got, "  hello  ")
	}
	// first already non-empty
	if got := FirstNonEmpty("alpha", "beta"); got != "alpha" {
		t.Fatalf("FirstNonEmpty(...) = %q; want %q", got, "alpha")
	}
}
