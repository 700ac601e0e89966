package sysutil

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogLevel(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"  DeBuG  ", zerolog.DebugLevel}, // case + trim
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel}, // alias
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"", zerolog.InfoLevel},        // empty -> info
		{"verbose", zerolog.InfoLevel}, // unrecognized -> info
	}

	for _, tc := range cases {
		SetLogLevel(tc.in)
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Fatalf("SetLogLevel(%q) -> %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestIsTruthy(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{" yes ", true},
		{"Y", true},
		{"on", true},
		{"On", true},
		{"", false},
		{"0", false},
		{"false", false},
		{"no", false},
		{"off", false},
		{"n", false},
		{"  ", false},
		{"batch", false},
	}

	for _, tc := range cases {
		if got := IsTruthy(tc.in); got != tc.want {
			t.Fatalf("IsTruthy(%q) = %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("FirstNonEmpty() = %q; want \"\"", got)
	}
	if got := FirstNonEmpty(" ", "\t", "\n"); got != "" {
		t.Fatalf("FirstNonEmpty(empties) = %q; want \"\"", got)
	}
	// Returns the winning value verbatim, spacing included.
	if got := FirstNonEmpty("   ", "  v1.2.3  ", "dev"); got != "  v1.2.3  " {
		t.Fatalf("FirstNonEmpty(...) = %q; want %q", got, "  v1.2.3  ")
	}
	if got := FirstNonEmpty("v2.0.0", "dev"); got != "v2.0.0" {
		t.Fatalf("FirstNonEmpty(...) = %q; want %q", got, "v2.0.0")
	}
}
