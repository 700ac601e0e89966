package utils

import (
	"errors"
	"testing"
)

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		// empty -> default
		{"", 10, 10},
		// valid ints
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		// invalid -> default (no trim)
		{"x", 5, 5},
		{" 42", 7, 7},
		// overflow -> default
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestParseUint(t *testing.T) {
	if got, err := ParseUint("42"); err != nil || got != 42 {
		t.Fatalf("ParseUint(42) = %d, %v", got, err)
	}
	if got, err := ParseUint("0012"); err != nil || got != 12 {
		t.Fatalf("ParseUint(0012) = %d, %v", got, err)
	}

	for _, s := range []string{"", "0", "-1", "x", " 42", "1.5", "999999999999999999999999"} {
		if _, err := ParseUint(s); !errors.Is(err, ErrNotPositiveInt) {
			t.Fatalf("ParseUint(%q) err = %v; want ErrNotPositiveInt", s, err)
		}
	}
}
