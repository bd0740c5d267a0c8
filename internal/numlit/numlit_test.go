package numlit

import (
	"errors"
	"testing"
)

func TestParseInt32(t *testing.T) {
	tests := []struct {
		lit  string
		want int32
	}{
		{"0", 0},
		{"42", 42},
		{"-7", -7},
		{"+7", 7},
		{"1_000_000", 1000000},
		{"0x1F", 31},
		{"-0x80000000", -2147483648},
		{"0b1010", 10},
		{"0o17", 15},
		{"2147483647", 2147483647},
	}
	for _, tt := range tests {
		got, err := ParseInt32(tt.lit)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.lit, err)
		}
		if got != tt.want {
			t.Fatalf("%q: expected %d, got %d", tt.lit, tt.want, got)
		}
	}
}

func TestParseInt32Rejects(t *testing.T) {
	for _, lit := range []string{"", "-", "x1", "0x", "1__0", "_1", "1_", "0b2", "12a", "--1"} {
		if _, err := ParseInt32(lit); err == nil {
			t.Fatalf("%q: expected error", lit)
		}
	}
	for _, lit := range []string{"2147483648", "-2147483649", "4294967296"} {
		if _, err := ParseInt32(lit); !errors.Is(err, ErrRange) {
			t.Fatalf("%q: expected range error, got %v", lit, err)
		}
	}
}

func TestNormalizeIntLiteral(t *testing.T) {
	info, err := NormalizeIntLiteral("-0xFF_FF")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.Negative || info.Base != 16 || info.Digits != "FF_FF" || info.Normalized != "-FFFF" {
		t.Fatalf("unexpected literal %+v", info)
	}
}
