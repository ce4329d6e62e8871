package lang

import (
	"strings"
	"testing"
)

// TestNormalize_EveryTableEntry checks that every known language name
// normalizes to its code regardless of case and surrounding whitespace.
func TestNormalize_EveryTableEntry(t *testing.T) {
	for name, code := range names {
		if got := Normalize(name); got != code {
			t.Errorf("Normalize(%q) = %q, want %q", name, got, code)
		}
		upper := strings.ToUpper(name)
		if got := Normalize(upper); got != code {
			t.Errorf("Normalize(%q) = %q, want %q", upper, got, code)
		}
		padded := "  " + name + "  "
		if got := Normalize(padded); got != code {
			t.Errorf("Normalize(%q) = %q, want %q", padded, got, code)
		}
	}
}

// TestNormalize_Empty checks the default fallback for degenerate input.
func TestNormalize_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		if got := Normalize(raw); got != DefaultCode {
			t.Errorf("Normalize(%q) = %q, want %q", raw, got, DefaultCode)
		}
	}
}

// TestNormalize_UnknownLongName checks that unrecognized long values fall
// back to the default code.
func TestNormalize_UnknownLongName(t *testing.T) {
	if got := Normalize("klingon"); got != DefaultCode {
		t.Errorf("Normalize(\"klingon\") = %q, want %q", got, DefaultCode)
	}
}

// TestNormalize_ShortPassThrough checks that short unrecognized values are
// treated as already-coded and returned verbatim.
func TestNormalize_ShortPassThrough(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"xx", "xx"},
		{"HI", "hi"},
		{" de ", "de"},
		{"yue", "yue"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.raw); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

// TestDisplayName checks the inverse lookup and its verbatim fallback.
func TestDisplayName(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"en", "English"},
		{"hi", "Hindi"},
		{"kk", "Kazakh"},
		{"zzz", "zzz"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.code); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

// TestDisplayName_RoundTrip checks that the inverse table covers the forward
// table exactly.
func TestDisplayName_RoundTrip(t *testing.T) {
	if len(displayNames) > len(names) {
		t.Fatalf("inverse table has %d entries, forward table has %d", len(displayNames), len(names))
	}
	for name, code := range names {
		got := DisplayName(code)
		if !strings.EqualFold(got, name) {
			t.Errorf("DisplayName(%q) = %q, want %q up to case", code, got, name)
		}
		if got == "" || got[0] < 'A' || got[0] > 'Z' {
			t.Errorf("DisplayName(%q) = %q, want a capitalized name", code, got)
		}
	}
}
