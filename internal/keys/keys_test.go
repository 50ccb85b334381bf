package keys

import (
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \t ", ""},
		{"already clean", "call_sign", "call_sign"},
		{"mixed case", "Call_Sign", "call_sign"},
		{"surrounding whitespace", "  Call Sign\t", "call_sign"},
		{"internal spaces", "Flight Lead Call Sign", "flight_lead_call_sign"},
		{"hyphen kept", "Night-Tint", "night-tint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	for range 200 {
		k := "  " + gofakeit.Name() + " " + strings.ToUpper(gofakeit.Word()) + " "
		once := Sanitize(k)
		twice := Sanitize(once)
		if once != twice {
			t.Fatalf("expected idempotent sanitize for %q, got %q then %q", k, once, twice)
		}
		if once != strings.ToLower(once) {
			t.Errorf("expected lowercase result for %q, got %q", k, once)
		}
		if strings.Contains(once, " ") {
			t.Errorf("expected no spaces in %q", once)
		}
	}
}

func TestEqual(t *testing.T) {
	if !Equal("Night-Tint", " night-tint ") {
		t.Error("expected identifiers to match after sanitizing")
	}
	if Equal("dst", "src") {
		t.Error("expected distinct identifiers not to match")
	}
}
