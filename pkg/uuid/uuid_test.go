package uuid

import (
	"testing"
)

func TestNewAndParse(t *testing.T) {
	u, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s := u.String()
	if len(s) != 36 {
		t.Fatalf("String() length = %d, want 36", len(s))
	}

	parsed, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	if parsed != u {
		t.Fatalf("Parse round trip mismatch: %v != %v", parsed, u)
	}
}

func TestNewStringUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := NewString()
		if seen[s] {
			t.Fatalf("duplicate uuid generated: %s", s)
		}
		seen[s] = true
	}
}

func TestParseInvalid(t *testing.T) {
	for _, s := range []string{"", "not-a-uuid", "12345678-1234-1234-1234"} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("Parse(%q) expected error", s)
		}
	}
}
