package slug

import (
	"strings"
	"testing"
)

// mapIndex is an in-memory HolderIndex for allocator tests.
type mapIndex map[string]string

func (m mapIndex) HolderID(slug string) (string, error) {
	return m[slug], nil
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "alice", "alice"},
		{"uppercase", "Alice", "alice"},
		{"punctuation collapsed", "DJ Max!!", "dj-max"},
		{"interior runs", "a__b  c", "a-b-c"},
		{"leading and trailing stripped", "!!hello!!", "hello"},
		{"digits kept", "user 42", "user-42"},
		{"empty falls back", "", Fallback},
		{"only symbols falls back", "!!!", Fallback},
		{"unicode stripped", "héllo", "h-llo"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.input)
			if got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeIsURLSafe(t *testing.T) {
	inputs := []string{"DJ Max!!", "  spaces  ", "ünïcödé", "a---b", "-x-", "", "日本語"}

	for _, input := range inputs {
		got := Normalize(input)

		if got == "" {
			t.Errorf("Normalize(%q) produced empty slug", input)
		}
		if strings.HasPrefix(got, "-") || strings.HasSuffix(got, "-") {
			t.Errorf("Normalize(%q) = %q has leading/trailing hyphen", input, got)
		}
		for _, c := range got {
			if !(c >= 'a' && c <= 'z') && !(c >= '0' && c <= '9') && c != '-' {
				t.Errorf("Normalize(%q) = %q contains invalid character %q", input, got, c)
			}
		}
	}
}

func TestAllocate(t *testing.T) {
	t.Run("unclaimed base", func(t *testing.T) {
		a := NewAllocator(mapIndex{})

		got, err := a.Allocate("DJ Max!!", "")
		if err != nil {
			t.Fatalf("allocate failed: %v", err)
		}
		if got != "dj-max" {
			t.Errorf("expected dj-max, got %q", got)
		}
	})

	t.Run("collision appends suffix", func(t *testing.T) {
		a := NewAllocator(mapIndex{"dj-max": "acct-1"})

		got, err := a.Allocate("DJ Max!!", "")
		if err != nil {
			t.Fatalf("allocate failed: %v", err)
		}
		if got != "dj-max-1" {
			t.Errorf("expected dj-max-1, got %q", got)
		}
	})

	t.Run("suffix increments past taken candidates", func(t *testing.T) {
		a := NewAllocator(mapIndex{"dj-max": "acct-1", "dj-max-1": "acct-2"})

		got, err := a.Allocate("DJ Max!!", "")
		if err != nil {
			t.Fatalf("allocate failed: %v", err)
		}
		if got != "dj-max-2" {
			t.Errorf("expected dj-max-2, got %q", got)
		}
	})

	t.Run("reauthorizing holder keeps its slug", func(t *testing.T) {
		a := NewAllocator(mapIndex{"dj-max": "acct-1"})

		got, err := a.Allocate("DJ Max!!", "acct-1")
		if err != nil {
			t.Fatalf("allocate failed: %v", err)
		}
		if got != "dj-max" {
			t.Errorf("expected dj-max, got %q", got)
		}
	})

	t.Run("empty name uses fallback", func(t *testing.T) {
		a := NewAllocator(mapIndex{})

		got, err := a.Allocate("!!!", "")
		if err != nil {
			t.Fatalf("allocate failed: %v", err)
		}
		if got != Fallback {
			t.Errorf("expected %q, got %q", Fallback, got)
		}
	})
}
