package uuid

import (
	"sort"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Run("valid_and_unique", func(t *testing.T) {
		seen := make(map[string]struct{})
		for i := 0; i < 1000; i++ {
			id := New()
			if !IsValid(id) {
				t.Fatalf("generated invalid UUID: %s", id)
			}
			if _, ok := seen[id]; ok {
				t.Fatalf("duplicate UUID generated: %s", id)
			}
			seen[id] = struct{}{}
		}
	})

	t.Run("version_and_variant_bits", func(t *testing.T) {
		id := New()
		if id[14] != '7' {
			t.Errorf("expected version 7 at position 14, got %c in %s", id[14], id)
		}
		switch id[19] {
		case '8', '9', 'a', 'b':
		default:
			t.Errorf("expected RFC 4122 variant at position 19, got %c in %s", id[19], id)
		}
	})

	t.Run("time_ordered", func(t *testing.T) {
		ids := make([]string, 0, 5)
		for i := 0; i < 5; i++ {
			ids = append(ids, New())
			time.Sleep(2 * time.Millisecond)
		}
		if !sort.StringsAreSorted(ids) {
			t.Errorf("expected lexicographically ordered IDs, got %v", ids)
		}
	})
}

func TestIsValid(t *testing.T) {
	if IsValid("not-a-uuid") {
		t.Error("expected invalid string to be rejected")
	}
	if !IsValid("018f4a7e-0000-7000-8000-000000000000") {
		t.Error("expected well-formed UUID to be accepted")
	}
}
