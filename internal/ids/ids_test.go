package ids

import (
	"sort"
	"testing"
	"time"
)

func TestNew_ReturnsValidULID(t *testing.T) {
	id := New()
	if len(id) != 26 {
		t.Fatalf("expected 26-character ULID, got %q (len %d)", id, len(id))
	}
	if !Valid(id) {
		t.Errorf("Valid(%q) = false, want true", id)
	}
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestNew_SortsByCreationOrder(t *testing.T) {
	first := New()
	time.Sleep(2 * time.Millisecond)
	second := New()

	got := []string{second, first}
	sort.Strings(got)
	if got[0] != first || got[1] != second {
		t.Errorf("ids do not sort by creation order: first=%s second=%s", first, second)
	}
}

func TestValid_RejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "not-a-ulid", "0123456789012345678901234!"} {
		if Valid(s) {
			t.Errorf("Valid(%q) = true, want false", s)
		}
	}
}
