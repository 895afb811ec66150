package inbox

import (
	"context"
	"testing"
)

func TestMemoryForgetsOldestIDs(t *testing.T) {
	m := &Memory{Size: 2}
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if seen, _ := m.Seen(ctx, id); seen {
			t.Fatalf("%s reported as seen", id)
		}
	}
	if seen, _ := m.Seen(ctx, "c"); !seen {
		t.Fatalf("duplicate not detected")
	}
	if seen, _ := m.Seen(ctx, "a"); seen {
		t.Fatalf("evicted id still remembered")
	}
}
