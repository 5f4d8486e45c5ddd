package registry

import (
	"context"
	"sync"
	"testing"
)

func TestSuppression_Scoping(t *testing.T) {
	base := context.Background()

	if IsSuppressed(base, "order", "p1") {
		t.Error("Nothing should be suppressed on a fresh context")
	}

	scoped := WithSuppressed(base, "order", "p1")
	if !IsSuppressed(scoped, "order", "p1") {
		t.Error("Expected suppression inside the derived context")
	}
	if IsSuppressed(scoped, "order", "p2") {
		t.Error("Other policies should stay active")
	}
	if IsSuppressed(scoped, "invoice", "p1") {
		t.Error("Same policy name on another entity should stay active")
	}

	// The base context is untouched: leaving the scope is just not using
	// the derived context anymore.
	if IsSuppressed(base, "order", "p1") {
		t.Error("Suppression must not leak into the parent context")
	}
}

func TestSuppression_Nested(t *testing.T) {
	ctx := WithSuppressed(context.Background(), "order", "p1")
	inner := WithSuppressed(ctx, "order", "p2")

	if !IsSuppressed(inner, "order", "p1") || !IsSuppressed(inner, "order", "p2") {
		t.Error("Nested scopes should accumulate")
	}
	if IsSuppressed(ctx, "order", "p2") {
		t.Error("Outer scope should not see the inner suppression")
	}
}

func TestSuppressed_Callback(t *testing.T) {
	outer := context.Background()

	err := Suppressed(outer, "order", "p1", func(ctx context.Context) error {
		if !IsSuppressed(ctx, "order", "p1") {
			t.Error("Expected suppression inside the callback")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Suppressed returned error: %v", err)
	}

	if IsSuppressed(outer, "order", "p1") {
		t.Error("Suppression should end with the callback")
	}
}

func TestSuppression_ConcurrentUnitsOfWork(t *testing.T) {
	// Two goroutines deriving from the same base must never observe each
	// other's suppressions.
	base := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ctx := WithSuppressed(base, "order", "p1")
			if IsSuppressed(ctx, "order", "p2") {
				t.Error("Observed another goroutine's suppression")
			}
		}()
		go func() {
			defer wg.Done()
			ctx := WithSuppressed(base, "order", "p2")
			if IsSuppressed(ctx, "order", "p1") {
				t.Error("Observed another goroutine's suppression")
			}
		}()
	}
	wg.Wait()
}
