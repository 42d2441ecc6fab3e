package gate

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingResolver struct {
	calls int
	role  Role
	err   error
}

func (c *countingResolver) Resolve(_ context.Context, _ uint) (Role, error) {
	c.calls++
	return c.role, c.err
}

func TestCachedResolver_HitsInnerOncePerTTL(t *testing.T) {
	inner := &countingResolver{role: NewStaticRole(1, "Kasir")}
	clock := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cached := NewCachedResolver[uint](inner, time.Minute)
	cached.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		role, err := cached.Resolve(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if role.Name() != "Kasir" {
			t.Fatalf("expected Kasir, got %s", role.Name())
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 inner call, got %d", inner.calls)
	}

	clock = clock.Add(2 * time.Minute)
	if _, err := cached.Resolve(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected refetch after expiry, got %d calls", inner.calls)
	}
}

func TestCachedResolver_Invalidate(t *testing.T) {
	inner := NewStaticResolver[uint]()
	inner.Set(1, NewStaticRole(1, "Kasir"))
	cached := NewCachedResolver[uint](inner, time.Hour)

	_, _ = cached.Resolve(context.Background(), 1)
	inner.Set(1, NewStaticRole(2, "Admin"))

	role, _ := cached.Resolve(context.Background(), 1)
	if role.Name() != "Kasir" {
		t.Fatalf("expected cached Kasir, got %s", role.Name())
	}

	cached.Invalidate(1)
	role, _ = cached.Resolve(context.Background(), 1)
	if role.Name() != "Admin" {
		t.Fatalf("expected Admin after invalidation, got %s", role.Name())
	}
}

func TestCachedResolver_InvalidateAll(t *testing.T) {
	inner := NewStaticResolver[uint]()
	inner.Set(1, NewStaticRole(1, "Kasir"))
	inner.Set(2, NewStaticRole(1, "Kasir"))
	cached := NewCachedResolver[uint](inner, time.Hour)
	_, _ = cached.Resolve(context.Background(), 1)
	_, _ = cached.Resolve(context.Background(), 2)

	inner.Set(1, NewStaticRole(3, "Gudang"))
	inner.Set(2, NewStaticRole(3, "Gudang"))
	cached.InvalidateAll()

	r1, _ := cached.Resolve(context.Background(), 1)
	r2, _ := cached.Resolve(context.Background(), 2)
	if r1.Name() != "Gudang" || r2.Name() != "Gudang" {
		t.Fatal("expected both users to see Gudang after InvalidateAll")
	}
}

func TestCachedResolver_DoesNotCacheErrors(t *testing.T) {
	inner := &countingResolver{err: errors.New("db down")}
	cached := NewCachedResolver[uint](inner, time.Hour)

	if _, err := cached.Resolve(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
	inner.err = nil
	inner.role = NewStaticRole(1, "Admin")
	role, err := cached.Resolve(context.Background(), 1)
	if err != nil || role == nil {
		t.Fatalf("expected role after recovery, got %v, %v", role, err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 inner calls, got %d", inner.calls)
	}
}
