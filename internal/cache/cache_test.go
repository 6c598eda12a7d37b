package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New[string](10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get on empty cache should miss")
	}
	c.Set("a", "value-a")
	got, ok := c.Get("a")
	if !ok || got != "value-a" {
		t.Fatalf("Get(a) = %q, %v; want value-a, true", got, ok)
	}

	c.Set("a", "value-a2")
	if got, _ := c.Get("a"); got != "value-a2" {
		t.Errorf("overwrite not visible, got %q", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestExpiry(t *testing.T) {
	c := New[int](10, 20*time.Millisecond)
	c.Set("k", 42)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("fresh entry should hit")
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry should miss")
	}
	if c.Size() != 0 {
		t.Errorf("expired entry should be removed on access, Size() = %d", c.Size())
	}
}

func TestDelete(t *testing.T) {
	c := New[int](10, time.Minute)
	c.Set("k", 1)
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("deleted entry should miss")
	}
	// Deleting a missing key is a no-op.
	c.Delete("k")
}

func TestLRUEviction(t *testing.T) {
	c := New[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a becomes most recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted as least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
}

func TestCleanExpired(t *testing.T) {
	c := New[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", 3)

	if n := c.CleanExpired(); n != 2 {
		t.Errorf("CleanExpired() = %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}
