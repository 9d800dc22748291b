package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clk := newTestCache(3, time.Minute)
	c.Set("totals", "v1")

	if got, ok := c.Get("totals"); !ok || got != "v1" {
		t.Fatalf("Get() = %q, %v", got, ok)
	}
	clk.advance(time.Minute)
	if _, ok := c.Get("totals"); ok {
		t.Fatal("entry should have expired")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry not removed, size %d", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
}

func TestLRUCache_ClearAndDelete(t *testing.T) {
	c, _ := newTestCache(5, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	if c.Size() != 1 {
		t.Fatalf("size after delete = %d", c.Size())
	}
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("size after clear = %d", c.Size())
	}
	c.Set("a", "again")
	if got, ok := c.Get("a"); !ok || got != "again" {
		t.Fatalf("cache unusable after Clear: %q %v", got, ok)
	}
}

func TestLRUCache_SetIfGenerationSkipsAfterClear(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)

	gen := c.Generation()
	c.Clear()
	if c.SetIfGeneration("totals", "stale", gen) {
		t.Fatal("value read before Clear must not be stored")
	}
	if _, ok := c.Get("totals"); ok {
		t.Fatal("stale value was cached")
	}

	gen = c.Generation()
	if !c.SetIfGeneration("totals", "fresh", gen) {
		t.Fatal("SetIfGeneration with current generation should store")
	}
	if got, ok := c.Get("totals"); !ok || got != "fresh" {
		t.Fatalf("Get() = %q, %v", got, ok)
	}
}

func TestLRUCache_ZeroTTLDisables(t *testing.T) {
	c, _ := newTestCache(5, 0)
	c.Set("a", "1")
	if _, ok := c.Get("a"); ok {
		t.Fatal("zero TTL must not cache")
	}
}

func TestLRUCache_CleanExpired(t *testing.T) {
	c, clk := newTestCache(5, time.Minute)
	c.Set("old", "1")
	clk.advance(30 * time.Second)
	c.Set("new", "2")
	clk.advance(45 * time.Second)

	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired() = %d, want 1", n)
	}
	if _, ok := c.Get("new"); !ok {
		t.Fatal("fresh entry swept")
	}
}

func TestManager_StopIsIdempotent(t *testing.T) {
	m := NewManager()
	c, _ := newTestCache(1, time.Minute)
	m.Register(c)
	m.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
	m.Stop()
}
