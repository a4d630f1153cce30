package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *clock) {
	clk := &clock{t: time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUExpiry(t *testing.T) {
	c, clk := newTestCache(10, 30*time.Second)
	c.Set("tx:ledger-1", "rows")

	if v, ok := c.Get("tx:ledger-1"); !ok || v != "rows" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
	clk.t = clk.t.Add(30 * time.Second)
	if _, ok := c.Get("tx:ledger-1"); ok {
		t.Fatal("entry should expire at ttl")
	}
	if st := c.Stats(); st.Hits != 1 || st.Misses != 1 || st.Size != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestLRUEviction(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry evicted")
	}
	if c.Size() != 2 {
		t.Errorf("size = %d", c.Size())
	}
}

func TestDeleteSuffix(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set("tx:ledger-1", "a")
	c.Set("budget:ledger-1", "b")
	c.Set("tx:ledger-2", "c")

	if n := c.DeleteSuffix(":ledger-1"); n != 2 {
		t.Fatalf("removed = %d", n)
	}
	if _, ok := c.Get("tx:ledger-2"); !ok {
		t.Error("other ledger invalidated")
	}
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	c, _ := newTestCache(10, 0)
	c.Set("k", "v")
	if _, ok := c.Get("k"); ok {
		t.Fatal("zero ttl should not cache")
	}
}

func TestManagerSweep(t *testing.T) {
	c, clk := newTestCache(10, time.Second)
	c.Set("a", "1")
	c.Set("b", "2")
	clk.t = clk.t.Add(2 * time.Second)
	c.Set("c", "3")

	m := NewManager()
	m.Register(c)
	if n := m.Sweep(); n != 2 {
		t.Errorf("swept = %d, want 2", n)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
