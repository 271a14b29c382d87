package cache

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()

	c.Set("quote:AAPL", 42)

	got, ok := c.Get("quote:AAPL")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.(int) != 42 {
		t.Fatalf("got %v, want 42", got)
	}
}

func TestCache_Miss(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()

	if _, ok := c.Get("quote:MISSING"); ok {
		t.Fatal("expected cache miss")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := New(10*time.Millisecond, 0)
	defer c.Close()

	c.Set("quote:AAPL", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("quote:AAPL"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestCache_ExplicitTTLOverridesDefault(t *testing.T) {
	c := New(10*time.Millisecond, 0)
	defer c.Close()

	c.SetTTL("company:AAPL", 1, time.Minute)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("company:AAPL"); !ok {
		t.Fatal("entry with explicit TTL should survive the default TTL")
	}
}

func TestCache_LastWriteWins(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()

	c.Set("quote:AAPL", 1)
	c.Set("quote:AAPL", 2)

	got, _ := c.Get("quote:AAPL")
	if got.(int) != 2 {
		t.Fatalf("got %v, want 2", got)
	}
}

func TestCache_KeysPrefix(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()

	c.Set("quote:AAPL", 1)
	c.Set("quote:MSFT", 1)
	c.Set("company:AAPL", 1)
	c.SetTTL("quote:OLD", 1, -time.Second)

	keys := c.Keys("quote:")
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2: %v", len(keys), keys)
	}
	for _, k := range keys {
		if k != "quote:AAPL" && k != "quote:MSFT" {
			t.Fatalf("unexpected key %q", k)
		}
	}
}

func TestCache_Sweep(t *testing.T) {
	c := New(5*time.Millisecond, 10*time.Millisecond)
	defer c.Close()

	c.Set("quote:AAPL", 1)
	time.Sleep(30 * time.Millisecond)

	if c.Len() != 0 {
		t.Fatalf("sweep should have removed expired entries, len=%d", c.Len())
	}
}
