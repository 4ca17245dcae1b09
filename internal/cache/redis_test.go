package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	c, err := NewRedisCache("redis://"+s.Addr(), "billtrack:")
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, s
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c, s := setupRedisCache(t)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss")
	}

	if err := c.Set("votes-hash-20251", []byte(`"abc"`), 0); err != nil {
		t.Fatal(err)
	}
	data, ok := c.Get("votes-hash-20251")
	if !ok || string(data) != `"abc"` {
		t.Errorf("unexpected value %q (%v)", data, ok)
	}
	if !s.Exists("billtrack:votes-hash-20251") {
		t.Error("expected prefixed key in redis")
	}

	if err := c.Delete("votes-hash-20251"); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete("votes-hash-20251"); err != nil {
		t.Errorf("expected deleting a missing key to succeed, got %v", err)
	}
	if _, ok := c.Get("votes-hash-20251"); ok {
		t.Error("expected miss after delete")
	}
}

func TestRedisCache_TTL(t *testing.T) {
	c, s := setupRedisCache(t)

	if err := c.Set("short", []byte(`1`), time.Minute); err != nil {
		t.Fatal(err)
	}
	s.FastForward(2 * time.Minute)

	if _, ok := c.Get("short"); ok {
		t.Error("expected expired key to miss")
	}
}

func TestRedisCache_ClearKeepsOtherPrefixes(t *testing.T) {
	c, s := setupRedisCache(t)

	_ = c.Set("a", []byte(`1`), 0)
	_ = c.Set("b", []byte(`2`), 0)
	if err := s.Set("other:a", "keep"); err != nil {
		t.Fatal(err)
	}

	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("expected a cleared")
	}
	if !s.Exists("other:a") {
		t.Error("expected foreign key untouched")
	}
}

func TestRedisCache_BadURL(t *testing.T) {
	if _, err := NewRedisCache("not-a-url://", ""); err == nil {
		t.Error("expected error for bad url")
	}
}
