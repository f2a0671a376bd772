package registry

import (
	"context"
	"testing"
)

func TestStaticLookupDirectionAgnostic(t *testing.T) {
	static := NewStatic()
	static.Add("0xpair", "0xAAAA", "0xbbbb")

	pair, ok, err := static.PairFor(context.Background(), "0xbbbb", "0xaaaa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("reversed pairing not found")
	}
	if pair != "0xpair" {
		t.Fatalf("pair = %s, want 0xpair", pair)
	}
}

func TestStaticLookupMiss(t *testing.T) {
	static := NewStatic()

	_, ok, err := static.PairFor(context.Background(), "0xaaaa", "0xbbbb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("unexpected pair for unknown pairing")
	}
}

func TestCacheKeyOrdering(t *testing.T) {
	if cacheKey("0xBBBB", "0xaaaa") != cacheKey("0xAAAA", "0xbbbb") {
		t.Fatalf("cache key must not depend on argument order")
	}
}
