package engine

import (
	"testing"
)

func TestNodeCacheSize(t *testing.T) {
	tests := []struct {
		requested uint32
		want      uint32
	}{
		{0, 2},
		{2, 2},
		{100, 128},
		{1024, 1024},
	}
	for _, tc := range tests {
		if got := NewNodeCache(tc.requested).Size(); got != tc.want {
			t.Errorf("NewNodeCache(%d).Size() = %d, want %d", tc.requested, got, tc.want)
		}
	}
}

func TestNodeCacheLookupAdd(t *testing.T) {
	c := NewNodeCache(1024)
	key := StartingPosition().Key()

	_, slot := c.Lookup(key, 2)
	if slot == CacheHit {
		t.Fatal("empty cache reported a hit")
	}
	c.Add(key, 2, 0.25, slot)

	eq, res := c.Lookup(key, 2)
	if res != CacheHit || eq != 0.25 {
		t.Errorf("Lookup after Add = (%v, %v), want (0.25, hit)", eq, res)
	}

	// depth is part of the entry
	if _, res := c.Lookup(key, 3); res == CacheHit {
		t.Error("lookup at a different depth should miss")
	}

	other := StartingPosition()
	other.Dice = Roll{6, 1}
	if _, res := c.Lookup(other.Key(), 2); res == CacheHit {
		t.Error("lookup with different dice should miss")
	}

	lookups, hits, adds := c.Stats()
	if lookups != 4 || hits != 1 || adds != 1 {
		t.Errorf("Stats() = %d/%d/%d, want 4/1/1", lookups, hits, adds)
	}
	if c.HitRate() != 25 {
		t.Errorf("HitRate() = %v, want 25", c.HitRate())
	}

	c.Flush()
	if _, res := c.Lookup(key, 2); res == CacheHit {
		t.Error("Flush should empty the cache")
	}
}

func TestNodeCacheTwoWay(t *testing.T) {
	// a two-entry cache has a single slot holding two entries
	c := NewNodeCache(2)
	keys := make([]Position, 3)
	for i := range keys {
		keys[i] = StartingPosition()
		keys[i].Dice = Roll{i + 1, i + 1}
	}

	for i, p := range keys {
		_, slot := c.Lookup(p.Key(), 1)
		c.Add(p.Key(), 1, float64(i), slot)
	}

	if _, res := c.Lookup(keys[0].Key(), 1); res == CacheHit {
		t.Error("oldest entry should have been evicted")
	}
	for i := 1; i < 3; i++ {
		eq, res := c.Lookup(keys[i].Key(), 1)
		if res != CacheHit || eq != float64(i) {
			t.Errorf("entry %d: got (%v, %v)", i, eq, res)
		}
	}
}
