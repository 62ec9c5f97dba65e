package cache

import (
	"fmt"
	"testing"
)

func TestNewBoundedRejectsNonPositiveCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		if _, err := NewBounded[string, int](capacity); err == nil {
			t.Errorf("NewBounded(%d) expected error", capacity)
		}
	}
}

func TestBoundedSetAndGet(t *testing.T) {
	c, err := NewBounded[string, int](2)
	if err != nil {
		t.Fatalf("NewBounded: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatal("new cache should be empty")
	}

	c.Set("a", 1)
	c.Set("a", 2)

	v, ok := c.Get("a")
	if !ok || v != 2 {
		t.Errorf("Get(a) = %d, %v; want 2, true", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) should miss")
	}
}

func TestBoundedEvictsLeastRecentlyWritten(t *testing.T) {
	c, _ := NewBounded[string, int](3)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Reads must not protect "a" from eviction.
	c.Get("a")
	c.Get("a")

	if evicted := c.Set("d", 4); !evicted {
		t.Fatal("expected an eviction at capacity")
	}
	if c.Contains("a") {
		t.Error("a should have been evicted")
	}

	// Overwriting refreshes the write position.
	c.Set("b", 20)
	c.Set("e", 5)
	if c.Contains("c") {
		t.Error("c should have been evicted before the rewritten b")
	}
	if v, _ := c.Get("b"); v != 20 {
		t.Errorf("Get(b) = %d, want 20", v)
	}

	want := []string{"d", "b", "e"}
	got := c.Keys()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestBoundedNeverExceedsCapacity(t *testing.T) {
	const capacity = 5
	c, _ := NewBounded[int, int](capacity)

	for i := 0; i < 100; i++ {
		c.Set(i%17, i)
		if c.Len() > capacity {
			t.Fatalf("Len() = %d after %d writes, capacity %d", c.Len(), i+1, capacity)
		}
	}
	if c.Capacity() != capacity {
		t.Errorf("Capacity() = %d", c.Capacity())
	}
}

func TestBoundedEvictionIsDeterministic(t *testing.T) {
	ops := []int{1, 2, 3, 1, 4, 5, 2, 6, 7, 3}

	run := func() []int {
		c, _ := NewBounded[int, int](3)
		for _, k := range ops {
			c.Set(k, k)
			c.Get(ops[0])
		}
		return c.Keys()
	}

	first := fmt.Sprint(run())
	for i := 0; i < 5; i++ {
		if got := fmt.Sprint(run()); got != first {
			t.Fatalf("run %d produced %s, first run %s", i, got, first)
		}
	}
}

func TestBoundedEvictionHook(t *testing.T) {
	var evicted []string
	c, _ := NewBounded[string, int](1, WithEvictionHook(func(k string, _ int) {
		evicted = append(evicted, k)
	}))

	c.Set("a", 1)
	c.Set("a", 2)
	c.Set("b", 3)
	c.Remove("b")

	if len(evicted) != 1 || evicted[0] != "a" {
		t.Errorf("evicted = %v, want [a]", evicted)
	}
}

func TestBoundedRemove(t *testing.T) {
	c, _ := NewBounded[string, int](2)
	c.Set("a", 1)

	if !c.Remove("a") {
		t.Error("Remove(a) should report presence")
	}
	if c.Remove("a") {
		t.Error("second Remove(a) should report absence")
	}
	if !c.IsEmpty() {
		t.Error("cache should be empty")
	}
}
