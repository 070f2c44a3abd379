package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestLRU_GetPut(t *testing.T) {
	c := NewLRU[string, int](3)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	if c.Len() != 3 {
		t.Fatalf("expected len 3, got %d", c.Len())
	}
	for k, want := range map[string]int{"a": 1, "b": 2, "c": 3} {
		v, ok := c.Get(k)
		if !ok || v != want {
			t.Fatalf("key %q: want %d got %d (ok=%v)", k, want, v, ok)
		}
	}
}

func TestLRU_EvictsLeastRecent(t *testing.T) {
	c := NewLRU[string, int](2)
	var evicted []string
	c.OnEvict(func(k string, _ int) { evicted = append(evicted, k) })

	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a") // "b" is now the oldest
	c.Put("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected 'b' to be evicted")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("expected eviction callback for b, got %v", evicted)
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected 'a' to survive")
	}
}

func TestLRU_UpdateDoesNotGrow(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Put("a", 1)
	c.Put("a", 5)
	if c.Len() != 1 {
		t.Fatalf("expected len 1, got %d", c.Len())
	}
	if v, _ := c.Get("a"); v != 5 {
		t.Fatalf("expected updated value 5, got %d", v)
	}
}

func TestLRU_GetOrCompute(t *testing.T) {
	c := NewLRU[string, string](4)
	calls := 0
	compute := func() (string, error) {
		calls++
		return "rendered", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute("k", compute)
		if err != nil || v != "rendered" {
			t.Fatalf("unexpected result %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single compute, got %d", calls)
	}

	_, err := c.GetOrCompute("bad", func() (string, error) { return "", errors.New("nope") })
	if err == nil {
		t.Fatal("expected compute error")
	}
	if _, ok := c.Get("bad"); ok {
		t.Fatal("failed compute must not be cached")
	}

	st := c.Stats()
	if st.Hits < 2 || st.Cap != 4 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestLRU_ClearAndRemove(t *testing.T) {
	c := NewLRU[int, int](0)
	if c.Stats().Cap != 1 {
		t.Fatalf("expected capacity normalised to 1, got %d", c.Stats().Cap)
	}
	c.Put(1, 1)
	c.Remove(1)
	if c.Len() != 0 {
		t.Fatal("expected empty after remove")
	}
	c.Put(2, 2)
	c.Clear()
	if c.Len() != 0 {
		t.Fatal("expected empty after clear")
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[string, int](64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%100)
				c.Put(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > 64 {
		t.Fatalf("cache exceeded capacity: %d", c.Len())
	}
}
