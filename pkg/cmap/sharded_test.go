package cmap

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestMap_Basic(t *testing.T) {
	m := New[string, int]()
	if _, ok := m.Get("a"); ok {
		t.Fatal("empty map returned a value")
	}
	m.Set("a", 1)
	m.Set("b", 2)
	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d", m.Len())
	}
	m.Delete("a")
	if _, ok := m.Get("a"); ok {
		t.Error("deleted key still present")
	}
}

func TestNewWithShards_RoundsBadCounts(t *testing.T) {
	for _, n := range []int{0, -4, 3, 12} {
		if got := len(NewWithShards[int, int](n).shards); got != DefaultShardCount {
			t.Errorf("NewWithShards(%d) has %d shards", n, got)
		}
	}
	if got := len(NewWithShards[int, int](4).shards); got != 4 {
		t.Errorf("NewWithShards(4) has %d shards", got)
	}
}

func TestMap_GetOrComputeOnce(t *testing.T) {
	m := New[string, *int]()
	var created atomic.Int32
	var wg sync.WaitGroup
	results := make([]*int, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = m.GetOrCompute("k", func() *int {
				created.Add(1)
				return new(int)
			})
		}(i)
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Errorf("create ran %d times", created.Load())
	}
	for _, r := range results {
		if r != results[0] {
			t.Fatal("callers saw different values")
		}
	}
	if _, loaded := m.GetOrCompute("k", func() *int { return nil }); !loaded {
		t.Error("existing key reported as created")
	}
}

func TestMap_DeleteFuncAndRange(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 100; i++ {
		m.Set(i, i)
	}
	if n := m.DeleteFunc(func(k, _ int) bool { return k%2 == 0 }); n != 50 {
		t.Errorf("DeleteFunc removed %d", n)
	}
	sum := 0
	m.Range(func(k, _ int) bool {
		if k%2 == 0 {
			t.Errorf("even key %d survived", k)
		}
		sum++
		return true
	})
	if sum != 50 {
		t.Errorf("Range visited %d", sum)
	}

	visited := 0
	m.Range(func(int, int) bool { visited++; return false })
	if visited != 1 {
		t.Errorf("Range continued after false: %d", visited)
	}
}

func TestMap_ConcurrentAccess(t *testing.T) {
	m := New[string, int]()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("%d-%d", g, i)
				m.Set(key, i)
				m.Get(key)
				if i%3 == 0 {
					m.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()
	if want := 8 * (200 - 67); m.Len() != want {
		t.Errorf("Len() = %d, want %d", m.Len(), want)
	}
}
