package ids

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestSequenceIsMonotonic(t *testing.T) {
	s := NewSequence("el-")
	if got := s.Next(); got != "el-1" {
		t.Fatalf("first id = %q", got)
	}
	if got := s.Next(); got != "el-2" {
		t.Fatalf("second id = %q", got)
	}
}

func TestSequenceConcurrentUnique(t *testing.T) {
	s := NewSequence("")
	const workers, each = 8, 200
	var mu sync.Mutex
	seen := make(map[string]bool, workers*each)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				id := s.Next()
				mu.Lock()
				if seen[id] {
					mu.Unlock()
					t.Errorf("duplicate id %q", id)
					return
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != workers*each {
		t.Fatalf("expected %d ids, got %d", workers*each, len(seen))
	}
}

func TestUUIDAllocator(t *testing.T) {
	a, b := UUID{}.Next(), UUID{}.Next()
	if a == b {
		t.Fatalf("uuid collision %q", a)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("not a uuid: %q: %v", a, err)
	}
}

func TestSetDefault(t *testing.T) {
	prev := SetDefault(NewSequence("x"))
	t.Cleanup(func() { SetDefault(prev) })
	if got := Default().Next(); got != "x1" {
		t.Fatalf("Default().Next() = %q", got)
	}
}
