package clock

import (
	"sync"
	"testing"
)

func TestSystemStrictlyIncreasing(t *testing.T) {
	c := NewSystem()

	// 같은 ms 안에서 연속 호출해도 중복이 없어야 한다
	prev := c.NowMillis()
	for i := 0; i < 1000; i++ {
		next := c.NowMillis()
		if next <= prev {
			t.Fatalf("timestamp went backwards or repeated: %d after %d", next, prev)
		}
		prev = next
	}
}

func TestSystemConcurrentUnique(t *testing.T) {
	c := NewSystem()

	const workers = 8
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[int64]bool, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ts := c.NowMillis()
				mu.Lock()
				if seen[ts] {
					t.Errorf("duplicate timestamp: %d", ts)
				}
				seen[ts] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

func TestFakeIncrements(t *testing.T) {
	c := NewFake(1000)

	if got := c.NowMillis(); got != 1001 {
		t.Errorf("first NowMillis = %d, want 1001", got)
	}
	if got := c.NowMillis(); got != 1002 {
		t.Errorf("second NowMillis = %d, want 1002", got)
	}
}
