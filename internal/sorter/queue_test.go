package sorter_test

import (
	"sync"
	"testing"

	"dicomsort/internal/sorter"
)

func TestQueueIsFIFO(t *testing.T) {
	q := sorter.NewQueue(sorter.WorkItem{Path: "a"}, sorter.WorkItem{Path: "b"})
	q.Push(sorter.WorkItem{Path: "c"})
	if q.Len() != 3 {
		t.Fatalf("Len = %d", q.Len())
	}
	for _, want := range []string{"a", "b", "c"} {
		item, ok := q.TryPop()
		if !ok || item.Path != want {
			t.Fatalf("TryPop = %v, %v; want %s", item, ok, want)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Fatal("empty queue returned an item")
	}
	if q.Len() != 0 {
		t.Fatalf("Len = %d", q.Len())
	}
}

func TestQueueDrainsExactlyOnce(t *testing.T) {
	const n = 500
	q := sorter.NewQueue()
	for range n {
		q.Push(sorter.WorkItem{Path: "x"})
	}
	var (
		mu    sync.Mutex
		total int
		wg    sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if _, ok := q.TryPop(); !ok {
					return
				}
				mu.Lock()
				total++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if total != n {
		t.Fatalf("popped %d items, want %d", total, n)
	}
}
