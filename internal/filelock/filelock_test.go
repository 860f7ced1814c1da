package filelock

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAcquire_CreatesFileAndDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "inbox.lock")

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("lock file not created: %v", err)
	}
	if err := l.Unlock(); err != nil {
		t.Errorf("Unlock error: %v", err)
	}
}

func TestAcquire_Excludes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.lock")

	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		second, err := Acquire(path)
		if err != nil {
			t.Errorf("second Acquire error: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		_ = second.Unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first was held")
	case <-time.After(100 * time.Millisecond):
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock error: %v", err)
	}

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("second lock never acquired after release")
	}
}

func TestAcquire_SerializesCriticalSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.lock")
	var inside, overlaps atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := Acquire(path)
			if err != nil {
				t.Errorf("Acquire error: %v", err)
				return
			}
			if inside.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			_ = l.Unlock()
		}()
	}
	wg.Wait()

	if n := overlaps.Load(); n != 0 {
		t.Errorf("%d goroutines entered the critical section concurrently", n)
	}
}
