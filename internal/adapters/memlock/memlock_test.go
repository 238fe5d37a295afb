package memlock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLock_SerialisesSameRoom(t *testing.T) {
	l := New()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), 1)
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("critical section entered concurrently: %d", maxSeen)
	}
	if n := l.held(); n != 0 {
		t.Fatalf("entries leaked: %d", n)
	}
}

func TestLock_ContextCancel(t *testing.T) {
	l := New()
	unlock, err := l.Lock(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, 5); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}

	other, err := l.Lock(context.Background(), 6)
	if err != nil {
		t.Fatalf("other room blocked: %v", err)
	}
	other()

	unlock()
	unlock()
	if n := l.held(); n != 0 {
		t.Fatalf("entries leaked: %d", n)
	}
}
