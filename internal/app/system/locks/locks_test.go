package locks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestGlobalExclusion(t *testing.T) {
	s := New(50 * time.Millisecond)
	ctx := context.Background()

	release, err := s.AcquireGlobal(ctx)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	// Second acquire must time out while the first holder is active.
	if _, err := s.AcquireGlobal(ctx); !errors.Is(err, ErrTimeout) {
		t.Fatalf("second acquire err = %v, want ErrTimeout", err)
	}

	release()

	release2, err := s.AcquireGlobal(ctx)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	release2()
}

func TestItemLocksAreIndependent(t *testing.T) {
	s := New(50 * time.Millisecond)
	ctx := context.Background()

	relA, err := s.AcquireItem(ctx, "item-a")
	if err != nil {
		t.Fatalf("acquire item-a: %v", err)
	}
	defer relA()

	// A different item must not be blocked by item-a's holder.
	relB, err := s.AcquireItem(ctx, "item-b")
	if err != nil {
		t.Fatalf("acquire item-b: %v", err)
	}
	relB()

	// The same item must be blocked.
	if _, err := s.AcquireItem(ctx, "item-a"); !errors.Is(err, ErrTimeout) {
		t.Fatalf("same-item acquire err = %v, want ErrTimeout", err)
	}
}

func TestContextCancellation(t *testing.T) {
	s := New(10 * time.Second)

	release, err := s.AcquireGlobal(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if _, err := s.AcquireGlobal(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("acquire err = %v, want context.Canceled", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	s := New(50 * time.Millisecond)
	ctx := context.Background()

	release, err := s.AcquireItem(ctx, "x")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()
	release() // must not panic or over-release

	release2, err := s.AcquireItem(ctx, "x")
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	release2()
}

func TestContendedHandoff(t *testing.T) {
	s := New(2 * time.Second)
	ctx := context.Background()

	const goroutines = 8
	var counter int // protected by the lock under test
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := s.AcquireItem(ctx, "contended")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			counter++
			release()
		}()
	}
	wg.Wait()

	if counter != goroutines {
		t.Errorf("counter = %d, want %d", counter, goroutines)
	}
}
