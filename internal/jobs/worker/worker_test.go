package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

func TestPool_RunsTasksAndSignalsDone(t *testing.T) {
	p := NewPool(logger.NewNop(), Config{Concurrency: 2, QueueSize: 8})
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := map[string]error{}
	p.OnDone(func(name string, err error) {
		mu.Lock()
		results[name] = err
		mu.Unlock()
		wg.Done()
	})
	p.Start()
	defer p.Stop()

	boom := errors.New("boom")
	wg.Add(3)
	if !p.Submit("ok", func(ctx context.Context) error { return nil }) {
		t.Fatalf("Submit ok rejected")
	}
	if !p.Submit("fail", func(ctx context.Context) error { return boom }) {
		t.Fatalf("Submit fail rejected")
	}
	if !p.Submit("panic", func(ctx context.Context) error { panic("kaput") }) {
		t.Fatalf("Submit panic rejected")
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if results["ok"] != nil {
		t.Fatalf("ok task reported %v", results["ok"])
	}
	if !errors.Is(results["fail"], boom) {
		t.Fatalf("fail task reported %v", results["fail"])
	}
	if results["panic"] == nil {
		t.Fatalf("panic task must report an error")
	}
}

func TestPool_SubmitDoesNotBlockWhenFull(t *testing.T) {
	p := NewPool(logger.NewNop(), Config{Concurrency: 1, QueueSize: 1})
	// not started: the single queue slot fills and the next submit is dropped
	if !p.Submit("first", func(ctx context.Context) error { return nil }) {
		t.Fatalf("first submit rejected")
	}
	if p.Submit("second", func(ctx context.Context) error { return nil }) {
		t.Fatalf("second submit must be rejected when queue is full")
	}
	p.Stop()
	if p.Submit("late", func(ctx context.Context) error { return nil }) {
		t.Fatalf("submit after stop must be rejected")
	}
}

func TestPool_StopDrainsQueue(t *testing.T) {
	p := NewPool(logger.NewNop(), Config{Concurrency: 1, QueueSize: 4})
	var ran int32
	for i := 0; i < 3; i++ {
		p.Submit("t", func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		})
	}
	p.Start()
	p.Stop()
	if got := atomic.LoadInt32(&ran); got != 3 {
		t.Fatalf("expected 3 drained tasks, got %d", got)
	}
}

func TestRunEvery_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan struct{}, 4)
	done := make(chan struct{})
	go func() {
		RunEvery(ctx, logger.NewNop(), "test", 5*time.Millisecond, func(ctx context.Context) error {
			select {
			case calls <- struct{}{}:
			default:
			}
			return errors.New("keeps going")
		})
		close(done)
	}()

	<-calls
	<-calls
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("RunEvery did not stop after cancel")
	}
}
