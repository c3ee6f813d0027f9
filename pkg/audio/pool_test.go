package audio

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestWorkerPoolRunsAllJobs(t *testing.T) {
	p := newWorkerPool(3)
	p.start(context.Background())

	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		if err := p.submit(context.Background(), func(ctx context.Context) {
			ran.Add(1)
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	p.close()

	if got := ran.Load(); got != 20 {
		t.Fatalf("expected 20 jobs run, got %d", got)
	}
}

func TestWorkerPoolRejectsAfterClose(t *testing.T) {
	p := newWorkerPool(1)
	p.start(context.Background())
	p.close()

	err := p.submit(context.Background(), func(ctx context.Context) {})
	if err != ErrPoolClosed {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
	// Double close must not panic.
	p.close()
}

func TestWorkerPoolSubmitHonorsCancellation(t *testing.T) {
	p := newWorkerPool(1)
	// Not started: the queue fills and submit must fall through to ctx.
	ctx, cancel := context.WithCancel(context.Background())

	for i := 0; i < 2; i++ {
		if err := p.submit(ctx, func(ctx context.Context) {}); err != nil {
			t.Fatalf("buffered submit failed: %v", err)
		}
	}
	cancel()
	if err := p.submit(ctx, func(ctx context.Context) {}); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
