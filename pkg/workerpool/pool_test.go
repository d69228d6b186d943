package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolLimitsConcurrency(t *testing.T) {
	p := New(2)
	defer p.Close()

	var current, peak int32
	for i := 0; i < 8; i++ {
		err := p.Submit(context.Background(), func() {
			n := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&current, -1)
		})
		if err != nil {
			t.Fatalf("提交任务失败: %v", err)
		}
	}
	p.Close()

	if got := atomic.LoadInt32(&peak); got > 2 {
		t.Errorf("并发峰值超过上限: got %d, want <= 2", got)
	}
}

func TestPoolRunReturnsTaskError(t *testing.T) {
	p := New(1)
	defer p.Close()

	want := context.DeadlineExceeded
	err := p.Run(context.Background(), func() error {
		return want
	})
	if err != want {
		t.Errorf("got %v, want %v", err, want)
	}
}

func TestPoolSubmitAfterClose(t *testing.T) {
	p := New(1)
	p.Close()
	if err := p.Submit(context.Background(), func() {}); err != ErrPoolClosed {
		t.Errorf("got %v, want ErrPoolClosed", err)
	}
}

func TestPoolSubmitCancelledContext(t *testing.T) {
	p := New(1)
	defer p.Close()

	block := make(chan struct{})
	_ = p.Submit(context.Background(), func() { <-block })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, func() {})
	close(block)
	if err != context.DeadlineExceeded {
		t.Errorf("got %v, want context.DeadlineExceeded", err)
	}
}
