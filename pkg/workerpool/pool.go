package workerpool

import (
	"context"
	"errors"
	"sync"
)

// 有界协程池，限制同时进行的阻塞型交易所调用数量

var ErrPoolClosed = errors.New("worker pool is closed")

type Pool struct {
	sem    chan struct{}
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(size int) *Pool {
	if size <= 0 {
		size = 8
	}
	return &Pool{
		sem: make(chan struct{}, size),
	}
}

// Submit 提交任务，池满时阻塞直到有空位或ctx取消
func (p *Pool) Submit(ctx context.Context, task func()) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		p.wg.Done()
		return ctx.Err()
	}

	go func() {
		defer func() {
			<-p.sem
			p.wg.Done()
		}()
		task()
	}()
	return nil
}

// Run 在池内同步执行任务并等待结果，用于需要返回值的调用
func (p *Pool) Run(ctx context.Context, task func() error) error {
	done := make(chan error, 1)
	if err := p.Submit(ctx, func() {
		done <- task()
	}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 拒绝新任务并等待存量任务完成
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}
