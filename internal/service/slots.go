package service

import (
	"context"
	"sync"
)

// slotPool bounds concurrent synthesis calls. Unlike a semaphore its limit can
// change while calls hold slots: shrinking never revokes a held slot, it only
// keeps new callers waiting until usage drops below the new limit.
type slotPool struct {
	mu    sync.Mutex
	limit int
	used  int
	wake  chan struct{}
}

func newSlotPool(limit int) *slotPool {
	return &slotPool{limit: max(limit, 1), wake: make(chan struct{})}
}

// acquire blocks until a slot is free or ctx is done.
func (p *slotPool) acquire(ctx context.Context) error {
	for {
		p.mu.Lock()
		if p.used < p.limit {
			p.used++
			p.mu.Unlock()
			return nil
		}
		wake := p.wake
		p.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *slotPool) release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.used > 0 {
		p.used--
	}
	p.broadcast()
}

func (p *slotPool) resize(limit int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.limit = max(limit, 1)
	p.broadcast()
}

func (p *slotPool) inUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.used
}

// broadcast wakes every waiter. Callers hold mu.
func (p *slotPool) broadcast() {
	close(p.wake)
	p.wake = make(chan struct{})
}
