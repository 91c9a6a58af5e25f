package chrono

import (
	"context"
	"sync"
	"time"
)

// FakeImpl is an API with a frozen clock, Wait returns immediately and is recorded.
type FakeImpl struct {
	now   time.Time
	mutex sync.Mutex
	waits []time.Duration
}

func NewFakeImpl(now time.Time) *FakeImpl {
	return &FakeImpl{now: now}
}

func (f *FakeImpl) Now() time.Time {
	return f.now.In(jst)
}

func (f *FakeImpl) Wait(ctx context.Context, d time.Duration) error {
	f.mutex.Lock()
	f.waits = append(f.waits, d)
	f.mutex.Unlock()
	return ctx.Err()
}

// Waits returns every duration Wait was called with, in order.
func (f *FakeImpl) Waits() []time.Duration {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	out := make([]time.Duration, len(f.waits))
	copy(out, f.waits)
	return out
}
