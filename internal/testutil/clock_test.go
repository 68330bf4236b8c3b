package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_StandsStill(t *testing.T) {
	clock := NewClock(Epoch)
	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch, clock.Now())
}

func TestClock_AdvanceAndSet(t *testing.T) {
	clock := NewClock(Epoch)

	assert.Equal(t, Epoch.Add(time.Hour), clock.Advance(time.Hour))
	assert.Equal(t, Epoch.Add(time.Hour), clock.Now())

	clock.Set(Epoch.Add(-24 * time.Hour))
	assert.Equal(t, "2026-06-19", clock.Now().Format("2006-01-02"))
}

func TestClock_ConcurrentAdvance(t *testing.T) {
	clock := NewClock(Epoch)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(100*time.Second), clock.Now())
}
