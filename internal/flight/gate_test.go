package flight

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGate_Transitions(t *testing.T) {
	var g Gate
	assert.Equal(t, StateIdle, g.State())

	assert.True(t, g.TryBegin())
	assert.Equal(t, StateSubmitting, g.State())

	// Re-entry is refused while submitting
	assert.False(t, g.TryBegin())

	g.End()
	assert.Equal(t, StateIdle, g.State())
	assert.True(t, g.TryBegin())
}

func TestGate_ConcurrentBegin(t *testing.T) {
	var g Gate
	var admitted atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryBegin() {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
}
