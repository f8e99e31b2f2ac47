package agent

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sampleAt(i int) Sample {
	return Sample{Timestamp: time.Unix(int64(i), 0), CPU: float64(i)}
}

func TestHistoryKeepsNewest(t *testing.T) {
	h := NewHistory(3)
	assert.Empty(t, h.Snapshot())

	for i := 1; i <= 5; i++ {
		h.Add(sampleAt(i))
	}
	got := h.Snapshot()
	assert.Len(t, got, 3)
	assert.Equal(t, []float64{3, 4, 5}, []float64{got[0].CPU, got[1].CPU, got[2].CPU})
}

func TestHistoryPartialFill(t *testing.T) {
	h := NewHistory(60)
	h.Add(sampleAt(1))
	h.Add(sampleAt(2))
	got := h.Snapshot()
	assert.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].CPU)
}

func TestHistoryResize(t *testing.T) {
	h := NewHistory(5)
	for i := 1; i <= 7; i++ {
		h.Add(sampleAt(i))
	}

	h.Resize(2)
	got := h.Snapshot()
	assert.Equal(t, 2, h.Cap())
	assert.Equal(t, []float64{6, 7}, []float64{got[0].CPU, got[1].CPU})

	h.Resize(4)
	h.Add(sampleAt(8))
	got = h.Snapshot()
	assert.Len(t, got, 3)
	assert.Equal(t, 8.0, got[2].CPU)
}

func TestHistoryResizeKeepsConcurrentAdds(t *testing.T) {
	const total = 500
	h := NewHistory(total)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= total; i++ {
			h.Add(sampleAt(i))
		}
	}()
	go func() {
		defer wg.Done()
		// 只扩容，任何采样都不应该被丢弃
		for c := total + 1; c <= total+200; c++ {
			h.Resize(c)
		}
	}()
	wg.Wait()

	got := h.Snapshot()
	assert.Len(t, got, total)
	for i, s := range got {
		assert.Equal(t, float64(i+1), s.CPU)
	}
}
