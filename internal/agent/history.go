package agent

import (
	"sync"
	"time"
)

// Sample 一次采样
type Sample struct {
	Timestamp   time.Time `json:"timestamp"`
	CPU         float64   `json:"cpu"`
	Memory      float64   `json:"memory"`
	Temperature *float64  `json:"temperature"` // 无传感器时为null
}

// History 固定容量的环形缓冲区，满了以后覆盖最旧的采样
type History struct {
	mu    sync.RWMutex
	buf   []Sample
	start int
	size  int
}

// NewHistory 创建容量为 capacity 的历史缓冲区
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]Sample, capacity)}
}

// Add 追加采样
func (h *History) Add(s Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = s
		h.size++
		return
	}
	h.buf[h.start] = s
	h.start = (h.start + 1) % len(h.buf)
}

// Snapshot 按时间正序返回全部采样
func (h *History) Snapshot() []Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ordered()
}

// ordered 调用方必须持有锁
func (h *History) ordered() []Sample {
	out := make([]Sample, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Resize 修改容量，保留最新的采样
func (h *History) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if capacity == len(h.buf) {
		return
	}
	samples := h.ordered()
	if len(samples) > capacity {
		samples = samples[len(samples)-capacity:]
	}
	h.buf = make([]Sample, capacity)
	copy(h.buf, samples)
	h.start = 0
	h.size = len(samples)
}

// Cap 容量
func (h *History) Cap() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.buf)
}
