package api

import "sync"

const (
	defaultMaxBatch          = 500
	defaultMaxBatchPerClient = 4
	maxBatchTotal            = 256
)

// batchLimiter tracks concurrent batch requests per client and globally.
type batchLimiter struct {
	mu       sync.Mutex
	active   map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newBatchLimiter(maxPerIP int) *batchLimiter {
	return &batchLimiter{
		active:   make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxBatchTotal,
	}
}

// acquire registers a batch for ip. It returns false when the client or
// global limit has been reached.
func (l *batchLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal || l.active[ip] >= l.maxPerIP {
		return false
	}
	l.active[ip]++
	l.total++
	return true
}

func (l *batchLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.active[ip]--
	l.total--
	if l.active[ip] <= 0 {
		delete(l.active, ip)
	}
}

func (l *batchLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[ip]
}
