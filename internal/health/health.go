package health

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Check reports whether one dependency is usable.
type Check func() error

// Checker serves liveness and readiness probes.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// New returns a Checker with no readiness checks.
func New() *Checker {
	return &Checker{checks: make(map[string]Check)}
}

// Add registers a readiness check under name, replacing any previous one.
func (c *Checker) Add(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Failures runs every check and returns "name: error" for each failing one,
// sorted by name.
func (c *Checker) Failures() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	for name, check := range c.checks {
		if err := check(); err != nil {
			out = append(out, fmt.Sprintf("%s: %v", name, err))
		}
	}
	sort.Strings(out)
	return out
}

// Healthz returns 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Readyz returns 200 "ready\n" when every check passes, 503 with the
// failures otherwise.
func (c *Checker) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if failures := c.Failures(); len(failures) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready\n" + strings.Join(failures, "\n") + "\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready\n"))
}
