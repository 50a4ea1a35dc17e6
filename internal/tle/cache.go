package tle

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Cache keeps the last few downloaded bulletins on disk so a restart
// without network access still has element sets.
type Cache struct {
	dir  string
	keep int
}

// NewCache stores snapshots in dir and keeps at most keep of them.
func NewCache(dir string, keep int) *Cache {
	if keep <= 0 {
		keep = 5
	}
	return &Cache{dir: dir, keep: keep}
}

// Save writes a snapshot named after ts in nanoseconds and removes the oldest beyond the limit.
func (c *Cache) Save(data []byte, ts time.Time) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	path := filepath.Join(c.dir, fmt.Sprintf("tle_%d.txt", ts.UnixNano()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	snaps, err := c.snapshots()
	if err != nil {
		return err
	}
	for len(snaps) > c.keep {
		if err := os.Remove(filepath.Join(c.dir, snaps[0].name)); err != nil {
			return fmt.Errorf("pruning %s: %w", snaps[0].name, err)
		}
		snaps = snaps[1:]
	}
	return nil
}

// Latest returns the newest snapshot and the time it was saved.
func (c *Cache) Latest() ([]byte, time.Time, error) {
	snaps, err := c.snapshots()
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(snaps) == 0 {
		return nil, time.Time{}, fmt.Errorf("no cached TLE snapshots in %s", c.dir)
	}
	last := snaps[len(snaps)-1]
	data, err := os.ReadFile(filepath.Join(c.dir, last.name))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading cache file: %w", err)
	}
	return data, last.ts, nil
}

type snapshot struct {
	name string
	ts   time.Time
}

// snapshots lists cache files oldest first.
func (c *Cache) snapshots() ([]snapshot, error) {
	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing cache dir: %w", err)
	}

	var out []snapshot
	for _, d := range dirents {
		name := d.Name()
		if d.IsDir() || !strings.HasPrefix(name, "tle_") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		nanos, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, "tle_"), ".txt"), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, snapshot{name: name, ts: time.Unix(0, nanos)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ts.Before(out[j].ts) })
	return out, nil
}
