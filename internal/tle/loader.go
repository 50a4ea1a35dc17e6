package tle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ErrNoElements is returned when no source yielded a usable element set.
var ErrNoElements = errors.New("tle: no element sets loaded")

// Sources lists where element sets come from. Files are read first, then
// URLs. When every URL fails the newest cached download is used instead.
type Sources struct {
	Files     []string
	URLs      []string
	CacheDir  string
	CacheKeep int
	Timeout   time.Duration
}

// Loader builds datasets from Sources.
type Loader struct {
	src     Sources
	fetcher *Fetcher
	cache   *Cache
	logger  *slog.Logger
}

// NewLoader creates a Loader. The cache is disabled when CacheDir is empty.
func NewLoader(src Sources, logger *slog.Logger) *Loader {
	l := &Loader{
		src:     src,
		fetcher: NewFetcher(src.Timeout),
		logger:  logger.With("component", "tle"),
	}
	if src.CacheDir != "" {
		l.cache = NewCache(src.CacheDir, src.CacheKeep)
	}
	return l
}

// Load reads every source and returns the combined dataset.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	var (
		entries []Entry
		used    []string
	)

	for _, path := range l.src.Files {
		data, err := os.ReadFile(path)
		if err != nil {
			l.logger.Warn("cannot read TLE file", "path", path, "error", err)
			continue
		}
		parsed, err := Parse(bytes.NewReader(data), l.logger)
		if err != nil {
			l.logger.Warn("cannot parse TLE file", "path", path, "error", err)
			continue
		}
		entries = append(entries, parsed...)
		used = append(used, path)
	}

	if len(l.src.URLs) > 0 {
		data, source := l.download(ctx)
		if data != nil {
			parsed, err := Parse(bytes.NewReader(data), l.logger)
			if err != nil {
				return nil, fmt.Errorf("parsing downloaded TLE data: %w", err)
			}
			entries = append(entries, parsed...)
			used = append(used, source)
		}
	}

	if len(entries) == 0 {
		return nil, ErrNoElements
	}

	ds := NewDataset(strings.Join(used, ","), time.Now(), entries)
	l.logger.Info("TLE dataset loaded", "satellites", ds.Len(), "sources", ds.Source)
	return ds, nil
}

// download fetches every URL and concatenates the bodies. It falls back to
// the cache when nothing could be downloaded.
func (l *Loader) download(ctx context.Context) ([]byte, string) {
	var buf bytes.Buffer
	for _, url := range l.src.URLs {
		body, err := l.fetcher.Fetch(ctx, url)
		if err != nil {
			l.logger.Warn("TLE download failed", "url", url, "error", err)
			continue
		}
		buf.Write(body)
		if !bytes.HasSuffix(body, []byte("\n")) {
			buf.WriteByte('\n')
		}
	}

	if buf.Len() > 0 {
		if l.cache != nil {
			if err := l.cache.Save(buf.Bytes(), time.Now()); err != nil {
				l.logger.Warn("cannot cache TLE download", "error", err)
			}
		}
		return buf.Bytes(), "http"
	}

	if l.cache == nil {
		return nil, ""
	}
	data, ts, err := l.cache.Latest()
	if err != nil {
		l.logger.Warn("no TLE cache to fall back on", "error", err)
		return nil, ""
	}
	l.logger.Info("using cached TLE download", "cached_at", ts.UTC().Format(time.RFC3339))
	return data, "cache"
}
