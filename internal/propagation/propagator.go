package propagation

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/star/scangeo/internal/geo"
	"github.com/star/scangeo/internal/tle"
)

var (
	// ErrNoDataset is returned before any TLE dataset has been loaded.
	ErrNoDataset = errors.New("no TLE dataset loaded")
	// ErrUnknownSatellite is returned for a NORAD ID absent from the dataset.
	ErrUnknownSatellite = errors.New("satellite not in TLE dataset")
)

// sgp4Cache holds initialized propagators for one dataset. Immutable after
// construction.
type sgp4Cache struct {
	dataset *tle.Dataset
	props   map[int]*SGP4Propagator
	failed  map[int]error
}

// Propagator resolves sub-satellite tracks from the current TLE dataset.
type Propagator struct {
	store  *tle.Store
	logger *slog.Logger
	sgp4   atomic.Pointer[sgp4Cache]
	sgp4Mu sync.Mutex // serializes cache rebuilds
}

// NewPropagator creates a Propagator reading from store.
func NewPropagator(store *tle.Store, logger *slog.Logger) *Propagator {
	return &Propagator{store: store, logger: logger.With("component", "propagation")}
}

// cachedProps returns the propagators for ds, rebuilding the cache when the
// dataset has been replaced (double-checked locking).
func (p *Propagator) cachedProps(ds *tle.Dataset) *sgp4Cache {
	if c := p.sgp4.Load(); c != nil && c.dataset == ds {
		return c
	}

	p.sgp4Mu.Lock()
	defer p.sgp4Mu.Unlock()

	if c := p.sgp4.Load(); c != nil && c.dataset == ds {
		return c
	}

	c := &sgp4Cache{
		dataset: ds,
		props:   make(map[int]*SGP4Propagator, ds.Len()),
		failed:  make(map[int]error),
	}
	for _, e := range ds.Entries {
		if _, ok := c.props[e.NORADID]; ok {
			continue
		}
		best, _ := ds.Lookup(e.NORADID)
		sp, err := NewSGP4Propagator(best.Line1, best.Line2, best.NORADID)
		if err != nil {
			p.logger.Warn("sgp4 cache init failed", "norad_id", e.NORADID, "error", err)
			c.failed[e.NORADID] = err
			continue
		}
		c.props[e.NORADID] = sp
	}

	p.logger.Info("sgp4 propagator cache rebuilt",
		"cached", len(c.props),
		"skipped", len(c.failed),
		"dataset_loaded_at", ds.LoadedAt.UTC().Format(time.RFC3339),
	)
	p.sgp4.Store(c)
	return c
}

// SGP4 returns the propagator for a satellite.
func (p *Propagator) SGP4(noradID int) (*SGP4Propagator, error) {
	ds := p.store.Get()
	if ds == nil {
		return nil, ErrNoDataset
	}
	c := p.cachedProps(ds)
	if sp, ok := c.props[noradID]; ok {
		return sp, nil
	}
	if err, ok := c.failed[noradID]; ok {
		return nil, err
	}
	return nil, fmt.Errorf("NORAD %d: %w", noradID, ErrUnknownSatellite)
}

// Track returns the sub-satellite points at the start and end of a segment
// sensed for the given duration from start.
func (p *Propagator) Track(noradID int, start time.Time, sensing time.Duration) (geo.Point, geo.Point, error) {
	sp, err := p.SGP4(noradID)
	if err != nil {
		return geo.Undefined, geo.Undefined, err
	}
	first, err := sp.SubSatellitePoint(start)
	if err != nil {
		return geo.Undefined, geo.Undefined, err
	}
	last, err := sp.SubSatellitePoint(start.Add(sensing))
	if err != nil {
		return geo.Undefined, geo.Undefined, err
	}
	return first, last, nil
}
