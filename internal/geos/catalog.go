package geos

import (
	"fmt"
	"sort"
	"strings"
)

// Satellite is a named geostationary imager.
type Satellite struct {
	Name string       `json:"name"`
	Scan ScanGeometry `json:"scan"`
}

// DefaultSatellites is the built-in catalogue, all using MSG full-disk
// coefficients at their parking longitude.
func DefaultSatellites() []Satellite {
	list := []struct {
		name string
		lon  float64
	}{
		{"Meteosat-10", 0.0},
		{"Meteosat-9", 9.5},
		{"Meteosat-7", 57},
		{"FY2E", 86.5},
		{"FY2G", 104.5},
		{"GOES13", -74.9},
		{"GOES15", -135.2},
		{"MTSAT2", 145},
		{"Himawari-8", 140.7},
	}
	sats := make([]Satellite, 0, len(list))
	for _, s := range list {
		sats = append(sats, Satellite{Name: s.name, Scan: FullDisk(s.lon)})
	}
	return sats
}

// Catalog is an immutable set of projectors keyed by satellite name.
// Lookups are case-insensitive.
type Catalog struct {
	byKey map[string]entry
	names []string
}

type entry struct {
	sat  Satellite
	proj Projector
}

// NewCatalog validates every satellite and builds the lookup table.
func NewCatalog(sats []Satellite) (*Catalog, error) {
	c := &Catalog{byKey: make(map[string]entry, len(sats))}
	for i, s := range sats {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, fmt.Errorf("satellite %d: name is required", i)
		}
		key := strings.ToLower(name)
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("satellite %q listed twice", name)
		}
		proj, err := NewProjector(s.Scan)
		if err != nil {
			return nil, fmt.Errorf("satellite %q: %w", name, err)
		}
		s.Name = name
		c.byKey[key] = entry{sat: s, proj: proj}
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Projector returns the projector for the named satellite.
func (c *Catalog) Projector(name string) (Projector, bool) {
	e, ok := c.byKey[strings.ToLower(strings.TrimSpace(name))]
	return e.proj, ok
}

// Satellites returns the catalogue sorted by name.
func (c *Catalog) Satellites() []Satellite {
	out := make([]Satellite, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.byKey[strings.ToLower(n)].sat)
	}
	return out
}

// Len returns the number of satellites.
func (c *Catalog) Len() int {
	return len(c.names)
}
