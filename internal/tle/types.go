// Package tle loads two-line element sets for the polar orbiters whose
// segments are outlined. Element sets come from local files, typically the
// weather TLE bulletin received with the data, or from HTTP sources.
package tle

import "time"

// Entry is one satellite's element set.
type Entry struct {
	NORADID int       `json:"norad_id"`
	Name    string    `json:"name"`
	Epoch   time.Time `json:"epoch"`
	Line1   string    `json:"line1"`
	Line2   string    `json:"line2"`
}

// Dataset is an immutable snapshot of element sets indexed by NORAD ID.
// When a satellite appears more than once the entry with the newest epoch
// wins.
type Dataset struct {
	Source   string
	LoadedAt time.Time
	Entries  []Entry

	byID map[int]int
}

// NewDataset indexes entries.
func NewDataset(source string, loadedAt time.Time, entries []Entry) *Dataset {
	ds := &Dataset{
		Source:   source,
		LoadedAt: loadedAt,
		Entries:  entries,
		byID:     make(map[int]int, len(entries)),
	}
	for i, e := range entries {
		if j, ok := ds.byID[e.NORADID]; ok && !e.Epoch.After(entries[j].Epoch) {
			continue
		}
		ds.byID[e.NORADID] = i
	}
	return ds
}

// Lookup returns the element set for a NORAD catalogue number.
func (d *Dataset) Lookup(noradID int) (Entry, bool) {
	i, ok := d.byID[noradID]
	if !ok {
		return Entry{}, false
	}
	return d.Entries[i], true
}

// Len is the number of distinct satellites.
func (d *Dataset) Len() int {
	return len(d.byID)
}
