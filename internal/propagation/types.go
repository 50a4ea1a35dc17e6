package propagation

import (
	"encoding/json"
	"runtime"
	"time"

	"github.com/star/scangeo/internal/footprint"
)

// OutlineRequest asks for the outline of one segment. When NORADID is set
// the track endpoints in Segment are replaced by the sub-satellite points at
// Start and Start+SensingSeconds; otherwise they are used as given.
type OutlineRequest struct {
	ID             string                     `json:"id,omitempty"`
	Segment        footprint.SegmentFootprint `json:"segment"`
	NORADID        int                        `json:"norad_id,omitempty"`
	Start          time.Time                  `json:"start,omitempty"`
	SensingSeconds float64                    `json:"sensing_seconds,omitempty"`
}

// UnmarshalJSON leaves the segment undefined when the "segment" key is
// absent so that the request fails with footprint.ErrInvalidCorner.
func (r *OutlineRequest) UnmarshalJSON(b []byte) error {
	type plain OutlineRequest
	p := plain{Segment: footprint.UndefinedSegment()}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = OutlineRequest(p)
	return nil
}

// Sensing returns the segment duration.
func (r OutlineRequest) Sensing() time.Duration {
	return time.Duration(r.SensingSeconds * float64(time.Second))
}

// OutlineResult pairs a request with its contour or the reason it failed.
type OutlineResult struct {
	ID      string
	Contour footprint.Contour
	Err     error
}

// PoolConfig sizes the outline worker pool.
type PoolConfig struct {
	Workers int // default: runtime.NumCPU()
}

// Size returns the configured worker count, or the CPU count when unset.
func (c PoolConfig) Size() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
