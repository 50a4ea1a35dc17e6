package propagation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/star/scangeo/internal/footprint"
	"github.com/star/scangeo/internal/geo"
	"github.com/star/scangeo/internal/metrics"
)

// TrackSource resolves the sub-satellite endpoints of a segment.
type TrackSource interface {
	Track(noradID int, start time.Time, sensing time.Duration) (geo.Point, geo.Point, error)
}

// ErrNoTrackSource is returned for NORAD requests when no TLE data is wired.
var ErrNoTrackSource = errors.New("no TLE source configured for NORAD track lookup")

// outlineJob is a unit of work for the worker pool.
type outlineJob struct {
	index int
	req   OutlineRequest
}

// WorkerPool builds segment outlines on a fixed number of goroutines.
type WorkerPool struct {
	workers int
	tracks  TrackSource
	opts    footprint.Options
	logger  *slog.Logger
}

// NewWorkerPool creates a pool. tracks may be nil when every request
// carries explicit track endpoints.
func NewWorkerPool(workers int, tracks TrackSource, opts footprint.Options, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	metrics.SetOutlineWorkers(workers)
	return &WorkerPool{
		workers: workers,
		tracks:  tracks,
		opts:    opts,
		logger:  logger,
	}
}

// BuildOutline resolves the track of one request and builds its contour.
func (wp *WorkerPool) BuildOutline(req OutlineRequest) OutlineResult {
	start := time.Now()
	c, err := wp.build(req)
	metrics.RecordContour(time.Since(start), err)
	return OutlineResult{ID: req.ID, Contour: c, Err: err}
}

func (wp *WorkerPool) build(req OutlineRequest) (footprint.Contour, error) {
	seg := req.Segment
	if req.NORADID != 0 {
		if err := seg.ValidateScanCorners(); err != nil {
			return footprint.Contour{}, err
		}
		if wp.tracks == nil {
			return footprint.Contour{}, ErrNoTrackSource
		}
		first, last, err := wp.tracks.Track(req.NORADID, req.Start, req.Sensing())
		if err != nil {
			return footprint.Contour{}, err
		}
		seg.TrackStart, seg.TrackEnd = first, last
	}
	return footprint.Build(seg, wp.opts)
}

// BuildOutlines builds all requests in parallel. Results are in request
// order. Requests not started before ctx is cancelled carry ctx.Err().
func (wp *WorkerPool) BuildOutlines(ctx context.Context, reqs []OutlineRequest) []OutlineResult {
	results := make([]OutlineResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	done := make([]bool, len(reqs))
	jobs := make(chan outlineJob, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				// Each index is written by exactly one worker.
				results[job.index] = wp.BuildOutline(job.req)
				done[job.index] = true
			}
		}()
	}

feed:
	for i, req := range reqs {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- outlineJob{index: i, req: req}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	var failed int
	for i := range results {
		if !done[i] {
			results[i] = OutlineResult{ID: reqs[i].ID, Err: ctx.Err()}
		}
		if results[i].Err != nil {
			failed++
		}
	}
	if failed > 0 {
		wp.logger.Warn("outline batch finished with errors",
			"requests", len(reqs),
			"failed", failed,
		)
	}
	return results
}
