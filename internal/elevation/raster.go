package elevation

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/pspoerri/gpxelevation/internal/dem"
	"github.com/pspoerri/gpxelevation/internal/log"
)

// DefaultSmoothRadius averages each sample with two neighbours on each side.
const DefaultSmoothRadius = 2

// RasterProvider samples an offline elevation model. The model is opened on
// first use, so a missing dataset only fails runs that need it.
type RasterProvider struct {
	open   func() (dem.Source, error)
	radius int

	mu     sync.Mutex
	opened bool
	closed bool
	src    dem.Source
	err    error
}

// NewRasterProvider returns a provider that opens its model with open and
// smooths samples over radius neighbours on each side. A radius of 0 keeps
// the raw samples.
func NewRasterProvider(open func() (dem.Source, error), radius int) *RasterProvider {
	return &RasterProvider{open: open, radius: max(radius, 0)}
}

// NewRasterProviderFromSource wraps an already open model.
func NewRasterProviderFromSource(src dem.Source, radius int) *RasterProvider {
	return NewRasterProvider(func() (dem.Source, error) { return src, nil }, radius)
}

// source opens the model on the first call and returns the same result
// afterwards. A failed open is not retried.
func (p *RasterProvider) source() (dem.Source, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errClosed
	}
	if !p.opened {
		p.opened = true
		p.src, p.err = p.open()
		if p.err == nil {
			log.Debugw("elevation model opened", "source", fmt.Sprintf("%T", p.src))
		}
	}
	return p.src, p.err
}

// Enrich samples the model at every point, interpolates points without data
// and writes the smoothed profile. It fails with ErrDataUnavailable when no
// point has data.
func (p *RasterProvider) Enrich(ctx context.Context, t Track) error {
	n := t.Len()
	if n == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := p.source()
	if err != nil {
		return err
	}

	samples := make([]float64, n)
	for i := range samples {
		lon, lat := t.Point(i)
		v, err := src.Elevation(lon, lat)
		if err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
		samples[i] = v
	}

	missing := fillGaps(samples)
	if missing == n {
		return fmt.Errorf("%w: no elevation data for any of %d points", ErrDataUnavailable, n)
	}
	if missing > 0 {
		log.Debugw("interpolated points without elevation data", "missing", missing, "points", n)
	}

	for i, v := range smooth(samples, p.radius) {
		t.SetElevation(i, v)
	}
	return nil
}

// Close closes the model if it was opened. Later calls to Enrich fail with
// ErrDataUnavailable.
func (p *RasterProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.src == nil {
		return nil
	}
	err := p.src.Close()
	p.src = nil
	return err
}

var errClosed = fmt.Errorf("%w: raster provider closed", ErrDataUnavailable)

// fillGaps replaces NaN samples by linear interpolation between the nearest
// valid samples along the track, or by the nearest one at either end. It
// returns the number of samples that were NaN.
func fillGaps(v []float64) int {
	missing := 0
	prev := -1
	for i := range v {
		if math.IsNaN(v[i]) {
			missing++
			continue
		}
		if prev < 0 {
			for j := 0; j < i; j++ {
				v[j] = v[i]
			}
		} else if i-prev > 1 {
			step := (v[i] - v[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				v[j] = v[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
	if prev < 0 {
		return missing
	}
	for j := prev + 1; j < len(v); j++ {
		v[j] = v[prev]
	}
	return missing
}
