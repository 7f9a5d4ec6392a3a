package elevation

import (
	"context"
	"errors"
	"time"

	"github.com/pspoerri/gpxelevation/internal/log"
	"github.com/pspoerri/gpxelevation/internal/metrics"
)

var errNoProvider = errors.New("no provider configured")

// Coordinator runs the provider for a mode and handles the Raster fallback.
// It holds no per-track state and may be shared between goroutines as long
// as its providers can.
type Coordinator struct {
	raster  Provider
	point   Provider
	profile Provider
}

// NewCoordinator wires the three providers. A nil provider fails every call
// routed to it.
func NewCoordinator(raster, point, profile Provider) *Coordinator {
	return &Coordinator{raster: raster, point: point, profile: profile}
}

func (c *Coordinator) provider(mode Mode) (Provider, error) {
	switch mode {
	case Raster:
		return c.raster, nil
	case PointAPI:
		return c.point, nil
	case ProfileAPI:
		return c.profile, nil
	default:
		return nil, &UnsupportedModeError{Mode: mode.String()}
	}
}

// AddElevation enriches t with the provider for mode and returns the mode
// whose data ended up in the track. When a remote provider fails, Raster is
// tried exactly once; if that fails too the error is a *FallbackError.
// Points written before a failure are left in place.
func (c *Coordinator) AddElevation(ctx context.Context, t Track, mode Mode) (Mode, error) {
	p, err := c.provider(mode)
	if err != nil {
		return mode, err
	}

	err = c.run(ctx, p, t, mode)
	if err == nil {
		return mode, nil
	}
	if mode == Raster {
		return mode, err
	}

	log.Warnw("provider failed, falling back to raster", "mode", mode, "err", err)
	metrics.Fallbacks.WithLabelValues(mode.String()).Inc()

	ferr := c.run(ctx, c.raster, t, Raster)
	if ferr == nil {
		return Raster, nil
	}
	return mode, &FallbackError{Mode: mode, Primary: err, Fallback: ferr}
}

func (c *Coordinator) run(ctx context.Context, p Provider, t Track, mode Mode) error {
	if p == nil {
		metrics.ProviderRuns.WithLabelValues(mode.String(), "error").Inc()
		return errNoProvider
	}

	start := time.Now()
	log.Debugw("running provider", "mode", mode, "points", t.Len())
	if err := p.Enrich(ctx, t); err != nil {
		metrics.ProviderRuns.WithLabelValues(mode.String(), "error").Inc()
		log.Debugw("provider failed", "mode", mode, "elapsed", time.Since(start), "err", err)
		return err
	}
	metrics.ProviderRuns.WithLabelValues(mode.String(), "ok").Inc()
	metrics.PointsEnriched.WithLabelValues(mode.String()).Add(float64(t.Len()))
	log.Debugw("provider done", "mode", mode, "points", t.Len(), "elapsed", time.Since(start))
	return nil
}
