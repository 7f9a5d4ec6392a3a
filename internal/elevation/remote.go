package elevation

import (
	"context"
	"fmt"

	"github.com/pspoerri/gpxelevation/internal/coord"
	"github.com/pspoerri/gpxelevation/internal/geoadmin"
)

// HeightService looks up the terrain height at one LV95 position.
type HeightService interface {
	Height(ctx context.Context, p coord.LV95) (float64, error)
}

// ProfileService samples the terrain height at every vertex of an LV95 line.
type ProfileService interface {
	Profile(ctx context.Context, pts []coord.LV95) ([]float64, error)
}

// PointProvider queries the height service for each point in order. The
// first failure stops the run; points already written keep their value.
type PointProvider struct {
	heights     HeightService
	reprojector *coord.Reprojector
}

// NewPointProvider returns a provider backed by heights.
func NewPointProvider(heights HeightService, reprojector *coord.Reprojector) *PointProvider {
	return &PointProvider{heights: heights, reprojector: reprojector}
}

// Enrich writes each point's height as soon as it arrives.
func (p *PointProvider) Enrich(ctx context.Context, t Track) error {
	for i := 0; i < t.Len(); i++ {
		lon, lat := t.Point(i)
		pos, err := p.reprojector.Reproject(ctx, lon, lat, coord.Approximate)
		if err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
		h, err := p.heights.Height(ctx, pos)
		if err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
		t.SetElevation(i, h)
	}
	return nil
}

// ProfileProvider sends the whole track as one line to the profile service.
// Nothing is written unless the full response is valid.
type ProfileProvider struct {
	profiles    ProfileService
	reprojector *coord.Reprojector
}

// NewProfileProvider returns a provider backed by profiles.
func NewProfileProvider(profiles ProfileService, reprojector *coord.Reprojector) *ProfileProvider {
	return &ProfileProvider{profiles: profiles, reprojector: reprojector}
}

// Enrich requests one profile for the track and writes all heights or none.
func (p *ProfileProvider) Enrich(ctx context.Context, t Track) error {
	n := t.Len()
	if n == 0 {
		return nil
	}

	pts := make([]coord.LV95, n)
	for i := range pts {
		lon, lat := t.Point(i)
		pos, err := p.reprojector.Reproject(ctx, lon, lat, coord.Approximate)
		if err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
		pts[i] = pos
	}

	heights, err := p.profiles.Profile(ctx, pts)
	if err != nil {
		return err
	}
	if len(heights) != n {
		return &geoadmin.ResponseShapeError{
			Endpoint: "profile",
			Reason:   fmt.Sprintf("got %d heights for %d points", len(heights), n),
		}
	}
	for i, h := range heights {
		t.SetElevation(i, h)
	}
	return nil
}
