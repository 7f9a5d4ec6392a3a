package dem

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/pspoerri/gpxelevation/internal/cog"
	"github.com/pspoerri/gpxelevation/internal/log"
)

// boundsMargin widens each raster's WGS84 box so the approximate inverse
// projection used to build it never rejects a point near an edge.
const boundsMargin = 0.01

// GeoTIFF samples one or more single-band GeoTIFF/COG rasters. Rasters are
// tried in the order given; the first one with data at a point wins.
type GeoTIFF struct {
	readers []*cog.Reader
	bounds  []cog.Bounds
}

// OpenGeoTIFF opens every file matched by paths, which may be glob patterns.
func OpenGeoTIFF(paths []string) (*GeoTIFF, error) {
	var files []string
	for _, p := range paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %w", ErrDataUnavailable, p, err)
		}
		if matches == nil {
			// Not a pattern, or no match: let Open report the real error.
			matches = []string{p}
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, unavailable("no GeoTIFF files configured")
	}

	g := &GeoTIFF{}
	for _, f := range files {
		r, err := cog.Open(f)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("%w: %w", ErrDataUnavailable, err), g.Close())
		}
		b := r.BoundsWGS84()
		b.MinLon -= boundsMargin
		b.MinLat -= boundsMargin
		b.MaxLon += boundsMargin
		b.MaxLat += boundsMargin

		g.readers = append(g.readers, r)
		g.bounds = append(g.bounds, b)
		log.Debugw("opened GeoTIFF", "path", f, "epsg", r.EPSG(), "size", fmt.Sprintf("%dx%d", r.Width(), r.Height()))
	}
	return g, nil
}

// Elevation samples the first raster that covers lon/lat and has data there.
func (g *GeoTIFF) Elevation(lon, lat float64) (float64, error) {
	for i, r := range g.readers {
		if !g.bounds[i].Contains(lon, lat) {
			continue
		}
		v, err := r.SampleWGS84(lon, lat)
		if errors.Is(err, cog.ErrOutside) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrDataUnavailable, r.Path(), err)
		}
		if !math.IsNaN(v) {
			return v, nil
		}
	}
	return math.NaN(), nil
}

// Close closes every raster and reports all failures.
func (g *GeoTIFF) Close() error {
	var err error
	for _, r := range g.readers {
		err = multierr.Append(err, r.Close())
	}
	g.readers = nil
	g.bounds = nil
	return err
}
