// Package dem provides offline digital elevation model sources: SRTM .hgt
// tiles, GeoTIFF/COG rasters and RGB-encoded PMTiles archives.
package dem

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrDataUnavailable reports that elevation data could not be loaded.
var ErrDataUnavailable = errors.New("elevation data unavailable")

// Source looks up terrain elevations. Implementations are safe for
// concurrent use.
type Source interface {
	// Elevation returns meters at WGS84 lon/lat, or NaN where the model has
	// no data (voids, outside coverage, missing tiles).
	Elevation(lon, lat float64) (float64, error)
	Close() error
}

// Kind selects a DEM backend.
type Kind int

const (
	KindSRTM Kind = iota
	KindGeoTIFF
	KindTerrarium
)

func (k Kind) String() string {
	switch k {
	case KindSRTM:
		return "srtm"
	case KindGeoTIFF:
		return "geotiff"
	case KindTerrarium:
		return "terrarium"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a configuration name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "srtm", "hgt":
		return KindSRTM, nil
	case "geotiff", "tiff", "cog":
		return KindGeoTIFF, nil
	case "terrarium", "pmtiles":
		return KindTerrarium, nil
	default:
		return 0, fmt.Errorf("unknown raster source %q (want srtm, geotiff or terrarium)", s)
	}
}

// Options configures Open.
type Options struct {
	Kind          Kind
	SRTMDir       string
	GeoTIFFPaths  []string // files or glob patterns
	TerrariumPath string
	TerrariumZoom int    // 0 uses the archive's max zoom
	Encoding      string // terrarium or terrain-rgb; empty reads archive metadata
}

// Open opens the backend selected by opts.Kind. Every failure wraps
// ErrDataUnavailable.
func Open(opts Options) (Source, error) {
	switch opts.Kind {
	case KindSRTM:
		return OpenSRTM(opts.SRTMDir)
	case KindGeoTIFF:
		return OpenGeoTIFF(opts.GeoTIFFPaths)
	case KindTerrarium:
		return OpenTerrarium(opts.TerrariumPath, opts.TerrariumZoom, opts.Encoding)
	default:
		return nil, fmt.Errorf("%w: unknown source kind %v", ErrDataUnavailable, opts.Kind)
	}
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDataUnavailable, fmt.Sprintf(format, args...))
}

// neighbor is one corner of a bilinear interpolation cell.
type neighbor struct {
	value  float64
	weight float64
}

// blend interpolates the neighbors, leaving out NaN values. It returns NaN
// when no neighbor with weight has data.
func blend(ns []neighbor) float64 {
	var sum, weight float64
	for _, n := range ns {
		if n.weight == 0 || math.IsNaN(n.value) {
			continue
		}
		sum += n.value * n.weight
		weight += n.weight
	}
	if weight == 0 {
		return math.NaN()
	}
	return sum / weight
}
