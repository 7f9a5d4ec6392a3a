// Package elevation adds terrain heights to tracks. A Coordinator picks one
// of three providers by Mode and falls back to the offline Raster provider
// when a remote one fails.
package elevation

import (
	"context"
	"fmt"
	"strings"
)

// Mode selects an elevation provider. The set is closed.
type Mode int

const (
	// Raster samples an offline DEM and smooths along the track.
	Raster Mode = iota
	// PointAPI asks the height service once per point.
	PointAPI
	// ProfileAPI asks the profile service once for the whole track.
	ProfileAPI
)

// String returns the command-line name of the mode.
func (m Mode) String() string {
	switch m {
	case Raster:
		return "srtm"
	case PointAPI:
		return "swisstopo"
	case ProfileAPI:
		return "polyline"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Modes lists every supported mode.
func Modes() []Mode { return []Mode{Raster, PointAPI, ProfileAPI} }

// ParseMode accepts the command-line names srtm, swisstopo and polyline, and
// the aliases raster, point and profile.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "srtm", "raster":
		return Raster, nil
	case "swisstopo", "point":
		return PointAPI, nil
	case "polyline", "profile":
		return ProfileAPI, nil
	default:
		return 0, &UnsupportedModeError{Mode: s}
	}
}

// Track is the part of a track document the providers need: an ordered,
// indexable sequence of points whose elevation can be set.
type Track interface {
	Len() int
	Point(i int) (lon, lat float64)
	SetElevation(i int, meters float64)
}

// Provider writes an elevation to every point of a track, or fails.
type Provider interface {
	Enrich(ctx context.Context, t Track) error
}
