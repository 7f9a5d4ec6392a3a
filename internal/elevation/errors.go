package elevation

import (
	"fmt"

	"github.com/pspoerri/gpxelevation/internal/dem"
)

// ErrDataUnavailable is returned by the Raster provider when its elevation
// model cannot be loaded or has no data for the track.
var ErrDataUnavailable = dem.ErrDataUnavailable

// UnsupportedModeError reports a mode outside the supported set.
type UnsupportedModeError struct {
	Mode string
}

func (e *UnsupportedModeError) Error() string {
	return fmt.Sprintf("unsupported elevation mode %q (supported: srtm, swisstopo, polyline)", e.Mode)
}

// FallbackError reports that both the requested provider and the Raster
// fallback failed. errors.Is and errors.As see both causes.
type FallbackError struct {
	Mode     Mode
	Primary  error
	Fallback error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("%s provider failed: %v; raster fallback failed: %v", e.Mode, e.Primary, e.Fallback)
}

func (e *FallbackError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}
