package coord

import (
	"context"
	"errors"
	"fmt"
)

// Mode selects how WGS84 coordinates are reprojected onto LV95.
type Mode int

const (
	// Approximate evaluates the swisstopo polynomial locally.
	Approximate Mode = iota
	// RemoteAPI asks the federal geodesy reframe service.
	RemoteAPI
)

func (m Mode) String() string {
	switch m {
	case Approximate:
		return "approx"
	case RemoteAPI:
		return "api"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "approx" or "api".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "approx", "approximate":
		return Approximate, nil
	case "api", "remote":
		return RemoteAPI, nil
	default:
		return 0, fmt.Errorf("unsupported reprojection mode %q (supported: approx, api)", s)
	}
}

// Reframer converts a WGS84 position to LV95 through a remote service.
type Reframer interface {
	Reframe(ctx context.Context, lon, lat float64) (LV95, error)
}

// ErrNoReframer is returned for RemoteAPI reprojection when no Reframer is configured.
var ErrNoReframer = errors.New("remote reprojection requested but no reframe client configured")

// Reprojector converts WGS84 longitude/latitude to LV95 in one of the two modes.
// The zero value only supports Approximate.
type Reprojector struct {
	Remote Reframer
}

// NewReprojector returns a Reprojector that uses remote for RemoteAPI mode.
func NewReprojector(remote Reframer) *Reprojector {
	return &Reprojector{Remote: remote}
}

// Reproject converts (lon, lat) in degrees to LV95 meters.
func (r *Reprojector) Reproject(ctx context.Context, lon, lat float64, mode Mode) (LV95, error) {
	switch mode {
	case Approximate:
		return ApproxLV95(lon, lat), nil
	case RemoteAPI:
		if r == nil || r.Remote == nil {
			return LV95{}, ErrNoReframer
		}
		p, err := r.Remote.Reframe(ctx, lon, lat)
		if err != nil {
			return LV95{}, fmt.Errorf("reframe (%.6f, %.6f): %w", lon, lat, err)
		}
		return p, nil
	default:
		return LV95{}, fmt.Errorf("unsupported reprojection mode %v", mode)
	}
}
