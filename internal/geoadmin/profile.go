package geoadmin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/pspoerri/gpxelevation/internal/coord"
)

type profileSample struct {
	Alts *struct {
		COMB *json.Number `json:"COMB"`
	} `json:"alts"`
}

// Profile samples the terrain at every vertex of the LV95 line pts, in order.
// The service is asked for exactly len(pts) distinct points. The returned
// slice has one COMB elevation per vertex; any mismatch in length or missing
// field is a *ResponseShapeError and no partial result is returned.
func (c *Client) Profile(ctx context.Context, pts []coord.LV95) ([]float64, error) {
	if len(pts) == 0 {
		return nil, nil
	}

	geom, err := lineStringJSON(pts)
	if err != nil {
		return nil, fmt.Errorf("encoding profile geometry: %w", err)
	}

	q := url.Values{}
	q.Set("geom", string(geom))
	q.Set("sr", strconv.Itoa(SpatialReference))
	q.Set("nb_points", strconv.Itoa(len(pts)))
	q.Set("distinct_points", "true")

	var samples []profileSample
	if err := c.getJSON(ctx, "profile", c.endpoints.Profile, q, &samples); err != nil {
		return nil, err
	}

	if len(samples) != len(pts) {
		return nil, shapeErrorf("profile", "got %d samples for %d points", len(samples), len(pts))
	}
	heights := make([]float64, len(samples))
	for i, s := range samples {
		if s.Alts == nil || s.Alts.COMB == nil {
			return nil, shapeErrorf("profile", "sample %d has no alts.COMB", i)
		}
		h, err := s.Alts.COMB.Float64()
		if err != nil {
			return nil, shapeErrorf("profile", "sample %d: COMB %q is not a number", i, *s.Alts.COMB)
		}
		heights[i] = h
	}
	return heights, nil
}

// lineStringJSON encodes pts as a GeoJSON LineString geometry.
func lineStringJSON(pts []coord.LV95) ([]byte, error) {
	ls := make(orb.LineString, len(pts))
	for i, p := range pts {
		ls[i] = orb.Point{p.Easting, p.Northing}
	}
	return json.Marshal(geojson.NewGeometry(ls))
}
