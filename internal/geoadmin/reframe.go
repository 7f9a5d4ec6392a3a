package geoadmin

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/pspoerri/gpxelevation/internal/coord"
)

// reframeResponse accepts easting/northing as JSON strings or numbers.
type reframeResponse struct {
	Easting  json.Number `json:"easting"`
	Northing json.Number `json:"northing"`
}

// Reframe converts WGS84 lon/lat to LV95 with the federal geodesy service.
// It satisfies coord.Reframer.
func (c *Client) Reframe(ctx context.Context, lon, lat float64) (coord.LV95, error) {
	q := url.Values{}
	// The service reuses easting/northing for the WGS84 input.
	q.Set("easting", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("northing", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("format", "json")

	var resp reframeResponse
	if err := c.getJSON(ctx, "reframe", c.endpoints.Reframe, q, &resp); err != nil {
		return coord.LV95{}, err
	}

	e, err := resp.Easting.Float64()
	if err != nil {
		return coord.LV95{}, shapeErrorf("reframe", "easting %q is not a number", resp.Easting)
	}
	n, err := resp.Northing.Float64()
	if err != nil {
		return coord.LV95{}, shapeErrorf("reframe", "northing %q is not a number", resp.Northing)
	}
	return coord.LV95{Easting: e, Northing: n}, nil
}
