package geoadmin

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/pspoerri/gpxelevation/internal/coord"
)

type heightResponse struct {
	Height *json.Number `json:"height"`
}

// Height returns the terrain height in meters at an LV95 position.
func (c *Client) Height(ctx context.Context, p coord.LV95) (float64, error) {
	q := url.Values{}
	q.Set("easting", strconv.FormatFloat(p.Easting, 'f', -1, 64))
	q.Set("northing", strconv.FormatFloat(p.Northing, 'f', -1, 64))
	q.Set("sr", strconv.Itoa(SpatialReference))

	var resp heightResponse
	if err := c.getJSON(ctx, "height", c.endpoints.Height, q, &resp); err != nil {
		return 0, err
	}
	if resp.Height == nil {
		return 0, shapeErrorf("height", "missing height field")
	}
	h, err := resp.Height.Float64()
	if err != nil {
		return 0, shapeErrorf("height", "height %q is not a number", *resp.Height)
	}
	return h, nil
}
