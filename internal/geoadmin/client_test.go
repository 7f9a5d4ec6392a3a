package geoadmin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspoerri/gpxelevation/internal/coord"
)

// newTestClient serves handler on all three endpoints under distinct paths.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), WithEndpoints(Endpoints{
		Reframe: srv.URL + "/reframe/wgs84tolv95",
		Height:  srv.URL + "/height",
		Profile: srv.URL + "/profile.json",
	}), WithUserAgent("gpx-elevation-test"))
}

func TestReframe_StringFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reframe/wgs84tolv95", r.URL.Path)
		assert.Equal(t, "8.541700", r.URL.Query().Get("easting"))
		assert.Equal(t, "47.376900", r.URL.Query().Get("northing"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "gpx-elevation-test", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{"easting":"2683304.03","northing":"1247925.60"}`)
	})

	p, err := c.Reframe(context.Background(), 8.5417, 47.3769)
	require.NoError(t, err)
	assert.InDelta(t, 2683304.03, p.Easting, 1e-9)
	assert.InDelta(t, 1247925.60, p.Northing, 1e-9)
}

func TestReframe_NumericFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"easting":2600000.0,"northing":1200000.0}`)
	})

	p, err := c.Reframe(context.Background(), 7.438632, 46.951083)
	require.NoError(t, err)
	assert.Equal(t, coord.LV95{Easting: 2600000, Northing: 1200000}, p)
}

func TestReframe_SatisfiesReframer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"easting":"2600000","northing":"1200000"}`)
	})
	r := coord.NewReprojector(c)

	p, err := r.Reproject(context.Background(), 7.438632, 46.951083, coord.RemoteAPI)
	require.NoError(t, err)
	assert.Equal(t, 2600000.0, p.Easting)
}

func TestReframe_MalformedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	})

	_, err := c.Reframe(context.Background(), 8.5, 47.3)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "reframe", te.Endpoint)
	assert.Equal(t, http.StatusOK, te.StatusCode)
}

func TestReframe_MissingField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"easting":"2600000"}`)
	})

	_, err := c.Reframe(context.Background(), 8.5, 47.3)
	var se *ResponseShapeError
	require.ErrorAs(t, err, &se)
}

func TestHeight(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/height", r.URL.Path)
		assert.Equal(t, "2056", r.URL.Query().Get("sr"))
		e, err := strconv.ParseFloat(r.URL.Query().Get("easting"), 64)
		require.NoError(t, err)
		assert.Equal(t, 2683304.5, e)
		fmt.Fprint(w, `{"height":"408.3"}`)
	})

	h, err := c.Height(context.Background(), coord.LV95{Easting: 2683304.5, Northing: 1247925.25})
	require.NoError(t, err)
	assert.Equal(t, 408.3, h)
}

func TestHeight_Numeric(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"height":1234.5}`)
	})

	h, err := c.Height(context.Background(), coord.LV95{Easting: 2600000, Northing: 1200000})
	require.NoError(t, err)
	assert.Equal(t, 1234.5, h)
}

func TestHeight_Missing(t *testing.T) {
	for _, body := range []string{`{}`, `{"height":null}`} {
		t.Run(body, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			})
			_, err := c.Height(context.Background(), coord.LV95{})
			var se *ResponseShapeError
			assert.ErrorAs(t, err, &se)
		})
	}
}

func TestHeight_HTTPStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := c.Height(context.Background(), coord.LV95{})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
	assert.Contains(t, err.Error(), "upstream exploded")
}

type failingDoer struct{ err error }

func (d failingDoer) Do(*http.Request) (*http.Response, error) { return nil, d.err }

func TestHeight_NetworkFailure(t *testing.T) {
	boom := errors.New("connection refused")
	c := NewClient(failingDoer{err: boom})

	_, err := c.Height(context.Background(), coord.LV95{})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
	assert.ErrorIs(t, err, boom)
}

func TestProfile(t *testing.T) {
	pts := []coord.LV95{
		{Easting: 2600000, Northing: 1200000},
		{Easting: 2600100, Northing: 1200050},
		{Easting: 2600200, Northing: 1200100},
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/profile.json", r.URL.Path)
		assert.Equal(t, "2056", q.Get("sr"))
		assert.Equal(t, "3", q.Get("nb_points"))
		assert.Equal(t, "true", q.Get("distinct_points"))

		var geom struct {
			Type        string       `json:"type"`
			Coordinates [][2]float64 `json:"coordinates"`
		}
		require.NoError(t, json.Unmarshal([]byte(q.Get("geom")), &geom))
		assert.Equal(t, "LineString", geom.Type)
		require.Len(t, geom.Coordinates, 3)
		assert.Equal(t, [2]float64{2600100, 1200050}, geom.Coordinates[1])

		fmt.Fprint(w, `[
			{"dist":0,"alts":{"COMB":540.1,"DTM2":540.0},"easting":2600000,"northing":1200000},
			{"dist":111.8,"alts":{"COMB":545.6},"easting":2600100,"northing":1200050},
			{"dist":223.6,"alts":{"COMB":"551.2"},"easting":2600200,"northing":1200100}
		]`)
	})

	heights, err := c.Profile(context.Background(), pts)
	require.NoError(t, err)
	assert.Equal(t, []float64{540.1, 545.6, 551.2}, heights)
}

func TestProfile_LengthMismatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"alts":{"COMB":1}},{"alts":{"COMB":2}}]`)
	})

	heights, err := c.Profile(context.Background(), make([]coord.LV95, 3))
	assert.Nil(t, heights)
	var se *ResponseShapeError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Reason, "2 samples for 3 points")
}

func TestProfile_MissingComb(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"alts":{"COMB":1}},{"alts":{"DTM25":2}}]`)
	})

	heights, err := c.Profile(context.Background(), make([]coord.LV95, 2))
	assert.Nil(t, heights)
	var se *ResponseShapeError
	assert.ErrorAs(t, err, &se)
}

func TestProfile_Empty(t *testing.T) {
	c := NewClient(failingDoer{err: errors.New("must not be called")})

	heights, err := c.Profile(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, heights)
}

func TestContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"height":1}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Height(ctx, coord.LV95{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithEndpoints_KeepsDefaults(t *testing.T) {
	c := NewClient(nil, WithEndpoints(Endpoints{Height: "http://example.invalid/h"}))
	e := c.Endpoints()
	assert.Equal(t, DefaultReframeURL, e.Reframe)
	assert.Equal(t, "http://example.invalid/h", e.Height)
	assert.Equal(t, DefaultProfileURL, e.Profile)
}

func TestLineStringJSON(t *testing.T) {
	b, err := lineStringJSON([]coord.LV95{{Easting: 1.5, Northing: 2}, {Easting: 3, Northing: math.Floor(4.9)}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"LineString","coordinates":[[1.5,2],[3,4]]}`, string(b))
}
