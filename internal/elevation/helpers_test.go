package elevation

import "math"

// points is an in-memory Track. Unset elevations are NaN.
type points struct {
	coords [][2]float64
	elev   []float64
}

func newPoints(coords ...[2]float64) *points {
	e := make([]float64, len(coords))
	for i := range e {
		e[i] = math.NaN()
	}
	return &points{coords: coords, elev: e}
}

func (p *points) Len() int                           { return len(p.coords) }
func (p *points) Point(i int) (lon, lat float64)     { return p.coords[i][0], p.coords[i][1] }
func (p *points) SetElevation(i int, meters float64) { p.elev[i] = meters }

func (p *points) isSet(i int) bool { return !math.IsNaN(p.elev[i]) }

var zurich = [2]float64{8.5417, 47.3769}

// line returns n points stepping east from Zürich.
func line(n int) *points {
	c := make([][2]float64, n)
	for i := range c {
		c[i] = [2]float64{zurich[0] + float64(i)*0.001, zurich[1]}
	}
	return newPoints(c...)
}

// gridSource is a dem.Source backed by a function of lon/lat.
type gridSource struct {
	f      func(lon, lat float64) (float64, error)
	closed bool
}

func (g *gridSource) Elevation(lon, lat float64) (float64, error) { return g.f(lon, lat) }
func (g *gridSource) Close() error                                { g.closed = true; return nil }
