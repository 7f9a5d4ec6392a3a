package coord

import "math"

const (
	// EarthCircumference is the equatorial circumference in meters at zoom 0.
	EarthCircumference = 40075016.685578488
	// OriginShift is half the earth's circumference.
	OriginShift = EarthCircumference / 2.0
	// DefaultTileSize is the standard web map tile dimension.
	DefaultTileSize = 256
)

// WebMercatorProj implements the Projection interface for EPSG:3857.
type WebMercatorProj struct{}

func (w *WebMercatorProj) EPSG() int { return 3857 }

func (w *WebMercatorProj) ToWGS84(x, y float64) (lon, lat float64) {
	lon = (x / OriginShift) * 180.0
	lat = (y / OriginShift) * 180.0
	lat = 180.0 / math.Pi * (2.0*math.Atan(math.Exp(lat*math.Pi/180.0)) - math.Pi/2.0)
	return
}

func (w *WebMercatorProj) FromWGS84(lon, lat float64) (x, y float64) {
	x = lon * OriginShift / 180.0
	y = math.Log(math.Tan((90.0+lat)*math.Pi/360.0)) / (math.Pi / 180.0)
	y = y * OriginShift / 180.0
	return
}

// GlobalPixel returns the fractional pixel position of lon/lat in the whole
// web-mercator pyramid at zoom z, with tiles of tileSize pixels.
// Pixel (0, 0) is the north-west corner of tile 0/0/0.
func GlobalPixel(lon, lat float64, z, tileSize int) (px, py float64) {
	world := math.Exp2(float64(z)) * float64(tileSize)
	latRad := lat * math.Pi / 180.0
	px = (lon + 180.0) / 360.0 * world
	py = (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * world
	return
}

// LonLatToTile converts WGS84 lon/lat to tile coordinates at the given zoom level.
// Positions beyond the mercator limits are clamped to the edge tiles.
func LonLatToTile(lon, lat float64, zoom int) (x, y int) {
	px, py := GlobalPixel(lon, lat, zoom, 1)
	maxTile := (1 << zoom) - 1
	x = clampTile(int(math.Floor(px)), maxTile)
	y = clampTile(int(math.Floor(py)), maxTile)
	return
}

func clampTile(v, maxTile int) int {
	if v < 0 {
		return 0
	}
	if v > maxTile {
		return maxTile
	}
	return v
}
