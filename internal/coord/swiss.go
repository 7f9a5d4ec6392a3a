package coord

// LV95 is a position in the Swiss CH1903+/LV95 grid (EPSG:2056), in meters.
type LV95 struct {
	Easting  float64
	Northing float64
}

// SwissLV95 implements the Projection interface for EPSG:2056 (CH1903+ / LV95).
// Uses swisstopo's published polynomial approximation formulas.
// Accuracy: ~1 meter inside Switzerland. Outside the country the output is
// meaningless and no error is reported.
//
// Reference: https://www.swisstopo.admin.ch/en/knowledge-facts/surveying-geodesy/reference-frames/local/lv95.html
type SwissLV95 struct{}

func (s *SwissLV95) EPSG() int { return 2056 }

// ToWGS84 converts Swiss LV95 easting/northing to WGS84 longitude/latitude (degrees).
func (s *SwissLV95) ToWGS84(easting, northing float64) (lon, lat float64) {
	// Offsets from the Bern origin in 1000 km units.
	y := (easting - 2_600_000) / 1_000_000
	x := (northing - 1_200_000) / 1_000_000

	// Results are in 10000" units.
	lonSec := 2.6779094 +
		4.728982*y +
		0.791484*y*x +
		0.1306*y*x*x -
		0.0436*y*y*y
	latSec := 16.9023892 +
		3.238272*x -
		0.270978*y*y -
		0.002528*x*x -
		0.0447*y*y*x -
		0.0140*x*x*x

	lon = lonSec * 100.0 / 36.0
	lat = latSec * 100.0 / 36.0
	return
}

// FromWGS84 converts WGS84 longitude/latitude (degrees) to Swiss LV95 easting/northing.
func (s *SwissLV95) FromWGS84(lon, lat float64) (easting, northing float64) {
	p := ApproxLV95(lon, lat)
	return p.Easting, p.Northing
}

// ApproxLV95 projects a WGS84 longitude/latitude onto LV95 with the closed-form
// swisstopo polynomial. It is pure and never fails for finite input.
func ApproxLV95(lon, lat float64) LV95 {
	// Auxiliary values: sexagesimal seconds relative to Bern, in 10000" units.
	phi := (lat*3600 - 169028.66) / 10000
	lambda := (lon*3600 - 26782.5) / 10000

	return LV95{
		Easting: 2_600_072.37 +
			211_455.93*lambda -
			10_938.51*lambda*phi -
			0.36*lambda*phi*phi -
			44.54*lambda*lambda*lambda,
		Northing: 1_200_147.07 +
			308_807.95*phi +
			3_745.25*lambda*lambda +
			76.63*phi*phi -
			194.56*lambda*lambda*phi +
			119.79*phi*phi*phi,
	}
}
