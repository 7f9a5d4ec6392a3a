package cog

// GeoTIFF GeoKey IDs.
const (
	gkGeographicTypeGeoKey  = 2048
	gkProjectedCSTypeGeoKey = 3072
)

// GeoInfo holds the affine georeferencing of a raster.
type GeoInfo struct {
	EPSG       int     // EPSG code (e.g. 2056)
	OriginX    float64 // x of the upper-left pixel corner
	OriginY    float64 // y of the upper-left pixel corner
	PixelSizeX float64 // pixel width in CRS units (positive)
	PixelSizeY float64 // pixel height in CRS units (positive)
}

// parseGeoInfo extracts georeferencing from the ModelTiepoint and
// ModelPixelScale tags. ok is false when either tag is missing.
func parseGeoInfo(ifd *IFD) (GeoInfo, bool) {
	if len(ifd.ModelPixelScale) < 2 || len(ifd.ModelTiepoint) < 6 {
		return GeoInfo{}, false
	}
	info := GeoInfo{
		PixelSizeX: ifd.ModelPixelScale[0],
		PixelSizeY: ifd.ModelPixelScale[1],
	}
	if info.PixelSizeX <= 0 || info.PixelSizeY <= 0 {
		return GeoInfo{}, false
	}

	// The tiepoint maps raster (I,J) to model (X,Y).
	info.OriginX = ifd.ModelTiepoint[3] - ifd.ModelTiepoint[0]*info.PixelSizeX
	info.OriginY = ifd.ModelTiepoint[4] + ifd.ModelTiepoint[1]*info.PixelSizeY

	info.EPSG = parseEPSG(ifd.GeoKeys)
	if info.EPSG == 0 {
		info.EPSG = inferEPSG(info, ifd.Width, ifd.Height)
	}
	return info, true
}

// parseEPSG extracts the EPSG code from the GeoKey directory. A projected
// CRS wins over the geographic one it is based on.
func parseEPSG(geoKeys []uint16) int {
	if len(geoKeys) < 4 {
		return 0
	}

	// Header: version, revision, minor revision, key count.
	numKeys := int(geoKeys[3])
	geographic := 0
	for i := 0; i < numKeys; i++ {
		base := 4 + i*4
		if base+3 >= len(geoKeys) {
			break
		}
		// A non-zero location means the value lives in another tag.
		if geoKeys[base+1] != 0 {
			continue
		}
		value := int(geoKeys[base+3])
		switch geoKeys[base] {
		case gkProjectedCSTypeGeoKey:
			if value > 0 && value != 32767 {
				return value
			}
		case gkGeographicTypeGeoKey:
			if value > 0 && value != 32767 {
				geographic = value
			}
		}
	}
	return geographic
}
