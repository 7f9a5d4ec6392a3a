package encode

import (
	"fmt"
	"image/color"
	"math"
	"strings"
)

// Encoding is a scheme for packing elevations into RGB pixels.
type Encoding int

const (
	// Terrarium: elevation = R*256 + G + B/256 - 32768.
	Terrarium Encoding = iota
	// TerrainRGB (Mapbox): elevation = -10000 + (R*65536 + G*256 + B) * 0.1.
	TerrainRGB
)

func (e Encoding) String() string {
	switch e {
	case Terrarium:
		return "terrarium"
	case TerrainRGB:
		return "terrain-rgb"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// ParseEncoding maps an encoding name, as found in PMTiles metadata, to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "terrarium":
		return Terrarium, nil
	case "terrain-rgb", "terrainrgb", "mapbox":
		return TerrainRGB, nil
	default:
		return 0, fmt.Errorf("unknown elevation encoding %q (want terrarium or terrain-rgb)", s)
	}
}

// Elevation decodes one pixel. Transparent pixels are nodata and give NaN.
func (e Encoding) Elevation(c color.RGBA) float64 {
	if c.A == 0 {
		return math.NaN()
	}
	switch e {
	case TerrainRGB:
		return -10000 + float64(int(c.R)<<16|int(c.G)<<8|int(c.B))*0.1
	default:
		return TerrariumToElevation(c)
	}
}

// TerrariumToElevation converts a Terrarium pixel to meters.
func TerrariumToElevation(c color.RGBA) float64 {
	if c.A == 0 {
		return math.NaN()
	}
	return float64(c.R)*256 + float64(c.G) + float64(c.B)/256 - 32768
}
