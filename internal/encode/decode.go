// Package encode decodes raster elevation tiles: image containers (PNG, JPEG,
// WebP) carrying elevations packed into RGB.
package encode

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/gen2brain/webp"

	"github.com/pspoerri/gpxelevation/internal/pmtiles"
)

// DecodeImage decodes tile bytes of the given PMTiles tile type.
func DecodeImage(data []byte, tileType uint8) (image.Image, error) {
	r := bytes.NewReader(data)
	switch tileType {
	case pmtiles.TileTypePNG:
		return png.Decode(r)
	case pmtiles.TileTypeJPEG:
		return jpeg.Decode(r)
	case pmtiles.TileTypeWebP:
		return webp.Decode(r)
	default:
		return nil, fmt.Errorf("unsupported tile type: %s", pmtiles.TileTypeName(tileType))
	}
}

// Grid is a decoded elevation tile in row-major order. NaN marks nodata.
type Grid struct {
	Width, Height int
	Values        []float32
}

// At returns the elevation at pixel (x, y).
func (g *Grid) At(x, y int) float64 {
	return float64(g.Values[y*g.Width+x])
}

// DecodeElevation decodes an RGB-packed elevation tile into a Grid.
func DecodeElevation(data []byte, tileType uint8, enc Encoding) (*Grid, error) {
	img, err := DecodeImage(data, tileType)
	if err != nil {
		return nil, fmt.Errorf("decoding %s tile: %w", pmtiles.TileTypeName(tileType), err)
	}

	b := img.Bounds()
	g := &Grid{Width: b.Dx(), Height: b.Dy(), Values: make([]float32, b.Dx()*b.Dy())}
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			g.Values[y*g.Width+x] = float32(enc.Elevation(c))
		}
	}
	return g, nil
}
