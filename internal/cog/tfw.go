package cog

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TFW holds the six affine parameters of an ESRI world file. The origin is
// the center of the upper-left pixel.
type TFW struct {
	PixelSizeX float64
	RotationY  float64
	RotationX  float64
	PixelSizeY float64 // negative for north-up images
	OriginX    float64
	OriginY    float64
}

// parseTFW reads a world file. Rotated grids are rejected.
func parseTFW(path string) (*TFW, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading world file: %w", err)
	}
	defer f.Close()

	var vals []float64
	sc := bufio.NewScanner(f)
	for sc.Scan() && len(vals) < 6 {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("world file %s line %d: %w", path, len(vals)+1, err)
		}
		vals = append(vals, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading world file %s: %w", path, err)
	}
	if len(vals) < 6 {
		return nil, fmt.Errorf("world file %s: expected 6 values, got %d", path, len(vals))
	}

	tfw := &TFW{vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]}
	if tfw.RotationX != 0 || tfw.RotationY != 0 {
		return nil, fmt.Errorf("world file %s: rotated grids are not supported", path)
	}
	return tfw, nil
}

// findTFW returns the world file next to tiffPath, or "" if there is none.
func findTFW(tiffPath string) string {
	base := strings.TrimSuffix(tiffPath, filepath.Ext(tiffPath))
	for _, ext := range []string{".tfw", ".TFW", ".tifw", ".TIFW", ".wld"} {
		if _, err := os.Stat(base + ext); err == nil {
			return base + ext
		}
	}
	return ""
}

// toGeoInfo shifts the pixel-center origin to the upper-left corner.
func (tfw *TFW) toGeoInfo() GeoInfo {
	sx, sy := math.Abs(tfw.PixelSizeX), math.Abs(tfw.PixelSizeY)
	return GeoInfo{
		PixelSizeX: sx,
		PixelSizeY: sy,
		OriginX:    tfw.OriginX - sx/2,
		OriginY:    tfw.OriginY + sy/2,
	}
}

// inferEPSG guesses the CRS from the coordinate ranges: degrees, then the
// Swiss grids, then Web Mercator.
func inferEPSG(info GeoInfo, width, height uint32) int {
	maxX := info.OriginX + float64(width)*info.PixelSizeX
	minY := info.OriginY - float64(height)*info.PixelSizeY

	switch {
	case info.OriginX >= -180 && maxX <= 180 && minY >= -90 && info.OriginY <= 90:
		return 4326
	case info.OriginX >= 2_400_000 && maxX <= 2_900_000 && minY >= 1_000_000 && info.OriginY <= 1_400_000:
		return 2056
	case info.OriginX >= 400_000 && maxX <= 900_000 && minY >= 0 && info.OriginY <= 400_000:
		return 21781
	case math.Abs(info.OriginX) <= 20037508.34 && math.Abs(info.OriginY) <= 20048966.10:
		return 3857
	}
	return 0
}
