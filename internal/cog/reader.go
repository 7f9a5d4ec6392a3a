package cog

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/pspoerri/gpxelevation/internal/coord"
)

// ErrOutside is returned when a coordinate lies outside the raster.
var ErrOutside = errors.New("coordinate outside raster")

// Bounds represents geographic bounds in WGS84.
type Bounds struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
}

// Contains reports whether lon/lat lies inside b.
func (b Bounds) Contains(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// Reader samples a single-band GeoTIFF or COG elevation raster. The file is
// memory-mapped where the platform allows it; decoded blocks are cached.
// A Reader is safe for concurrent use.
type Reader struct {
	data  []byte
	bo    binary.ByteOrder
	ifds  []IFD
	geo   GeoInfo
	proj  coord.Projection
	path  string
	cache *BlockCache
}

// Open maps path and parses its TIFF structure and georeferencing. When the
// file has no GeoTIFF tags a .tfw world file next to it is used instead.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.Size() == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	data, err := mapFile(f, int(fi.Size()))
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}

	r, err := newReader(path, data)
	if err != nil {
		unmapFile(data)
		return nil, err
	}
	return r, nil
}

func newReader(path string, data []byte) (*Reader, error) {
	ifds, bo, err := parseTIFF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(ifds) == 0 {
		return nil, fmt.Errorf("%s: no IFDs found", path)
	}

	first := &ifds[0]
	if first.Width == 0 || first.Height == 0 {
		return nil, fmt.Errorf("%s: image has no pixels", path)
	}
	if first.BitsPerSample == 0 {
		first.BitsPerSample = 8
	}
	if _, err := sampleReader(first, bo); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	geo, ok := parseGeoInfo(first)
	if !ok {
		tfwPath := findTFW(path)
		if tfwPath == "" {
			return nil, fmt.Errorf("%s: no georeferencing (no GeoTIFF tags and no world file)", path)
		}
		tfw, err := parseTFW(tfwPath)
		if err != nil {
			return nil, err
		}
		geo = tfw.toGeoInfo()
		geo.EPSG = inferEPSG(geo, first.Width, first.Height)
	}

	proj := coord.ForEPSG(geo.EPSG)
	if proj == nil {
		return nil, fmt.Errorf("%s: unsupported CRS EPSG:%d", path, geo.EPSG)
	}

	return &Reader{
		data:  data,
		bo:    bo,
		ifds:  ifds,
		geo:   geo,
		proj:  proj,
		path:  path,
		cache: NewBlockCache(64),
	}, nil
}

// Close releases the file mapping.
func (r *Reader) Close() error {
	if r.data == nil {
		return nil
	}
	err := unmapFile(r.data)
	r.data = nil
	return err
}

// Path returns the file path.
func (r *Reader) Path() string { return r.path }

// GeoInfo returns the parsed georeferencing.
func (r *Reader) GeoInfo() GeoInfo { return r.geo }

// EPSG returns the CRS of the raster.
func (r *Reader) EPSG() int { return r.geo.EPSG }

// Width returns the full-resolution image width.
func (r *Reader) Width() int { return int(r.ifds[0].Width) }

// Height returns the full-resolution image height.
func (r *Reader) Height() int { return int(r.ifds[0].Height) }

// IFD returns the full-resolution directory.
func (r *Reader) IFD() IFD { return r.ifds[0] }

// NumOverviews returns the number of reduced-resolution IFDs.
func (r *Reader) NumOverviews() int { return len(r.ifds) - 1 }

// NoData returns the GDAL nodata value, if the file declares one.
func (r *Reader) NoData() (float64, bool) {
	return r.ifds[0].NoData, r.ifds[0].HasNoData
}

// BoundsInCRS returns the outer pixel-edge bounding box in the raster CRS.
func (r *Reader) BoundsInCRS() (minX, minY, maxX, maxY float64) {
	minX = r.geo.OriginX
	maxY = r.geo.OriginY
	maxX = minX + float64(r.Width())*r.geo.PixelSizeX
	minY = maxY - float64(r.Height())*r.geo.PixelSizeY
	return
}

// BoundsWGS84 returns the WGS84 box enclosing the raster's four corners.
func (r *Reader) BoundsWGS84() Bounds {
	minX, minY, maxX, maxY := r.BoundsInCRS()
	b := Bounds{MinLon: 180, MaxLon: -180, MinLat: 90, MaxLat: -90}
	for _, c := range [][2]float64{{minX, minY}, {minX, maxY}, {maxX, minY}, {maxX, maxY}} {
		lon, lat := r.proj.ToWGS84(c[0], c[1])
		b.MinLon = math.Min(b.MinLon, lon)
		b.MaxLon = math.Max(b.MaxLon, lon)
		b.MinLat = math.Min(b.MinLat, lat)
		b.MaxLat = math.Max(b.MaxLat, lat)
	}
	return b
}

// ReadBlock decodes storage block (col, row) of the full-resolution image
// into float32 samples. The returned slice is shared and must not be modified.
func (r *Reader) ReadBlock(col, row int) ([]float32, int, int, error) {
	if data, w, h := r.cache.Get(col, row); data != nil {
		return data, w, h, nil
	}

	ifd := &r.ifds[0]
	if col < 0 || col >= ifd.BlocksAcross() || row < 0 || row >= ifd.BlocksDown() {
		return nil, 0, 0, fmt.Errorf("block (%d,%d) out of range (%dx%d)", col, row, ifd.BlocksAcross(), ifd.BlocksDown())
	}
	w, h := ifd.BlockSize()

	offset, size, err := ifd.blockLocation(col, row)
	if err != nil {
		return nil, 0, 0, err
	}

	var samples []float32
	if size == 0 {
		// Sparse block: GDAL leaves empty blocks unwritten.
		samples = make([]float32, w*h)
		fill := float32(math.NaN())
		if ifd.HasNoData {
			fill = float32(ifd.NoData)
		}
		for i := range samples {
			samples[i] = fill
		}
	} else {
		end := offset + size
		if end > uint64(len(r.data)) {
			return nil, 0, 0, fmt.Errorf("block data [%d:%d] exceeds file size %d", offset, end, len(r.data))
		}
		raw, err := decompress(ifd, r.data[offset:end])
		if err != nil {
			return nil, 0, 0, fmt.Errorf("block (%d,%d): %w", col, row, err)
		}
		if ifd.Compression == CompressionNone {
			// The predictor rewrites in place; never touch the mapping.
			raw = append([]byte(nil), raw...)
		}
		samples, err = decodeSamples(ifd, r.bo, raw, w, h)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("block (%d,%d): %w", col, row, err)
		}
	}

	r.cache.Put(col, row, samples, w, h)
	return samples, w, h, nil
}

// Pixel returns the value at integer pixel (px, py). Nodata pixels are NaN.
func (r *Reader) Pixel(px, py int) (float64, error) {
	if px < 0 || py < 0 || px >= r.Width() || py >= r.Height() {
		return 0, ErrOutside
	}
	bw, bh := r.ifds[0].BlockSize()
	data, w, _, err := r.ReadBlock(px/bw, py/bh)
	if err != nil {
		return 0, err
	}
	v := float64(data[(py%bh)*w+px%bw])
	if nd, ok := r.NoData(); ok && float32(v) == float32(nd) {
		return math.NaN(), nil
	}
	return v, nil
}

// Sample returns the bilinearly interpolated value at CRS coordinate (x, y).
// Nodata neighbours are left out of the interpolation; the result is NaN
// only when all four are nodata.
func (r *Reader) Sample(x, y float64) (float64, error) {
	minX, minY, maxX, maxY := r.BoundsInCRS()
	if x < minX || x > maxX || y < minY || y > maxY {
		return 0, ErrOutside
	}

	// Pixel-center convention: value (i, j) sits at the center of its cell.
	fx := (x-r.geo.OriginX)/r.geo.PixelSizeX - 0.5
	fy := (r.geo.OriginY-y)/r.geo.PixelSizeY - 0.5

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	dx := fx - float64(x0)
	dy := fy - float64(y0)

	var sum, weight float64
	for _, n := range [4]struct {
		px, py int
		w      float64
	}{
		{x0, y0, (1 - dx) * (1 - dy)},
		{x0 + 1, y0, dx * (1 - dy)},
		{x0, y0 + 1, (1 - dx) * dy},
		{x0 + 1, y0 + 1, dx * dy},
	} {
		if n.w == 0 {
			continue
		}
		v, err := r.Pixel(clampInt(n.px, 0, r.Width()-1), clampInt(n.py, 0, r.Height()-1))
		if err != nil {
			return 0, err
		}
		if math.IsNaN(v) {
			continue
		}
		sum += v * n.w
		weight += n.w
	}
	if weight == 0 {
		return math.NaN(), nil
	}
	return sum / weight, nil
}

// SampleWGS84 projects lon/lat into the raster CRS and samples it there.
func (r *Reader) SampleWGS84(lon, lat float64) (float64, error) {
	x, y := r.proj.FromWGS84(lon, lat)
	return r.Sample(x, y)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
