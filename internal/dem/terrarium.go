package dem

import (
	"fmt"
	"math"

	"github.com/pspoerri/gpxelevation/internal/cog"
	"github.com/pspoerri/gpxelevation/internal/coord"
	"github.com/pspoerri/gpxelevation/internal/encode"
	"github.com/pspoerri/gpxelevation/internal/log"
	"github.com/pspoerri/gpxelevation/internal/pmtiles"
)

// Terrarium samples a PMTiles archive of RGB-encoded elevation tiles at a
// single zoom level. Decoded tiles are kept in a small cache; a tile absent
// from the archive is cached as an empty block and reads as nodata.
type Terrarium struct {
	archive  *pmtiles.Reader
	zoom     int
	tileType uint8
	enc      encode.Encoding
	cache    *cog.BlockCache
}

// OpenTerrarium opens path. A zoom of 0 (or one above the archive's range)
// uses the archive's max zoom. An empty encoding reads the "encoding" key of
// the archive metadata and falls back to terrarium.
func OpenTerrarium(path string, zoom int, encoding string) (*Terrarium, error) {
	if path == "" {
		return nil, unavailable("no terrarium archive configured")
	}
	archive, err := pmtiles.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	h := archive.Header()

	if zoom <= 0 || zoom > int(h.MaxZoom) {
		zoom = int(h.MaxZoom)
	}

	if encoding == "" {
		encoding = "terrarium"
		meta, err := archive.ReadMetadata()
		if err != nil {
			log.Warnw("reading archive metadata", "path", path, "err", err)
		}
		if s, ok := meta["encoding"].(string); ok && s != "" {
			encoding = s
		}
	}
	enc, err := encode.ParseEncoding(encoding)
	if err != nil {
		archive.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrDataUnavailable, path, err)
	}

	log.Debugw("opened terrarium archive", "path", path, "zoom", zoom,
		"tile_type", pmtiles.TileTypeName(h.TileType), "encoding", enc)

	return &Terrarium{
		archive:  archive,
		zoom:     zoom,
		tileType: h.TileType,
		enc:      enc,
		cache:    cog.NewBlockCache(32),
	}, nil
}

// Zoom returns the level tiles are read from.
func (t *Terrarium) Zoom() int { return t.zoom }

// tile returns the decoded tile x/y. A missing tile has zero width.
func (t *Terrarium) tile(x, y int) ([]float32, int, int, error) {
	if data, w, h := t.cache.Get(x, y); data != nil {
		return data, w, h, nil
	}

	raw, err := t.archive.ReadTile(t.zoom, x, y)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	if raw == nil {
		t.cache.Put(x, y, []float32{}, 0, 0)
		return nil, 0, 0, nil
	}
	g, err := encode.DecodeElevation(raw, t.tileType, t.enc)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: tile %d/%d/%d: %w", ErrDataUnavailable, t.zoom, x, y, err)
	}
	t.cache.Put(x, y, g.Values, g.Width, g.Height)
	return g.Values, g.Width, g.Height, nil
}

// pixel returns the value at global pixel (gx, gy) for tiles of size px.
func (t *Terrarium) pixel(gx, gy, size int) (float64, error) {
	n := 1 << t.zoom
	world := n * size
	gx = ((gx % world) + world) % world
	gy = min(max(gy, 0), world-1)

	data, w, h, err := t.tile(gx/size, gy/size)
	if err != nil {
		return 0, err
	}
	lx, ly := gx%size, gy%size
	if w == 0 || lx >= w || ly >= h {
		return math.NaN(), nil
	}
	return float64(data[ly*w+lx]), nil
}

// Elevation interpolates bilinearly in web-mercator pixel space. Neighbours
// may come from adjacent tiles.
func (t *Terrarium) Elevation(lon, lat float64) (float64, error) {
	tx, ty := coord.LonLatToTile(lon, lat, t.zoom)
	_, size, _, err := t.tile(tx, ty)
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return math.NaN(), nil
	}

	px, py := coord.GlobalPixel(lon, lat, t.zoom, size)
	fx, fy := px-0.5, py-0.5
	x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
	dx, dy := fx-float64(x0), fy-float64(y0)

	ns := make([]neighbor, 0, 4)
	for _, c := range [4]struct {
		x, y int
		w    float64
	}{
		{x0, y0, (1 - dx) * (1 - dy)},
		{x0 + 1, y0, dx * (1 - dy)},
		{x0, y0 + 1, (1 - dx) * dy},
		{x0 + 1, y0 + 1, dx * dy},
	} {
		if c.w == 0 {
			continue
		}
		v, err := t.pixel(c.x, c.y, size)
		if err != nil {
			return 0, err
		}
		ns = append(ns, neighbor{v, c.w})
	}
	return blend(ns), nil
}

// Close closes the archive.
func (t *Terrarium) Close() error {
	return t.archive.Close()
}
