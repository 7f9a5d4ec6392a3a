package dem

import (
	"archive/zip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pspoerri/gpxelevation/internal/log"
)

const hgtVoid = -32768

// SRTM reads 1°×1° SRTM height tiles (.hgt or .hgt.zip) from a directory.
// Tiles are named by their south-west corner, e.g. N47E008.hgt, and hold
// big-endian int16 posts in rows from north to south. Adjacent tiles share
// their edge row and column.
type SRTM struct {
	dir string

	mu    sync.Mutex
	tiles map[string]*hgtTile // nil marks a tile known to be absent
}

type hgtTile struct {
	size  int // posts per side: 1201 (3") or 3601 (1")
	posts []int16
}

// OpenSRTM opens a tile directory. Tiles are loaded on first use.
func OpenSRTM(dir string) (*SRTM, error) {
	if dir == "" {
		return nil, unavailable("no SRTM tile directory configured")
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	if !fi.IsDir() {
		return nil, unavailable("%s is not a directory", dir)
	}
	return &SRTM{dir: dir, tiles: make(map[string]*hgtTile)}, nil
}

// TileName returns the name of the tile containing lon/lat.
func TileName(lon, lat float64) string {
	la := int(math.Floor(lat))
	lo := int(math.Floor(lon))
	ns, ew := 'N', 'E'
	if la < 0 {
		ns, la = 'S', -la
	}
	if lo < 0 {
		ew, lo = 'W', -lo
	}
	return fmt.Sprintf("%c%02d%c%03d", ns, la, ew, lo)
}

// Elevation interpolates bilinearly between the four surrounding posts.
func (s *SRTM) Elevation(lon, lat float64) (float64, error) {
	t, err := s.tile(TileName(lon, lat))
	if err != nil {
		return 0, err
	}
	if t == nil {
		return math.NaN(), nil
	}

	step := float64(t.size - 1)
	fx := (lon - math.Floor(lon)) * step
	fy := (math.Floor(lat) + 1 - lat) * step
	x0 := min(int(fx), t.size-2)
	y0 := min(int(fy), t.size-2)
	dx := fx - float64(x0)
	dy := fy - float64(y0)

	return blend([]neighbor{
		{t.at(x0, y0), (1 - dx) * (1 - dy)},
		{t.at(x0+1, y0), dx * (1 - dy)},
		{t.at(x0, y0+1), (1 - dx) * dy},
		{t.at(x0+1, y0+1), dx * dy},
	}), nil
}

func (t *hgtTile) at(x, y int) float64 {
	v := t.posts[y*t.size+x]
	if v == hgtVoid {
		return math.NaN()
	}
	return float64(v)
}

func (s *SRTM) tile(name string) (*hgtTile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tiles[name]; ok {
		return t, nil
	}
	t, err := loadHGT(s.dir, name)
	if err != nil {
		return nil, err
	}
	if t == nil {
		log.Debugw("SRTM tile not found", "tile", name, "dir", s.dir)
	}
	s.tiles[name] = t
	return t, nil
}

// loadHGT reads name.hgt or name.hgt.zip from dir. A tile that does not
// exist yields nil without error.
func loadHGT(dir, name string) (*hgtTile, error) {
	raw, err := os.ReadFile(filepath.Join(dir, name+".hgt"))
	if errors.Is(err, fs.ErrNotExist) {
		raw, err = readZippedHGT(filepath.Join(dir, name+".hgt.zip"))
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: tile %s: %w", ErrDataUnavailable, name, err)
	}
	return parseHGT(name, raw)
}

func readZippedHGT(path string) ([]byte, error) {
	z, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer z.Close()

	for _, f := range z.File {
		// Some archives carry dot-files next to the tile.
		if strings.HasPrefix(filepath.Base(f.Name), ".") || !strings.HasSuffix(strings.ToLower(f.Name), ".hgt") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s: no .hgt file in archive", path)
}

func parseHGT(name string, raw []byte) (*hgtTile, error) {
	var size int
	switch len(raw) {
	case 1201 * 1201 * 2:
		size = 1201
	case 3601 * 3601 * 2:
		size = 3601
	default:
		return nil, unavailable("tile %s: unexpected size %d bytes", name, len(raw))
	}

	posts := make([]int16, size*size)
	for i := range posts {
		posts[i] = int16(binary.BigEndian.Uint16(raw[i*2:]))
	}
	return &hgtTile{size: size, posts: posts}, nil
}

// Close drops all loaded tiles.
func (s *SRTM) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.tiles)
	return nil
}
