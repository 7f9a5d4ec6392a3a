package pmtiles

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// maxDirectoryDepth bounds the root → leaf → leaf chain a lookup follows.
const maxDirectoryDepth = 4

// Reader provides random tile access to a PMTiles v3 archive. The root
// directory is read on open; leaf directories are read on first use and
// kept. A Reader is safe for concurrent use.
type Reader struct {
	file   *os.File
	header Header
	root   []Entry

	mu     sync.Mutex
	leaves map[uint64][]Entry // by offset within the leaf section
}

// OpenReader opens a PMTiles v3 archive for reading.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	r, err := newReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func newReader(f *os.File) (*Reader, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	header, err := DeserializeHeader(buf)
	if err != nil {
		return nil, err
	}

	rootData := make([]byte, header.RootDirLength)
	if _, err := f.ReadAt(rootData, int64(header.RootDirOffset)); err != nil {
		return nil, fmt.Errorf("reading root directory: %w", err)
	}
	root, err := DeserializeDirectory(rootData, header.InternalCompression)
	if err != nil {
		return nil, fmt.Errorf("parsing root directory: %w", err)
	}

	return &Reader{
		file:   f,
		header: header,
		root:   root,
		leaves: make(map[uint64][]Entry),
	}, nil
}

// Header returns the parsed archive header.
func (r *Reader) Header() Header {
	return r.header
}

// ReadTile returns the tile bytes at z/x/y with any tile-level compression
// removed. It returns nil, nil when the archive has no such tile.
func (r *Reader) ReadTile(z, x, y int) ([]byte, error) {
	tileID := ZXYToTileID(z, x, y)

	dir := r.root
	for depth := 0; depth < maxDirectoryDepth; depth++ {
		e, ok := findTile(dir, tileID)
		if !ok {
			return nil, nil
		}
		if e.RunLength > 0 {
			data := make([]byte, e.Length)
			if _, err := r.file.ReadAt(data, int64(r.header.TileDataOffset+e.Offset)); err != nil {
				return nil, fmt.Errorf("reading tile z%d/%d/%d: %w", z, x, y, err)
			}
			out, err := decompress(data, r.header.TileCompression)
			if err != nil {
				return nil, fmt.Errorf("tile z%d/%d/%d: %w", z, x, y, err)
			}
			return out, nil
		}

		leaf, err := r.leaf(e)
		if err != nil {
			return nil, err
		}
		dir = leaf
	}
	return nil, fmt.Errorf("tile z%d/%d/%d: directory nesting deeper than %d", z, x, y, maxDirectoryDepth)
}

// leaf returns the leaf directory e points to, reading it on first use.
func (r *Reader) leaf(e Entry) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entries, ok := r.leaves[e.Offset]; ok {
		return entries, nil
	}
	data := make([]byte, e.Length)
	if _, err := r.file.ReadAt(data, int64(r.header.LeafDirOffset+e.Offset)); err != nil {
		return nil, fmt.Errorf("reading leaf directory at %d: %w", e.Offset, err)
	}
	entries, err := DeserializeDirectory(data, r.header.InternalCompression)
	if err != nil {
		return nil, fmt.Errorf("parsing leaf directory at %d: %w", e.Offset, err)
	}
	r.leaves[e.Offset] = entries
	return entries, nil
}

// ReadMetadata reads the JSON metadata object. It returns nil when the
// archive has none.
func (r *Reader) ReadMetadata() (map[string]any, error) {
	if r.header.MetadataLength == 0 {
		return nil, nil
	}

	raw := make([]byte, r.header.MetadataLength)
	if _, err := r.file.ReadAt(raw, int64(r.header.MetadataOffset)); err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	data, err := decompress(raw, r.header.InternalCompression)
	if err != nil {
		return nil, fmt.Errorf("decompressing metadata: %w", err)
	}

	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing metadata JSON: %w", err)
	}
	return meta, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
