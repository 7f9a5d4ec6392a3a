package pmtiles

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// Entry is one directory entry. RunLength 0 marks a pointer to a leaf
// directory; otherwise the entry covers RunLength consecutive tile IDs that
// share the same data.
type Entry struct {
	TileID    uint64
	Offset    uint64
	Length    uint32
	RunLength uint32
}

// ZXYToTileID converts z/x/y coordinates to a PMTiles v3 tile ID: the number
// of tiles on all lower zoom levels plus the Hilbert index within level z.
func ZXYToTileID(z, x, y int) uint64 {
	if z == 0 {
		return 0
	}
	// 1 + 4 + ... + 4^(z-1) = (4^z - 1) / 3
	base := ((uint64(1) << (2 * uint(z))) - 1) / 3
	return base + xyToHilbert(uint64(x), uint64(y), uint64(1)<<uint(z))
}

// xyToHilbert maps (x, y) on an n×n grid to its Hilbert curve index.
func xyToHilbert(x, y, n uint64) uint64 {
	var d uint64
	for s := n / 2; s > 0; s /= 2 {
		var rx, ry uint64
		if x&s > 0 {
			rx = 1
		}
		if y&s > 0 {
			ry = 1
		}
		d += s * s * ((3 * rx) ^ ry)
		if ry == 0 {
			if rx == 1 {
				x = s*2 - 1 - x
				y = s*2 - 1 - y
			}
			x, y = y, x
		}
	}
	return d
}

// TileIDToZXY is the inverse of ZXYToTileID.
func TileIDToZXY(tileID uint64) (z, x, y int) {
	var base uint64
	for {
		count := uint64(1) << (2 * uint(z))
		if base+count > tileID {
			break
		}
		base += count
		z++
	}
	hx, hy := hilbertToXY(tileID-base, uint64(1)<<uint(z))
	return z, int(hx), int(hy)
}

// hilbertToXY maps a Hilbert curve index on an n×n grid back to (x, y).
func hilbertToXY(d, n uint64) (x, y uint64) {
	for s := uint64(1); s < n; s *= 2 {
		rx := 1 & (d / 2)
		ry := 1 & (d ^ rx)
		if ry == 0 {
			if rx == 1 {
				x = s - 1 - x
				y = s - 1 - y
			}
			x, y = y, x
		}
		x += s * rx
		y += s * ry
		d /= 4
	}
	return x, y
}

// DeserializeDirectory decompresses and parses a directory. Columns are
// stored one after another: tile ID deltas, run lengths, lengths, offsets.
func DeserializeDirectory(data []byte, compression uint8) ([]Entry, error) {
	raw, err := decompress(data, compression)
	if err != nil {
		return nil, fmt.Errorf("decompressing directory: %w", err)
	}
	r := bytes.NewReader(raw)

	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("reading entry count: %w", err)
	}
	if n > uint64(len(raw)) {
		return nil, fmt.Errorf("entry count %d exceeds directory size", n)
	}
	entries := make([]Entry, n)

	column := func(name string, set func(i int, v uint64)) error {
		for i := range entries {
			v, err := binary.ReadUvarint(r)
			if err != nil {
				return fmt.Errorf("reading %s %d: %w", name, i, err)
			}
			set(i, v)
		}
		return nil
	}

	var lastID uint64
	if err := column("tile id", func(i int, v uint64) {
		lastID += v
		entries[i].TileID = lastID
	}); err != nil {
		return nil, err
	}
	if err := column("run length", func(i int, v uint64) { entries[i].RunLength = uint32(v) }); err != nil {
		return nil, err
	}
	if err := column("length", func(i int, v uint64) { entries[i].Length = uint32(v) }); err != nil {
		return nil, err
	}
	// Offset 0 after the first entry means "directly after the previous entry".
	if err := column("offset", func(i int, v uint64) {
		if v == 0 && i > 0 {
			entries[i].Offset = entries[i-1].Offset + uint64(entries[i-1].Length)
		} else {
			entries[i].Offset = v - 1
		}
	}); err != nil {
		return nil, err
	}
	return entries, nil
}

// findTile returns the entry covering tileID: either a tile run containing
// it or the leaf directory pointer whose range may contain it.
func findTile(entries []Entry, tileID uint64) (Entry, bool) {
	// Last entry with TileID <= tileID.
	i := sort.Search(len(entries), func(i int) bool { return entries[i].TileID > tileID }) - 1
	if i < 0 {
		return Entry{}, false
	}
	e := entries[i]
	if e.RunLength == 0 {
		return e, true
	}
	if tileID-e.TileID < uint64(e.RunLength) {
		return e, true
	}
	return Entry{}, false
}

func decompress(data []byte, compression uint8) ([]byte, error) {
	switch compression {
	case CompressionNone, CompressionUnknown:
		return data, nil
	case CompressionGzip:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		return io.ReadAll(gr)
	default:
		return nil, fmt.Errorf("unsupported compression %d", compression)
	}
}
