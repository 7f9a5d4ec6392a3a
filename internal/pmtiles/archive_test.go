package pmtiles

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// archiveSpec describes a small PMTiles archive assembled by the tests.
type archiveSpec struct {
	tiles           map[[3]int][]byte // z, x, y → content
	tileType        uint8
	internal        uint8 // directory and metadata compression
	tileCompression uint8
	leafSize        int // > 0 moves entries into leaf directories
	metadata        map[string]any
	bounds          [4]float64 // min lon, min lat, max lon, max lat
	minZoom         uint8
	maxZoom         uint8
}

func compressFor(t *testing.T, data []byte, compression uint8) []byte {
	t.Helper()
	if compression != CompressionGzip {
		return data
	}
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeDirectory(t *testing.T, entries []Entry, compression uint8) []byte {
	t.Helper()
	raw := binary.AppendUvarint(nil, uint64(len(entries)))
	var last uint64
	for _, e := range entries {
		raw = binary.AppendUvarint(raw, e.TileID-last)
		last = e.TileID
	}
	for _, e := range entries {
		raw = binary.AppendUvarint(raw, uint64(e.RunLength))
	}
	for _, e := range entries {
		raw = binary.AppendUvarint(raw, uint64(e.Length))
	}
	for i, e := range entries {
		if i > 0 && e.Offset == entries[i-1].Offset+uint64(entries[i-1].Length) {
			raw = binary.AppendUvarint(raw, 0)
		} else {
			raw = binary.AppendUvarint(raw, e.Offset+1)
		}
	}
	return compressFor(t, raw, compression)
}

func toE7(v float64) uint32 {
	return uint32(int32(math.Round(v * 1e7)))
}

func (s archiveSpec) build(t *testing.T) string {
	t.Helper()
	if s.internal == 0 {
		s.internal = CompressionGzip
	}
	if s.tileCompression == 0 {
		s.tileCompression = CompressionNone
	}

	type tile struct {
		id   uint64
		data []byte
	}
	var tiles []tile
	for k, v := range s.tiles {
		tiles = append(tiles, tile{ZXYToTileID(k[0], k[1], k[2]), compressFor(t, v, s.tileCompression)})
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].id < tiles[j].id })

	var tileData []byte
	entries := make([]Entry, len(tiles))
	for i, tl := range tiles {
		entries[i] = Entry{TileID: tl.id, Offset: uint64(len(tileData)), Length: uint32(len(tl.data)), RunLength: 1}
		tileData = append(tileData, tl.data...)
	}

	var root, leaves []byte
	if s.leafSize > 0 {
		var pointers []Entry
		for i := 0; i < len(entries); i += s.leafSize {
			chunk := entries[i:min(i+s.leafSize, len(entries))]
			leaf := encodeDirectory(t, chunk, s.internal)
			pointers = append(pointers, Entry{TileID: chunk[0].TileID, Offset: uint64(len(leaves)), Length: uint32(len(leaf))})
			leaves = append(leaves, leaf...)
		}
		root = encodeDirectory(t, pointers, s.internal)
	} else {
		root = encodeDirectory(t, entries, s.internal)
	}

	var meta []byte
	if s.metadata != nil {
		b, err := json.Marshal(s.metadata)
		if err != nil {
			t.Fatal(err)
		}
		meta = compressFor(t, b, s.internal)
	}

	rootOff := uint64(HeaderSize)
	metaOff := rootOff + uint64(len(root))
	leafOff := metaOff + uint64(len(meta))
	dataOff := leafOff + uint64(len(leaves))

	le := binary.LittleEndian
	h := make([]byte, HeaderSize)
	copy(h, "PMTiles")
	h[7] = 3
	for i, v := range []uint64{
		rootOff, uint64(len(root)),
		metaOff, uint64(len(meta)),
		leafOff, uint64(len(leaves)),
		dataOff, uint64(len(tileData)),
		uint64(len(tiles)), uint64(len(tiles)), uint64(len(tiles)),
	} {
		le.PutUint64(h[8+i*8:], v)
	}
	h[96] = 1
	h[97] = s.internal
	h[98] = s.tileCompression
	h[99] = s.tileType
	h[100] = s.minZoom
	h[101] = s.maxZoom
	for i, v := range s.bounds {
		le.PutUint32(h[102+i*4:], toE7(v))
	}
	h[118] = s.minZoom
	le.PutUint32(h[119:], toE7((s.bounds[0]+s.bounds[2])/2))
	le.PutUint32(h[123:], toE7((s.bounds[1]+s.bounds[3])/2))

	var out bytes.Buffer
	for _, part := range [][]byte{h, root, meta, leaves, tileData} {
		out.Write(part)
	}
	path := filepath.Join(t.TempDir(), "test.pmtiles")
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
