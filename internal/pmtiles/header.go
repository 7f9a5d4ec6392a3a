// Package pmtiles reads PMTiles v3 archives: single-file tile pyramids with
// Hilbert-ordered directories.
package pmtiles

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// PMTiles v3 constants.
const (
	HeaderSize = 127

	CompressionUnknown = 0
	CompressionNone    = 1
	CompressionGzip    = 2
	CompressionBrotli  = 3
	CompressionZstd    = 4

	TileTypeUnknown = 0
	TileTypeMVT     = 1
	TileTypePNG     = 2
	TileTypeJPEG    = 3
	TileTypeWebP    = 4
	TileTypeAVIF    = 5
)

// ErrNotPMTiles is returned for data that does not start with a v3 header.
var ErrNotPMTiles = errors.New("not a PMTiles v3 archive")

// Header is the fixed 127-byte PMTiles v3 header.
type Header struct {
	RootDirOffset       uint64
	RootDirLength       uint64
	MetadataOffset      uint64
	MetadataLength      uint64
	LeafDirOffset       uint64
	LeafDirLength       uint64
	TileDataOffset      uint64
	TileDataLength      uint64
	NumAddressedTiles   uint64
	NumTileEntries      uint64
	NumTileContents     uint64
	Clustered           bool
	InternalCompression uint8
	TileCompression     uint8
	TileType            uint8
	MinZoom             uint8
	MaxZoom             uint8
	MinLon              float64
	MinLat              float64
	MaxLon              float64
	MaxLat              float64
	CenterZoom          uint8
	CenterLon           float64
	CenterLat           float64
}

// DeserializeHeader parses the fixed-size header at the start of an archive.
func DeserializeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("header is %d bytes, want %d: %w", len(buf), HeaderSize, ErrNotPMTiles)
	}
	if string(buf[0:7]) != "PMTiles" {
		return Header{}, ErrNotPMTiles
	}
	if buf[7] != 3 {
		return Header{}, fmt.Errorf("spec version %d: %w", buf[7], ErrNotPMTiles)
	}

	le := binary.LittleEndian
	return Header{
		RootDirOffset:       le.Uint64(buf[8:]),
		RootDirLength:       le.Uint64(buf[16:]),
		MetadataOffset:      le.Uint64(buf[24:]),
		MetadataLength:      le.Uint64(buf[32:]),
		LeafDirOffset:       le.Uint64(buf[40:]),
		LeafDirLength:       le.Uint64(buf[48:]),
		TileDataOffset:      le.Uint64(buf[56:]),
		TileDataLength:      le.Uint64(buf[64:]),
		NumAddressedTiles:   le.Uint64(buf[72:]),
		NumTileEntries:      le.Uint64(buf[80:]),
		NumTileContents:     le.Uint64(buf[88:]),
		Clustered:           buf[96] == 1,
		InternalCompression: buf[97],
		TileCompression:     buf[98],
		TileType:            buf[99],
		MinZoom:             buf[100],
		MaxZoom:             buf[101],
		MinLon:              fromE7(le.Uint32(buf[102:])),
		MinLat:              fromE7(le.Uint32(buf[106:])),
		MaxLon:              fromE7(le.Uint32(buf[110:])),
		MaxLat:              fromE7(le.Uint32(buf[114:])),
		CenterZoom:          buf[118],
		CenterLon:           fromE7(le.Uint32(buf[119:])),
		CenterLat:           fromE7(le.Uint32(buf[123:])),
	}, nil
}

// fromE7 decodes a coordinate stored as a signed 32-bit integer times 1e7.
func fromE7(v uint32) float64 {
	return float64(int32(v)) / 1e7
}

// TileTypeName returns a short name for a tile type.
func TileTypeName(t uint8) string {
	switch t {
	case TileTypeMVT:
		return "mvt"
	case TileTypePNG:
		return "png"
	case TileTypeJPEG:
		return "jpeg"
	case TileTypeWebP:
		return "webp"
	case TileTypeAVIF:
		return "avif"
	default:
		return "unknown"
	}
}
