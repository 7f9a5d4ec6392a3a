package cog

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// TIFF tag IDs.
const (
	tagImageWidth         = 256
	tagImageLength        = 257
	tagBitsPerSample      = 258
	tagCompression        = 259
	tagStripOffsets       = 273
	tagSamplesPerPixel    = 277
	tagRowsPerStrip       = 278
	tagStripByteCounts    = 279
	tagPlanarConfig       = 284
	tagPredictor          = 317
	tagTileWidth          = 322
	tagTileLength         = 323
	tagTileOffsets        = 324
	tagTileByteCounts     = 325
	tagSampleFormat       = 339
	tagModelPixelScaleTag = 33550
	tagModelTiepointTag   = 33922
	tagGeoKeyDirectoryTag = 34735
	tagGeoDoubleParamsTag = 34736
	tagGeoAsciiParamsTag  = 34737
	tagGDALNoData         = 42113
)

// TIFF data types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndef     = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
	dtLong8     = 16
	dtSLong8    = 17
	dtIFD8      = 18
)

// Compression schemes understood by the block decoder.
const (
	CompressionNone         = 1
	CompressionLZW          = 5
	CompressionDeflate      = 8
	CompressionDeflateAdobe = 32946
)

// Predictor values.
const (
	PredictorNone          = 1
	PredictorHorizontal    = 2
	PredictorFloatingPoint = 3
)

// SampleFormat values.
const (
	SampleUint  = 1
	SampleInt   = 2
	SampleFloat = 3
)

// IFD is one parsed TIFF Image File Directory, reduced to what is needed to
// read a single-band elevation raster.
type IFD struct {
	Width           uint32
	Height          uint32
	BitsPerSample   uint16
	SamplesPerPixel uint16
	SampleFormat    uint16
	Compression     uint16
	Predictor       uint16
	PlanarConfig    uint16

	// Tiled layout.
	TileWidth      uint32
	TileHeight     uint32
	TileOffsets    []uint64
	TileByteCounts []uint64

	// Striped layout.
	RowsPerStrip    uint32
	StripOffsets    []uint64
	StripByteCounts []uint64

	ModelTiepoint   []float64
	ModelPixelScale []float64
	GeoKeys         []uint16
	GeoDoubleParams []float64
	GeoAsciiParams  string

	NoData    float64
	HasNoData bool
}

// Tiled reports whether the image is stored in tiles rather than strips.
func (ifd *IFD) Tiled() bool {
	return ifd.TileWidth > 0 && ifd.TileHeight > 0
}

// BlockSize returns the dimensions of one storage block (tile or strip).
func (ifd *IFD) BlockSize() (w, h int) {
	if ifd.Tiled() {
		return int(ifd.TileWidth), int(ifd.TileHeight)
	}
	rps := ifd.RowsPerStrip
	if rps == 0 || rps > ifd.Height {
		rps = ifd.Height
	}
	return int(ifd.Width), int(rps)
}

// BlocksAcross returns the number of blocks in the horizontal direction.
func (ifd *IFD) BlocksAcross() int {
	w, _ := ifd.BlockSize()
	return (int(ifd.Width) + w - 1) / w
}

// BlocksDown returns the number of blocks in the vertical direction.
func (ifd *IFD) BlocksDown() int {
	_, h := ifd.BlockSize()
	return (int(ifd.Height) + h - 1) / h
}

// blockLocation returns the file offset and byte count of block (col, row).
func (ifd *IFD) blockLocation(col, row int) (offset, size uint64, err error) {
	offsets, counts := ifd.StripOffsets, ifd.StripByteCounts
	if ifd.Tiled() {
		offsets, counts = ifd.TileOffsets, ifd.TileByteCounts
	}
	idx := row*ifd.BlocksAcross() + col
	if idx < 0 || idx >= len(offsets) || idx >= len(counts) {
		return 0, 0, fmt.Errorf("block index %d out of range (%d blocks)", idx, len(offsets))
	}
	return offsets[idx], counts[idx], nil
}

// bytesPerSample is the storage size of one sample.
func (ifd *IFD) bytesPerSample() int {
	return int(ifd.BitsPerSample+7) / 8
}

// tiffEntry is a raw TIFF directory entry.
type tiffEntry struct {
	Tag      uint16
	DataType uint16
	Count    uint64
	Value    []byte
}

// parseTIFF reads every IFD in the file, first one first.
func parseTIFF(r io.ReadSeeker) ([]IFD, binary.ByteOrder, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, nil, fmt.Errorf("reading TIFF header: %w", err)
	}

	var bo binary.ByteOrder
	switch string(header[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("invalid TIFF byte order: %x", header[0:2])
	}

	var bigTIFF bool
	var next uint64
	switch magic := bo.Uint16(header[2:4]); magic {
	case 42:
		next = uint64(bo.Uint32(header[4:8]))
	case 43:
		bigTIFF = true
		var off [8]byte
		if _, err := io.ReadFull(r, off[:]); err != nil {
			return nil, nil, fmt.Errorf("reading BigTIFF header: %w", err)
		}
		next = bo.Uint64(off[:])
	default:
		return nil, nil, fmt.Errorf("invalid TIFF magic: %d", magic)
	}

	var ifds []IFD
	seen := make(map[uint64]bool)
	for next != 0 {
		if seen[next] {
			return nil, nil, fmt.Errorf("IFD loop at offset %d", next)
		}
		seen[next] = true

		entries, following, err := readEntries(r, bo, next, bigTIFF)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing IFD at offset %d: %w", next, err)
		}
		ifds = append(ifds, buildIFD(entries, bo))
		next = following
	}
	return ifds, bo, nil
}

// readEntries reads the directory at offset and resolves out-of-line values.
func readEntries(r io.ReadSeeker, bo binary.ByteOrder, offset uint64, bigTIFF bool) ([]tiffEntry, uint64, error) {
	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, 0, err
	}

	countSize, entrySize, offSize := 2, 12, 4
	if bigTIFF {
		countSize, entrySize, offSize = 8, 20, 8
	}

	buf := make([]byte, countSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, 0, err
	}
	n := readUint(buf, bo)

	raw := make([]byte, int(n)*entrySize+offSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, 0, err
	}

	entries := make([]tiffEntry, n)
	for i := range entries {
		b := raw[i*entrySize : (i+1)*entrySize]
		e := tiffEntry{Tag: bo.Uint16(b[0:2]), DataType: bo.Uint16(b[2:4])}
		if bigTIFF {
			e.Count = bo.Uint64(b[4:12])
			e.Value = append([]byte(nil), b[12:20]...)
		} else {
			e.Count = uint64(bo.Uint32(b[4:8]))
			e.Value = append([]byte(nil), b[8:12]...)
		}
		entries[i] = e
	}
	following := readUint(raw[len(raw)-offSize:], bo)

	for i := range entries {
		e := &entries[i]
		total := int(e.Count) * dataTypeSize(e.DataType)
		if total <= offSize {
			continue
		}
		if _, err := r.Seek(int64(readUint(e.Value, bo)), io.SeekStart); err != nil {
			return nil, 0, fmt.Errorf("tag %d: %w", e.Tag, err)
		}
		data := make([]byte, total)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, 0, fmt.Errorf("tag %d: %w", e.Tag, err)
		}
		e.Value = data
	}
	return entries, following, nil
}

// readUint reads a 2, 4 or 8 byte unsigned integer.
func readUint(b []byte, bo binary.ByteOrder) uint64 {
	switch len(b) {
	case 2:
		return uint64(bo.Uint16(b))
	case 4:
		return uint64(bo.Uint32(b))
	default:
		return bo.Uint64(b)
	}
}

func dataTypeSize(dt uint16) int {
	switch dt {
	case dtShort, dtSShort:
		return 2
	case dtLong, dtSLong, dtFloat:
		return 4
	case dtRational, dtSRational, dtDouble, dtLong8, dtSLong8, dtIFD8:
		return 8
	default:
		return 1
	}
}

func buildIFD(entries []tiffEntry, bo binary.ByteOrder) IFD {
	ifd := IFD{
		SamplesPerPixel: 1,
		SampleFormat:    SampleUint,
		Compression:     CompressionNone,
		Predictor:       PredictorNone,
		PlanarConfig:    1,
	}

	for _, e := range entries {
		switch e.Tag {
		case tagImageWidth:
			ifd.Width = uint32(entryUint(e, bo, 0))
		case tagImageLength:
			ifd.Height = uint32(entryUint(e, bo, 0))
		case tagBitsPerSample:
			ifd.BitsPerSample = uint16(entryUint(e, bo, 0))
		case tagSamplesPerPixel:
			ifd.SamplesPerPixel = uint16(entryUint(e, bo, 0))
		case tagSampleFormat:
			ifd.SampleFormat = uint16(entryUint(e, bo, 0))
		case tagCompression:
			ifd.Compression = uint16(entryUint(e, bo, 0))
		case tagPredictor:
			ifd.Predictor = uint16(entryUint(e, bo, 0))
		case tagPlanarConfig:
			ifd.PlanarConfig = uint16(entryUint(e, bo, 0))
		case tagTileWidth:
			ifd.TileWidth = uint32(entryUint(e, bo, 0))
		case tagTileLength:
			ifd.TileHeight = uint32(entryUint(e, bo, 0))
		case tagTileOffsets:
			ifd.TileOffsets = entryUints(e, bo)
		case tagTileByteCounts:
			ifd.TileByteCounts = entryUints(e, bo)
		case tagRowsPerStrip:
			ifd.RowsPerStrip = uint32(entryUint(e, bo, 0))
		case tagStripOffsets:
			ifd.StripOffsets = entryUints(e, bo)
		case tagStripByteCounts:
			ifd.StripByteCounts = entryUints(e, bo)
		case tagModelTiepointTag:
			ifd.ModelTiepoint = entryFloats(e, bo)
		case tagModelPixelScaleTag:
			ifd.ModelPixelScale = entryFloats(e, bo)
		case tagGeoKeyDirectoryTag:
			for _, v := range entryUints(e, bo) {
				ifd.GeoKeys = append(ifd.GeoKeys, uint16(v))
			}
		case tagGeoDoubleParamsTag:
			ifd.GeoDoubleParams = entryFloats(e, bo)
		case tagGeoAsciiParamsTag:
			ifd.GeoAsciiParams = entryString(e)
		case tagGDALNoData:
			if v, err := strconv.ParseFloat(entryString(e), 64); err == nil {
				ifd.NoData, ifd.HasNoData = v, true
			}
		}
	}
	return ifd
}

// entryUint returns element i of an integer entry.
func entryUint(e tiffEntry, bo binary.ByteOrder, i int) uint64 {
	size := dataTypeSize(e.DataType)
	off := i * size
	if off+size > len(e.Value) {
		return 0
	}
	switch e.DataType {
	case dtShort, dtSShort:
		return uint64(bo.Uint16(e.Value[off:]))
	case dtLong, dtSLong:
		return uint64(bo.Uint32(e.Value[off:]))
	case dtLong8, dtSLong8, dtIFD8:
		return bo.Uint64(e.Value[off:])
	default:
		return uint64(e.Value[off])
	}
}

func entryUints(e tiffEntry, bo binary.ByteOrder) []uint64 {
	out := make([]uint64, e.Count)
	for i := range out {
		out[i] = entryUint(e, bo, i)
	}
	return out
}

func entryFloats(e tiffEntry, bo binary.ByteOrder) []float64 {
	out := make([]float64, e.Count)
	for i := range out {
		switch e.DataType {
		case dtDouble:
			out[i] = math.Float64frombits(bo.Uint64(e.Value[i*8:]))
		case dtFloat:
			out[i] = float64(math.Float32frombits(bo.Uint32(e.Value[i*4:])))
		default:
			out[i] = float64(entryUint(e, bo, i))
		}
	}
	return out
}

// entryString returns an ASCII entry without its NUL terminator and padding.
func entryString(e tiffEntry) string {
	n := int(e.Count)
	if n > len(e.Value) {
		n = len(e.Value)
	}
	return strings.TrimSpace(strings.TrimRight(string(e.Value[:n]), "\x00"))
}
