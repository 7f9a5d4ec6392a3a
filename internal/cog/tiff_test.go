package cog

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// tiffSpec describes a small single-band GeoTIFF built by the tests.
type tiffSpec struct {
	width, height int
	tileW, tileH  int // zero for a striped image
	rowsPerStrip  int
	format, bits  uint16
	compression   uint16
	predictor     uint16
	values        []float64 // row-major
	originX       float64
	originY       float64
	pixelSize     float64
	epsg          int
	noData        string
	noGeo         bool
}

func (s tiffSpec) layout() (bw, bh, across, down int) {
	if s.tileW > 0 {
		return s.tileW, s.tileH, (s.width + s.tileW - 1) / s.tileW, (s.height + s.tileH - 1) / s.tileH
	}
	rps := s.rowsPerStrip
	if rps == 0 {
		rps = s.height
	}
	return s.width, rps, 1, (s.height + rps - 1) / rps
}

func (s tiffSpec) sample(v float64) []byte {
	le := binary.LittleEndian
	switch {
	case s.format == SampleFloat && s.bits == 32:
		return le.AppendUint32(nil, math.Float32bits(float32(v)))
	case s.format == SampleFloat && s.bits == 64:
		return le.AppendUint64(nil, math.Float64bits(v))
	case s.format == SampleInt && s.bits == 16:
		return le.AppendUint16(nil, uint16(int16(v)))
	case s.format == SampleUint && s.bits == 16:
		return le.AppendUint16(nil, uint16(v))
	case s.format == SampleUint && s.bits == 8:
		return []byte{byte(v)}
	}
	panic("unsupported test sample type")
}

// predict applies the forward predictor to one row of n samples.
func (s tiffSpec) predict(row []byte, n int) []byte {
	bps := int(s.bits / 8)
	switch s.predictor {
	case PredictorHorizontal:
		if bps != 2 {
			panic("test predictor 2 only handles 16-bit samples")
		}
		for x := n - 1; x > 0; x-- {
			cur := binary.LittleEndian.Uint16(row[x*2:])
			prev := binary.LittleEndian.Uint16(row[(x-1)*2:])
			binary.LittleEndian.PutUint16(row[x*2:], cur-prev)
		}
		return row
	case PredictorFloatingPoint:
		planes := make([]byte, len(row))
		for i := 0; i < n; i++ {
			for b := 0; b < bps; b++ {
				// Little-endian storage, most significant plane first.
				planes[b*n+i] = row[i*bps+bps-1-b]
			}
		}
		for i := len(planes) - 1; i > 0; i-- {
			planes[i] -= planes[i-1]
		}
		return planes
	}
	return row
}

func (s tiffSpec) block(col, row int) []byte {
	bw, bh, _, _ := s.layout()
	rows := bh
	if s.tileW == 0 {
		rows = min(bh, s.height-row*bh)
	}
	var raw []byte
	for y := 0; y < rows; y++ {
		var line []byte
		for x := 0; x < bw; x++ {
			px, py := col*bw+x, row*bh+y
			v := 0.0
			if px < s.width && py < s.height {
				v = s.values[py*s.width+px]
			}
			line = append(line, s.sample(v)...)
		}
		raw = append(raw, s.predict(line, bw)...)
	}

	switch s.compression {
	case CompressionDeflate, CompressionDeflateAdobe:
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		zw.Write(raw)
		zw.Close()
		return buf.Bytes()
	case CompressionLZW:
		return compressLZW(raw)
	}
	return raw
}

type testEntry struct {
	tag, typ uint16
	count    uint32
	payload  []byte
}

func shorts(tag uint16, vals ...uint16) testEntry {
	var b []byte
	for _, v := range vals {
		b = binary.LittleEndian.AppendUint16(b, v)
	}
	return testEntry{tag, dtShort, uint32(len(vals)), b}
}

func longs(tag uint16, vals ...uint32) testEntry {
	var b []byte
	for _, v := range vals {
		b = binary.LittleEndian.AppendUint32(b, v)
	}
	return testEntry{tag, dtLong, uint32(len(vals)), b}
}

func doubles(tag uint16, vals ...float64) testEntry {
	var b []byte
	for _, v := range vals {
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
	}
	return testEntry{tag, dtDouble, uint32(len(vals)), b}
}

func ascii(tag uint16, s string) testEntry {
	b := append([]byte(s), 0)
	return testEntry{tag, dtASCII, uint32(len(b)), b}
}

// encode serializes the spec as a little-endian classic TIFF.
func (s tiffSpec) encode() []byte {
	var out bytes.Buffer
	out.Write([]byte{'I', 'I', 42, 0, 0, 0, 0, 0})

	bw, bh, across, down := s.layout()
	var offsets, counts []uint32
	for row := 0; row < down; row++ {
		for col := 0; col < across; col++ {
			b := s.block(col, row)
			offsets = append(offsets, uint32(out.Len()))
			counts = append(counts, uint32(len(b)))
			out.Write(b)
		}
	}
	if out.Len()%2 == 1 {
		out.WriteByte(0)
	}

	entries := []testEntry{
		longs(tagImageWidth, uint32(s.width)),
		longs(tagImageLength, uint32(s.height)),
		shorts(tagBitsPerSample, s.bits),
		shorts(tagCompression, s.compression),
		shorts(tagSamplesPerPixel, 1),
		shorts(tagSampleFormat, s.format),
	}
	if s.predictor != 0 {
		entries = append(entries, shorts(tagPredictor, s.predictor))
	}
	if s.tileW > 0 {
		entries = append(entries,
			longs(tagTileWidth, uint32(bw)),
			longs(tagTileLength, uint32(bh)),
			longs(tagTileOffsets, offsets...),
			longs(tagTileByteCounts, counts...))
	} else {
		entries = append(entries,
			longs(tagStripOffsets, offsets...),
			longs(tagRowsPerStrip, uint32(bh)),
			longs(tagStripByteCounts, counts...))
	}
	if !s.noGeo {
		key := uint16(gkProjectedCSTypeGeoKey)
		if s.epsg == 4326 {
			key = gkGeographicTypeGeoKey
		}
		entries = append(entries,
			doubles(tagModelPixelScaleTag, s.pixelSize, s.pixelSize, 0),
			doubles(tagModelTiepointTag, 0, 0, 0, s.originX, s.originY, 0),
			shorts(tagGeoKeyDirectoryTag, 1, 1, 0, 1, key, 0, 1, uint16(s.epsg)))
	}
	if s.noData != "" {
		entries = append(entries, ascii(tagGDALNoData, s.noData))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	ifdOffset := out.Len()
	extraOffset := ifdOffset + 2 + 12*len(entries) + 4
	var extra []byte

	le := binary.LittleEndian
	b := le.AppendUint16(nil, uint16(len(entries)))
	for _, e := range entries {
		b = le.AppendUint16(b, e.tag)
		b = le.AppendUint16(b, e.typ)
		b = le.AppendUint32(b, e.count)
		if len(e.payload) <= 4 {
			var inline [4]byte
			copy(inline[:], e.payload)
			b = append(b, inline[:]...)
			continue
		}
		b = le.AppendUint32(b, uint32(extraOffset+len(extra)))
		extra = append(extra, e.payload...)
		if len(extra)%2 == 1 {
			extra = append(extra, 0)
		}
	}
	b = le.AppendUint32(b, 0)
	out.Write(b)
	out.Write(extra)

	data := out.Bytes()
	le.PutUint32(data[4:8], uint32(ifdOffset))
	return data
}

func (s tiffSpec) write(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, s.encode(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// compressLZW is a TIFF LZW encoder used to produce test blocks.
func compressLZW(data []byte) []byte {
	var out []byte
	var acc uint64
	var nbits int
	put := func(code, width int) {
		acc = acc<<uint(width) | uint64(code)
		nbits += width
		for nbits >= 8 {
			out = append(out, byte(acc>>uint(nbits-8)))
			nbits -= 8
		}
	}

	dict := make(map[string]int)
	reset := func() {
		clear(dict)
		for i := 0; i < 256; i++ {
			dict[string([]byte{byte(i)})] = i
		}
	}
	reset()
	next := lzwFirst
	put(lzwClear, 9)

	cur := ""
	for _, c := range data {
		s := cur + string([]byte{c})
		if _, ok := dict[s]; ok {
			cur = s
			continue
		}
		put(dict[cur], lzwWidth(next-1))
		dict[s] = next
		next++
		cur = string([]byte{c})
		if next >= lzwMaxCodes-2 {
			put(lzwClear, lzwWidth(next-1))
			reset()
			next = lzwFirst
		}
	}
	if cur != "" {
		put(dict[cur], lzwWidth(next-1))
		next++
	}
	put(lzwEOI, lzwWidth(next-1))
	if nbits > 0 {
		out = append(out, byte(acc<<uint(8-nbits)))
	}
	return out
}
