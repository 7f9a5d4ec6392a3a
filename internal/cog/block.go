package cog

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// decompress inflates one storage block according to the IFD compression.
func decompress(ifd *IFD, data []byte) ([]byte, error) {
	switch ifd.Compression {
	case CompressionNone:
		return data, nil
	case CompressionLZW:
		return decompressLZW(data)
	case CompressionDeflate, CompressionDeflateAdobe:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %d", ifd.Compression)
	}
}

// decodeSamples converts a decompressed block of w×h pixels to float32 values
// of the first band. Missing trailing rows (a short last strip) stay NaN.
func decodeSamples(ifd *IFD, bo binary.ByteOrder, raw []byte, w, h int) ([]float32, error) {
	bps := ifd.bytesPerSample()
	spp := int(ifd.SamplesPerPixel)
	if ifd.PlanarConfig == 2 {
		// Separate planes: band 1 comes first and is all we read.
		spp = 1
	}
	rowBytes := w * spp * bps

	rows := len(raw) / rowBytes
	if rows > h {
		rows = h
	}

	switch ifd.Predictor {
	case PredictorNone:
	case PredictorHorizontal:
		if ifd.SampleFormat == SampleFloat {
			return nil, fmt.Errorf("horizontal predictor on float samples")
		}
		undoHorizontal(raw[:rows*rowBytes], bo, rowBytes, spp, bps)
	case PredictorFloatingPoint:
		if ifd.SampleFormat != SampleFloat {
			return nil, fmt.Errorf("floating point predictor on integer samples")
		}
		raw = undoFloatPredictor(raw[:rows*rowBytes], rowBytes, w*spp, bps)
	default:
		return nil, fmt.Errorf("unsupported predictor: %d", ifd.Predictor)
	}

	read, err := sampleReader(ifd, bo)
	if err != nil {
		return nil, err
	}
	if ifd.Predictor == PredictorFloatingPoint {
		// The float predictor stores bytes most significant first.
		read, _ = sampleReader(ifd, binary.BigEndian)
	}

	out := make([]float32, w*h)
	for i := rows * w; i < len(out); i++ {
		out[i] = float32(math.NaN())
	}
	for y := 0; y < rows; y++ {
		row := raw[y*rowBytes:]
		for x := 0; x < w; x++ {
			out[y*w+x] = read(row[x*spp*bps:])
		}
	}
	return out, nil
}

// sampleReader returns a function decoding one sample at the start of b.
func sampleReader(ifd *IFD, bo binary.ByteOrder) (func(b []byte) float32, error) {
	switch ifd.SampleFormat<<8 | ifd.BitsPerSample {
	case SampleUint<<8 | 8:
		return func(b []byte) float32 { return float32(b[0]) }, nil
	case SampleInt<<8 | 8:
		return func(b []byte) float32 { return float32(int8(b[0])) }, nil
	case SampleUint<<8 | 16:
		return func(b []byte) float32 { return float32(bo.Uint16(b)) }, nil
	case SampleInt<<8 | 16:
		return func(b []byte) float32 { return float32(int16(bo.Uint16(b))) }, nil
	case SampleUint<<8 | 32:
		return func(b []byte) float32 { return float32(bo.Uint32(b)) }, nil
	case SampleInt<<8 | 32:
		return func(b []byte) float32 { return float32(int32(bo.Uint32(b))) }, nil
	case SampleFloat<<8 | 32:
		return func(b []byte) float32 { return math.Float32frombits(bo.Uint32(b)) }, nil
	case SampleFloat<<8 | 64:
		return func(b []byte) float32 { return float32(math.Float64frombits(bo.Uint64(b))) }, nil
	default:
		return nil, fmt.Errorf("unsupported sample type: format %d, %d bits", ifd.SampleFormat, ifd.BitsPerSample)
	}
}

// undoHorizontal reverses TIFF predictor 2 in place.
func undoHorizontal(raw []byte, bo binary.ByteOrder, rowBytes, spp, bps int) {
	stride := spp * bps
	for start := 0; start+rowBytes <= len(raw); start += rowBytes {
		row := raw[start : start+rowBytes]
		for i := stride; i+bps <= len(row); i += bps {
			prev := row[i-stride:]
			cur := row[i:]
			switch bps {
			case 1:
				cur[0] += prev[0]
			case 2:
				bo.PutUint16(cur, bo.Uint16(cur)+bo.Uint16(prev))
			case 4:
				bo.PutUint32(cur, bo.Uint32(cur)+bo.Uint32(prev))
			case 8:
				bo.PutUint64(cur, bo.Uint64(cur)+bo.Uint64(prev))
			}
		}
	}
}

// undoFloatPredictor reverses TIFF predictor 3. Each row holds byte-wise
// differences of the samples split into byte planes, most significant plane
// first. The result has each sample's bytes in big-endian order.
func undoFloatPredictor(raw []byte, rowBytes, samples, bps int) []byte {
	out := make([]byte, len(raw))
	for start := 0; start+rowBytes <= len(raw); start += rowBytes {
		row := raw[start : start+rowBytes]
		for i := 1; i < len(row); i++ {
			row[i] += row[i-1]
		}
		dst := out[start : start+rowBytes]
		for s := 0; s < samples; s++ {
			for b := 0; b < bps; b++ {
				dst[s*bps+b] = row[b*samples+s]
			}
		}
	}
	return out
}
