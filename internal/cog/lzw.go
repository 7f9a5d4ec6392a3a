package cog

// TIFF LZW differs from the GIF flavour in compress/lzw: codes are packed
// MSB-first and the code width grows one code early ("early change"), so the
// standard library decoder rejects TIFF streams.

import (
	"errors"
	"fmt"
)

const (
	lzwClear    = 256
	lzwEOI      = 257
	lzwFirst    = 258
	lzwMaxCodes = 1 << 12
)

var errLZWCode = errors.New("lzw: invalid code")

// msbBits reads big-endian bit fields from a byte slice.
type msbBits struct {
	src []byte
	pos int // in bits
}

func (b *msbBits) read(width int) (int, bool) {
	if b.pos+width > len(b.src)*8 {
		return 0, false
	}
	v := 0
	for i := 0; i < width; i++ {
		p := b.pos + i
		v = v<<1 | int(b.src[p>>3]>>(7-uint(p&7))&1)
	}
	b.pos += width
	return v, true
}

// lzwWidth is the code width in effect once the table holds next entries.
func lzwWidth(next int) int {
	switch {
	case next >= 2047:
		return 12
	case next >= 1023:
		return 11
	case next >= 511:
		return 10
	default:
		return 9
	}
}

// decompressLZW decodes a TIFF LZW block. A stream that ends without an
// EOI code is accepted; some writers omit it.
func decompressLZW(src []byte) ([]byte, error) {
	bits := msbBits{src: src}
	table := make([][]byte, lzwMaxCodes)
	for i := 0; i < 256; i++ {
		table[i] = []byte{byte(i)}
	}

	out := make([]byte, 0, len(src)*3)
	next := lzwFirst
	var prev []byte

	for {
		code, ok := bits.read(lzwWidth(next))
		if !ok {
			return out, nil
		}

		switch code {
		case lzwClear:
			next = lzwFirst
			prev = nil
			continue
		case lzwEOI:
			return out, nil
		}

		var entry []byte
		switch {
		case code < 256 || (code >= lzwFirst && code < next):
			entry = table[code]
		case code == next && prev != nil:
			entry = append(prev[:len(prev):len(prev)], prev[0])
		default:
			return nil, fmt.Errorf("%w %d (table size %d)", errLZWCode, code, next)
		}
		out = append(out, entry...)

		if prev != nil && next < lzwMaxCodes {
			table[next] = append(prev[:len(prev):len(prev)], entry[0])
			next++
		}
		prev = entry
	}
}
