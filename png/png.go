// Copyright 2024 The miniz-go Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package png reads PNG images. It walks the chunk stream, checks the zlib
// framing of the image data, inflates it with the flate package and
// reverses the scanline filters. Adam7 interlacing and bit depths above
// eight are not supported.
//
// See https://www.w3.org/TR/png-3/ for the file format.
package png

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"

	"github.com/steschu77/miniz-go/flate"
)

var (
	// ErrInvalidSignature is returned when the 8 byte file signature is
	// missing.
	ErrInvalidSignature = errors.New("png: invalid signature")
	// ErrMissingIHDR is returned when the first chunk is not IHDR.
	ErrMissingIHDR = errors.New("png: first chunk is not IHDR")
	// ErrMissingIEND is returned when the chunk stream ends without IEND.
	ErrMissingIEND = errors.New("png: missing IEND chunk")
	// ErrInvalidFormat is returned for IHDR fields outside their legal
	// ranges.
	ErrInvalidFormat = errors.New("png: invalid header field")
	// ErrInvalidColorType is returned for an unknown colour type.
	ErrInvalidColorType = errors.New("png: invalid color type")
	// ErrUnsupportedFormat is returned for interlaced images and 16 bit
	// samples.
	ErrUnsupportedFormat = errors.New("png: unsupported format")
	// ErrInvalidPalette is returned for a malformed PLTE chunk.
	ErrInvalidPalette = errors.New("png: invalid palette")
	// ErrInvalidFilterType is returned for a scanline filter above 4.
	ErrInvalidFilterType = errors.New("png: invalid scanline filter")
	// ErrInvalidHeader is returned when the zlib header of the image data
	// is malformed.
	ErrInvalidHeader = errors.New("png: invalid zlib header")
	// ErrTruncated is returned when a chunk reaches past the end of the
	// file.
	ErrTruncated = errors.New("png: truncated chunk data")
	// ErrInvalidImage is returned when the image data inflates to a size
	// other than the one IHDR implies.
	ErrInvalidImage = errors.New("png: decompressed size mismatch")
)

// ColorType is the IHDR colour type field.
type ColorType uint8

const (
	Greyscale      ColorType = 0
	TrueColor      ColorType = 2
	IndexedColor   ColorType = 3
	GreyscaleAlpha ColorType = 4
	TrueColorAlpha ColorType = 6
)

func (c ColorType) String() string {
	switch c {
	case Greyscale:
		return "greyscale"
	case TrueColor:
		return "truecolor"
	case IndexedColor:
		return "indexed-color"
	case GreyscaleAlpha:
		return "greyscale-alpha"
	case TrueColorAlpha:
		return "truecolor-alpha"
	}
	return "invalid"
}

// channels returns the number of samples per pixel.
func (c ColorType) channels() (int, error) {
	switch c {
	case Greyscale, IndexedColor:
		return 1, nil
	case GreyscaleAlpha:
		return 2, nil
	case TrueColor:
		return 3, nil
	case TrueColorAlpha:
		return 4, nil
	}
	return 0, ErrInvalidColorType
}

const (
	chunkIHDR = 'I'<<24 | 'H'<<16 | 'D'<<8 | 'R'
	chunkIDAT = 'I'<<24 | 'D'<<16 | 'A'<<8 | 'T'
	chunkIEND = 'I'<<24 | 'E'<<16 | 'N'<<8 | 'D'
	chunkPLTE = 'P'<<24 | 'L'<<16 | 'T'<<8 | 'E'

	ihdrLen = 13
)

var signature = [8]byte{137, 80, 78, 71, 13, 10, 26, 10}

// Image is a decoded PNG: the IHDR fields, the palette if one was present
// (0xRRGGBB entries), and the unfiltered scanline data with the filter
// bytes removed. For bit depths below eight, Pix holds the packed samples
// of each scanline.
type Image struct {
	Width, Height int
	BitDepth      int
	ColorType     ColorType
	Palette       []uint32
	Pix           []byte
}

// Decode reads a PNG image held in memory. The first chunk must be IHDR
// and the last IEND; IDAT payloads are accumulated across chunks and
// inflated in one piece. Unknown chunks are skipped.
func Decode(data []byte) (*Image, error) {
	if len(data) < len(signature) || !bytes.Equal(data[:8], signature[:]) {
		return nil, ErrInvalidSignature
	}
	data = data[8:]

	if len(data) < 8 {
		return nil, ErrTruncated
	}
	if binary.BigEndian.Uint32(data[4:8]) != chunkIHDR {
		return nil, ErrMissingIHDR
	}
	if binary.BigEndian.Uint32(data[0:4]) != ihdrLen || len(data) < 8+ihdrLen+4 {
		return nil, ErrTruncated
	}
	hdr := data[8:]
	img := &Image{
		Width:     int(binary.BigEndian.Uint32(hdr[0:4])),
		Height:    int(binary.BigEndian.Uint32(hdr[4:8])),
		BitDepth:  int(hdr[8]),
		ColorType: ColorType(hdr[9]),
	}
	compression, filter, interlace := hdr[10], hdr[11], hdr[12]
	if img.Width <= 0 || img.Height <= 0 || img.BitDepth == 0 ||
		compression != 0 || filter != 0 || interlace > 1 {
		return nil, ErrInvalidFormat
	}
	if interlace != 0 || img.BitDepth > 8 {
		// Adam7 and 16 bit samples
		return nil, ErrUnsupportedFormat
	}
	data = data[8+ihdrLen+4:]

	var idat []byte
	for len(data) > 0 {
		if len(data) < 8 {
			return nil, ErrTruncated
		}
		length := int(binary.BigEndian.Uint32(data[0:4]))
		typ := binary.BigEndian.Uint32(data[4:8])
		data = data[8:]
		if length < 0 || len(data) < length+4 {
			return nil, ErrTruncated
		}
		body := data[:length]

		switch typ {
		case chunkIDAT:
			idat = append(idat, body...)
		case chunkPLTE:
			if length%3 != 0 || length > 256*3 {
				return nil, ErrInvalidPalette
			}
			for i := 0; i < length; i += 3 {
				r, g, b := uint32(body[i]), uint32(body[i+1]), uint32(body[i+2])
				img.Palette = append(img.Palette, r<<16|g<<8|b)
			}
		case chunkIEND:
			return decodeIDAT(img, idat)
		}

		data = data[length+4:]
	}
	return nil, ErrMissingIEND
}

// decodeIDAT validates the zlib framing of the accumulated image data,
// inflates the payload past the 2 byte header and reverses the scanline
// filters. The trailing adler32 checksum is not verified; the decoder stops
// at the final block.
func decodeIDAT(img *Image, idat []byte) (*Image, error) {
	if len(idat) < 2 {
		return nil, ErrTruncated
	}
	// check bits, deflate method, window at most 32 KiB, no preset
	// dictionary
	cmf, flg := int(idat[0]), int(idat[1])
	if (cmf*256+flg)%31 != 0 || cmf&15 != 8 || cmf>>4 > 7 || flg>>5&1 != 0 {
		return nil, ErrInvalidHeader
	}

	channels, err := img.ColorType.channels()
	if err != nil {
		return nil, err
	}
	// each scanline is prefixed by its filter byte
	bpl := (img.Width*channels*img.BitDepth+7)/8 + 1
	if bpl > math.MaxInt/img.Height {
		return nil, ErrInvalidFormat
	}
	size := img.Height * bpl

	data := make([]byte, size)
	n, err := flate.Inflate(data, idat[2:])
	if err != nil {
		return nil, err
	}
	if n != size {
		return nil, ErrInvalidImage
	}

	if err := unfilter(data, bpl, img.Height, channels); err != nil {
		return nil, err
	}

	img.Pix = make([]byte, 0, img.Height*(bpl-1))
	for y := 0; y < img.Height; y++ {
		img.Pix = append(img.Pix, data[y*bpl+1:(y+1)*bpl]...)
	}
	return img, nil
}
