// Copyright 2024 The miniz-go Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package flate implements DEFLATE (RFC 1951) decompression into a caller
// supplied buffer. The input is a raw block sequence with no zlib or gzip
// framing; outer containers such as PNG and ZIP strip their framing and
// hand the payload to Inflate.
package flate

const (
	numDeflateCodeSymbols = 288 // literal/length alphabet size
	numDistanceSymbols    = 32  // distance alphabet size
	numCodeLengthCodes    = 19  // code length meta-alphabet size

	// Compressed data may declare at most 286 literal/length and 30
	// distance codes (RFC 1951 section 3.2.5).
	maxLitLenCodes = 286
	maxDistCodes   = 30

	endOfBlock = 256
)

// codeLengthOrder is the order in which the meta-alphabet code lengths are
// stored in a dynamic block header (RFC 1951 section 3.2.7).
var codeLengthOrder = [numCodeLengthCodes]uint8{
	16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15,
}

// lengthInfo maps length codes 257..285 to their extra bit count and base
// length (RFC 1951 section 3.2.5).
var lengthInfo = [29]struct {
	extra uint8
	base  uint16
}{
	{0, 3}, {0, 4}, {0, 5}, {0, 6}, {0, 7}, {0, 8}, {0, 9}, {0, 10},
	{1, 11}, {1, 13}, {1, 15}, {1, 17}, {2, 19}, {2, 23}, {2, 27}, {2, 31},
	{3, 35}, {3, 43}, {3, 51}, {3, 59}, {4, 67}, {4, 83}, {4, 99}, {4, 115},
	{5, 131}, {5, 163}, {5, 195}, {5, 227}, {0, 258},
}

// distInfo maps distance codes 0..29 to their extra bit count and base
// distance.
var distInfo = [30]struct {
	extra uint8
	base  uint16
}{
	{0, 1}, {0, 2}, {0, 3}, {0, 4}, {1, 5}, {1, 7}, {2, 9}, {2, 13},
	{3, 17}, {3, 25}, {4, 33}, {4, 49}, {5, 65}, {5, 97}, {6, 129}, {6, 193},
	{7, 257}, {7, 385}, {8, 513}, {8, 769}, {9, 1025}, {9, 1537}, {10, 2049}, {10, 3073},
	{11, 4097}, {11, 6145}, {12, 8193}, {12, 12289}, {13, 16385}, {13, 24577},
}

// Inflate decompresses the DEFLATE block sequence in src into dst and
// returns the number of bytes produced. dst must be large enough to hold
// the entire uncompressed output; bits trailing the final block are
// ignored. Inflate keeps no state between calls and is safe for concurrent
// use provided the dst regions do not alias.
func Inflate(dst, src []byte) (int, error) {
	br := bitReader{src: src}
	dptr := 0
	for {
		bfinal, err := br.read(1)
		if err != nil {
			return 0, err
		}
		btype, err := br.read(2)
		if err != nil {
			return 0, err
		}

		switch btype {
		case 0:
			dptr, err = inflateStored(dst, dptr, &br)
		case 1:
			var litlen, dist *lookupTable
			if litlen, dist, err = fixedTables(); err == nil {
				dptr, err = inflateHuffmanBlock(dst, dptr, &br, litlen, dist)
			}
		case 2:
			var litlen, dist *lookupTable
			if litlen, dist, err = dynamicTables(&br); err == nil {
				dptr, err = inflateHuffmanBlock(dst, dptr, &br, litlen, dist)
			}
		default:
			err = ErrInvalidBlockType
		}
		if err != nil {
			return 0, err
		}
		if bfinal != 0 {
			if br.pos > len(src)*8 {
				// the decode consumed zero bits read from past the end
				return 0, ErrUnderflow
			}
			return dptr, nil
		}
	}
}

// inflateStored copies a type 0 block verbatim. The block starts at the
// next byte boundary with a 16-bit little-endian length and its one's
// complement.
func inflateStored(dst []byte, dptr int, br *bitReader) (int, error) {
	br.alignByte()
	bytepos := br.pos >> 3

	if bytepos+4 > len(br.src) {
		return 0, ErrUnderflow
	}
	n := int(br.src[bytepos]) | int(br.src[bytepos+1])<<8
	nn := int(br.src[bytepos+2]) | int(br.src[bytepos+3])<<8
	if n+nn != 0xffff {
		return 0, ErrInvalidBlockLength
	}
	if bytepos+4+n > len(br.src) {
		return 0, ErrUnderflow
	}
	if dptr+n > len(dst) {
		return 0, ErrInvalidLength
	}
	copy(dst[dptr:], br.src[bytepos+4:bytepos+4+n])
	br.consume((4 + n) * 8)
	return dptr + n, nil
}

// fixedTables synthesizes the static literal/length and distance trees of a
// type 1 block (RFC 1951 section 3.2.6).
func fixedTables() (litlen, dist *lookupTable, err error) {
	var ll [numDeflateCodeSymbols]vlcode
	for i := range ll {
		switch {
		case i < 144:
			ll[i].len = 8
		case i < 256:
			ll[i].len = 9
		case i < 280:
			ll[i].len = 7
		default:
			ll[i].len = 8
		}
	}
	if litlen, err = makeLookupTable(ll[:]); err != nil {
		return nil, nil, err
	}

	var d [numDistanceSymbols]vlcode
	for i := range d {
		d[i].len = 5
	}
	if dist, err = makeLookupTable(d[:]); err != nil {
		return nil, nil, err
	}
	return litlen, dist, nil
}

// dynamicTables reads the header of a type 2 block: the three alphabet
// sizes, the meta-alphabet, and the run-length encoded lengths of the two
// main trees (RFC 1951 section 3.2.7).
func dynamicTables(br *bitReader) (litlen, dist *lookupTable, err error) {
	hlit, err := br.read(5)
	if err != nil {
		return nil, nil, err
	}
	hdist, err := br.read(5)
	if err != nil {
		return nil, nil, err
	}
	hclen, err := br.read(4)
	if err != nil {
		return nil, nil, err
	}
	nlit := int(hlit) + 257
	ndist := int(hdist) + 1
	nclen := int(hclen) + 4
	if nlit > maxLitLenCodes || ndist > maxDistCodes {
		return nil, nil, ErrInvalidCodeLength
	}

	var cl [numCodeLengthCodes]vlcode
	for _, sym := range codeLengthOrder[:nclen] {
		v, err := br.read(3)
		if err != nil {
			return nil, nil, err
		}
		cl[sym].len = uint8(v)
	}
	meta, err := makeLookupTable(cl[:])
	if err != nil {
		return nil, nil, err
	}

	count := nlit + ndist
	var lengths [numDeflateCodeSymbols + numDistanceSymbols]vlcode
	for ptr := 0; ptr < count; {
		sym, err := br.readSymbol(meta)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case sym < 16:
			lengths[ptr].len = uint8(sym)
			ptr++
		case sym == 16:
			// repeat the previous length 3..6 times
			if ptr == 0 {
				return nil, nil, ErrInvalidData
			}
			n, err := br.read(2)
			if err != nil {
				return nil, nil, err
			}
			rep := 3 + int(n)
			if ptr+rep > count {
				return nil, nil, ErrInvalidData
			}
			prev := lengths[ptr-1].len
			for ; rep > 0; rep-- {
				lengths[ptr].len = prev
				ptr++
			}
		case sym == 17 || sym == 18:
			// a run of zero lengths, 3..10 or 11..138
			var rep int
			if sym == 17 {
				n, err := br.read(3)
				if err != nil {
					return nil, nil, err
				}
				rep = 3 + int(n)
			} else {
				n, err := br.read(7)
				if err != nil {
					return nil, nil, err
				}
				rep = 11 + int(n)
			}
			if ptr+rep > count {
				return nil, nil, ErrInvalidData
			}
			ptr += rep // lengths are zero initialized
		default:
			return nil, nil, ErrInvalidData
		}
	}

	if lengths[endOfBlock].len == 0 {
		// every block must be terminated by an end-of-block code
		return nil, nil, ErrInvalidData
	}

	if litlen, err = makeLookupTable(lengths[:nlit]); err != nil {
		return nil, nil, err
	}
	if dist, err = makeLookupTable(lengths[nlit : nlit+ndist]); err != nil {
		return nil, nil, err
	}
	return litlen, dist, nil
}

// inflateHuffmanBlock runs the literal/length/distance loop of a compressed
// block until the end-of-block code, appending to dst at dptr.
func inflateHuffmanBlock(dst []byte, dptr int, br *bitReader, litlen, dist *lookupTable) (int, error) {
	for {
		sym, err := br.readSymbol(litlen)
		if err != nil {
			return 0, err
		}
		switch {
		case sym < endOfBlock:
			if dptr == len(dst) {
				return 0, ErrInvalidLength
			}
			dst[dptr] = byte(sym)
			dptr++

		case sym == endOfBlock:
			return dptr, nil

		case sym < maxLitLenCodes:
			info := lengthInfo[sym-257]
			extra, err := br.read(int(info.extra))
			if err != nil {
				return 0, err
			}
			length := int(info.base) + int(extra)

			dsym, err := br.readSymbol(dist)
			if err != nil {
				return 0, err
			}
			if dsym == 0 {
				// distance 1: the previous byte repeated
				if dptr == 0 {
					return 0, ErrInvalidDistance
				}
				if dptr+length > len(dst) {
					return 0, ErrInvalidLength
				}
				b := dst[dptr-1]
				for i := 0; i < length; i++ {
					dst[dptr+i] = b
				}
				dptr += length
				continue
			}
			if int(dsym) >= len(distInfo) {
				return 0, ErrInvalidDistance
			}
			dinfo := distInfo[dsym]
			extra, err = br.read(int(dinfo.extra))
			if err != nil {
				return 0, err
			}
			distance := int(dinfo.base) + int(extra)

			if distance > dptr {
				return 0, ErrInvalidDistance
			}
			if dptr+length > len(dst) {
				return 0, ErrInvalidLength
			}
			copyWindow(dst, dptr, distance, length)
			dptr += length

		default:
			return 0, ErrInvalidSymbol
		}
	}
}

// copyWindow copies length bytes starting distance back from dptr. When
// length exceeds distance the reference reads bytes the copy itself has
// just written: whole distance-sized strides of the source region are
// copied first, then the remainder, which reproduces the byte-wise forward
// copy the format requires.
func copyWindow(dst []byte, dptr, distance, length int) {
	start := dptr
	for n := length / distance; n > 0; n-- {
		copy(dst[dptr:dptr+distance], dst[start-distance:start])
		dptr += distance
	}
	copy(dst[dptr:dptr+length%distance], dst[start-distance:start])
}
