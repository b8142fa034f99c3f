// Copyright 2024 The miniz-go Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zip

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/steschu77/miniz-go/flate"
)

// Extract reads and, if necessary, decompresses the named file.
func (a *Archive) Extract(name string) ([]byte, error) {
	f, err := a.Lookup(name)
	if err != nil {
		return nil, err
	}
	return a.ExtractFile(f)
}

// ExtractFile reads the file's local header to locate its data and
// decompresses it. The local header's name and extra lengths may differ
// from the central directory's, so the data offset is computed from the
// local copy.
func (a *Archive) ExtractFile(f *File) ([]byte, error) {
	if f.Offset < 0 || f.Offset+localHeaderSize > len(a.data) {
		return nil, ErrTruncated
	}
	hdr := a.data[f.Offset : f.Offset+localHeaderSize]
	if binary.LittleEndian.Uint32(hdr[0:4]) != sigLocalHeader {
		return nil, ErrInvalidSignature
	}
	nameLen := int(binary.LittleEndian.Uint16(hdr[26:28]))
	extraLen := int(binary.LittleEndian.Uint16(hdr[28:30]))

	start := f.Offset + localHeaderSize + nameLen + extraLen
	if start+f.CompressedSize > len(a.data) {
		return nil, ErrTruncated
	}
	compressed := a.data[start : start+f.CompressedSize]

	var data []byte
	switch f.Method {
	case MethodStore:
		data = append([]byte(nil), compressed...)
	case MethodDeflate:
		data = make([]byte, f.UncompressedSize)
		n, err := flate.Inflate(data, compressed)
		if err != nil {
			return nil, err
		}
		if n != f.UncompressedSize {
			return nil, ErrInvalidArchive
		}
	default:
		return nil, ErrInvalidCompressionMethod
	}

	if crc32.ChecksumIEEE(data) != f.CRC32 {
		return nil, ErrChecksum
	}
	return data, nil
}
