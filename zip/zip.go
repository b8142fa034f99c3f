// Copyright 2024 The miniz-go Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package zip reads ZIP archives held in memory. The central directory is
// located through the end-of-central-directory record and individual files
// are extracted with the flate package. Compression methods 0 (stored) and
// 8 (DEFLATE) are supported.
//
// See the PKWARE APPNOTE for the file format:
// https://pkware.cachefly.net/webdocs/casestudies/APPNOTE.TXT
package zip

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrNoCentralDirectory is returned when no end-of-central-directory
	// record is found within the scan window.
	ErrNoCentralDirectory = errors.New("zip: end of central directory not found")
	// ErrInvalidSignature is returned for a central directory entry or
	// local file header with the wrong magic number.
	ErrInvalidSignature = errors.New("zip: invalid signature")
	// ErrInvalidCompressionMethod is returned for compression methods other
	// than stored and deflate.
	ErrInvalidCompressionMethod = errors.New("zip: unsupported compression method")
	// ErrFileNotFound is returned by name lookups that match no entry.
	ErrFileNotFound = errors.New("zip: file not found")
	// ErrTruncated is returned when a header or file body reaches past the
	// end of the archive.
	ErrTruncated = errors.New("zip: truncated archive")
	// ErrChecksum is returned when extracted data fails its CRC-32 check.
	ErrChecksum = errors.New("zip: checksum mismatch")
	// ErrInvalidArchive is returned when a deflated entry decompresses to a
	// size other than the central directory's.
	ErrInvalidArchive = errors.New("zip: decompressed size mismatch")
)

// Compression methods (APPNOTE 4.4.5).
const (
	MethodStore   = 0
	MethodDeflate = 8
)

const (
	sigLocalHeader = 0x04034b50
	sigCentralDir  = 0x02014b50
	sigEOCD        = 0x06054b50

	localHeaderSize     = 30
	centralDirEntrySize = 46
	eocdSize            = 22
	maxCommentLen       = 1 << 16
)

// File is one central directory entry. Sizes and the CRC come from the
// central directory rather than the local header: streaming writers leave
// the local copies zeroed and append a data descriptor instead.
type File struct {
	Name             string
	Method           uint16
	CRC32            uint32
	CompressedSize   int
	UncompressedSize int
	Offset           int // offset of the local file header
}

type archiveOpts struct {
	scanOverhead int
}

// Option represents an option to NewArchive.
type Option func(*archiveOpts)

// ScanOverhead sets the number of trailing bytes searched for the
// end-of-central-directory record. The default allows for the largest
// possible archive comment. It should only ever be needed to bound the
// scan over archives with large trailing garbage.
func ScanOverhead(n int) Option {
	return func(o *archiveOpts) {
		o.scanOverhead = n
	}
}

// Archive provides access to the files of a ZIP archive held in memory.
type Archive struct {
	data  []byte
	files []File
}

// NewArchive locates the end-of-central-directory record in data, parses
// the central directory and returns an archive ready for extraction.
func NewArchive(data []byte, opts ...Option) (*Archive, error) {
	o := archiveOpts{scanOverhead: maxCommentLen}
	for _, fn := range opts {
		fn(&o)
	}
	cdOffset, cdSize, entries, err := findEOCD(data, o.scanOverhead)
	if err != nil {
		return nil, err
	}
	if cdOffset+cdSize > len(data) {
		return nil, ErrTruncated
	}
	files, err := parseCentralDir(data[cdOffset:cdOffset+cdSize], entries)
	if err != nil {
		return nil, err
	}
	return &Archive{data: data, files: files}, nil
}

// findEOCD scans backward from the end of the archive for the
// end-of-central-directory signature, allowing for a trailing comment of
// up to overhead bytes.
func findEOCD(data []byte, overhead int) (offset, size, entries int, err error) {
	if len(data) < eocdSize {
		return 0, 0, 0, ErrNoCentralDirectory
	}
	lo := len(data) - eocdSize - overhead
	if lo < 0 {
		lo = 0
	}
	for i := len(data) - eocdSize; i >= lo; i-- {
		if binary.LittleEndian.Uint32(data[i:]) != sigEOCD {
			continue
		}
		rec := data[i : i+eocdSize]
		entries = int(binary.LittleEndian.Uint16(rec[10:12]))
		size = int(binary.LittleEndian.Uint32(rec[12:16]))
		offset = int(binary.LittleEndian.Uint32(rec[16:20]))
		return offset, size, entries, nil
	}
	return 0, 0, 0, ErrNoCentralDirectory
}

func parseCentralDir(data []byte, entries int) ([]File, error) {
	files := make([]File, 0, entries)
	for i := 0; i < entries; i++ {
		if len(data) < centralDirEntrySize {
			return nil, ErrTruncated
		}
		if binary.LittleEndian.Uint32(data[0:4]) != sigCentralDir {
			return nil, ErrInvalidSignature
		}
		nameLen := int(binary.LittleEndian.Uint16(data[28:30]))
		extraLen := int(binary.LittleEndian.Uint16(data[30:32]))
		commentLen := int(binary.LittleEndian.Uint16(data[32:34]))
		if len(data) < centralDirEntrySize+nameLen+extraLen+commentLen {
			return nil, ErrTruncated
		}
		files = append(files, File{
			Name:             string(data[centralDirEntrySize : centralDirEntrySize+nameLen]),
			Method:           binary.LittleEndian.Uint16(data[10:12]),
			CRC32:            binary.LittleEndian.Uint32(data[16:20]),
			CompressedSize:   int(binary.LittleEndian.Uint32(data[20:24])),
			UncompressedSize: int(binary.LittleEndian.Uint32(data[24:28])),
			Offset:           int(binary.LittleEndian.Uint32(data[42:46])),
		})
		data = data[centralDirEntrySize+nameLen+extraLen+commentLen:]
	}
	return files, nil
}

// Files returns the central directory entries in archive order.
func (a *Archive) Files() []File {
	return a.files
}

// Lookup returns the entry for name.
func (a *Archive) Lookup(name string) (*File, error) {
	for i := range a.files {
		if a.files[i].Name == name {
			return &a.files[i], nil
		}
	}
	return nil, ErrFileNotFound
}
