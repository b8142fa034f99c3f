// Copyright 2024 The miniz-go Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package flate

import "errors"

// Errors returned by Inflate. Any error aborts the decode immediately; the
// contents of dst are unspecified after a failure.
var (
	// ErrUnderflow is returned when the input ends before the stream does.
	ErrUnderflow = errors.New("flate: input underflow")
	// ErrInvalidBlockType is returned for the reserved block type 3.
	ErrInvalidBlockType = errors.New("flate: invalid block type")
	// ErrInvalidBlockLength is returned when a stored block's length and its
	// one's complement disagree.
	ErrInvalidBlockLength = errors.New("flate: stored block length mismatch")
	// ErrInvalidCodeLength is returned when a dynamic block header declares
	// more literal/length or distance codes than the format allows.
	ErrInvalidCodeLength = errors.New("flate: invalid code length count")
	// ErrInvalidDistance is returned when a back-reference reaches before
	// the start of the output.
	ErrInvalidDistance = errors.New("flate: distance too far back")
	// ErrInvalidLength is returned when output would exceed the capacity of
	// dst.
	ErrInvalidLength = errors.New("flate: length exceeds output capacity")
	// ErrInvalidSymbol is returned when a literal/length code outside the
	// alphabet is decoded.
	ErrInvalidSymbol = errors.New("flate: invalid symbol")
	// ErrInvalidData is returned for malformed code length runs and a
	// missing end-of-block code.
	ErrInvalidData = errors.New("flate: invalid compressed data")
	// ErrOverSubscribedTree is returned when a length vector describes more
	// codes than a prefix tree can hold.
	ErrOverSubscribedTree = errors.New("flate: over-subscribed huffman tree")
	// ErrUnderSubscribedTree is returned when a length vector leaves bit
	// patterns that decode to no symbol.
	ErrUnderSubscribedTree = errors.New("flate: under-subscribed huffman tree")
)
