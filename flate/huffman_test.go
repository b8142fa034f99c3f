// Copyright 2024 The miniz-go Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package flate

import "testing"

func vlcodes(lens ...uint8) []vlcode {
	out := make([]vlcode, len(lens))
	for i, l := range lens {
		out[i].len = l
	}
	return out
}

func TestReverseBitsRoundTrip(t *testing.T) {
	for n := uint8(1); n <= 15; n++ {
		for x := uint16(0); x < 1<<n; x++ {
			if got := reverseBits(reverseBits(x, n), n); got != x {
				t.Fatalf("n %v: got %v, want %v", n, got, x)
			}
		}
	}
}

func fixedLitLenLengths() []uint8 {
	lens := make([]uint8, numDeflateCodeSymbols)
	for i := range lens {
		switch {
		case i < 144:
			lens[i] = 8
		case i < 256:
			lens[i] = 9
		case i < 280:
			lens[i] = 7
		default:
			lens[i] = 8
		}
	}
	return lens
}

// Any accepted length vector must yield a prefix code: read MSB first, no
// code may be a prefix of a longer one.
func TestGenerateCodesPrefixFree(t *testing.T) {
	for ti, lens := range [][]uint8{
		{1, 2, 3, 3},
		{2, 2, 2, 2},
		{2, 0, 2, 0, 2, 2},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 15},
		fixedLitLenLengths(),
	} {
		table := vlcodes(lens...)
		if _, err := generateCodes(table); err != nil {
			t.Errorf("%v: %v", ti, err)
			continue
		}
		for i := range table {
			if table[i].len == 0 {
				continue
			}
			mi := reverseBits(table[i].code, table[i].len)
			for j := range table {
				if j == i || table[j].len < table[i].len {
					continue
				}
				mj := reverseBits(table[j].code, table[j].len)
				if mj>>(table[j].len-table[i].len) == mi {
					t.Errorf("%v: code of %v is a prefix of code of %v", ti, i, j)
				}
			}
		}
	}
}

func TestSubscription(t *testing.T) {
	for _, tc := range []struct {
		name string
		lens []uint8
		err  error
	}{
		{"complete", []uint8{1, 2, 2}, nil},
		{"no symbols", make([]uint8, 32), nil},
		{"one symbol", []uint8{0, 0, 5, 0}, nil},
		{"oversubscribed", []uint8{1, 1, 1}, ErrOverSubscribedTree},
		{"oversubscribed deep", []uint8{1, 1, 2}, ErrOverSubscribedTree},
		{"undersubscribed", []uint8{2, 2, 2}, ErrUnderSubscribedTree},
		{"undersubscribed pair", []uint8{3, 3}, ErrUnderSubscribedTree},
	} {
		if _, err := generateCodes(vlcodes(tc.lens...)); err != tc.err {
			t.Errorf("%v: got %v, want %v", tc.name, err, tc.err)
		}
		if _, err := makeLookupTable(vlcodes(tc.lens...)); err != tc.err {
			t.Errorf("%v: got %v, want %v", tc.name, err, tc.err)
		}
	}
}

// Degenerate trees build without error. The single present symbol still
// decodes; every other bit pattern must yield a defined failure, never a
// stray table read.
func TestDegenerateTreeDecode(t *testing.T) {
	empty, err := makeLookupTable(vlcodes(make([]uint8, numDistanceSymbols)...))
	if err != nil {
		t.Fatal(err)
	}
	br := bitReader{src: []byte{0x00, 0x00}}
	if sym, err := br.readSymbol(empty); err != nil || sym != invalidSymbol {
		t.Errorf("got %v, %v, want %v, nil", sym, err, invalidSymbol)
	}

	single, err := makeLookupTable(vlcodes(0, 0, 1, 0))
	if err != nil {
		t.Fatal(err)
	}
	br = bitReader{src: []byte{0x00, 0x00}}
	if sym, err := br.readSymbol(single); err != nil || sym != 2 {
		t.Errorf("got %v, %v, want 2, nil", sym, err)
	}
	if got, want := br.pos, 1; got != want {
		t.Errorf("got %v bits consumed, want %v", got, want)
	}
	br = bitReader{src: []byte{0x01, 0x00}}
	if sym, err := br.readSymbol(single); err != nil || sym != invalidSymbol {
		t.Errorf("got %v, %v, want %v, nil", sym, err, invalidSymbol)
	}
}

// A complete tree with codes on both sides of the 9 bit primary width:
// every symbol must decode through the right table level and consume
// exactly its code length.
func TestTwoLevelDecode(t *testing.T) {
	lens := []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 15}
	inp := vlcodes(lens...)
	table, err := makeLookupTable(inp)
	if err != nil {
		t.Fatal(err)
	}
	for i := range inp {
		src := []byte{byte(inp[i].code), byte(inp[i].code >> 8)}
		br := bitReader{src: src}
		sym, err := br.readSymbol(table)
		if err != nil {
			t.Fatalf("%v: %v", i, err)
		}
		if got, want := sym, uint16(i); got != want {
			t.Errorf("%v: got symbol %v, want %v", i, got, want)
		}
		if got, want := br.pos, int(lens[i]); got != want {
			t.Errorf("%v: got %v bits consumed, want %v", i, got, want)
		}
	}
}
