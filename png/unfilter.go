// Copyright 2024 The miniz-go Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package png

type filterType uint8

const (
	filterNone filterType = iota
	filterSub
	filterUp
	filterAverage
	filterPaeth
)

func parseFilter(b byte) (filterType, error) {
	if b > byte(filterPaeth) {
		return 0, ErrInvalidFilterType
	}
	return filterType(b), nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// paeth picks whichever of left, up and upper-left is closest to
// left + up - upperleft, preferring left, then up, on ties.
func paeth(a, b, c byte) byte {
	pa := abs(int(b) - int(c))
	pb := abs(int(a) - int(c))
	pc := abs(int(a) + int(b) - 2*int(c))
	switch {
	case pc < pa && pc < pb:
		return c
	case pb < pa:
		return b
	default:
		return a
	}
}

// unfilterScanline0 reverses the filter of the first scanline, which has no
// predecessor: Up is a no-op and Paeth degrades to Sub since both the up
// and upper-left neighbours read as zero.
func unfilterScanline0(recon []byte, ft filterType, bpp int) {
	switch ft {
	case filterSub, filterPaeth:
		for i := bpp; i < len(recon); i++ {
			recon[i] += recon[i-bpp]
		}
	case filterAverage:
		for i := bpp; i < len(recon); i++ {
			recon[i] += recon[i-bpp] / 2
		}
	}
}

// unfilterScanlineN reverses the filter of a scanline with predecessor
// precon. Both slices exclude their filter byte.
func unfilterScanlineN(recon, precon []byte, ft filterType, bpp int) {
	switch ft {
	case filterSub:
		for i := bpp; i < len(recon); i++ {
			recon[i] += recon[i-bpp]
		}
	case filterUp:
		for i := range recon {
			recon[i] += precon[i]
		}
	case filterAverage:
		for i := 0; i < bpp; i++ {
			recon[i] += precon[i] / 2
		}
		for i := bpp; i < len(recon); i++ {
			recon[i] += byte((int(recon[i-bpp]) + int(precon[i])) / 2)
		}
	case filterPaeth:
		// paeth(0, up, 0) is always up
		for i := 0; i < bpp; i++ {
			recon[i] += precon[i]
		}
		for i := bpp; i < len(recon); i++ {
			recon[i] += paeth(recon[i-bpp], precon[i], precon[i-bpp])
		}
	}
}

// unfilter reverses the scanline filters in place. data holds height lines
// of bpl bytes, each starting with its filter byte; bpp is the filter
// stride in whole bytes.
func unfilter(data []byte, bpl, height, bpp int) error {
	ft, err := parseFilter(data[0])
	if err != nil {
		return err
	}
	unfilterScanline0(data[1:bpl], ft, bpp)

	for y := 1; y < height; y++ {
		prev := data[(y-1)*bpl : y*bpl]
		line := data[y*bpl : (y+1)*bpl]
		ft, err := parseFilter(line[0])
		if err != nil {
			return err
		}
		unfilterScanlineN(line[1:], prev[1:], ft, bpp)
	}
	return nil
}
