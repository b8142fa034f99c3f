// Copyright 2024 The miniz-go Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zip

import (
	"context"
	"io"
)

// NewReader returns an io.Reader that yields the contents of every file in
// the archive, concatenated in central directory order. Files are
// extracted concurrently while earlier content is being read.
func NewReader(ctx context.Context, a *Archive, opts ...ExtractorOption) io.Reader {
	prd, pwr := io.Pipe()
	ex := NewExtractor(ctx, a, opts...)
	go func() {
		var err error
		for res := range ex.Results() {
			if err != nil {
				continue
			}
			if res.Err != nil {
				err = res.Err
				continue
			}
			if _, werr := pwr.Write(res.Data); werr != nil {
				err = werr
			}
		}
		// CloseWithError(nil) closes with a normal EOF
		pwr.CloseWithError(err)
	}()
	return prd
}
