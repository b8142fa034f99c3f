// Copyright 2024 The miniz-go Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zip

import "sync/atomic"

func GetNumExtractionGoRoutines() int64 {
	return atomic.LoadInt64(&numExtractionGoRoutines)
}
