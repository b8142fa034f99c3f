// Copyright 2024 The miniz-go Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zip

import (
	"container/heap"
	"context"
	"fmt"
	"log"
	"runtime"
	"sync/atomic"
	"time"
)

var numExtractionGoRoutines int64

type extractorOpts struct {
	verbose     bool
	concurrency int
	progressCh  chan<- Progress
}

// ExtractorOption represents an option to NewExtractor.
type ExtractorOption func(*extractorOpts)

// Verbose controls verbose logging for extraction.
func Verbose(v bool) ExtractorOption {
	return func(o *extractorOpts) {
		o.verbose = v
	}
}

// Concurrency sets the number of goroutines used for extraction.
func Concurrency(n int) ExtractorOption {
	return func(o *extractorOpts) {
		o.concurrency = n
	}
}

// SendUpdates sets the channel for sending progress updates over.
func SendUpdates(ch chan<- Progress) ExtractorOption {
	return func(o *extractorOpts) {
		o.progressCh = ch
	}
}

// Progress is used to report the progress of extraction. Each report
// pertains to a file delivered in archive order.
type Progress struct {
	Duration         time.Duration
	Order            uint64
	Name             string
	Compressed, Size int
}

// Result is one extracted file. Results are delivered in archive order; a
// per-file failure is reported in Err with Data nil.
type Result struct {
	File *File
	Data []byte
	Err  error
}

// Extractor extracts the files of an archive concurrently and reassembles
// the results in central directory order.
type Extractor struct {
	ctx      context.Context
	archive  *Archive
	workCh   chan *fileDesc
	doneCh   chan *fileDesc
	resultCh chan Result

	progressCh chan<- Progress
	heap       *fileHeap
	verbose    bool
}

type fileDesc struct {
	order uint64
	file  *File

	err      error
	data     []byte
	duration time.Duration
}

func (fd *fileDesc) String() string {
	if fd == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v: %v, method %v, size %v, offset %v",
		fd.order, fd.file.Name, fd.file.Method, fd.file.CompressedSize, fd.file.Offset)
}

// NewExtractor creates a new concurrent extractor for the archive. The
// results are read from the channel returned by Results.
func NewExtractor(ctx context.Context, a *Archive, opts ...ExtractorOption) *Extractor {
	o := extractorOpts{
		concurrency: runtime.GOMAXPROCS(-1),
	}
	for _, fn := range opts {
		fn(&o)
	}
	ex := &Extractor{
		ctx:        ctx,
		archive:    a,
		workCh:     make(chan *fileDesc, o.concurrency),
		doneCh:     make(chan *fileDesc, o.concurrency),
		resultCh:   make(chan Result, o.concurrency),
		progressCh: o.progressCh,
		heap:       &fileHeap{},
		verbose:    o.verbose,
	}
	heap.Init(ex.heap)
	workers := int64(o.concurrency)
	for i := 0; i < o.concurrency; i++ {
		go func() {
			atomic.AddInt64(&numExtractionGoRoutines, 1)
			ex.worker(ctx, ex.workCh, ex.doneCh)
			atomic.AddInt64(&numExtractionGoRoutines, -1)
			// the last worker out closes the channel the assembler drains
			if atomic.AddInt64(&workers, -1) == 0 {
				close(ex.doneCh)
			}
		}()
	}
	go func() {
		atomic.AddInt64(&numExtractionGoRoutines, 1)
		ex.assemble(ctx, ex.doneCh)
		atomic.AddInt64(&numExtractionGoRoutines, -1)
	}()
	go ex.feed(ctx)
	return ex
}

// Results returns the channel the extracted files are delivered over, in
// central directory order. The channel is closed once every file has been
// delivered or the context is cancelled.
func (ex *Extractor) Results() <-chan Result {
	return ex.resultCh
}

func (ex *Extractor) trace(format string, args ...interface{}) {
	if ex.verbose {
		log.Printf(format, args...)
	}
}

// feed queues every central directory entry for extraction.
func (ex *Extractor) feed(ctx context.Context) {
	defer close(ex.workCh)
	for i := range ex.archive.files {
		fd := &fileDesc{order: uint64(i + 1), file: &ex.archive.files[i]}
		select {
		case ex.workCh <- fd:
		case <-ctx.Done():
			return
		}
	}
}

func (ex *Extractor) worker(ctx context.Context, in <-chan *fileDesc, out chan<- *fileDesc) {
	for {
		select {
		case fd := <-in:
			if fd == nil {
				return
			}
			ex.trace("extracting: %s", fd)
			start := time.Now()
			fd.data, fd.err = ex.archive.ExtractFile(fd.file)
			fd.duration = time.Since(start)
			ex.trace("extracted: %s, ch %v/%v", fd, len(out), cap(out))
			select {
			case out <- fd:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// assemble reorders the extracted files back into archive order using a
// heap keyed on the submission order.
func (ex *Extractor) assemble(ctx context.Context, ch <-chan *fileDesc) {
	defer close(ex.resultCh)
	expected := uint64(1)
	for {
		select {
		case fd, ok := <-ch:
			if !ok {
				return
			}
			heap.Push(ex.heap, fd)
			for len(*ex.heap) > 0 && (*ex.heap)[0].order == expected {
				min := heap.Pop(ex.heap).(*fileDesc)
				expected++
				select {
				case ex.resultCh <- Result{File: min.file, Data: min.data, Err: min.err}:
				case <-ctx.Done():
					return
				}
				if ex.progressCh != nil {
					ex.progressCh <- Progress{
						Duration:   min.duration,
						Order:      min.order,
						Name:       min.file.Name,
						Compressed: min.file.CompressedSize,
						Size:       len(min.data),
					}
				}
			}
		case <-ctx.Done():
			select {
			case ex.resultCh <- Result{Err: ctx.Err()}:
			default:
			}
			return
		}
	}
}

// ExtractAll extracts every file concurrently and returns the contents in
// central directory order. The first per-file or context error aborts the
// call after the remaining results have been drained.
func (a *Archive) ExtractAll(ctx context.Context, opts ...ExtractorOption) ([][]byte, error) {
	ex := NewExtractor(ctx, a, opts...)
	var (
		out      [][]byte
		firstErr error
	)
	for res := range ex.Results() {
		if firstErr != nil {
			continue
		}
		if res.Err != nil {
			firstErr = res.Err
			continue
		}
		out = append(out, res.Data)
	}
	if firstErr == nil && len(out) < len(a.files) {
		// the results end early only when ctx is done
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

type fileHeap []*fileDesc

func (h fileHeap) Len() int           { return len(h) }
func (h fileHeap) Less(i, j int) bool { return h[i].order < h[j].order }
func (h fileHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *fileHeap) Push(x interface{}) {
	// Push and Pop use pointer receivers because they modify the slice's
	// length, not just its contents.
	*h = append(*h, x.(*fileDesc))
}

func (h *fileHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
