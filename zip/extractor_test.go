// Copyright 2024 The miniz-go Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zip_test

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/steschu77/miniz-go/internal"
	"github.com/steschu77/miniz-go/zip"
)

func manyEntries(n int) []entry {
	random := internal.GenPredictableRandomData(n * 512)
	entries := make([]entry, n)
	for i := range entries {
		entries[i] = entry{
			name:  fmt.Sprintf("file-%03d", i),
			data:  random[i*512 : i*512+i*7%512],
			store: i%3 == 0,
		}
	}
	return entries
}

// waitGoRoutines waits for the extraction goroutine count to drop back to
// want; the last bookkeeping decrement races with the results channel
// closing.
func waitGoRoutines(t *testing.T, want int64) {
	for i := 0; i < 1000; i++ {
		if zip.GetNumExtractionGoRoutines() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Errorf("goroutine leak: %v, want %v", zip.GetNumExtractionGoRoutines(), want)
}

func TestExtractAll(t *testing.T) {
	ctx := context.Background()
	entries := manyEntries(50)
	ar, err := zip.NewArchive(buildZip(t, entries, ""))
	if err != nil {
		t.Fatal(err)
	}

	ngs := zip.GetNumExtractionGoRoutines()
	for _, concurrency := range []int{1, 2, runtime.GOMAXPROCS(-1)} {
		all, err := ar.ExtractAll(ctx, zip.Concurrency(concurrency))
		if err != nil {
			t.Fatalf("concurrency %v: %v", concurrency, err)
		}
		if got, want := len(all), len(entries); got != want {
			t.Fatalf("concurrency %v: got %v files, want %v", concurrency, got, want)
		}
		for i, e := range entries {
			if got, want := all[i], e.data; !bytes.Equal(got, want) {
				t.Errorf("concurrency %v: %v: got %v..., want %v...", concurrency, e.name,
					internal.FirstN(10, got), internal.FirstN(10, want))
			}
		}
		waitGoRoutines(t, ngs)
	}
}

func TestExtractorProgress(t *testing.T) {
	ctx := context.Background()
	entries := manyEntries(20)
	ar, err := zip.NewArchive(buildZip(t, entries, ""))
	if err != nil {
		t.Fatal(err)
	}

	ch := make(chan zip.Progress, len(entries))
	if _, err := ar.ExtractAll(ctx, zip.SendUpdates(ch)); err != nil {
		t.Fatal(err)
	}
	close(ch)
	next := uint64(1)
	for p := range ch {
		if got, want := p.Order, next; got != want {
			t.Errorf("got order %v, want %v", got, want)
		}
		if got, want := p.Name, entries[next-1].name; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
		if got, want := p.Size, len(entries[next-1].data); got != want {
			t.Errorf("%v: got size %v, want %v", p.Name, got, want)
		}
		next++
	}
	if got, want := next, uint64(len(entries)+1); got != want {
		t.Errorf("got %v updates, want %v", got-1, want-1)
	}
}

func TestExtractAllError(t *testing.T) {
	ctx := context.Background()
	entries := testEntries()
	data := buildZip(t, entries, "")

	// flip a byte of hello.txt's compressed data; the local header is
	// followed immediately by the name, then the stream
	pos := bytes.Index(data, []byte("hello.txt")) + len("hello.txt")
	data[pos] ^= 0xff

	ar, err := zip.NewArchive(data)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ar.ExtractAll(ctx); err == nil {
		t.Errorf("expected an error for corrupted file data")
	}
}

func TestExtractorCancelation(t *testing.T) {
	entries := manyEntries(100)
	ar, err := zip.NewArchive(buildZip(t, entries, ""))
	if err != nil {
		t.Fatal(err)
	}

	ngs := zip.GetNumExtractionGoRoutines()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	all, err := ar.ExtractAll(ctx, zip.Concurrency(2))
	// extraction may have raced to completion before the workers saw the
	// cancelled context
	if err != nil {
		if err != context.Canceled {
			t.Errorf("got %v, want %v", err, context.Canceled)
		}
	} else if got, want := len(all), len(entries); got != want {
		t.Errorf("got %v files, want %v", got, want)
	}
	waitGoRoutines(t, ngs)
}

func TestReader(t *testing.T) {
	ctx := context.Background()
	entries := manyEntries(30)
	ar, err := zip.NewArchive(buildZip(t, entries, ""))
	if err != nil {
		t.Fatal(err)
	}

	var want []byte
	for _, e := range entries {
		want = append(want, e.data...)
	}

	var got bytes.Buffer
	if _, err := got.ReadFrom(zip.NewReader(ctx, ar, zip.Concurrency(3))); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Bytes(), want) {
		t.Errorf("got %v bytes, want %v", got.Len(), len(want))
	}
}
