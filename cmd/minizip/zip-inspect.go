// Copyright 2024 The miniz-go Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// +build ignore

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/must"
	"github.com/steschu77/miniz-go/zip"
	"v.io/x/lib/cmd/flagvar"
)

var commandline struct {
	InputFile string `cmd:"input,,'input file, s3 path, or url'"`
}

func init() {
	must.Nil(flagvar.RegisterFlagsInStruct(flag.CommandLine, "cmd", &commandline,
		nil, nil))
}

func main() {
	ctx := context.Background()
	flag.Parse()

	f, err := file.Open(ctx, commandline.InputFile)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(f.Reader(ctx))
	if err != nil {
		log.Fatalf("failed to read: %v: %v", commandline.InputFile, err)
	}
	ar, err := zip.NewArchive(data)
	if err != nil {
		log.Fatalf("failed to parse: %v: %v", commandline.InputFile, err)
	}
	fmt.Printf("=== %v ===\n", commandline.InputFile)
	fmt.Printf("Offset, Method, CRC, Compressed, Size, Name\n")
	for _, entry := range ar.Files() {
		fmt.Printf("% 12d   % 6d   %08x % 12d % 12d   %v\n",
			entry.Offset, entry.Method, entry.CRC32,
			entry.CompressedSize, entry.UncompressedSize, entry.Name)
	}
}
