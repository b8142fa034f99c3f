// Copyright 2024 The miniz-go Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"cloudeng.io/cmdutil"
	"cloudeng.io/cmdutil/subcmd"
	"cloudeng.io/errors"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/schollz/progressbar/v2"
	"github.com/steschu77/miniz-go/png"
	"github.com/steschu77/miniz-go/zip"
	"golang.org/x/crypto/ssh/terminal"
)

type CommonFlags struct {
	Concurrency int  `subcmd:"concurrency,4,'concurrency for the extraction'"`
	Verbose     bool `subcmd:"verbose,false,verbose debug/trace information"`
}

type catFlags struct {
	CommonFlags
}

type unzipFlags struct {
	CommonFlags
	ProgressBar bool   `subcmd:"progress,true,display a progress bar"`
	OutputDir   string `subcmd:"output,.,'directory to extract the archive into'"`
}

type noFlags struct{}

var cmdSet *subcmd.CommandSet

func init() {
	defaultConcurrency := map[string]interface{}{
		"concurrency": runtime.GOMAXPROCS(-1),
	}

	catCmd := subcmd.NewCommand("cat",
		subcmd.MustRegisterFlagStruct(&catFlags{}, defaultConcurrency, nil),
		cat, subcmd.ExactlyNumArguments(1))
	catCmd.Document(`extract a zip archive to stdout, file contents concatenated in archive order. Archives may be local, on S3 or a URL.`)

	unzipCmd := subcmd.NewCommand("unzip",
		subcmd.MustRegisterFlagStruct(&unzipFlags{}, defaultConcurrency, nil),
		unzip, subcmd.ExactlyNumArguments(1))
	unzipCmd.Document(`extract a zip archive into a directory.`)

	listCmd := subcmd.NewCommand("list",
		subcmd.MustRegisterFlagStruct(&noFlags{}, nil, nil),
		list, subcmd.AtLeastNArguments(1))
	listCmd.Document(`list the central directory of zip archives.`)

	pngCmd := subcmd.NewCommand("png-info",
		subcmd.MustRegisterFlagStruct(&noFlags{}, nil, nil),
		pngInfo, subcmd.AtLeastNArguments(1))
	pngCmd.Document(`decode png files and print their header information.`)

	cmdSet = subcmd.NewCommandSet(catCmd, unzipCmd, listCmd, pngCmd)
	cmdSet.Document(`extract and inspect zip archives and png images. Files may be local, on S3 or a URL.`)

	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(
			s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

func progressBar(ctx context.Context, progressBarWr io.Writer, ch chan zip.Progress, size int64) {
	next := uint64(1)
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetBytes64(size),
		progressbar.OptionSetWriter(progressBarWr),
		progressbar.OptionSetPredictTime(true))
	bar.RenderBlank()
	for {
		select {
		case p := <-ch:
			if p.Order == 0 {
				fmt.Fprintf(progressBarWr, "\n")
				return
			}
			bar.Add(p.Compressed)
			if p.Order != next {
				log.Fatalf("out of sequence file %#v\n", p)
			}
			next++
		case <-ctx.Done():
			return
		}
	}
}

func readFileOrURL(ctx context.Context, name string) ([]byte, error) {
	if strings.HasPrefix(name, "http") {
		resp, err := http.Get(name)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		return io.ReadAll(resp.Body)
	}
	f, err := file.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer f.Close(ctx)
	return io.ReadAll(f.Reader(ctx))
}

func main() {
	cmdSet.MustDispatch(context.Background())
}

func optsFromCommonFlags(cl *CommonFlags) []zip.ExtractorOption {
	return []zip.ExtractorOption{
		zip.Concurrency(cl.Concurrency),
		zip.Verbose(cl.Verbose),
	}
}

func cat(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cl := values.(*catFlags)
	cmdutil.HandleSignals(cancel, os.Interrupt)

	data, err := readFileOrURL(ctx, args[0])
	if err != nil {
		return err
	}
	ar, err := zip.NewArchive(data)
	if err != nil {
		return err
	}
	rd := zip.NewReader(ctx, ar, optsFromCommonFlags(&cl.CommonFlags)...)
	_, err = io.Copy(os.Stdout, rd)
	return err
}

func safePath(dir, name string) (string, error) {
	clean := filepath.FromSlash(strings.TrimSuffix(name, "/"))
	if clean == "" || !filepath.IsLocal(clean) {
		return "", fmt.Errorf("unsafe archive path: %v", name)
	}
	return filepath.Join(dir, clean), nil
}

func writeFile(dir, name string, data []byte) error {
	path, err := safePath(dir, name)
	if err != nil {
		return err
	}
	if strings.HasSuffix(name, "/") {
		return os.MkdirAll(path, 0777)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0666)
}

func unzip(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cl := values.(*unzipFlags)
	cmdutil.HandleSignals(cancel, os.Interrupt)

	data, err := readFileOrURL(ctx, args[0])
	if err != nil {
		return err
	}
	ar, err := zip.NewArchive(data)
	if err != nil {
		return err
	}

	opts := optsFromCommonFlags(&cl.CommonFlags)

	var (
		progressBarWg sync.WaitGroup
		progressCh    chan zip.Progress
	)
	isTTY := terminal.IsTerminal(int(os.Stdout.Fd()))
	if cl.ProgressBar && isTTY {
		progressCh = make(chan zip.Progress, cl.Concurrency)
		opts = append(opts, zip.SendUpdates(progressCh))
		var size int64
		for _, f := range ar.Files() {
			size += int64(f.CompressedSize)
		}
		progressBarWg.Add(1)
		go func() {
			progressBar(ctx, os.Stderr, progressCh, size)
			progressBarWg.Done()
		}()
	}

	errs := &errors.M{}
	ex := zip.NewExtractor(ctx, ar, opts...)
	for res := range ex.Results() {
		if res.Err != nil {
			errs.Append(res.Err)
			continue
		}
		errs.Append(writeFile(cl.OutputDir, res.File.Name, res.Data))
	}

	if progressCh != nil {
		close(progressCh)
		progressBarWg.Wait()
	}
	return errs.Err()
}

func listFile(ctx context.Context, name string) error {
	data, err := readFileOrURL(ctx, name)
	if err != nil {
		return err
	}
	ar, err := zip.NewArchive(data)
	if err != nil {
		return err
	}
	fmt.Printf("=== %v ===\n", name)
	fmt.Printf("Method, CRC, Compressed, Size, Name\n")
	for _, f := range ar.Files() {
		fmt.Printf("% 6d   %08x % 12d % 12d   %v\n",
			f.Method, f.CRC32, f.CompressedSize, f.UncompressedSize, f.Name)
	}
	return nil
}

func list(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	cmdutil.HandleSignals(cancel, os.Interrupt)
	errs := errors.M{}
	for _, arg := range args {
		errs.Append(listFile(ctx, arg))
	}
	return errs.Err()
}

func pngInfoFile(ctx context.Context, name string) error {
	data, err := readFileOrURL(ctx, name)
	if err != nil {
		return err
	}
	img, err := png.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to decode: %v: %v", name, err)
	}
	fmt.Printf("=== %v ===\n", name)
	fmt.Printf("Size                 : %v x %v\n", img.Width, img.Height)
	fmt.Printf("Color type           : %v\n", img.ColorType)
	fmt.Printf("Bit depth            : %v\n", img.BitDepth)
	fmt.Printf("Palette entries      : %v\n", len(img.Palette))
	fmt.Printf("Pixel data           : %v bytes\n", len(img.Pix))
	return nil
}

func pngInfo(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	cmdutil.HandleSignals(cancel, os.Interrupt)
	errs := errors.M{}
	for _, arg := range args {
		errs.Append(pngInfoFile(ctx, arg))
	}
	return errs.Err()
}
