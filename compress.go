// compress.go - the gzip compression boundary
//
// The core dictionary formats never compress themselves; compression
// is an external collaborator plugged in at the edges. The synchronous
// path is a thin gzip.Writer/Reader wrapper; FromCompressedDict is the
// asynchronous construction entry point, run on its own goroutine via
// errgroup so a caller-supplied context can cancel a slow decompress
// without blocking on it inline.
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package mph

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"

	"golang.org/x/sync/errgroup"
)

// compressBytes gzips buf at the default compression level.
func compressBytes(buf []byte) ([]byte, error) {
	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	if _, err := zw.Write(buf); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// decompressBytes reverses compressBytes.
func decompressBytes(buf []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// FromCompressedDict decompresses a gzip-compressed serialized Dict and
// decodes it, cooperatively cancellable via ctx. The decompress and
// decode both run on a worker goroutine; ctx cancellation while that
// goroutine is running does not abort the in-flight gzip read (the
// stdlib gzip reader has no cancellation hook), but the caller is freed
// from blocking on it once ctx is done.
func FromCompressedDict(ctx context.Context, compressed []byte) (*Dict, error) {
	g, _ := errgroup.WithContext(ctx)

	var d *Dict
	g.Go(func() error {
		raw, err := decompressBytes(compressed)
		if err != nil {
			return err
		}
		dict, err := DecodeDict(raw)
		if err != nil {
			return err
		}
		d = dict
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
