package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
)

// ErrInputTooLarge is returned when input exceeds the configured byte cap.
var ErrInputTooLarge = errors.New("input too large")

// Limits bounds how much text a load may produce.
type Limits struct {
	// MaxInputBytes caps the combined decompressed size of all files.
	// Zero means unlimited.
	MaxInputBytes int64

	// MaxLineBytes caps a single line. Zero means 1MB.
	MaxLineBytes int
}

const defaultMaxLineBytes = 1024 * 1024

// ReadFile reads one log file, transparently decompressing .gz and .zst.
func ReadFile(path string, limits Limits) (InputFile, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return InputFile{}, fmt.Errorf("opening log file %s: %w", path, err)
	}
	defer f.Close()

	content, err := ReadAll(f, filepath.Base(path), limits)
	if err != nil {
		return InputFile{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return InputFile{Name: filepath.Base(path), Content: content}, nil
}

// ReadAll reads r as log text. The name's extension selects decompression.
func ReadAll(r io.Reader, name string, limits Limits) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return "", fmt.Errorf("opening gzip stream: %w", err)
		}
		defer zr.Close()
		r = zr
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return "", fmt.Errorf("opening zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	cr := &countingReader{r: r}
	if limits.MaxInputBytes > 0 {
		cr.r = io.LimitReader(r, limits.MaxInputBytes+1)
	}

	maxLine := limits.MaxLineBytes
	if maxLine <= 0 {
		maxLine = defaultMaxLineBytes
	}

	scanner := bufio.NewScanner(cr)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)

	var sb strings.Builder
	first := true
	for scanner.Scan() {
		if limits.MaxInputBytes > 0 && cr.n > limits.MaxInputBytes {
			return "", fmt.Errorf("%w: more than %d bytes", ErrInputTooLarge, limits.MaxInputBytes)
		}
		line := scanner.Bytes()
		if !first {
			sb.WriteByte('\n')
		}
		first = false
		sb.Write(line)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return "", fmt.Errorf("%w: line longer than %d bytes", ErrInputTooLarge, maxLine)
		}
		return "", err
	}
	if limits.MaxInputBytes > 0 && cr.n > limits.MaxInputBytes {
		return "", fmt.Errorf("%w: more than %d bytes", ErrInputTooLarge, limits.MaxInputBytes)
	}
	return sb.String(), nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// LoadFiles reads all paths concurrently and merges them in chronological
// order. The combined size is checked against limits.MaxInputBytes.
func LoadFiles(ctx context.Context, paths []string, limits Limits) (string, []InputFile, error) {
	files := make([]InputFile, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := ReadFile(path, limits)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", nil, err
	}

	if limits.MaxInputBytes > 0 {
		var total int64
		for _, f := range files {
			total += int64(len(f.Content))
		}
		if total > limits.MaxInputBytes {
			return "", nil, fmt.Errorf("%w: %d bytes across %d files", ErrInputTooLarge, total, len(files))
		}
	}

	return MergeFiles(files), files, nil
}
