package catalog

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"yqhp/benchgrid/pkg/types"
)

const (
	// ioChunkSize matches the 4KB page size the benchmark reads and writes.
	ioChunkSize = 4 * 1024

	// defaultScratchSize is the size of the scratch file created when none
	// exists at the configured path.
	defaultScratchSize = 64 * 1024 * 1024
)

// newFileIORunner returns the fileIO task body. Each operation seeks to a
// random page-aligned offset, reads a 4KB chunk, reverses it and writes it
// back in place. path names the scratch file; empty selects a default under
// the temp directory. A missing scratch file is created and filled once.
func newFileIORunner(path string) Runner {
	return func(params map[string]float64) error {
		numRW := intParam(params, "num_rw", types.TaskFileIO, 1000000)

		if path == "" {
			path = filepath.Join(os.TempDir(), "benchgrid_io.dat")
		}

		size, err := ensureScratchFile(path)
		if err != nil {
			return err
		}
		if size < ioChunkSize {
			return fmt.Errorf("scratch file %s is %d bytes, need at least %d", path, size, ioChunkSize)
		}

		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return fmt.Errorf("open scratch file: %w", err)
		}
		defer f.Close()

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		buf := make([]byte, ioChunkSize)
		maxOffset := size - ioChunkSize

		for i := 0; i < numRW; i++ {
			offset := rng.Int63n(maxOffset + 1)
			if _, err := f.ReadAt(buf, offset); err != nil {
				return fmt.Errorf("read at %d: %w", offset, err)
			}
			reverseBytes(buf)
			if _, err := f.WriteAt(buf, offset); err != nil {
				return fmt.Errorf("write at %d: %w", offset, err)
			}
		}
		return nil
	}
}

// ensureScratchFile returns the size of the scratch file at path, creating
// and filling it with random data when it does not exist yet.
func ensureScratchFile(path string) (int64, error) {
	if info, err := os.Stat(path); err == nil {
		return info.Size(), nil
	} else if !os.IsNotExist(err) {
		return 0, fmt.Errorf("stat scratch file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create scratch dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create scratch file: %w", err)
	}
	defer f.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	chunk := make([]byte, 1024*1024)
	var written int64
	for written < defaultScratchSize {
		rng.Read(chunk)
		n, err := f.Write(chunk)
		if err != nil {
			return 0, fmt.Errorf("fill scratch file: %w", err)
		}
		written += int64(n)
	}
	return written, nil
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
