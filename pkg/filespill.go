// Package pkg holds the small storage helpers shared by assay commands.
package pkg

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// SpillDir is the default directory holding spill files when none is given.
const SpillDir = "assay-spill"

// FileSpill is an append-only, disk-backed sequence of items of type T.
// Outcomes of long synthesis sessions are spilled here instead of being
// kept in memory until the report is written.
type FileSpill[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	AppendBatch(items []T) error
	Get(index uint64) (T, error)
	Range(f func(index uint64, item T) error) error
	Close() error
	Remove() error
}

type fileSpill[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
	closed  bool
}

var errSpillClosed = errors.New("filespill closed")

// Append implements FileSpill.
func (f *fileSpill[T]) Append(item T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return errSpillClosed
	}

	if err := f.encoder.Encode(item); err != nil {
		slog.Error("failed to encode item", "path", f.path, "index", f.length, "error", err)
		return fmt.Errorf("failed to encode item: %w", err)
	}

	f.length++
	slog.Debug("appended item", "path", f.path, "index", f.length-1)

	return nil
}

// Path implements FileSpill.
func (f *fileSpill[T]) Path() string {
	return f.path
}

// AppendBatch implements FileSpill.
func (f *fileSpill[T]) AppendBatch(items []T) error {
	for _, item := range items {
		if err := f.Append(item); err != nil {
			return err
		}
	}

	return nil
}

// Close implements FileSpill. The file stays readable through Get and Range.
func (f *fileSpill[T]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}

	f.closed = true

	if err := f.file.Close(); err != nil {
		slog.Error("failed to close file", "path", f.path, "error", err)
		return fmt.Errorf("failed to close spill: %w", err)
	}

	slog.Debug("closed filespill", "path", f.path, "length", f.length)

	return nil
}

// Remove closes the spill and deletes its file.
func (f *fileSpill[T]) Remove() error {
	if err := f.Close(); err != nil {
		return err
	}

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to remove spill", "path", f.path, "error", err)
		return fmt.Errorf("failed to remove spill: %w", err)
	}

	return nil
}

// Get implements FileSpill.
func (f *fileSpill[T]) Get(index uint64) (T, error) {
	var found T

	err := f.rangeN(index+1, func(i uint64, item T) error {
		if i == index {
			found = item
			return io.EOF
		}

		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		var zero T
		return zero, err
	}

	if err == nil {
		var zero T

		slog.Warn("get index out of bounds", "path", f.path, "index", index)

		return zero, fmt.Errorf("index %d out of bounds (length %d)", index, f.Len())
	}

	return found, nil
}

// Len implements FileSpill.
func (f *fileSpill[T]) Len() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.length
}

// Range implements FileSpill.
func (f *fileSpill[T]) Range(fn func(index uint64, item T) error) error {
	return f.rangeN(0, fn)
}

// rangeN decodes at most limit items, or all of them when limit is zero.
func (f *fileSpill[T]) rangeN(limit uint64, fn func(index uint64, item T) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := f.length
	if limit > 0 && limit < count {
		count = limit
	}

	file, err := os.Open(f.path)
	if err != nil {
		slog.Error("failed to open file for range", "path", f.path, "error", err)
		return fmt.Errorf("failed to open file: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close file", "path", f.path, "error", err)
		}
	}()

	decoder := gob.NewDecoder(file)

	for i := range count {
		// gob leaves fields absent from the stream untouched, so every item
		// needs a fresh value.
		var item T
		if err := decoder.Decode(&item); err != nil {
			slog.Error("failed to decode item during range", "path", f.path, "index", i, "error", err)
			return fmt.Errorf("failed to decode item at index %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}

	slog.Debug("range completed", "path", f.path, "count", count)

	return nil
}

// NewFileSpill creates a spill file under dir, or under the system temp
// directory when dir is empty.
func NewFileSpill[T any](dir string) (FileSpill[T], error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), SpillDir)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		slog.Error("failed to create spill directory", "path", dir, "error", err)
		return nil, fmt.Errorf("failed to create spill directory: %w", err)
	}

	file, err := os.CreateTemp(dir, "spill-*.gob")
	if err != nil {
		slog.Error("failed to create spill file", "path", dir, "error", err)
		return nil, fmt.Errorf("failed to create spill file: %w", err)
	}

	slog.Debug("created filespill", "path", file.Name())

	return &fileSpill[T]{
		path:    file.Name(),
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}
