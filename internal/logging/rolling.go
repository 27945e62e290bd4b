package logging

import (
	"fmt"
	"os"
	"sync"
)

// rollingFile appends to app_N.log and moves to app_N+1.log once the
// current file reaches maxSize.
type rollingFile struct {
	mu      sync.Mutex
	dir     string
	maxSize int64
	index   int
	size    int64
	file    *os.File
}

func newRollingFile(dir string, maxSize int64) (*rollingFile, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("max file size must be positive, got %d", maxSize)
	}
	r := &rollingFile{dir: dir, maxSize: maxSize}

	// First file that is missing or still below the limit.
	n := 1
	for {
		info, err := os.Stat(UnifiedFileName(dir, n))
		if os.IsNotExist(err) || (err == nil && info.Size() < maxSize) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stat log file: %w", err)
		}
		n++
	}
	if err := r.open(n); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rollingFile) open(n int) error {
	f, err := openAppend(UnifiedFileName(r.dir, n))
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	r.file = f
	r.index = n
	r.size = info.Size()
	return nil
}

func (r *rollingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return 0, os.ErrClosed
	}
	if r.size > 0 && r.size+int64(len(p)) > r.maxSize {
		if err := r.file.Close(); err != nil {
			return 0, err
		}
		r.file = nil
		if err := r.open(r.index + 1); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *rollingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
