// Package filebuffer appends undeliverable payloads to a local file.
//
// Every Append opens the file in append mode, takes an exclusive flock(2)
// on it, writes the payload with a single write, fsyncs and closes. A
// process-local mutex per path serializes goroutines, the flock serializes
// processes. Records are therefore never interleaved.
package filebuffer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	filePerm = 0o644
	dirPerm  = 0o755
)

var pathLocks sync.Map // path -> *sync.Mutex

func lockFor(path string) *sync.Mutex {
	mu, _ := pathLocks.LoadOrStore(path, new(sync.Mutex))
	return mu.(*sync.Mutex)
}

// Store is an append-only buffer file. The zero value is not usable.
type Store struct {
	path string
}

// New returns a Store for path. No I/O happens until Append.
func New(path string) *Store {
	return &Store{path: filepath.Clean(path)}
}

func (s *Store) Path() string {
	return s.path
}

// Append durably appends data as one record. It returns once the data has
// been flushed to storage or the first error occurred; it never retries.
func (s *Store) Append(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mu := lockFor(s.path)
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return fmt.Errorf("filebuffer: create dir: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePerm)
	if err != nil {
		return fmt.Errorf("filebuffer: open: %w", err)
	}

	if err = appendLocked(f, data); err != nil {
		_ = f.Close()
		return err
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("filebuffer: close: %w", err)
	}

	return nil
}

func appendLocked(f *os.File, data []byte) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("filebuffer: lock: %w", err)
	}

	defer func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}()

	n, err := f.Write(data)
	if err != nil {
		return fmt.Errorf("filebuffer: write: %w", err)
	}

	if n < len(data) {
		return fmt.Errorf("filebuffer: write: %w", io.ErrShortWrite)
	}

	if err = f.Sync(); err != nil {
		return fmt.Errorf("filebuffer: sync: %w", err)
	}

	return nil
}
