// Package storage is the object store boundary of the pipeline. Uploads,
// encoded renditions, HLS chunks and the master manifest are written under
// a fixed key scheme (see keys.go) through a Gateway, backed either by a
// local directory or by an S3-compatible bucket such as MinIO.
package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	tErrors "github.com/mantonx/abrstream/internal/modules/transcodingmodule/errors"
)

// Gateway stores and retrieves pipeline artifacts by key
type Gateway interface {
	// Put writes size bytes from r under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Get opens key for reading. Missing keys return an error wrapping
	// ErrObjectNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// PutFile uploads a local file under key
func PutFile(ctx context.Context, gw Gateway, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return tErrors.IOError("open_upload", err).WithDetail("path", localPath)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return tErrors.IOError("stat_upload", err).WithDetail("path", localPath)
	}

	return gw.Put(ctx, key, f, info.Size(), ContentTypeFor(localPath))
}

// PutDir uploads every regular file in localDir, in name order, under
// prefix/{name}. It returns the keys written.
func PutDir(ctx context.Context, gw Gateway, prefix, localDir string) ([]string, error) {
	entries, err := os.ReadDir(localDir)
	if err != nil {
		return nil, tErrors.IOError("read_segment_dir", err).WithDetail("dir", localDir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var keys []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		key := prefix + "/" + entry.Name()
		if err := PutFile(ctx, gw, key, filepath.Join(localDir, entry.Name())); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Ledger records the keys one run has written so a failed run can remove
// them. It is owned by a single run and safe for concurrent use by that
// run's rendition workers.
type Ledger struct {
	mu   sync.Mutex
	keys []string
}

// Record adds keys to the ledger
func (l *Ledger) Record(keys ...string) {
	l.mu.Lock()
	l.keys = append(l.keys, keys...)
	l.mu.Unlock()
}

// Keys returns a copy of the recorded keys in write order
func (l *Ledger) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.keys...)
}

// Rollback deletes every recorded key, newest first, and returns the
// failures keyed by object key. It keeps going after a failed delete.
func (l *Ledger) Rollback(ctx context.Context, gw Gateway) map[string]error {
	keys := l.Keys()
	failed := make(map[string]error)
	for i := len(keys) - 1; i >= 0; i-- {
		if err := gw.Delete(ctx, keys[i]); err != nil {
			failed[keys[i]] = err
		}
	}
	return failed
}
