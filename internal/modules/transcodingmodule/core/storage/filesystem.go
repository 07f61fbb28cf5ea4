package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	tErrors "github.com/mantonx/abrstream/internal/modules/transcodingmodule/errors"
)

// FilesystemGateway keeps objects as files below a root directory, with the
// key used as the relative path
type FilesystemGateway struct {
	root   string
	logger hclog.Logger
}

// NewFilesystemGateway creates the root directory if needed
func NewFilesystemGateway(root string, logger hclog.Logger) (*FilesystemGateway, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &FilesystemGateway{root: root, logger: logger}, nil
}

func (g *FilesystemGateway) path(op, key string) (string, error) {
	if !validKey(key) {
		return "", tErrors.StorageError(op, fmt.Errorf("%w: invalid key %q", tErrors.ErrInvalidInput, key))
	}
	return filepath.Join(g.root, filepath.FromSlash(key)), nil
}

// Put implements Gateway. Data is written to a temporary file and renamed
// into place so readers never observe a partial object.
func (g *FilesystemGateway) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	target, err := g.path("put_object", key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return tErrors.StorageError("put_object", err).WithDetail("key", key)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return tErrors.StorageError("put_object", err).WithDetail("key", key)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".put-*")
	if err != nil {
		return tErrors.StorageError("put_object", err).WithDetail("key", key)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return tErrors.StorageError("put_object", err).WithDetail("key", key)
	}
	if size >= 0 && written != size {
		return tErrors.StorageError("put_object", fmt.Errorf("short write: %d of %d bytes", written, size)).
			WithDetail("key", key)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return tErrors.StorageError("put_object", err).WithDetail("key", key)
	}

	g.logger.Trace("stored object", "key", key, "size", written, "content_type", contentType)
	return nil
}

// Get implements Gateway
func (g *FilesystemGateway) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	target, err := g.path("get_object", key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, tErrors.StorageError("get_object", tErrors.ErrObjectNotFound).WithDetail("key", key)
		}
		return nil, tErrors.StorageError("get_object", err).WithDetail("key", key)
	}

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, tErrors.StorageError("get_object", tErrors.ErrObjectNotFound).WithDetail("key", key)
	}
	return f, nil
}

// Delete implements Gateway
func (g *FilesystemGateway) Delete(ctx context.Context, key string) error {
	target, err := g.path("delete_object", key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return tErrors.StorageError("delete_object", err).WithDetail("key", key)
	}
	return nil
}
