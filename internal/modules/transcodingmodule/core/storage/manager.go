package storage

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// Backend names
const (
	BackendFilesystem = "filesystem"
	BackendS3         = "s3"
)

// Options selects and configures a backend
type Options struct {
	Backend string
	RootDir string
	S3      S3Options
}

// NewGateway creates the gateway for the configured backend
func NewGateway(ctx context.Context, opts Options, logger hclog.Logger) (Gateway, error) {
	switch opts.Backend {
	case BackendFilesystem, "":
		logger.Info("using filesystem storage", "root", opts.RootDir)
		return NewFilesystemGateway(opts.RootDir, logger.Named("fs"))
	case BackendS3:
		logger.Info("using s3 storage", "endpoint", opts.S3.Endpoint, "bucket", opts.S3.Bucket)
		return NewS3Gateway(ctx, opts.S3, logger.Named("s3"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
