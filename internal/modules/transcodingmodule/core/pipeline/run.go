package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/storage"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/types"
)

// Recorder persists job records for runs. Failures to record never fail a
// run; the orchestrator only logs them.
type Recorder interface {
	RunStarted(ctx context.Context, asset types.VideoAsset, ladderMode string) error
	RunCompleted(ctx context.Context, result *types.PipelineResult) error
	RunFailed(ctx context.Context, videoID string, cause error) error
}

// Run is the state of one upload from the moment its ID is assigned until
// the manifest is written. It is never shared between uploads.
type Run struct {
	Asset      types.VideoAsset
	WorkDir    string
	SourcePath string
	Started    time.Time

	ledger storage.Ledger

	mu         sync.Mutex
	renditions []types.RenditionResult
}

func newRun(asset types.VideoAsset, workDir, sourcePath string) *Run {
	return &Run{
		Asset:      asset,
		WorkDir:    workDir,
		SourcePath: sourcePath,
		Started:    time.Now(),
	}
}

// slot stores a finished rendition at its ladder position
func (r *Run) slot(i int, result types.RenditionResult) {
	r.mu.Lock()
	r.renditions[i] = result
	r.mu.Unlock()
}

// Keys returns every object key this run has written so far
func (r *Run) Keys() []string {
	return r.ledger.Keys()
}
