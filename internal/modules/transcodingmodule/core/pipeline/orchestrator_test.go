package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/abrstream/internal/metrics"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/ffmpeg"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/storage"
	tErrors "github.com/mantonx/abrstream/internal/modules/transcodingmodule/errors"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVideoID = "7d9c0c5e-1111-4c2e-9f00-000000000001"

// mediaRunner imitates ffprobe and ffmpeg by writing the files the real
// tools would produce
type mediaRunner struct {
	mu        sync.Mutex
	width     int
	height    int
	probeFail bool
	failScale string
	commands  []string
}

func (m *mediaRunner) Run(ctx context.Context, name string, args ...string) (*ffmpeg.ExecResult, error) {
	if err := ctx.Err(); err != nil {
		return &ffmpeg.ExecResult{ExitCode: -1}, err
	}

	m.mu.Lock()
	m.commands = append(m.commands, name+" "+strings.Join(args, " "))
	m.mu.Unlock()

	out := args[len(args)-1]
	switch {
	case name == "ffprobe":
		if m.probeFail {
			return &ffmpeg.ExecResult{ExitCode: 1, Stderr: "Invalid data found when processing input\n"}, fmt.Errorf("exit status 1")
		}
		body := fmt.Sprintf(`{"streams":[{"width":%d,"height":%d}]}`, m.width, m.height)
		return &ffmpeg.ExecResult{Stdout: []byte(body)}, nil

	case contains(args, "hls"):
		dir := filepath.Dir(out)
		for _, chunk := range []string{"playlist0.ts", "playlist1.ts"} {
			if err := os.WriteFile(filepath.Join(dir, chunk), []byte("ts"), 0644); err != nil {
				return nil, err
			}
		}
		return &ffmpeg.ExecResult{}, os.WriteFile(out, []byte("#EXTM3U\n#EXTINF:10,\nplaylist0.ts\n"), 0644)

	default:
		if m.failScale != "" && contains(args, "scale="+m.failScale) {
			return &ffmpeg.ExecResult{ExitCode: 1, Stderr: "Conversion failed!\n"}, fmt.Errorf("exit status 1")
		}
		return &ffmpeg.ExecResult{}, os.WriteFile(out, []byte("mp4"), 0644)
	}
}

func contains(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

type recordedRun struct {
	started   []types.VideoAsset
	completed []*types.PipelineResult
	failed    []error
}

func (r *recordedRun) RunStarted(ctx context.Context, asset types.VideoAsset, ladderMode string) error {
	r.started = append(r.started, asset)
	return nil
}

func (r *recordedRun) RunCompleted(ctx context.Context, result *types.PipelineResult) error {
	r.completed = append(r.completed, result)
	return nil
}

func (r *recordedRun) RunFailed(ctx context.Context, videoID string, cause error) error {
	r.failed = append(r.failed, cause)
	return nil
}

type harness struct {
	orchestrator *Orchestrator
	gateway      *storage.FilesystemGateway
	storeRoot    string
	workDir      string
	runner       *mediaRunner
	recorder     *recordedRun
}

func newHarness(t *testing.T, runner *mediaRunner, mutate func(*types.Config)) *harness {
	t.Helper()
	logger := hclog.NewNullLogger()

	storeRoot := t.TempDir()
	gw, err := storage.NewFilesystemGateway(storeRoot, logger)
	require.NoError(t, err)

	cfg := types.DefaultConfig()
	cfg.WorkDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	recorder := &recordedRun{}
	o := NewOrchestrator(cfg, Deps{
		Gateway:  gw,
		Prober:   ffmpeg.NewProber(runner, "ffprobe", logger),
		Encoder:  ffmpeg.NewTranscoder(runner, "ffmpeg", cfg.AudioBitrate, logger),
		Packager: ffmpeg.NewSegmenter(runner, "ffmpeg", cfg.SegmentTime, logger),
		Metrics:  metrics.New(prometheus.NewRegistry()),
		Recorder: recorder,
	}, logger)
	o.newID = func() string { return testVideoID }

	return &harness{
		orchestrator: o,
		gateway:      gw,
		storeRoot:    storeRoot,
		workDir:      cfg.WorkDir,
		runner:       runner,
		recorder:     recorder,
	}
}

func (h *harness) exists(key string) bool {
	_, err := os.Stat(filepath.Join(h.storeRoot, filepath.FromSlash(key)))
	return err == nil
}

func (h *harness) read(t *testing.T, key string) string {
	rc, err := h.gateway.Get(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func labelsOf(result *types.PipelineResult) []string {
	out := make([]string, len(result.Renditions))
	for i, r := range result.Renditions {
		out[i] = r.Spec.Label
	}
	return out
}

func TestProcess_Scenario1080p(t *testing.T) {
	h := newHarness(t, &mediaRunner{width: 1920, height: 1080}, nil)

	result, err := h.orchestrator.Process(context.Background(), "clip.MP4", strings.NewReader("source"))
	require.NoError(t, err)

	assert.Equal(t, testVideoID, result.Asset.VideoID)
	assert.Equal(t, ".MP4", result.Asset.SourceExtension)
	assert.Equal(t, 1920, result.Asset.SourceWidth)
	assert.False(t, result.ProbeFailed)
	assert.Equal(t, []string{"original", "720p", "480p", "240p"}, labelsOf(result))

	master := h.read(t, storage.MasterKey(testVideoID))
	assert.Equal(t, 4, strings.Count(master, "#EXT-X-STREAM-INF"))
	assert.True(t, strings.HasPrefix(master, "#EXTM3U\n"))
	assert.Contains(t, master, "BANDWIDTH=6000000,RESOLUTION=1920x1080\nhls/original/playlist.m3u8\n")
	assert.Less(t, strings.Index(master, "hls/720p/"), strings.Index(master, "hls/480p/"))

	assert.Equal(t, "source", h.read(t, storage.OriginalKey(testVideoID, ".MP4")))
	for _, label := range []string{"original", "720p", "480p", "240p"} {
		assert.True(t, h.exists(storage.SegmentKey(testVideoID, label, "playlist.m3u8")), label)
		assert.True(t, h.exists(storage.SegmentKey(testVideoID, label, "playlist0.ts")), label)
	}
	for _, label := range []string{"720p", "480p", "240p"} {
		assert.True(t, h.exists(storage.RenditionKey(testVideoID, label)), label)
	}
	assert.False(t, h.exists(storage.RenditionKey(testVideoID, "original")), "passthrough has no encoded file")

	_, err = os.Stat(filepath.Join(h.workDir, testVideoID))
	assert.True(t, os.IsNotExist(err), "work dir removed after run")

	require.Len(t, h.recorder.completed, 1)
	require.Len(t, h.recorder.started, 1)
	assert.Empty(t, h.recorder.failed)
}

func TestProcess_ScenarioTinySource(t *testing.T) {
	h := newHarness(t, &mediaRunner{width: 320, height: 180}, nil)

	result, err := h.orchestrator.Process(context.Background(), "tiny.mp4", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"original"}, labelsOf(result))

	master := h.read(t, storage.MasterKey(testVideoID))
	assert.Equal(t, 1, strings.Count(master, "#EXT-X-STREAM-INF"))
	assert.Contains(t, master, "BANDWIDTH=700000,RESOLUTION=320x180")

	for _, cmd := range h.runner.commands {
		assert.NotContains(t, cmd, "scale=", "nothing is transcoded")
	}
}

func TestProcess_ScenarioCodecFailure(t *testing.T) {
	h := newHarness(t, &mediaRunner{width: 1920, height: 1080, failScale: "854:480"}, nil)

	result, err := h.orchestrator.Process(context.Background(), "clip.mp4", strings.NewReader("source"))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, tErrors.ErrCodecFailed)
	assert.Equal(t, tErrors.ErrorTypeCodec, tErrors.GetType(err))
	assert.Contains(t, err.Error(), testVideoID)

	assert.False(t, h.exists(storage.MasterKey(testVideoID)), "manifest never uploaded")

	// earlier renditions stay behind
	assert.True(t, h.exists(storage.OriginalKey(testVideoID, ".mp4")))
	assert.True(t, h.exists(storage.SegmentKey(testVideoID, "original", "playlist.m3u8")))
	assert.True(t, h.exists(storage.RenditionKey(testVideoID, "720p")))
	assert.False(t, h.exists(storage.RenditionKey(testVideoID, "480p")))
	assert.False(t, h.exists(storage.SegmentKey(testVideoID, "240p", "playlist.m3u8")), "remaining ladder aborted")

	require.Len(t, h.recorder.failed, 1)
	assert.Empty(t, h.recorder.completed)
}

func TestProcess_CleanupOnFailure(t *testing.T) {
	h := newHarness(t, &mediaRunner{width: 1920, height: 1080, failScale: "854:480"}, func(c *types.Config) {
		c.CleanupOnFailure = true
	})

	_, err := h.orchestrator.Process(context.Background(), "clip.mp4", strings.NewReader("source"))
	require.Error(t, err)

	assert.False(t, h.exists(storage.OriginalKey(testVideoID, ".mp4")))
	assert.False(t, h.exists(storage.RenditionKey(testVideoID, "720p")))
	assert.False(t, h.exists(storage.SegmentKey(testVideoID, "original", "playlist0.ts")))
}

func TestProcess_ScenarioProbeFailure(t *testing.T) {
	h := newHarness(t, &mediaRunner{probeFail: true}, nil)

	result, err := h.orchestrator.Process(context.Background(), "broken.mov", strings.NewReader("x"))
	require.NoError(t, err)
	assert.True(t, result.ProbeFailed)
	assert.Equal(t, []string{"240p", "480p"}, labelsOf(result))
	assert.Zero(t, result.Asset.SourceHeight)

	master := h.read(t, storage.MasterKey(testVideoID))
	assert.Equal(t, "#EXTM3U\n"+
		"#EXT-X-STREAM-INF:BANDWIDTH=700000,RESOLUTION=426x240\n"+
		"hls/240p/playlist.m3u8\n"+
		"#EXT-X-STREAM-INF:BANDWIDTH=1500000,RESOLUTION=854x480\n"+
		"hls/480p/playlist.m3u8\n", master)
	assert.True(t, h.exists(storage.OriginalKey(testVideoID, ".mov")))
}

func TestProcess_ParallelKeepsLadderOrder(t *testing.T) {
	h := newHarness(t, &mediaRunner{width: 3840, height: 2160}, func(c *types.Config) {
		c.MaxParallelRenditions = 4
		c.LadderMode = types.LadderModeStatic
	})
	assert.Equal(t, 4, h.orchestrator.Workers())

	result, err := h.orchestrator.Process(context.Background(), "uhd.mkv", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"144p", "240p", "480p", "720p", "1080p"}, labelsOf(result))
	assert.Equal(t, types.LadderModeStatic, result.LadderMode)

	for i, entry := range result.Manifest {
		assert.Equal(t, result.Renditions[i].Spec.Label, entry.Label)
	}
}

func TestProcess_KeepWorkFiles(t *testing.T) {
	h := newHarness(t, &mediaRunner{width: 640, height: 360}, func(c *types.Config) {
		c.KeepWorkFiles = true
	})

	_, err := h.orchestrator.Process(context.Background(), "clip.mp4", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(h.workDir, testVideoID, "240p.mp4"))
	assert.NoError(t, err)
}

func TestProcess_ReportInvariants(t *testing.T) {
	h := newHarness(t, &mediaRunner{width: 1280, height: 720}, nil)

	result, err := h.orchestrator.Process(context.Background(), "clip.mp4", strings.NewReader("x"))
	require.NoError(t, err)

	var sum types.ProcessingTimings
	for _, r := range result.Renditions {
		assert.Equal(t, r.Timings.Transcode+r.Timings.Segment+r.Timings.Upload, r.Timings.Total())
		sum = sum.Add(r.Timings)
	}
	assert.Equal(t, sum, SumTimings(result.Renditions))

	assert.Contains(t, result.Report, "=== Video Processing Report ===")
	assert.Contains(t, result.Report, "Video ID: "+testVideoID)
	assert.Contains(t, result.Report, "Total Processing Time: "+FormatDuration(sum.Total()))
	assert.Zero(t, result.Renditions[0].Timings.Transcode, "passthrough is not transcoded")
}

type activityProbe struct {
	recordedRun
	orchestrator *Orchestrator
	seenActive   bool
}

func (a *activityProbe) RunStarted(ctx context.Context, asset types.VideoAsset, ladderMode string) error {
	a.seenActive = a.orchestrator.IsActive(asset.VideoID)
	return nil
}

func TestProcess_TracksActiveRun(t *testing.T) {
	h := newHarness(t, &mediaRunner{width: 640, height: 360}, nil)
	probe := &activityProbe{orchestrator: h.orchestrator}
	h.orchestrator.deps.Recorder = probe

	assert.False(t, h.orchestrator.IsActive(testVideoID))
	_, err := h.orchestrator.Process(context.Background(), "clip.mp4", strings.NewReader("x"))
	require.NoError(t, err)

	assert.True(t, probe.seenActive)
	assert.False(t, h.orchestrator.IsActive(testVideoID))
}

// failingGateway rejects puts of one key and passes everything else through
type failingGateway struct {
	storage.Gateway
	failKey string
}

func (g *failingGateway) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if key == g.failKey {
		return tErrors.StorageError("put_object", errors.New("connection reset by peer"))
	}
	return g.Gateway.Put(ctx, key, r, size, contentType)
}

// fixedProber returns a canned probe result
type fixedProber struct {
	err error
}

func (p fixedProber) Probe(ctx context.Context, path string) (ffmpeg.Dimensions, error) {
	return ffmpeg.Dimensions{}, p.err
}

func TestProcess_OriginalKeepsUploadExtension(t *testing.T) {
	h := newHarness(t, &mediaRunner{width: 640, height: 360}, nil)

	result, err := h.orchestrator.Process(context.Background(), "Holiday.MOV", strings.NewReader("home video"))
	require.NoError(t, err)

	assert.Equal(t, ".MOV", result.Asset.SourceExtension)
	assert.Equal(t, testVideoID+"/original.MOV", storage.OriginalKey(testVideoID, result.Asset.SourceExtension))
	assert.Equal(t, "home video", h.read(t, testVideoID+"/original.MOV"))
	assert.False(t, h.exists(testVideoID+"/original.mov"))
}

func TestProcess_StorageFailureMidLadder(t *testing.T) {
	h := newHarness(t, &mediaRunner{width: 1920, height: 1080}, nil)
	h.orchestrator.deps.Gateway = &failingGateway{Gateway: h.gateway, failKey: storage.RenditionKey(testVideoID, "480p")}

	result, err := h.orchestrator.Process(context.Background(), "clip.mp4", strings.NewReader("source"))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, tErrors.ErrorTypeStorage, tErrors.GetType(err))
	assert.Equal(t, "put_object", tErrors.GetOperation(err))
	assert.Contains(t, err.Error(), testVideoID)

	assert.False(t, h.exists(storage.MasterKey(testVideoID)), "manifest never uploaded")
	assert.True(t, h.exists(storage.RenditionKey(testVideoID, "720p")))
	assert.False(t, h.exists(storage.SegmentKey(testVideoID, "240p", "playlist.m3u8")), "remaining ladder aborted")

	require.Len(t, h.recorder.failed, 1)
	assert.Empty(t, h.recorder.completed)
}

func TestProcess_CodecFailureUnderParallelFanOut(t *testing.T) {
	h := newHarness(t, &mediaRunner{width: 1920, height: 1080, failScale: "854:480"}, func(c *types.Config) {
		c.MaxParallelRenditions = 4
	})
	require.Equal(t, 4, h.orchestrator.Workers())

	result, err := h.orchestrator.Process(context.Background(), "clip.mp4", strings.NewReader("source"))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, tErrors.ErrCodecFailed)
	assert.Equal(t, tErrors.ErrorTypeCodec, tErrors.GetType(err))

	assert.False(t, h.exists(storage.MasterKey(testVideoID)), "manifest never uploaded")
	assert.False(t, h.exists(storage.RenditionKey(testVideoID, "480p")))

	require.Len(t, h.recorder.failed, 1)
	assert.Empty(t, h.recorder.completed)
}

func TestProcess_WorkDirFailureIsRecorded(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	h := newHarness(t, &mediaRunner{width: 640, height: 360}, func(c *types.Config) {
		c.WorkDir = blocker
	})

	_, err := h.orchestrator.Process(context.Background(), "clip.mp4", strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, tErrors.ErrorTypeIO, tErrors.GetType(err))
	assert.Equal(t, "create_work_dir", tErrors.GetOperation(err))

	require.Len(t, h.recorder.failed, 1)
	assert.Equal(t, err, h.recorder.failed[0])
	assert.Empty(t, h.recorder.started)
	assert.False(t, h.orchestrator.IsActive(testVideoID))
}

func TestProcess_RejectsUnusableUpload(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		src      io.Reader
	}{
		{"no body", "clip.mp4", nil},
		{"extension with spaces", "clip.m p4", strings.NewReader("x")},
		{"extension with query", "clip.mp4?x=1", strings.NewReader("x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &mediaRunner{width: 640, height: 360}, nil)

			_, err := h.orchestrator.Process(context.Background(), tt.filename, tt.src)
			require.Error(t, err)
			assert.ErrorIs(t, err, tErrors.ErrInvalidInput)
			assert.Equal(t, tErrors.ErrorTypeValidation, tErrors.GetType(err))
			assert.Empty(t, h.runner.commands, "nothing is probed or encoded")
			require.Len(t, h.recorder.failed, 1)
		})
	}
}

func TestProcess_FatalProbeErrorAborts(t *testing.T) {
	h := newHarness(t, &mediaRunner{width: 640, height: 360}, nil)
	h.orchestrator.deps.Prober = fixedProber{err: tErrors.IOError("open_source", errors.New("permission denied"))}

	_, err := h.orchestrator.Process(context.Background(), "clip.mp4", strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, tErrors.ErrorTypeIO, tErrors.GetType(err))
	assert.False(t, h.exists(storage.MasterKey(testVideoID)))
	assert.Empty(t, h.recorder.started)
}

func TestProcess_ProbeFailureFallsBack(t *testing.T) {
	h := newHarness(t, &mediaRunner{width: 640, height: 360}, nil)
	h.orchestrator.deps.Prober = fixedProber{err: tErrors.ProbeError("probe", tErrors.ErrProbeFailed)}

	result, err := h.orchestrator.Process(context.Background(), "clip.mp4", strings.NewReader("x"))
	require.NoError(t, err)
	assert.True(t, result.ProbeFailed)
	assert.Equal(t, []string{"240p", "480p"}, labelsOf(result))
}
