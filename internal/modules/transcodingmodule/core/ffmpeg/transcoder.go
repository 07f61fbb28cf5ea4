package ffmpeg

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/core/quality"
	tErrors "github.com/mantonx/abrstream/internal/modules/transcodingmodule/errors"
	"github.com/mantonx/abrstream/internal/modules/transcodingmodule/types"
)

// Transcoder produces one rendition file at the rendition's target scale
type Transcoder struct {
	runner       Runner
	binary       string
	audioBitrate string
	logger       hclog.Logger
}

// NewTranscoder creates a new transcoder
func NewTranscoder(runner Runner, binary, audioBitrate string, logger hclog.Logger) *Transcoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	if audioBitrate == "" {
		audioBitrate = "128k"
	}
	return &Transcoder{runner: runner, binary: binary, audioBitrate: audioBitrate, logger: logger}
}

// Transcode encodes inputPath to outputPath for spec. Passthrough specs have
// nothing to encode and are rejected; callers segment the source instead.
// A non-zero exit is a codec failure and is not retried.
func (t *Transcoder) Transcode(ctx context.Context, inputPath, outputPath string, spec types.RenditionSpec) error {
	if spec.IsPassthrough {
		return tErrors.InternalError("transcode", fmt.Errorf("passthrough rendition %q cannot be transcoded", spec.Label))
	}

	scale, err := quality.ScaleFor(spec.Label)
	if err != nil {
		return err
	}

	t.logger.Debug("transcoding rendition", "label", spec.Label, "scale", scale, "output", outputPath)

	result, err := t.runner.Run(ctx, t.binary, TranscodeArgs(inputPath, outputPath, scale, t.audioBitrate)...)
	if err != nil {
		return codecFailure("transcode", spec.Label, result, err)
	}
	return nil
}

func codecFailure(op, label string, result *ExecResult, err error) error {
	exitCode := -1
	if result != nil {
		exitCode = result.ExitCode
	}
	return tErrors.CodecError(op, fmt.Errorf("%w: %s exited with code %d: %v", tErrors.ErrCodecFailed, label, exitCode, err)).
		WithDetail("label", label).
		WithDetail("exit_code", exitCode).
		WithDetail("stderr", result.StderrTail(10))
}
