package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"go.uber.org/zap"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/repositories"
)

// FFplayOutput plays encoded clips (wav from the voice service) through ffplay
type FFplayOutput struct {
	logger *zap.Logger
}

var _ repositories.AudioOutput = (*FFplayOutput)(nil)

// NewFFplayOutput checks that ffplay is installed
func NewFFplayOutput(logger *zap.Logger) (*FFplayOutput, error) {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, errors.New("ffplay is required for playback (install ffmpeg/ffplay and ensure it is in PATH)")
	}
	return &FFplayOutput{logger: logger}, nil
}

// Play runs one ffplay process per clip; cancelling ctx kills it
func (p *FFplayOutput) Play(ctx context.Context, clip []byte) error {
	cmd := exec.CommandContext(ctx, "ffplay", playbackArgs()...)
	cmd.Stdin = bytes.NewReader(clip)
	cmd.Stdout = io.Discard
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	p.logger.Debug("Starting playback", zap.Int("bytes", len(clip)))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffplay: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}

func playbackArgs() []string {
	return []string{
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-i", "pipe:0",
	}
}
