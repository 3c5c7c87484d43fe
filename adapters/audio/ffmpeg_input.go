package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/repositories"
)

const (
	defaultProbeTimeout = 3 * time.Second
	probeBytes          = 320 // 10ms of 16kHz mono s16le
)

// FFmpegInputConfig configures the ffmpeg microphone adapter
type FFmpegInputConfig struct {
	// EchoCancelSource is a capture source with echo cancellation applied,
	// e.g. a PulseAudio module-echo-cancel source. Used when echo
	// cancellation is requested and no explicit device is given.
	EchoCancelSource string
	ProbeTimeout     time.Duration
}

// FFmpegInput captures the microphone by running ffmpeg and reading s16le PCM from its stdout
type FFmpegInput struct {
	config FFmpegInputConfig
	goos   string
	clock  clock.Clock
	logger *zap.Logger
}

var _ repositories.AudioInput = (*FFmpegInput)(nil)

// NewFFmpegInput creates a microphone adapter for the running platform
func NewFFmpegInput(config FFmpegInputConfig, clk clock.Clock, logger *zap.Logger) *FFmpegInput {
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = defaultProbeTimeout
	}
	return &FFmpegInput{config: config, goos: runtime.GOOS, clock: clk, logger: logger}
}

// Open starts ffmpeg and waits for the first samples so that a denied or
// missing device is reported here instead of on the first read.
func (f *FFmpegInput) Open(ctx context.Context, c repositories.AudioConstraints) (io.ReadCloser, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found in PATH: %v", domain.ErrDeviceUnavailable, err)
	}

	args, err := f.args(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
	}

	cmd := exec.Command("ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open ffmpeg stdout: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start ffmpeg: %v", domain.ErrDeviceUnavailable, err)
	}

	stream := &micStream{cmd: cmd}
	first, err := probe(ctx, f.clock, stdout, f.config.ProbeTimeout)
	if err != nil {
		stream.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
	}
	stream.reader = io.MultiReader(bytes.NewReader(first), stdout)

	f.logger.Info("Microphone opened",
		zap.Int("sampleRate", c.SampleRate),
		zap.Bool("echoCancellation", c.EchoCancellation),
		zap.Bool("noiseSuppression", c.NoiseSuppression))

	return stream, nil
}

func (f *FFmpegInput) args(c repositories.AudioConstraints) ([]string, error) {
	device := c.Device
	if device == "" && c.EchoCancellation && f.config.EchoCancelSource != "" {
		device = f.config.EchoCancelSource
	}

	var input []string
	switch f.goos {
	case "darwin":
		if device == "" {
			device = ":0"
		}
		input = []string{"-f", "avfoundation", "-i", device}
	case "linux":
		if device == "" {
			device = "default"
		}
		input = []string{"-f", "pulse", "-i", device}
	default:
		return nil, fmt.Errorf("microphone capture is not implemented for %s; supported platforms: darwin, linux", f.goos)
	}

	channels := c.Channels
	if channels <= 0 {
		channels = 1
	}

	args := append([]string{"-hide_banner", "-loglevel", "error"}, input...)
	if c.NoiseSuppression {
		args = append(args, "-af", "afftdn")
	}
	return append(args,
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(c.SampleRate),
		"-f", "s16le", "-",
	), nil
}

func probe(ctx context.Context, clk clock.Clock, r io.Reader, timeout time.Duration) ([]byte, error) {
	type result struct {
		n   int
		err error
	}
	buf := make([]byte, probeBytes)
	done := make(chan result, 1)
	go func() {
		n, err := io.ReadAtLeast(r, buf, 1)
		done <- result{n, err}
	}()

	timer := clk.Timer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, io.EOF) {
				return nil, errors.New("microphone produced no audio")
			}
			return nil, res.err
		}
		return buf[:res.n], nil
	case <-timer.C:
		return nil, fmt.Errorf("no audio from microphone within %s", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type micStream struct {
	cmd    *exec.Cmd
	reader io.Reader
	once   sync.Once
}

func (m *micStream) Read(p []byte) (int, error) {
	if m.reader == nil {
		return 0, io.EOF
	}
	return m.reader.Read(p)
}

func (m *micStream) Close() error {
	m.once.Do(func() {
		if m.cmd != nil && m.cmd.Process != nil {
			_ = m.cmd.Process.Kill()
			_ = m.cmd.Wait()
		}
	})
	return nil
}
