package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/repositories"
)

const (
	DefaultSampleRate    = 16000
	DefaultChunkInterval = 100 * time.Millisecond

	readBufferSize = 3200 // 100ms of 16kHz mono s16le
)

// Config controls how the microphone is opened and how often chunks are emitted
type Config struct {
	SampleRate       int
	ChunkInterval    time.Duration
	EchoCancellation bool
	NoiseSuppression bool
	Device           string
}

// DefaultConfig returns 16kHz mono with echo cancellation and noise suppression
func DefaultConfig() Config {
	return Config{
		SampleRate:       DefaultSampleRate,
		ChunkInterval:    DefaultChunkInterval,
		EchoCancellation: true,
		NoiseSuppression: true,
	}
}

// Recorder owns the microphone and turns it into base64 chunks while recording
type Recorder struct {
	input  repositories.AudioInput
	config Config
	clock  clock.Clock
	logger *zap.Logger

	mu        sync.Mutex
	stream    io.ReadCloser
	stop      chan struct{}
	recording bool
	paused    bool
	pending   []byte
	onData    func(string)

	// held while a chunk is handed to the subscriber
	deliver sync.Mutex
}

var _ repositories.AudioCapture = (*Recorder)(nil)

// NewRecorder creates an uninitialized recorder
func NewRecorder(input repositories.AudioInput, config Config, clk clock.Clock, logger *zap.Logger) *Recorder {
	if config.SampleRate <= 0 {
		config.SampleRate = DefaultSampleRate
	}
	if config.ChunkInterval <= 0 {
		config.ChunkInterval = DefaultChunkInterval
	}
	return &Recorder{input: input, config: config, clock: clk, logger: logger}
}

// Initialize acquires the microphone. Failures wrap domain.ErrDeviceUnavailable.
func (r *Recorder) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		return nil
	}

	stream, err := r.input.Open(ctx, repositories.AudioConstraints{
		SampleRate:       r.config.SampleRate,
		Channels:         1,
		EchoCancellation: r.config.EchoCancellation,
		NoiseSuppression: r.config.NoiseSuppression,
		Device:           r.config.Device,
	})
	if err != nil {
		r.logger.Error("Failed to initialize audio recorder", zap.Error(err))
		if !errors.Is(err, domain.ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
		}
		return err
	}

	r.stream = stream
	r.stop = make(chan struct{})
	ticker := r.clock.Ticker(r.config.ChunkInterval)

	go r.readLoop(stream)
	go r.tickLoop(ticker, r.stop)

	r.logger.Info("Audio recorder initialized",
		zap.Int("sampleRate", r.config.SampleRate),
		zap.Duration("chunkInterval", r.config.ChunkInterval))
	return nil
}

// Start begins recording. Starting a paused recording resumes it; starting
// an active one is a no-op.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream == nil {
		return domain.ErrNotInitialized
	}
	r.paused = false
	if r.recording {
		return nil
	}
	r.recording = true
	r.pending = nil
	r.logger.Debug("Recording started")
	return nil
}

// Stop ends recording and emits whatever was captured since the last chunk.
// It is a no-op when not recording.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	r.recording = false
	r.paused = false
	r.mu.Unlock()

	r.flush()
	r.logger.Debug("Recording stopped")
}

// Pause suspends a recording without ending it
func (r *Recorder) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		r.paused = true
	}
}

// Resume continues a paused recording
func (r *Recorder) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		r.paused = false
	}
}

// IsRecording reports whether audio is currently being captured
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording && !r.paused
}

// IsInitialized reports whether the microphone is held
func (r *Recorder) IsInitialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}

// OnData registers the chunk subscriber, replacing any previous one
func (r *Recorder) OnData(fn func(chunk string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onData = fn
}

// Cleanup releases the microphone. Pending audio is dropped and no chunk is
// delivered after it returns. Safe to call repeatedly and after a failed Initialize.
func (r *Recorder) Cleanup() {
	r.mu.Lock()
	stream := r.stream
	stop := r.stop
	r.stream = nil
	r.stop = nil
	r.recording = false
	r.paused = false
	r.pending = nil
	r.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if stream != nil {
		stream.Close()
		r.logger.Info("Audio recorder released")
	}

	// wait out a delivery that was already in flight
	r.deliver.Lock()
	r.deliver.Unlock()
}

func (r *Recorder) readLoop(stream io.ReadCloser) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			r.mu.Lock()
			if r.stream == stream && r.recording && !r.paused {
				r.pending = append(r.pending, buf[:n]...)
			}
			r.mu.Unlock()
		}
		if err != nil {
			r.mu.Lock()
			released := r.stream != stream
			r.mu.Unlock()
			if !released && !errors.Is(err, io.EOF) {
				r.logger.Error("Microphone read failed", zap.Error(err))
			} else if !released {
				r.logger.Warn("Microphone stream ended")
			}
			return
		}
	}
}

func (r *Recorder) tickLoop(ticker *clock.Ticker, stop chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.flush()
		}
	}
}

func (r *Recorder) flush() {
	r.deliver.Lock()
	defer r.deliver.Unlock()

	r.mu.Lock()
	if len(r.pending) == 0 || r.stream == nil {
		r.mu.Unlock()
		return
	}
	chunk := base64.StdEncoding.EncodeToString(r.pending)
	r.pending = nil
	onData := r.onData
	r.mu.Unlock()

	if onData != nil {
		onData(chunk)
	}
}
