package repositories

import (
	"context"
	"io"
)

// AudioConstraints describes how the microphone should be opened
type AudioConstraints struct {
	SampleRate       int
	Channels         int
	EchoCancellation bool
	NoiseSuppression bool
	Device           string // empty selects the platform default
}

// AudioInput opens a microphone as a stream of raw PCM bytes.
// Closing the stream releases the device.
type AudioInput interface {
	Open(ctx context.Context, constraints AudioConstraints) (io.ReadCloser, error)
}

// AudioOutput plays one encoded audio clip. Play blocks until the clip has
// finished or ctx is cancelled.
type AudioOutput interface {
	Play(ctx context.Context, clip []byte) error
}
