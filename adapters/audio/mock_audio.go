package audio

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/repositories"
)

// MockInput is an in-memory microphone fed through Feed
type MockInput struct {
	// Err makes Open fail with a wrapped domain.ErrDeviceUnavailable
	Err error

	mu          sync.Mutex
	writer      *io.PipeWriter
	opened      int
	constraints repositories.AudioConstraints
}

var _ repositories.AudioInput = (*MockInput)(nil)

func NewMockInput() *MockInput {
	return &MockInput{}
}

// Open implements repositories.AudioInput
func (m *MockInput) Open(ctx context.Context, c repositories.AudioConstraints) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, m.Err)
	}
	r, w := io.Pipe()
	m.writer = w
	m.opened++
	m.constraints = c
	return r, nil
}

// Feed writes PCM bytes; it returns once the reader consumed them or the stream was closed
func (m *MockInput) Feed(pcm []byte) error {
	m.mu.Lock()
	w := m.writer
	m.mu.Unlock()
	if w == nil {
		return io.ErrClosedPipe
	}
	_, err := w.Write(pcm)
	return err
}

// Opened returns how many times the device was opened
func (m *MockInput) Opened() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened
}

// Constraints returns the constraints passed to the last Open
func (m *MockInput) Constraints() repositories.AudioConstraints {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.constraints
}

// MockOutput records clips. Unless Auto is set, each Play blocks until Finish is called.
type MockOutput struct {
	Auto bool

	mu      sync.Mutex
	clips   [][]byte
	waiting int
	release chan error
}

var _ repositories.AudioOutput = (*MockOutput)(nil)

func NewMockOutput() *MockOutput {
	return &MockOutput{release: make(chan error)}
}

// Play implements repositories.AudioOutput
func (m *MockOutput) Play(ctx context.Context, clip []byte) error {
	m.mu.Lock()
	m.clips = append(m.clips, append([]byte(nil), clip...))
	if m.Auto {
		m.mu.Unlock()
		return nil
	}
	m.waiting++
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.waiting--
		m.mu.Unlock()
	}()
	select {
	case err := <-m.release:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish completes the clip currently blocked in Play with err.
// It returns false when no Play is waiting.
func (m *MockOutput) Finish(err error) bool {
	select {
	case m.release <- err:
		return true
	default:
		return false
	}
}

// Waiting returns how many Play calls are blocked
func (m *MockOutput) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiting
}

// Clips returns every clip passed to Play
func (m *MockOutput) Clips() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.clips))
	copy(out, m.clips)
	return out
}
