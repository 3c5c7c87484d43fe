package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/adapters/audio"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain"
)

const waitFor = 2 * time.Second

type chunkSink struct {
	mu     sync.Mutex
	chunks []string
}

func (s *chunkSink) add(chunk string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunk)
}

func (s *chunkSink) get() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.chunks...)
}

func (r *Recorder) pendingLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func setupRecorder(t *testing.T) (*Recorder, *audio.MockInput, *clock.Mock, *chunkSink) {
	t.Helper()
	input := audio.NewMockInput()
	mock := clock.NewMock()
	recorder := NewRecorder(input, DefaultConfig(), mock, zaptest.NewLogger(t))
	t.Cleanup(recorder.Cleanup)

	sink := &chunkSink{}
	recorder.OnData(sink.add)
	require.NoError(t, recorder.Initialize(context.Background()))
	return recorder, input, mock, sink
}

func feed(t *testing.T, r *Recorder, input *audio.MockInput, pcm []byte) {
	t.Helper()
	before := r.pendingLen()
	require.NoError(t, input.Feed(pcm))
	require.Eventually(t, func() bool { return r.pendingLen() >= before+len(pcm) }, waitFor, time.Millisecond)
}

func TestRecorder_InitializeFailure(t *testing.T) {
	input := audio.NewMockInput()
	input.Err = errors.New("permission denied")
	recorder := NewRecorder(input, DefaultConfig(), clock.NewMock(), zaptest.NewLogger(t))

	err := recorder.Initialize(context.Background())
	assert.ErrorIs(t, err, domain.ErrDeviceUnavailable)
	assert.False(t, recorder.IsInitialized())

	assert.ErrorIs(t, recorder.Start(), domain.ErrNotInitialized)
	assert.False(t, recorder.IsRecording())

	assert.NotPanics(t, recorder.Cleanup, "cleanup after failed initialize")
	assert.NotPanics(t, recorder.Cleanup, "cleanup is idempotent")
}

func TestRecorder_Constraints(t *testing.T) {
	_, input, _, _ := setupRecorder(t)

	c := input.Constraints()
	assert.Equal(t, 16000, c.SampleRate)
	assert.Equal(t, 1, c.Channels)
	assert.True(t, c.EchoCancellation)
	assert.True(t, c.NoiseSuppression)
}

func TestRecorder_EmitsChunksEveryInterval(t *testing.T) {
	recorder, input, mock, sink := setupRecorder(t)

	require.NoError(t, recorder.Start())
	assert.True(t, recorder.IsRecording())

	feed(t, recorder, input, []byte{1, 2, 3, 4})
	mock.Add(100 * time.Millisecond)
	require.Eventually(t, func() bool { return len(sink.get()) == 1 }, waitFor, time.Millisecond)

	feed(t, recorder, input, []byte{5, 6})
	mock.Add(100 * time.Millisecond)
	require.Eventually(t, func() bool { return len(sink.get()) == 2 }, waitFor, time.Millisecond)

	chunks := sink.get()
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4}), chunks[0])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{5, 6}), chunks[1])
}

func TestRecorder_IgnoresAudioWhileIdle(t *testing.T) {
	recorder, input, mock, sink := setupRecorder(t)

	require.NoError(t, input.Feed([]byte{1, 2, 3}))
	mock.Add(time.Second)
	time.Sleep(10 * time.Millisecond)

	assert.Empty(t, sink.get())
	assert.Equal(t, 0, recorder.pendingLen())
}

func TestRecorder_StopFlushesFinalChunk(t *testing.T) {
	recorder, input, _, sink := setupRecorder(t)

	require.NoError(t, recorder.Start())
	feed(t, recorder, input, []byte{9, 9})

	recorder.Stop()
	assert.False(t, recorder.IsRecording())
	assert.Equal(t, []string{base64.StdEncoding.EncodeToString([]byte{9, 9})}, sink.get())

	recorder.Stop()
	assert.Len(t, sink.get(), 1, "second stop is a no-op")
}

func TestRecorder_StartIsIdempotent(t *testing.T) {
	recorder, input, _, _ := setupRecorder(t)

	require.NoError(t, recorder.Start())
	feed(t, recorder, input, []byte{1})

	require.NoError(t, recorder.Start())
	assert.Equal(t, 1, recorder.pendingLen(), "start while recording must not reset the buffer")
}

func TestRecorder_StartResumesPausedRecording(t *testing.T) {
	recorder, input, _, _ := setupRecorder(t)

	require.NoError(t, recorder.Start())
	feed(t, recorder, input, []byte{1})
	recorder.Pause()
	require.False(t, recorder.IsRecording())

	require.NoError(t, recorder.Start())
	assert.True(t, recorder.IsRecording(), "start on a paused recording resumes it")
	assert.Equal(t, 1, recorder.pendingLen(), "resuming keeps audio captured before the pause")
	feed(t, recorder, input, []byte{2})
}

func TestRecorder_PauseResume(t *testing.T) {
	recorder, input, _, _ := setupRecorder(t)

	recorder.Pause()
	assert.False(t, recorder.IsRecording(), "pause without recording is a no-op")

	require.NoError(t, recorder.Start())
	recorder.Pause()
	assert.False(t, recorder.IsRecording())

	require.NoError(t, input.Feed([]byte{1, 2}))
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, recorder.pendingLen(), "paused recorder drops audio")

	recorder.Resume()
	assert.True(t, recorder.IsRecording())
	feed(t, recorder, input, []byte{3})
}

func TestRecorder_CleanupDropsPendingChunks(t *testing.T) {
	recorder, input, mock, sink := setupRecorder(t)

	require.NoError(t, recorder.Start())
	feed(t, recorder, input, []byte{1, 2, 3})

	recorder.Cleanup()
	mock.Add(time.Second)
	time.Sleep(10 * time.Millisecond)

	assert.Empty(t, sink.get())
	assert.False(t, recorder.IsRecording())
	assert.False(t, recorder.IsInitialized())
	assert.Error(t, input.Feed([]byte{4}), "device is released")
}

func TestRecorder_ReinitializeAfterCleanup(t *testing.T) {
	recorder, input, _, _ := setupRecorder(t)

	recorder.Cleanup()
	require.NoError(t, recorder.Initialize(context.Background()))
	assert.Equal(t, 2, input.Opened())
	assert.NoError(t, recorder.Start())
}
