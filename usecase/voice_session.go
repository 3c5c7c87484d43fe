package usecase

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/entities"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/repositories"
)

const unknownRemoteError = "Unknown error"

// VoiceSession drives the voice interaction: it records while listening,
// streams chunks to the voice service, surfaces transcripts and plays replies.
// All transitions are serialized; subscriber callbacks run outside the lock.
type VoiceSession struct {
	transport repositories.VoiceTransport
	capture   repositories.AudioCapture
	player    repositories.SpeechPlayer
	logger    *zap.Logger

	mu sync.Mutex
	// set by a user-initiated Connect until it succeeds
	userConnect bool
	state       entities.VoiceState

	onTranscript   func(string)
	onResponse     func(string)
	onStatusChange func(entities.VoiceStatus)
	onError        func(error)
}

// NewVoiceSession wires the session to its transport, capture and player
func NewVoiceSession(
	transport repositories.VoiceTransport,
	capture repositories.AudioCapture,
	player repositories.SpeechPlayer,
	logger *zap.Logger,
) *VoiceSession {
	s := &VoiceSession{
		transport: transport,
		capture:   capture,
		player:    player,
		logger:    logger,
		state:     entities.VoiceState{Status: entities.VoiceStatusIdle},
	}

	transport.OnMessage(s.handleMessage)
	transport.OnConnect(s.handleConnect)
	transport.OnDisconnect(s.handleDisconnect)
	transport.OnError(s.handleTransportError)
	capture.OnData(s.handleChunk)
	player.OnError(s.handlePlaybackError)

	return s
}

// Open acquires the microphone and starts connecting. A device failure puts
// the session in the error state and is returned; nothing is connected then.
func (s *VoiceSession) Open(ctx context.Context) error {
	if err := s.capture.Initialize(ctx); err != nil {
		s.logger.Error("Failed to open voice session", zap.Error(err))
		s.fail(err)
		return err
	}
	s.Connect(ctx)
	return nil
}

// Connect asks the transport to connect. Once it succeeds an error status is cleared.
func (s *VoiceSession) Connect(ctx context.Context) {
	s.mu.Lock()
	s.userConnect = true
	s.mu.Unlock()

	s.transport.Connect(ctx)
}

// StartListening begins a listening turn. It is rejected without a status
// change when the transport is not open or the microphone is not initialized.
func (s *VoiceSession) StartListening() error {
	if err := s.checkReady(); err != nil {
		s.report(err)
		return err
	}

	s.mu.Lock()
	if s.state.Status == entities.VoiceStatusListening {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// the customer may talk over the kiosk
	s.player.Stop()

	if err := s.capture.Start(); err != nil {
		s.report(err)
		return err
	}

	s.mu.Lock()
	s.state.CurrentTranscript = ""
	s.state.Error = ""
	notify := s.setStatusLocked(entities.VoiceStatusListening)
	s.mu.Unlock()

	s.logger.Info("Listening started")
	notify()
	return nil
}

// StopListening ends the listening turn and waits for the service to respond
func (s *VoiceSession) StopListening() error {
	if !s.capture.IsRecording() && !s.listening() {
		return nil
	}
	s.capture.Stop()

	s.mu.Lock()
	notify := func() {}
	if s.state.Status == entities.VoiceStatusListening {
		notify = s.setStatusLocked(entities.VoiceStatusProcessing)
	}
	s.mu.Unlock()

	s.logger.Info("Listening stopped")
	notify()
	return nil
}

// Toggle stops listening when recording and starts it otherwise. Either way it
// is rejected without a status change while the transport is not open.
func (s *VoiceSession) Toggle() error {
	if err := s.checkReady(); err != nil {
		s.report(err)
		return err
	}
	if s.capture.IsRecording() || s.listening() {
		return s.StopListening()
	}
	return s.StartListening()
}

// Reset ends any listening turn or reply and clears status, transcript,
// response and error. The connection flag is kept.
func (s *VoiceSession) Reset() {
	s.capture.Stop()
	s.player.Stop()

	s.mu.Lock()
	s.state = entities.VoiceState{
		Status:      s.state.Status,
		IsConnected: s.state.IsConnected,
	}
	notify := s.setStatusLocked(entities.VoiceStatusIdle)
	s.mu.Unlock()

	notify()
}

// State returns a snapshot of the voice state
func (s *VoiceSession) State() entities.VoiceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close releases the microphone, stops playback and disconnects
func (s *VoiceSession) Close() {
	s.capture.Cleanup()
	s.player.Stop()
	s.transport.Disconnect()

	s.mu.Lock()
	s.state.IsConnected = false
	s.userConnect = false
	s.mu.Unlock()

	s.logger.Info("Voice session closed")
}

// OnTranscript registers the subscriber for recognized speech
func (s *VoiceSession) OnTranscript(fn func(text string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTranscript = fn
}

// OnResponse registers the subscriber for the text of spoken replies
func (s *VoiceSession) OnResponse(fn func(text string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResponse = fn
}

func (s *VoiceSession) OnStatusChange(fn func(entities.VoiceStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatusChange = fn
}

func (s *VoiceSession) OnError(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

func (s *VoiceSession) listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Status == entities.VoiceStatusListening
}

func (s *VoiceSession) checkReady() error {
	if !s.capture.IsInitialized() {
		return domain.ErrNotInitialized
	}
	if !s.transport.IsConnected() {
		return domain.ErrNotConnected
	}
	return nil
}

func (s *VoiceSession) handleMessage(msg domain.InboundMessage) {
	switch msg.Type {
	case domain.MessageTypeTranscription:
		s.handleTranscription(msg.Text)
	case domain.MessageTypeTTSAudio:
		s.handleSpeech(msg.Audio, msg.Text)
	case domain.MessageTypeError:
		text := msg.Error
		if text == "" {
			text = unknownRemoteError
		}
		s.fail(&domain.RemoteError{Message: text})
	}
}

func (s *VoiceSession) handleTranscription(text string) {
	if text == "" {
		return
	}

	s.mu.Lock()
	s.state.CurrentTranscript = text
	onTranscript := s.onTranscript
	notify := func() {}
	if s.state.Status == entities.VoiceStatusListening {
		notify = s.setStatusLocked(entities.VoiceStatusProcessing)
	}
	s.mu.Unlock()

	s.logger.Info("Transcription received", zap.String("text", text))
	if onTranscript != nil {
		onTranscript(text)
	}
	notify()
}

func (s *VoiceSession) handleSpeech(audio, text string) {
	s.mu.Lock()
	var onResponse func(string)
	if text != "" {
		s.state.LastResponse = text
		onResponse = s.onResponse
	}
	speak := audio != "" && s.state.Status != entities.VoiceStatusError
	notify := func() {}
	if speak {
		notify = s.setStatusLocked(entities.VoiceStatusSpeaking)
	}
	s.mu.Unlock()

	if onResponse != nil {
		onResponse(text)
	}
	if !speak {
		return
	}

	// the kiosk does not listen to itself
	s.capture.Stop()
	notify()

	if err := s.player.Play(audio); err != nil {
		s.handlePlaybackError(err)
		return
	}
	s.player.OnEnded(s.handlePlaybackEnded)
}

func (s *VoiceSession) handlePlaybackEnded() {
	s.mu.Lock()
	notify := func() {}
	if s.state.Status == entities.VoiceStatusSpeaking {
		notify = s.setStatusLocked(entities.VoiceStatusIdle)
	}
	s.mu.Unlock()

	notify()
}

func (s *VoiceSession) handlePlaybackError(err error) {
	s.logger.Error("Playback failed", zap.Error(err))
	s.fail(err)
}

func (s *VoiceSession) handleConnect() {
	s.mu.Lock()
	s.state.IsConnected = true
	resume := s.state.Status == entities.VoiceStatusListening
	notify := func() {}
	if s.userConnect {
		s.userConnect = false
		if s.state.Status == entities.VoiceStatusError {
			s.state.Error = ""
			notify = s.setStatusLocked(entities.VoiceStatusIdle)
		}
	}
	s.mu.Unlock()

	if resume {
		s.capture.Resume()
	}
	s.logger.Info("Voice session connected")
	notify()
}

func (s *VoiceSession) handleDisconnect() {
	s.mu.Lock()
	s.state.IsConnected = false
	pause := s.state.Status == entities.VoiceStatusListening
	s.mu.Unlock()

	// hold the turn open until the link is back
	if pause {
		s.capture.Pause()
	}
	s.logger.Warn("Voice session disconnected")
}

func (s *VoiceSession) handleTransportError(err error) {
	s.mu.Lock()
	s.state.IsConnected = s.transport.IsConnected()
	s.mu.Unlock()

	s.fail(err)
}

func (s *VoiceSession) handleChunk(chunk string) {
	if s.transport.IsConnected() {
		s.transport.SendAudioChunk(chunk)
	}
}

// fail moves to the error state, releasing the microphone turn and speaker
func (s *VoiceSession) fail(err error) {
	s.capture.Stop()
	s.player.Stop()

	s.mu.Lock()
	s.state.Error = errorMessage(err)
	notify := s.setStatusLocked(entities.VoiceStatusError)
	onError := s.onError
	s.mu.Unlock()

	notify()
	if onError != nil {
		onError(err)
	}
}

// report surfaces a rejected user action without changing status
func (s *VoiceSession) report(err error) {
	s.logger.Warn("Voice action rejected", zap.Error(err))

	s.mu.Lock()
	onError := s.onError
	s.mu.Unlock()

	if onError != nil {
		onError(err)
	}
}

func (s *VoiceSession) setStatusLocked(status entities.VoiceStatus) func() {
	if s.state.Status == status {
		return func() {}
	}
	s.logger.Debug("Voice status changed",
		zap.String("from", string(s.state.Status)),
		zap.String("to", string(status)))
	s.state.Status = status

	onStatusChange := s.onStatusChange
	if onStatusChange == nil {
		return func() {}
	}
	return func() { onStatusChange(status) }
}

func errorMessage(err error) string {
	var remote *domain.RemoteError
	if errors.As(err, &remote) {
		return remote.Message
	}
	return err.Error()
}
