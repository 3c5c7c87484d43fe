package repositories

import (
	"context"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain"
)

// VoiceTransport is the duplex link to the voice service
type VoiceTransport interface {
	Connect(ctx context.Context)
	Disconnect()
	SendAudioChunk(data string)
	SendControl(command string)
	IsConnected() bool

	OnMessage(fn func(domain.InboundMessage))
	OnConnect(fn func())
	OnDisconnect(fn func())
	OnError(fn func(error))
}

// AudioCapture records the microphone into base64 chunks
type AudioCapture interface {
	Initialize(ctx context.Context) error
	Start() error
	Stop()
	// Pause holds a recording open without capturing; Resume continues it
	Pause()
	Resume()
	IsRecording() bool
	IsInitialized() bool
	OnData(fn func(chunk string))
	Cleanup()
}

// SpeechPlayer plays synthesized speech one clip at a time
type SpeechPlayer interface {
	Play(audioBase64 string) error
	OnEnded(fn func())
	OnError(fn func(error))
	Stop()
	IsPlaying() bool
}
