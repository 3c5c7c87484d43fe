package domain

// MessageType identifies a message exchanged with the voice service.
type MessageType string

const (
	// Outbound
	MessageTypeAudioChunk MessageType = "audio_chunk"
	MessageTypeControl    MessageType = "control"

	// Inbound
	MessageTypeTranscription MessageType = "transcription"
	MessageTypeTTSAudio      MessageType = "tts_audio"
	MessageTypeError         MessageType = "error"
)

// OutboundMessage is sent from the kiosk to the voice service.
type OutboundMessage struct {
	Type MessageType `json:"type"`
	Data string      `json:"data"` // base64 audio or a control command
}

// InboundMessage is received from the voice service. Only the fields matching
// Type are populated.
type InboundMessage struct {
	Type  MessageType `json:"type"`
	Text  string      `json:"text,omitempty"`
	Audio string      `json:"audio,omitempty"` // base64 wav
	Error string      `json:"error,omitempty"`
}

// Known reports whether the message type is one the kiosk reacts to.
func (m InboundMessage) Known() bool {
	switch m.Type {
	case MessageTypeTranscription, MessageTypeTTSAudio, MessageTypeError:
		return true
	}
	return false
}
