package entities

// VoiceStatus is the state of the voice interaction
type VoiceStatus string

const (
	VoiceStatusIdle       VoiceStatus = "idle"
	VoiceStatusListening  VoiceStatus = "listening"
	VoiceStatusProcessing VoiceStatus = "processing"
	VoiceStatusSpeaking   VoiceStatus = "speaking"
	VoiceStatusError      VoiceStatus = "error"
)

// VoiceState is a point-in-time snapshot of the voice interaction
type VoiceState struct {
	Status            VoiceStatus `json:"status"`
	IsConnected       bool        `json:"is_connected"`
	CurrentTranscript string      `json:"current_transcript"`
	LastResponse      string      `json:"last_response"`
	Error             string      `json:"error,omitempty"`
}

// WorkflowState is the screen the kiosk is showing
type WorkflowState string

const (
	WorkflowWelcome   WorkflowState = "welcome"
	WorkflowOrdering  WorkflowState = "ordering"
	WorkflowReview    WorkflowState = "review"
	WorkflowConfirmed WorkflowState = "confirmed"
	WorkflowThankYou  WorkflowState = "thankyou"
)

// Valid reports whether s is a known workflow state
func (s WorkflowState) Valid() bool {
	switch s {
	case WorkflowWelcome, WorkflowOrdering, WorkflowReview, WorkflowConfirmed, WorkflowThankYou:
		return true
	}
	return false
}

// Language is the kiosk display language
type Language string

const (
	LanguageArabic  Language = "ar"
	LanguageEnglish Language = "en"
)

func (l Language) Valid() bool {
	return l == LanguageArabic || l == LanguageEnglish
}
