package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConnectionState is the lifecycle state of the link to the voice service
type ConnectionState int

const (
	ConnectionDisconnected ConnectionState = iota
	ConnectionConnecting
	ConnectionOpen
	ConnectionReconnecting
	ConnectionFailed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionDisconnected:
		return "disconnected"
	case ConnectionConnecting:
		return "connecting"
	case ConnectionOpen:
		return "open"
	case ConnectionReconnecting:
		return "reconnecting"
	case ConnectionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const clientIDSuffixLen = 9

// Session represents one kiosk's logical connection to the voice service.
// The client id is generated once and survives reconnects.
type Session struct {
	ClientID         string          `json:"client_id"`
	State            ConnectionState `json:"-"`
	ReconnectAttempt int             `json:"reconnect_attempt"`
	CreatedAt        time.Time       `json:"created_at"`
}

// NewSession creates a disconnected session with a fresh client id
func NewSession(now time.Time) *Session {
	return &Session{
		ClientID:  GenerateClientID(now),
		State:     ConnectionDisconnected,
		CreatedAt: now,
	}
}

// GenerateClientID returns an id of the form client_{unixMillis}_{9 random chars}
func GenerateClientID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:clientIDSuffixLen]
	return fmt.Sprintf("client_%d_%s", now.UnixMilli(), suffix)
}

// MarkOpen records a successful open and resets the attempt counter
func (s *Session) MarkOpen() {
	s.State = ConnectionOpen
	s.ReconnectAttempt = 0
}

// IsOpen reports whether the session can carry messages
func (s *Session) IsOpen() bool {
	return s.State == ConnectionOpen
}

// Validate validates the session data
func (s *Session) Validate() error {
	if s.ClientID == "" {
		return errors.New("client_id is required")
	}
	if s.State < ConnectionDisconnected || s.State > ConnectionFailed {
		return errors.New("invalid connection state")
	}
	if s.ReconnectAttempt < 0 {
		return errors.New("reconnect attempt must not be negative")
	}
	return nil
}
