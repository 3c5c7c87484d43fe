package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain"
)

// ParseInbound decodes a text frame from the voice service. Payloads that are
// not JSON objects or carry no type are reported as domain.ErrMalformedMessage.
// Unknown types decode successfully; callers check Known.
func ParseInbound(raw []byte) (domain.InboundMessage, error) {
	var msg domain.InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.InboundMessage{}, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}
	if msg.Type == "" {
		return domain.InboundMessage{}, fmt.Errorf("%w: missing type field", domain.ErrMalformedMessage)
	}
	return msg, nil
}

// EncodeOutbound builds the JSON frame for an outbound message
func EncodeOutbound(msgType domain.MessageType, data string) ([]byte, error) {
	switch msgType {
	case domain.MessageTypeAudioChunk, domain.MessageTypeControl:
	default:
		return nil, fmt.Errorf("unsupported outbound message type: %s", msgType)
	}
	return json.Marshal(domain.OutboundMessage{Type: msgType, Data: data})
}
