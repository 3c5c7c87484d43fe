package console

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/entities"
)

func init() {
	color.NoColor = true
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		status entities.VoiceStatus
		want   string
	}{
		{entities.VoiceStatusIdle, "○ idle"},
		{entities.VoiceStatusListening, "● listening"},
		{entities.VoiceStatusProcessing, "◌ processing"},
		{entities.VoiceStatusSpeaking, "♪ speaking"},
		{entities.VoiceStatusError, "✗ error"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusLabel(tt.status))
		})
	}
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.Status(entities.VoiceStatusListening)
	c.Transcript("two burgers please")
	c.Response("anything else?")
	c.Error(errors.New("voice service error: busy"))

	assert.Equal(t,
		"● listening\nyou: two burgers please\nkiosk: anything else?\nerror: voice service error: busy\n",
		buf.String())
}

func TestConsoleOrder(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.Order([]entities.OrderLine{
		{ID: "burger", NameEn: "Burger", Quantity: 2, Total: decimal.RequireFromString("50")},
	}, "50.00")

	assert.Equal(t, "  2x Burger  50.00\n  total 50.00\n", buf.String())
}
