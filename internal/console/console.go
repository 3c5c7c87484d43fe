// Package console renders the voice session for an operator terminal.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/entities"
)

// Console prints voice status, transcripts and replies as they happen
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// New creates a console writing to out
func New(out io.Writer) *Console {
	return &Console{out: out}
}

// StatusLabel renders the indicator for a voice status
func StatusLabel(status entities.VoiceStatus) string {
	switch status {
	case entities.VoiceStatusListening:
		return color.RedString("● listening")
	case entities.VoiceStatusProcessing:
		return color.YellowString("◌ processing")
	case entities.VoiceStatusSpeaking:
		return color.BlueString("♪ speaking")
	case entities.VoiceStatusError:
		return color.RedString("✗ error")
	default:
		return color.GreenString("○ idle")
	}
}

func (c *Console) Status(status entities.VoiceStatus) {
	c.printf("%s\n", StatusLabel(status))
}

func (c *Console) Transcript(text string) {
	c.printf("%s %s\n", color.HiBlackString("you:"), text)
}

func (c *Console) Response(text string) {
	c.printf("%s %s\n", color.CyanString("kiosk:"), text)
}

func (c *Console) Error(err error) {
	c.printf("%s\n", color.RedString("error: %v", err))
}

// Order prints the cart with its grand total
func (c *Console) Order(lines []entities.OrderLine, total string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range lines {
		fmt.Fprintf(c.out, "  %dx %s  %s\n", l.Quantity, l.NameEn, entities.FormatPrice(l.Total))
	}
	fmt.Fprintf(c.out, "  %s %s\n", color.HiBlackString("total"), total)
}

func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
