package playback

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/repositories"
)

type instanceState int

const (
	statePlaying instanceState = iota
	stateEnded
	stateCancelled
	stateFailed
)

// instance is one call to Play
type instance struct {
	id      uint64
	cancel  context.CancelFunc
	state   instanceState
	onEnded func()
	fired   bool
}

// Controller plays synthesized speech, one clip at a time. A new Play
// cancels the clip in flight without firing its completion callback.
type Controller struct {
	output repositories.AudioOutput
	logger *zap.Logger

	mu      sync.Mutex
	current *instance
	nextID  uint64
	onError func(error)
}

func NewController(output repositories.AudioOutput, logger *zap.Logger) *Controller {
	return &Controller{output: output, logger: logger}
}

// Play decodes a base64 clip and starts playing it, pre-empting any clip in flight
func (p *Controller) Play(audioBase64 string) error {
	clip, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		p.logger.Error("Failed to decode tts audio", zap.Error(err))
		return fmt.Errorf("decode tts audio: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	p.stopLocked()
	p.nextID++
	inst := &instance{id: p.nextID, cancel: cancel}
	p.current = inst
	p.mu.Unlock()

	p.logger.Debug("Playback started", zap.Uint64("playback", inst.id), zap.Int("bytes", len(clip)))
	go p.run(ctx, inst, clip)
	return nil
}

// OnEnded binds fn to the current clip. It fires exactly once when that clip
// finishes successfully, immediately if it already has.
func (p *Controller) OnEnded(fn func()) {
	p.mu.Lock()
	inst := p.current
	if inst == nil || inst.fired {
		p.mu.Unlock()
		return
	}
	inst.onEnded = fn
	if inst.state != stateEnded || fn == nil {
		p.mu.Unlock()
		return
	}
	inst.fired = true
	p.mu.Unlock()

	fn()
}

// OnError registers the subscriber for failed playbacks
func (p *Controller) OnError(fn func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = fn
}

// Stop cancels the clip in flight. Its completion callback does not fire.
func (p *Controller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Controller) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil && p.current.state == statePlaying
}

func (p *Controller) stopLocked() {
	if p.current != nil && p.current.state == statePlaying {
		p.current.state = stateCancelled
		p.current.cancel()
		p.logger.Debug("Playback cancelled", zap.Uint64("playback", p.current.id))
	}
}

func (p *Controller) run(ctx context.Context, inst *instance, clip []byte) {
	err := p.output.Play(ctx, clip)
	inst.cancel()

	p.mu.Lock()
	if inst.state != statePlaying {
		p.mu.Unlock()
		return
	}

	if err != nil {
		inst.state = stateFailed
		onError := p.onError
		p.mu.Unlock()

		p.logger.Error("Playback failed", zap.Uint64("playback", inst.id), zap.Error(err))
		if onError != nil {
			onError(fmt.Errorf("playback: %w", err))
		}
		return
	}

	inst.state = stateEnded
	onEnded := inst.onEnded
	if onEnded == nil {
		p.mu.Unlock()
		return
	}
	inst.fired = true
	p.mu.Unlock()

	p.logger.Debug("Playback ended", zap.Uint64("playback", inst.id))
	onEnded()
}
