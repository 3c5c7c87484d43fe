package usecase

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/entities"
)

// Workflow tracks which kiosk screen is shown and in which language
type Workflow struct {
	logger *zap.Logger

	mu       sync.RWMutex
	state    entities.WorkflowState
	language entities.Language
}

// NewWorkflow starts on the welcome screen in Arabic
func NewWorkflow(logger *zap.Logger) *Workflow {
	return &Workflow{
		logger:   logger,
		state:    entities.WorkflowWelcome,
		language: entities.LanguageArabic,
	}
}

func (w *Workflow) State() entities.WorkflowState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Workflow) SetState(state entities.WorkflowState) error {
	if !state.Valid() {
		return fmt.Errorf("unknown workflow state %q", state)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != state {
		w.logger.Info("Workflow changed",
			zap.String("from", string(w.state)),
			zap.String("to", string(state)))
	}
	w.state = state
	return nil
}

func (w *Workflow) Language() entities.Language {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.language
}

func (w *Workflow) SetLanguage(language entities.Language) error {
	if !language.Valid() {
		return fmt.Errorf("unsupported language %q", language)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.language = language
	return nil
}

// Reset returns to the welcome screen in Arabic
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = entities.WorkflowWelcome
	w.language = entities.LanguageArabic
}
