package generator

import (
	"errors"
	"maps"
	"slices"
	"sync"

	"grant_assistant/document"
)

// ModelRegistry holds the static model catalog and the per-context model
// preferences chosen by the user.
type ModelRegistry struct {
	models []ModelConfig

	mu    sync.RWMutex
	prefs map[string]string
}

// NewModelRegistry copies models into a registry. Every known UI context
// starts out pointing at the first model.
func NewModelRegistry(models []ModelConfig) (*ModelRegistry, error) {
	if len(models) == 0 {
		return nil, errors.New("at least one model must be configured")
	}
	first := models[0].ID
	return &ModelRegistry{
		models: slices.Clone(models),
		prefs: map[string]string{
			ContextEditor:    first,
			ContextEvaluator: first,
			ContextLogframe:  first,
		},
	}, nil
}

// Models returns the catalog in configuration order.
func (r *ModelRegistry) Models() []ModelConfig {
	return slices.Clone(r.models)
}

// Model looks a model up by id.
func (r *ModelRegistry) Model(id string) (ModelConfig, bool) {
	for _, m := range r.models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelConfig{}, false
}

// ModelFor resolves the model for a context, falling back to the first model
// when the context has no preference or its preference is stale.
func (r *ModelRegistry) ModelFor(contextID string) ModelConfig {
	r.mu.RLock()
	id, ok := r.prefs[contextID]
	r.mu.RUnlock()
	if ok {
		if m, found := r.Model(id); found {
			return m
		}
	}
	return r.models[0]
}

// SetPreference records the model chosen for a context.
func (r *ModelRegistry) SetPreference(contextID, modelID string) error {
	if _, ok := r.Model(modelID); !ok {
		return &document.NotFoundError{Kind: "model", ID: modelID}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[contextID] = modelID
	return nil
}

// Preferences returns a copy of the context to model mapping.
func (r *ModelRegistry) Preferences() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.prefs)
}
