package generator

import (
	"context"
	"errors"
	"fmt"
)

// Backend is the text-generation capability: given instructions and a model
// configuration it returns generated text or a *BackendError.
type Backend interface {
	Generate(ctx context.Context, prompt Prompt, model ModelConfig) (string, error)
}

// BackendError reports a failed generation call.
type BackendError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *BackendError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "generation failed"
	}
	switch {
	case e.Provider != "" && e.Status != 0:
		return fmt.Sprintf("%s backend (status %d): %s", e.Provider, e.Status, msg)
	case e.Provider != "":
		return fmt.Sprintf("%s backend: %s", e.Provider, msg)
	default:
		return "backend: " + msg
	}
}

func (e *BackendError) Unwrap() error { return e.Err }

// asBackendError normalises any backend failure into a *BackendError.
func asBackendError(err error, provider string) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Provider: provider, Err: err}
}
