package generator

import "time"

// UI surfaces that can trigger generation. Each may prefer a different model.
const (
	ContextEditor    = "editor-pane"
	ContextEvaluator = "evaluator-pane"
	ContextLogframe  = "logframe-pane"
)

// ModelParameters are the sampling settings sent with each request.
type ModelParameters struct {
	Temperature      float64  `json:"temperature" yaml:"temperature"`
	TopP             *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty" yaml:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty" yaml:"frequency_penalty,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	// ModelName is the identifier the provider expects, e.g. "gpt-4o".
	ModelName string `json:"model_name" yaml:"model_name"`
}

// ModelConfig describes one callable model. Connection fields are only
// interpreted by the transport.
type ModelConfig struct {
	ID            string          `json:"id" yaml:"id"`
	Name          string          `json:"name" yaml:"name"`
	Provider      string          `json:"provider" yaml:"provider"`
	ContextWindow int             `json:"context_window,omitempty" yaml:"context_window,omitempty"`
	APIKeyEnv     string          `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	BaseURL       string          `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Parameters    ModelParameters `json:"parameters" yaml:"parameters"`
}

// StructuredResponse is a parsed logframe element.
type StructuredResponse struct {
	Description string   `json:"description"`
	Indicators  []string `json:"indicators"`
}

// Status describes the generation currently in flight, if any.
type Status struct {
	Generating bool      `json:"generating"`
	Task       string    `json:"task,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	ModelID    string    `json:"model_id,omitempty"`
	StartedAt  time.Time `json:"started_at,omitzero"`
}
