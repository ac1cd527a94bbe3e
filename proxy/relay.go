// Package proxy relays text-generation requests to upstream providers so
// that provider credentials never leave the server.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"grant_assistant/logger"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 4000

	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the relay's wire contract.
type Request struct {
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	System           string    `json:"system,omitempty"`
	Temperature      *float64  `json:"temperature,omitempty"`
	MaxTokens        *int      `json:"max_tokens,omitempty"`
	TopP             *float64  `json:"top_p,omitempty"`
	PresencePenalty  *float64  `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64  `json:"frequency_penalty,omitempty"`
}

// ProviderSettings holds credentials and endpoint overrides for one provider.
type ProviderSettings struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
}

// Settings configures a Relay.
type Settings struct {
	OpenAI     ProviderSettings
	Anthropic  ProviderSettings
	HTTPClient *http.Client
}

// Relay forwards requests to OpenAI-style and Anthropic-style providers and
// hands back the provider's own JSON body.
type Relay struct {
	settings Settings
	client   *http.Client
	log      *logger.Logger
}

func NewRelay(settings Settings, log *logger.Logger) *Relay {
	client := settings.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Relay{settings: settings, client: client, log: log.With("component", "proxy")}
}

// Do relays req and returns the status code and body to send back. The body
// is either the provider's untouched JSON or {"error": "..."}.
func (r *Relay) Do(ctx context.Context, req Request) (int, []byte) {
	start := time.Now()
	var (
		status int
		body   []byte
	)
	switch req.Provider {
	case "openai":
		status, body = r.openAI(ctx, req)
	case "anthropic":
		status, body = r.anthropic(ctx, req)
	default:
		status, body = errorBody(http.StatusBadRequest, fmt.Sprintf("Unknown provider: %s", req.Provider))
	}
	r.log.Info("relay finished",
		"provider", req.Provider,
		"model", req.Model,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return status, body
}

// ServeHTTP exposes the relay as a POST endpoint.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeRaw(w, http.StatusMethodNotAllowed, mustErrorJSON("method not allowed"))
		return
	}
	var in Request
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		writeRaw(w, http.StatusBadRequest, mustErrorJSON(err.Error()))
		return
	}
	status, body := r.Do(req.Context(), in)
	writeRaw(w, status, body)
}

func (r *Relay) openAI(ctx context.Context, req Request) (int, []byte) {
	cfg := r.settings.OpenAI
	if cfg.APIKey == "" {
		return errorBody(http.StatusInternalServerError, "OPENAI_API_KEY not configured")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(r.client),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	var msgs []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "assistant":
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(m.Content))
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    msgs,
		Temperature: openai.Float(temperatureOrDefault(req.Temperature)),
		MaxTokens:   openai.Int(int64(maxTokensOrDefault(req.MaxTokens))),
	}
	if req.TopP != nil {
		params.TopP = openai.Float(*req.TopP)
	}
	if req.PresencePenalty != nil {
		params.PresencePenalty = openai.Float(*req.PresencePenalty)
	}
	if req.FrequencyPenalty != nil {
		params.FrequencyPenalty = openai.Float(*req.FrequencyPenalty)
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			msg := apiErr.Message
			if msg == "" {
				msg = apiErr.Error()
			}
			return errorBody(upstreamStatus(apiErr.StatusCode), msg)
		}
		return errorBody(http.StatusBadGateway, err.Error())
	}
	return http.StatusOK, []byte(resp.RawJSON())
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	TopP        *float64  `json:"top_p,omitempty"`
}

func (r *Relay) anthropic(ctx context.Context, req Request) (int, []byte) {
	cfg := r.settings.Anthropic
	if cfg.APIKey == "" {
		return errorBody(http.StatusInternalServerError, "ANTHROPIC_API_KEY not configured")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultAnthropicBaseURL
	}

	msgs := make([]Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			continue
		}
		msgs = append(msgs, m)
	}
	payload, err := json.Marshal(anthropicRequest{
		Model:       req.Model,
		System:      req.System,
		Messages:    msgs,
		MaxTokens:   maxTokensOrDefault(req.MaxTokens),
		Temperature: temperatureOrDefault(req.Temperature),
		TopP:        req.TopP,
	})
	if err != nil {
		return errorBody(http.StatusInternalServerError, err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return errorBody(http.StatusInternalServerError, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", cfg.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return errorBody(http.StatusBadGateway, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorBody(http.StatusBadGateway, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = fmt.Sprintf("Anthropic API error: %s", strings.TrimSpace(string(body)))
		}
		return errorBody(upstreamStatus(resp.StatusCode), msg)
	}
	return resp.StatusCode, body
}

func temperatureOrDefault(t *float64) float64 {
	if t == nil {
		return defaultTemperature
	}
	return *t
}

func maxTokensOrDefault(n *int) int {
	if n == nil || *n <= 0 {
		return defaultMaxTokens
	}
	return *n
}

func upstreamStatus(code int) int {
	if code < 400 {
		return http.StatusBadGateway
	}
	return code
}

func errorBody(status int, msg string) (int, []byte) {
	return status, mustErrorJSON(msg)
}

func mustErrorJSON(msg string) []byte {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return b
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
