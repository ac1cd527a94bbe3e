package generator

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

	"grant_assistant/proxy"
)

// ProxyBackend implements Backend by sending requests through the LLM relay,
// either over HTTP or in-process.
type ProxyBackend struct {
	send func(ctx context.Context, req proxy.Request) (int, []byte, error)
}

// NewProxyBackend posts to a relay endpoint such as http://host/api/llm.
func NewProxyBackend(endpoint string, client *http.Client) (*ProxyBackend, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("proxy endpoint is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &ProxyBackend{send: func(ctx context.Context, req proxy.Request) (int, []byte, error) {
		payload, err := json.Marshal(req)
		if err != nil {
			return 0, nil, err
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return 0, nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(httpReq)
		if err != nil {
			return 0, nil, fmt.Errorf("calling proxy: %w", err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("reading proxy response: %w", err)
		}
		return resp.StatusCode, body, nil
	}}, nil
}

// NewRelayBackend calls relay directly without an HTTP hop.
func NewRelayBackend(relay *proxy.Relay) (*ProxyBackend, error) {
	if relay == nil {
		return nil, errors.New("relay is required")
	}
	return &ProxyBackend{send: func(ctx context.Context, req proxy.Request) (int, []byte, error) {
		status, body := relay.Do(ctx, req)
		return status, body, nil
	}}, nil
}

func (b *ProxyBackend) Generate(ctx context.Context, prompt Prompt, model ModelConfig) (string, error) {
	provider, err := ParseProvider(model.Provider)
	if err != nil {
		return "", err
	}

	params := model.Parameters
	temperature := params.Temperature
	req := proxy.Request{
		Provider:         provider.Name(),
		Model:            params.ModelName,
		Messages:         []proxy.Message{{Role: "user", Content: prompt.User}},
		System:           prompt.System,
		Temperature:      &temperature,
		MaxTokens:        params.MaxTokens,
		TopP:             params.TopP,
		PresencePenalty:  params.PresencePenalty,
		FrequencyPenalty: params.FrequencyPenalty,
	}

	status, body, err := b.send(ctx, req)
	if err != nil {
		return "", &BackendError{Provider: provider.Name(), Err: err}
	}
	if status < 200 || status >= 300 {
		msg, ok := errorMessage(body)
		if !ok {
			msg = http.StatusText(status)
		}
		return "", &BackendError{Provider: provider.Name(), Status: status, Message: msg}
	}
	return provider.extractText(body)
}
