package generator

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Provider is a supported upstream provider. The interface is sealed: every
// variant lives in this file and must know how to read its own responses.
type Provider interface {
	Name() string
	extractText(body []byte) (string, error)
}

type openAIProvider struct{}

type anthropicProvider struct{}

var (
	ProviderOpenAI    Provider = openAIProvider{}
	ProviderAnthropic Provider = anthropicProvider{}
)

// Providers lists every supported provider.
func Providers() []Provider {
	return []Provider{ProviderOpenAI, ProviderAnthropic}
}

// ParseProvider resolves a provider tag from a model configuration.
func ParseProvider(tag string) (Provider, error) {
	for _, p := range Providers() {
		if p.Name() == tag {
			return p, nil
		}
	}
	return nil, &BackendError{Provider: tag, Message: fmt.Sprintf("provider %q is not supported", tag)}
}

func (openAIProvider) Name() string { return "openai" }

func (p openAIProvider) extractText(body []byte) (string, error) {
	return extractAt(p.Name(), body, "choices.0.message.content")
}

func (anthropicProvider) Name() string { return "anthropic" }

func (p anthropicProvider) extractText(body []byte) (string, error) {
	return extractAt(p.Name(), body, "content.0.text")
}

func extractAt(provider string, body []byte, path string) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", &BackendError{Provider: provider, Message: "response is not valid JSON"}
	}
	if msg, ok := errorMessage(body); ok {
		return "", &BackendError{Provider: provider, Message: msg}
	}
	text := gjson.GetBytes(body, path)
	if text.Type != gjson.String {
		return "", &BackendError{Provider: provider, Message: "response has no " + path}
	}
	return text.String(), nil
}

// errorMessage finds an error payload in either the relay's {"error": "..."}
// shape or a provider's {"error": {"message": "..."}} shape.
func errorMessage(body []byte) (string, bool) {
	e := gjson.GetBytes(body, "error")
	if !e.Exists() || e.Type == gjson.Null {
		return "", false
	}
	if e.IsObject() {
		if msg := e.Get("message"); msg.Exists() {
			return msg.String(), true
		}
		return e.Raw, true
	}
	return e.String(), true
}
