package generator

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM is an offline Backend for local runs. Logframe prompts get a JSON
// element back, everything else gets plain prose.
type MockLLM struct{}

func (m MockLLM) Generate(_ context.Context, prompt Prompt, model ModelConfig) (string, error) {
	if strings.Contains(prompt.User, `"indicators"`) {
		return fmt.Sprintf(`{"description": "Mock element generated by %s", "indicators": ["Indicator A", "Indicator B"]}`, model.ID), nil
	}
	var sb strings.Builder
	sb.WriteString("This is a mock response generated without calling a model.\n\n")
	sb.WriteString("It was produced from the following instructions:\n\n")
	sb.WriteString(firstLine(prompt.User))
	return sb.String(), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
