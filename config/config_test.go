package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GRANT_SERVER_ADDR", "LOG_MODE", "GRANT_PROXY_URL"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout.Duration)
	require.Len(t, cfg.Models, 2)
	assert.Equal(t, "openai", cfg.Models[0].Provider)
	assert.Equal(t, "anthropic", cfg.Models[1].Provider)
}

func TestLoadJSONFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{
		"server_addr": ":9000",
		"log_mode": "prod",
		"request_timeout": "45s",
		"providers": {"openai": {"api_key": "sk-file", "max_retries": 3}},
		"models": [
			{"id": " gpt ", "provider": "OpenAI", "parameters": {"model_name": "gpt-4o", "temperature": 0.2, "max_tokens": 800}}
		]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ServerAddr)
	assert.Equal(t, "prod", cfg.LogMode)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout.Duration)
	assert.Equal(t, "sk-file", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, 3, cfg.Providers.OpenAI.MaxRetries)

	require.Len(t, cfg.Models, 1)
	m := cfg.Models[0]
	assert.Equal(t, "gpt", m.ID)
	assert.Equal(t, "gpt", m.Name)
	assert.Equal(t, "openai", m.Provider)
	assert.InDelta(t, 0.2, m.Parameters.Temperature, 1e-9)
	require.NotNil(t, m.Parameters.MaxTokens)
	assert.Equal(t, 800, *m.Parameters.MaxTokens)
}

func TestLoadYAMLModelsPath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "models.yaml", `
- id: claude
  name: Claude
  provider: anthropic
  parameters:
    model_name: claude-3-5-sonnet-latest
    temperature: 0.4
    top_p: 0.9
`)
	path := writeFile(t, dir, "config.json", `{"models_path": "models.yaml"}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Models, 1)
	assert.Equal(t, "claude", cfg.Models[0].ID)
	require.NotNil(t, cfg.Models[0].Parameters.TopP)
	assert.InDelta(t, 0.9, *cfg.Models[0].Parameters.TopP, 1e-9)
	assert.Equal(t, ":8080", cfg.ServerAddr)
}

func TestLoadModelsJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "models.json", `[{"id":"a","provider":"openai","parameters":{"model_name":"m"}}]`)
	models, err := LoadModels(path)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "m", models[0].Parameters.ModelName)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("ANTHROPIC_API_KEY", "ak-env")
	t.Setenv("GRANT_SERVER_ADDR", "127.0.0.1:7000")
	t.Setenv("LOG_MODE", "prod")
	t.Setenv("GRANT_PROXY_URL", "http://relay/api/llm")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, "ak-env", cfg.Providers.Anthropic.APIKey)
	assert.Equal(t, "127.0.0.1:7000", cfg.ServerAddr)
	assert.Equal(t, "prod", cfg.LogMode)
	assert.Equal(t, "http://relay/api/llm", cfg.ProxyURL)
}

func TestLoadValidation(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"no models":         `{"models": []}`,
		"missing id":        `{"models": [{"parameters": {"model_name": "m"}}]}`,
		"missing modelName": `{"models": [{"id": "a"}]}`,
		"duplicate ids":     `{"models": [{"id": "a", "parameters": {"model_name": "m"}}, {"id": "a", "parameters": {"model_name": "n"}}]}`,
		"bad duration":      `{"request_timeout": "soon", "models": [{"id": "a", "parameters": {"model_name": "m"}}]}`,
		"bad json":          `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, t.TempDir(), "config.json", body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, d.Duration)

	require.NoError(t, json.Unmarshal([]byte(`1000`), &d))
	assert.Equal(t, time.Microsecond, d.Duration)

	out, err := json.Marshal(Duration{Duration: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, `"5s"`, string(out))
}
