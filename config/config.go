package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"grant_assistant/generator"
)

// DefaultPath is used when no -config flag is given and the file exists.
const DefaultPath = "config/config.json"

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		if strings.TrimSpace(u) == "" {
			d.Duration = 0
			return nil
		}
		dd, err := time.ParseDuration(u)
		if err != nil {
			return err
		}
		d.Duration = dd
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"30s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// ProviderConfig holds credentials for one upstream provider.
type ProviderConfig struct {
	APIKey     string `json:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty"`
	MaxRetries int    `json:"max_retries,omitempty"`
}

type Providers struct {
	OpenAI    ProviderConfig `json:"openai"`
	Anthropic ProviderConfig `json:"anthropic"`
}

// Config is the process configuration. The model catalog is read once at
// startup and never changes afterwards.
type Config struct {
	ServerAddr     string                  `json:"server_addr,omitempty"`
	LogMode        string                  `json:"log_mode,omitempty"`
	ProxyURL       string                  `json:"proxy_url,omitempty"`
	RequestTimeout Duration                `json:"request_timeout,omitempty"`
	Models         []generator.ModelConfig `json:"models,omitempty"`
	ModelsPath     string                  `json:"models_path,omitempty"`
	Providers      Providers               `json:"providers"`
}

func defaultConfig() *Config {
	return &Config{
		ServerAddr:     ":8080",
		LogMode:        "development",
		RequestTimeout: Duration{Duration: 2 * time.Minute},
		Models: []generator.ModelConfig{
			{
				ID:            "gpt-4o",
				Name:          "GPT-4o",
				Provider:      "openai",
				ContextWindow: 128000,
				APIKeyEnv:     "OPENAI_API_KEY",
				Parameters:    generator.ModelParameters{Temperature: 0.7, ModelName: "gpt-4o"},
			},
			{
				ID:            "claude-sonnet",
				Name:          "Claude Sonnet",
				Provider:      "anthropic",
				ContextWindow: 200000,
				APIKeyEnv:     "ANTHROPIC_API_KEY",
				Parameters:    generator.ModelParameters{Temperature: 0.7, ModelName: "claude-3-5-sonnet-latest"},
			},
		},
	}
}

// Load reads path (or DefaultPath when path is empty and the file exists),
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	path = strings.TrimSpace(path)
	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var loaded Config
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		*cfg = loaded
		if cfg.ModelsPath != "" && !filepath.IsAbs(cfg.ModelsPath) {
			cfg.ModelsPath = filepath.Join(filepath.Dir(path), cfg.ModelsPath)
		}
	}

	if cfg.ModelsPath != "" {
		models, err := LoadModels(cfg.ModelsPath)
		if err != nil {
			return nil, err
		}
		cfg.Models = models
	}

	applyEnv(cfg)

	if strings.TrimSpace(cfg.ServerAddr) == "" {
		cfg.ServerAddr = ":8080"
	}
	if cfg.LogMode == "" {
		cfg.LogMode = "development"
	}
	if cfg.RequestTimeout.Duration <= 0 {
		cfg.RequestTimeout = Duration{Duration: 2 * time.Minute}
	}
	if err := validateModels(cfg.Models); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadModels reads a catalog file. .yaml and .yml are decoded as YAML,
// anything else as JSON.
func LoadModels(path string) ([]generator.ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var models []generator.ModelConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &models)
	default:
		err = json.Unmarshal(data, &models)
	}
	if err != nil {
		return nil, fmt.Errorf("parse models %s: %w", path, err)
	}
	return models, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		cfg.Providers.Anthropic.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("GRANT_SERVER_ADDR")); v != "" {
		cfg.ServerAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_MODE")); v != "" {
		cfg.LogMode = v
	}
	if v := strings.TrimSpace(os.Getenv("GRANT_PROXY_URL")); v != "" {
		cfg.ProxyURL = v
	}
}

func validateModels(models []generator.ModelConfig) error {
	if len(models) == 0 {
		return errors.New("config must define at least one model")
	}
	seen := make(map[string]struct{}, len(models))
	for i := range models {
		m := &models[i]
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" {
			return fmt.Errorf("model #%d: id is required", i)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("model %q is defined more than once", m.ID)
		}
		seen[m.ID] = struct{}{}
		if strings.TrimSpace(m.Parameters.ModelName) == "" {
			return fmt.Errorf("model %q missing parameters.model_name", m.ID)
		}
		if m.Name == "" {
			m.Name = m.ID
		}
		m.Provider = strings.ToLower(strings.TrimSpace(m.Provider))
	}
	return nil
}
