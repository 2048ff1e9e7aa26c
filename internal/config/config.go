package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultGeminiModel = "gemini-2.5-flash-image"

//go:embed defaults.yaml
var defaults []byte

// Preset is a canned instruction offered as a quick tool
type Preset struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Prompt string `yaml:"prompt" json:"prompt"`
}

// Config holds the editor settings
type Config struct {
	Provider     string   `yaml:"provider"`
	Model        string   `yaml:"model"`
	Temperature  float64  `yaml:"temperature"`
	HistoryLimit int      `yaml:"history_limit"`
	Presets      []Preset `yaml:"presets"`
}

// Default returns the built-in configuration
func Default() *Config {
	cfg, err := parse(defaults)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded defaults: %v", err))
	}
	return cfg
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults. MARKEDIT_PROVIDER and the provider's model variable
// (GEMINI_MODEL or OPENAI_MODEL) override either source.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if provider := os.Getenv("MARKEDIT_PROVIDER"); provider != "" {
		cfg.Provider = provider
	}
	if cfg.Provider == "" {
		cfg.Provider = "gemini"
	}
	switch cfg.Provider {
	case "gemini":
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			cfg.Model = model
		}
	case "openai":
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			cfg.Model = model
		} else if cfg.Model == defaultGeminiModel {
			cfg.Model = ""
		}
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 6
	}
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Preset finds a preset by id
func (c *Config) Preset(id string) (Preset, bool) {
	for _, p := range c.Presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Instruction resolves the text to send: explicit text wins, then the
// named preset. An unknown preset is an error.
func (c *Config) Instruction(text, presetID string) (string, error) {
	if text != "" || presetID == "" {
		return text, nil
	}
	p, ok := c.Preset(presetID)
	if !ok {
		return "", fmt.Errorf("unknown preset %q", presetID)
	}
	return p.Prompt, nil
}
