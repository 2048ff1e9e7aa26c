package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Provider != "gemini" || cfg.Model != defaultGeminiModel {
		t.Errorf("Unexpected defaults: %s %s", cfg.Provider, cfg.Model)
	}
	if cfg.HistoryLimit != 6 {
		t.Errorf("Expected history limit 6, got %d", cfg.HistoryLimit)
	}
	for _, id := range []string{"face", "skin", "bg", "color", "light"} {
		if _, ok := cfg.Preset(id); !ok {
			t.Errorf("Expected preset %s", id)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("MARKEDIT_PROVIDER", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("OPENAI_MODEL", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "markedit.yaml")
	data := "model: gemini-custom\nhistory_limit: 0\npresets:\n  - id: sky\n    name: Sky\n    prompt: Make the sky dramatic.\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Model != "gemini-custom" {
		t.Errorf("Expected model from file, got %s", cfg.Model)
	}
	if cfg.HistoryLimit != 6 {
		t.Errorf("Expected history limit to fall back to 6, got %d", cfg.HistoryLimit)
	}
	if len(cfg.Presets) != 1 || cfg.Presets[0].ID != "sky" {
		t.Errorf("Expected presets from file to replace the defaults, got %v", cfg.Presets)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	tests := []struct {
		name         string
		env          map[string]string
		wantProvider string
		wantModel    string
		wantErr      bool
	}{
		{
			name:         "gemini model override",
			env:          map[string]string{"GEMINI_MODEL": "gemini-next"},
			wantProvider: "gemini",
			wantModel:    "gemini-next",
		},
		{
			name:         "openai drops the gemini default model",
			env:          map[string]string{"MARKEDIT_PROVIDER": "openai"},
			wantProvider: "openai",
			wantModel:    "",
		},
		{
			name:         "openai model override",
			env:          map[string]string{"MARKEDIT_PROVIDER": "openai", "OPENAI_MODEL": "gpt-image-1"},
			wantProvider: "openai",
			wantModel:    "gpt-image-1",
		},
		{
			name:    "unknown provider",
			env:     map[string]string{"MARKEDIT_PROVIDER": "ollama"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"MARKEDIT_PROVIDER", "GEMINI_MODEL", "OPENAI_MODEL"} {
				t.Setenv(key, tt.env[key])
			}
			cfg, err := Load("")
			if tt.wantErr {
				if err == nil {
					t.Error("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if cfg.Provider != tt.wantProvider || cfg.Model != tt.wantModel {
				t.Errorf("Expected %s/%s, got %s/%s", tt.wantProvider, tt.wantModel, cfg.Provider, cfg.Model)
			}
		})
	}
}

func TestInstruction(t *testing.T) {
	cfg := Default()
	tests := []struct {
		name     string
		text     string
		preset   string
		expected string
		wantErr  bool
	}{
		{"explicit text", "Remove the car", "", "Remove the car", false},
		{"text wins over preset", "Remove the car", "face", "Remove the car", false},
		{"preset", "", "bg", "Clean up the background, remove distractions.", false},
		{"nothing", "", "", "", false},
		{"unknown preset", "", "cartoon", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cfg.Instruction(tt.text, tt.preset)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
