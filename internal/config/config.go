// Package config loads awarebot configuration from a JSON file backend,
// a .env file, and AWAREBOT_* environment variables (highest precedence).
// Secrets (API keys) are accepted only from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Model   ModelConfig
	Chat    ChatConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

// ModelConfig selects and configures the hosted model provider.
// Provider is "gemini" or "groq".
type ModelConfig struct {
	Provider     string
	GeminiModel  string
	GroqModel    string
	GeminiAPIKey string
	GroqAPIKey   string
}

type ChatConfig struct {
	Persona      string
	HistoryDepth int
	// FailureRate is the simulated low-confidence failure probability,
	// in [0,1].
	FailureRate float64
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Model: ModelConfig{
			Provider:    "gemini",
			GeminiModel: "gemini-1.5-flash",
			GroqModel:   "llama-3.3-70b-versatile",
		},
		Chat: ChatConfig{
			Persona:      "selfaware",
			HistoryDepth: 5,
			FailureRate:  0.10,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "awarebot-data"
		}
	}
	return filepath.Join(dir, "awarebot")
}

// Load reads configuration: defaults, then the JSON config file at
// $XDG_CONFIG_HOME/awarebot/config.json, then a .env file in the working
// directory (if present), then AWAREBOT_* environment variables.
func Load() (Config, error) {
	// Missing .env is the normal case; real read errors surface through
	// the env lookups below anyway.
	_ = godotenv.Load()
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Model.Provider {
	case "gemini":
		if cfg.Model.GeminiAPIKey == "" {
			return fmt.Errorf("missing required config: Gemini API key. Set it via environment variable AWAREBOT_GEMINI_API_KEY or a .env file")
		}
	case "groq":
		if cfg.Model.GroqAPIKey == "" {
			return fmt.Errorf("missing required config: Groq API key. Set it via environment variable AWAREBOT_GROQ_API_KEY or a .env file")
		}
	default:
		return fmt.Errorf("unknown model provider %q (valid: gemini, groq)", cfg.Model.Provider)
	}

	if cfg.Chat.FailureRate < 0 || cfg.Chat.FailureRate > 1 {
		return fmt.Errorf("chat.failure_rate must be in [0,1], got %v", cfg.Chat.FailureRate)
	}
	return nil
}
