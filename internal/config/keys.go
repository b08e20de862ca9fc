package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "AWAREBOT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "model.provider", typ: kString, env: "AWAREBOT_MODEL_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Model.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.Provider },
	},
	{
		key: "model.gemini_model", typ: kString, env: "AWAREBOT_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Model.GeminiModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.GeminiModel },
	},
	{
		key: "model.groq_model", typ: kString, env: "AWAREBOT_GROQ_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Model.GroqModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.GroqModel },
	},
	{
		key: "model.gemini_api_key", typ: kString, env: "AWAREBOT_GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Model.GeminiAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.GeminiAPIKey },
	},
	{
		key: "model.groq_api_key", typ: kString, env: "AWAREBOT_GROQ_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Model.GroqAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.GroqAPIKey },
	},
	{
		key: "chat.persona", typ: kString, env: "AWAREBOT_CHAT_PERSONA",
		apply:   func(cfg *Config, v any) { cfg.Chat.Persona = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.Persona },
	},
	{
		key: "chat.history_depth", typ: kInt, env: "AWAREBOT_CHAT_HISTORY_DEPTH",
		apply:   func(cfg *Config, v any) { cfg.Chat.HistoryDepth = v.(int) },
		extract: func(cfg Config) any { return cfg.Chat.HistoryDepth },
	},
	{
		key: "chat.failure_rate", typ: kFloat, env: "AWAREBOT_CHAT_FAILURE_RATE",
		apply:   func(cfg *Config, v any) { cfg.Chat.FailureRate = v.(float64) },
		extract: func(cfg Config) any { return cfg.Chat.FailureRate },
	},
	{
		key: "storage.data_dir", typ: kString, env: "AWAREBOT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "AWAREBOT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
