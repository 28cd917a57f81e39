package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/petrikoro/tally/internal/embed"
	"github.com/petrikoro/tally/internal/llm"
	"github.com/petrikoro/tally/internal/sheets"
)

// DatabasePath resolves the SQLite database location. Precedence:
// 1. Viper configuration ("database.path", settable via TALLY_DATABASE_PATH)
// 2. Default ~/.local/share/tally/tally.db
func DatabasePath() string {
	if v := viper.GetString("database.path"); v != "" {
		return ExpandPath(v)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "tally.db"
	}
	return filepath.Join(home, ".local", "share", "tally", "tally.db")
}

// LoadEmbedConfig resolves the embedding model artifact locations from Viper.
func LoadEmbedConfig() embed.Config {
	cfg := embed.Config{
		ModelPath:   ExpandPath(viper.GetString("embedding.model_path")),
		VocabPath:   ExpandPath(viper.GetString("embedding.vocab_path")),
		LibraryPath: ExpandPath(viper.GetString("embedding.library_path")),
	}

	if cfg.ModelPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.ModelPath = filepath.Join(home, ".local", "share", "tally", "models", "model.onnx")
		}
	}
	if cfg.VocabPath == "" {
		cfg.VocabPath = filepath.Join(filepath.Dir(cfg.ModelPath), "vocab.txt")
	}

	return cfg
}

// LoadLLMConfig builds LLM client configuration from Viper and environment
// variables. The API key falls back to the provider's conventional variable
// (OPENAI_API_KEY or ANTHROPIC_API_KEY) when not set in the config file.
func LoadLLMConfig() llm.Config {
	cfg := llm.Config{
		Provider:    viper.GetString("llm.provider"),
		APIKey:      viper.GetString("llm.api_key"),
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		MaxRetries:  viper.GetInt("llm.max_retries"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
	}

	if d := viper.GetDuration("llm.retry_delay"); d > 0 {
		cfg.RetryDelay = d
	} else {
		cfg.RetryDelay = time.Second
	}

	if cfg.APIKey == "" {
		switch cfg.Provider {
		case "openai":
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}

	return cfg
}

// LoadSheetsConfig loads Google Sheets configuration for taxonomy sync.
// Precedence:
// 1. Viper configuration (config file or TALLY_SHEETS_* env vars)
// 2. Direct GOOGLE_SHEETS_* environment variables
// 3. Defaults
func LoadSheetsConfig() (*sheets.Config, error) {
	cfg := sheets.DefaultConfig()

	if v := viper.GetString("sheets.service_account_path"); v != "" {
		cfg.ServiceAccountPath = v
	}
	if v := viper.GetString("sheets.client_id"); v != "" {
		cfg.ClientID = v
	}
	if v := viper.GetString("sheets.client_secret"); v != "" {
		cfg.ClientSecret = v
	}
	if v := viper.GetString("sheets.refresh_token"); v != "" {
		cfg.RefreshToken = v
	}
	if v := viper.GetString("sheets.spreadsheet_id"); v != "" {
		cfg.SpreadsheetID = v
	}
	if v := viper.GetString("sheets.worksheet"); v != "" {
		cfg.WorksheetName = v
	}

	// Fall back to the direct environment variables for anything unset.
	cfg.LoadFromEnv()
	cfg.ServiceAccountPath = ExpandPath(cfg.ServiceAccountPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
