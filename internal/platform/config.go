package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application configuration, read from glossa.yaml, the
// environment (GLOSSA_ prefix) and an optional .env file.
type Config struct {
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFile  string `mapstructure:"log_file"`
	DataDir  string `mapstructure:"data_dir" validate:"required"`

	// DevSafety re-roots DataDir into a temp directory under go run / go test.
	DevSafety bool `mapstructure:"dev_safety"`

	Store    StoreConfig   `mapstructure:"store"`
	Auth     AuthConfig    `mapstructure:"auth"`
	Engine   EngineConfig  `mapstructure:"engine"`
	AI       AIConfig      `mapstructure:"ai"`
	Speech   SpeechConfig  `mapstructure:"speech"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
	Filename string        `mapstructure:"-"`
}

// StoreConfig selects the note backend.
type StoreConfig struct {
	Driver      string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	PostgresDSN string `mapstructure:"postgres_dsn" validate:"required_if=Driver postgres"`
}

// AuthConfig configures local accounts.
type AuthConfig struct {
	RequireConfirmation bool `mapstructure:"require_confirmation"`
}

// EngineConfig configures the note engine.
type EngineConfig struct {
	Debounce     time.Duration `mapstructure:"debounce" validate:"gt=0"`
	FlushOnClose bool          `mapstructure:"flush_on_close"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
}

// AIConfig configures the generation backend.
type AIConfig struct {
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url" validate:"omitempty,url"`
	Model       string `mapstructure:"model" validate:"required"`
	MaxTokens   int64  `mapstructure:"max_tokens" validate:"gte=256"`
	CorpusLimit int    `mapstructure:"corpus_limit" validate:"gte=500"`
	QuizSize    int    `mapstructure:"quiz_size" validate:"gte=1,lte=20"`
}

// SpeechConfig configures audio playback.
type SpeechConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Command string `mapstructure:"command"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// DefaultDataDir is ~/.local/share/glossa.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "glossa")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".glossa"
	}
	return filepath.Join(home, ".local", "share", "glossa")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("dev_safety", true)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("auth.require_confirmation", false)
	v.SetDefault("engine.debounce", "1s")
	v.SetDefault("engine.flush_on_close", true)
	v.SetDefault("engine.write_timeout", "15s")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.model", "claude-sonnet-4-5")
	v.SetDefault("ai.max_tokens", 2048)
	v.SetDefault("ai.corpus_limit", 12000)
	v.SetDefault("ai.quiz_size", 5)
	v.SetDefault("speech.enabled", true)
	v.SetDefault("speech.command", "")
	v.SetDefault("metrics.addr", "")
}

// NewViper builds the configuration source. file is an explicit config path;
// when empty glossa.yaml is searched in $HOME/.config/glossa and the current
// directory. A missing file is not an error.
func NewViper(file string) (*viper.Viper, error) {
	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GLOSSA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The SDK variable is honoured as a fallback.
	_ = v.BindEnv("ai.api_key", "GLOSSA_AI_API_KEY", "ANTHROPIC_API_KEY")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("glossa")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "glossa"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// Decode unmarshals and validates the configuration held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Filename = v.ConfigFileUsed()
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.LogFile = expandHome(cfg.LogFile)

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadConfig reads and validates the configuration.
func LoadConfig(file string) (*Config, *viper.Viper, error) {
	v, err := NewViper(file)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := Decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
