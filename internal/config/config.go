package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rpggio/inboxtriage/internal/secrets"
)

// Config defines application configuration.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	Store     StoreConfig     `yaml:"store"`
	Mail      MailConfig      `yaml:"mail"`
	Inference InferenceConfig `yaml:"inference"`
	Output    OutputConfig    `yaml:"output"`
	Server    ServerConfig    `yaml:"server"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Log       LogConfig       `yaml:"log"`
}

type StoreConfig struct {
	// Backend is json or sqlite.
	Backend string `yaml:"backend"`
	// Path is the SQLite file; relative paths are under DataDir.
	Path string `yaml:"path"`
}

type MailConfig struct {
	CredentialsPath  string `yaml:"credentials_path"`
	TokenPath        string `yaml:"token_path"`
	MaxMessages      int    `yaml:"max_messages"`
	BodyLimit        int    `yaml:"body_limit"`
	FetchConcurrency int    `yaml:"fetch_concurrency"`
}

type InferenceConfig struct {
	Provider        string  `yaml:"provider"`
	Model           string  `yaml:"model"`
	APIKey          string  `yaml:"api_key"`
	BaseURL         string  `yaml:"base_url"`
	Temperature     float64 `yaml:"temperature"`
	Pass1MaxTokens  int     `yaml:"pass1_max_tokens"`
	Pass2MaxTokens  int     `yaml:"pass2_max_tokens"`
	RefineMaxTokens int     `yaml:"refine_max_tokens"`
}

type OutputConfig struct {
	// Dir receives daily_summary.md and daily_summary.html; defaults to DataDir.
	Dir string `yaml:"dir"`
}

type ServerConfig struct {
	Transport string `yaml:"transport"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

type ScheduleConfig struct {
	Cron string `yaml:"cron"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// lookupKey reads API keys from the OS keychain when the environment has none.
var lookupKey = secrets.Get

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		DataDir: "data",
		Store:   StoreConfig{Backend: "json", Path: "triage.db"},
		Mail: MailConfig{
			CredentialsPath:  "credentials.json",
			TokenPath:        "token.json",
			MaxMessages:      50,
			BodyLimit:        8000,
			FetchConcurrency: 4,
		},
		Inference: InferenceConfig{
			Provider:        "openai",
			Model:           "gpt-4.1-mini",
			Temperature:     0.2,
			Pass1MaxTokens:  2000,
			Pass2MaxTokens:  2500,
			RefineMaxTokens: 2000,
		},
		Server:   ServerConfig{Transport: "stdio", Host: "127.0.0.1", Port: 8080},
		Schedule: ScheduleConfig{Cron: "0 7 * * *"},
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads configuration from defaults, a .env file, an optional YAML file
// and environment variables, in that order.
func Load() (Config, error) {
	if err := loadDotEnv(envOr("TRIAGE_ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if path := os.Getenv("TRIAGE_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Inference.APIKey == "" {
		if key, err := lookupKey(cfg.Inference.Provider); err == nil {
			cfg.Inference.APIKey = key
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadDotEnv populates the environment from path without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("read env file: %w", err)
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.DataDir, "TRIAGE_DATA_DIR", "DATA_DIR")
	setString(&cfg.Store.Backend, "TRIAGE_STORE_BACKEND")
	setString(&cfg.Store.Path, "TRIAGE_DB_PATH")
	setString(&cfg.Mail.CredentialsPath, "TRIAGE_GMAIL_CREDENTIALS", "GMAIL_CREDENTIALS_PATH")
	setString(&cfg.Mail.TokenPath, "TRIAGE_GMAIL_TOKEN", "GMAIL_TOKEN_PATH")
	setString(&cfg.Inference.Provider, "TRIAGE_INFERENCE_PROVIDER")
	setString(&cfg.Inference.Model, "TRIAGE_MODEL", "MODEL_NAME")
	setString(&cfg.Inference.BaseURL, "TRIAGE_INFERENCE_BASE_URL", "OPENAI_BASE_URL")
	setString(&cfg.Output.Dir, "TRIAGE_OUTPUT_DIR")
	setString(&cfg.Server.Transport, "TRIAGE_SERVER_TRANSPORT")
	setString(&cfg.Server.Host, "TRIAGE_SERVER_HOST")
	setString(&cfg.Server.AuthToken, "TRIAGE_AUTH_TOKEN")
	setString(&cfg.Schedule.Cron, "TRIAGE_SCHEDULE")
	setString(&cfg.Log.Level, "TRIAGE_LOG_LEVEL")
	setString(&cfg.Log.Path, "TRIAGE_LOG_PATH")

	switch strings.ToLower(cfg.Inference.Provider) {
	case "anthropic":
		setString(&cfg.Inference.APIKey, "TRIAGE_API_KEY", "ANTHROPIC_API_KEY")
	default:
		setString(&cfg.Inference.APIKey, "TRIAGE_API_KEY", "OPENAI_API_KEY")
	}

	for _, v := range []struct {
		dst  *int
		keys []string
	}{
		{&cfg.Mail.MaxMessages, []string{"TRIAGE_MAX_MESSAGES", "MAX_EMAILS_PER_RUN"}},
		{&cfg.Mail.BodyLimit, []string{"TRIAGE_BODY_LIMIT"}},
		{&cfg.Server.Port, []string{"TRIAGE_SERVER_PORT"}},
	} {
		if err := setInt(v.dst, v.keys...); err != nil {
			return err
		}
	}
	return nil
}

// setString assigns the first non-empty variable among keys.
func setString(dst *string, keys ...string) {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			*dst = v
			return
		}
	}
}

func setInt(dst *int, keys ...string) error {
	for _, k := range keys {
		v := strings.TrimSpace(os.Getenv(k))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", k, err)
		}
		*dst = n
		return nil
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Validate checks values that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("invalid store backend %q (want json or sqlite)", c.Store.Backend)
	}
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid server transport %q (want stdio or http)", c.Server.Transport)
	}
	if c.Mail.MaxMessages <= 0 {
		return fmt.Errorf("max messages must be positive, got %d", c.Mail.MaxMessages)
	}
	if t := c.Inference.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", t)
	}
	if c.DataDir == "" {
		return errors.New("data dir is empty")
	}
	return nil
}

// DBPath resolves the SQLite file location.
func (c Config) DBPath() string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(c.DataDir, c.Store.Path)
}

// OutputDir resolves where summaries are written.
func (c Config) OutputDir() string {
	if c.Output.Dir != "" {
		return c.Output.Dir
	}
	return c.DataDir
}

// LockPath is the file guarding the data directory against concurrent runs.
func (c Config) LockPath() string {
	return filepath.Join(c.DataDir, ".triage.lock")
}
