package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Port       int    `envconfig:"PORT" default:"7860"`
	PublicHost string `envconfig:"PUBLIC_HOST"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	GoogleAPIKey  string `envconfig:"GOOGLE_API_KEY"`
	GoogleModel   string `envconfig:"GOOGLE_MODEL" default:"gemini-2.0-flash"`
	GoogleBaseURL string `envconfig:"GOOGLE_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta/openai"`

	SonioxAPIKey string `envconfig:"SONIOX_API_KEY"`
	SonioxModel  string `envconfig:"SONIOX_MODEL" default:"stt-rt-preview"`

	CartesiaAPIKey  string `envconfig:"CARTESIA_API_KEY"`
	CartesiaVoiceID string `envconfig:"CARTESIA_VOICE_ID" default:"71a7ad14-091c-4e8e-a314-022ece01c121"`
	CartesiaModel   string `envconfig:"CARTESIA_MODEL" default:"sonic-2"`

	TwilioAccountSID string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`

	// base64, or a path to a file holding base64
	StreamHashKeyRaw  string `envconfig:"STREAM_HASH_KEY"`
	StreamBlockKeyRaw string `envconfig:"STREAM_BLOCK_KEY"`
	StreamHashKey     []byte `ignored:"true"`
	StreamBlockKey    []byte `ignored:"true"`

	AdminUser           string `envconfig:"ADMIN_USER" default:"admin"`
	AdminPasswordBcrypt string `envconfig:"ADMIN_PASSWORD_BCRYPT"`

	LogDebug  bool `envconfig:"LOG_DEBUG" default:"false"`
	LogPretty bool `envconfig:"LOG_PRETTY" default:"false"`
}

func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c Config) StreamSigningEnabled() bool {
	return len(c.StreamHashKey) > 0
}

// FromEnv reads an optional .env file from the working directory and then
// the process environment. Variables already set in the environment win.
func FromEnv() (Config, error) {
	if err := exportEnvFile(".env"); err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Load()
}

// FromFile is FromEnv with an explicit env file path that must exist.
func FromFile(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, err
	}
	if err := exportEnvFile(path); err != nil {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	return Load()
}

// Load builds a Config from the process environment only.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT %d", cfg.Port)
	}

	if cfg.StreamHashKeyRaw != "" || cfg.StreamBlockKeyRaw != "" {
		if cfg.StreamHashKeyRaw == "" || cfg.StreamBlockKeyRaw == "" {
			return Config{}, errors.New("STREAM_HASH_KEY and STREAM_BLOCK_KEY must be set together")
		}
		var err error
		cfg.StreamHashKey, err = decodeB64(cfg.StreamHashKeyRaw)
		if err != nil {
			return Config{}, fmt.Errorf("STREAM_HASH_KEY: %w", err)
		}
		cfg.StreamBlockKey, err = decodeB64(cfg.StreamBlockKeyRaw)
		if err != nil {
			return Config{}, fmt.Errorf("STREAM_BLOCK_KEY: %w", err)
		}
	}

	return cfg, nil
}

func exportEnvFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}

func decodeB64(s string) ([]byte, error) {
	if b, err := os.ReadFile(s); err == nil {
		// allow pointing to file path for k8s secret mounts
		s = string(b)
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}
