package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration for the service. It is read once
// at startup and never reloaded.
type Config struct {
	Whisper WhisperConfig
	Email   EmailConfig
	Server  ServerConfig
}

type WhisperConfig struct {
	ModelSize   string // tiny/base/small
	ModelDir    string
	Compute     string // int8 (CPU), float16 (GPU), etc.
	Language    string
	BeamSize    int
	Concurrency int
	Timeout     time.Duration
}

type EmailConfig struct {
	Host    string
	Port    int
	User    string
	Pass    string
	To      string
	Timeout time.Duration
}

type ServerConfig struct {
	Port           int
	StaticDir      string
	AllowedOrigins []string
	MaxUploadBytes int64
	LogLevel       string
}

// ModelPath resolves the ggml model file for the configured size.
func (w WhisperConfig) ModelPath() string {
	return filepath.Join(w.ModelDir, fmt.Sprintf("ggml-%s.bin", w.ModelSize))
}

// Configured reports whether all settings required for sending mail are
// present. The mailer fails closed when any is missing.
func (e EmailConfig) Configured() bool {
	return e.Host != "" && e.Port > 0 && e.User != "" && e.Pass != "" && e.To != ""
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	port, err := envInt("PORT", 8000)
	if err != nil {
		return nil, err
	}
	emailPort, err := envInt("EMAIL_PORT", 587) // 587 = STARTTLS
	if err != nil {
		return nil, err
	}
	beam, err := envInt("WHISPER_BEAM", 1)
	if err != nil {
		return nil, err
	}
	concurrency, err := envInt("WHISPER_CONCURRENCY", 1)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("WHISPER_CONCURRENCY must be at least 1, got %d", concurrency)
	}
	maxUpload, err := envInt64("MAX_UPLOAD_BYTES", 64<<20)
	if err != nil {
		return nil, err
	}
	transcribeTimeout, err := envDuration("TRANSCRIBE_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	emailTimeout, err := envDuration("EMAIL_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	emailUser := os.Getenv("EMAIL_USER")
	emailTo := os.Getenv("EMAIL_TO")
	if emailTo == "" {
		emailTo = emailUser
	}

	cfg := &Config{
		Whisper: WhisperConfig{
			ModelSize:   envStr("WHISPER_MODEL", "tiny"),
			ModelDir:    envStr("WHISPER_MODEL_DIR", "./models"),
			Compute:     envStr("WHISPER_COMPUTE", "int8"),
			Language:    envStr("WHISPER_LANGUAGE", "en"),
			BeamSize:    beam,
			Concurrency: concurrency,
			Timeout:     transcribeTimeout,
		},
		Email: EmailConfig{
			Host:    envStr("EMAIL_HOST", "smtp.gmail.com"),
			Port:    emailPort,
			User:    emailUser,
			Pass:    os.Getenv("EMAIL_PASS"),
			To:      emailTo,
			Timeout: emailTimeout,
		},
		Server: ServerConfig{
			Port:           port,
			StaticDir:      envStr("STATIC_DIR", "./static"),
			AllowedOrigins: envList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:5500"}),
			MaxUploadBytes: maxUpload,
			LogLevel:       envStr("LOG_LEVEL", "info"),
		},
	}
	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func envInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
