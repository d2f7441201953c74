package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Environment variable names.
const (
	EnvMaxFileBytes    = "PDFGEARS_MAX_FILE_BYTES"
	EnvWorkers         = "PDFGEARS_WORKERS"
	EnvTimeout         = "PDFGEARS_TIMEOUT"
	EnvOCRLanguage     = "PDFGEARS_OCR_LANG"
	EnvLogLevel        = "PDFGEARS_LOG_LEVEL"
	EnvLogFormat       = "PDFGEARS_LOG_FORMAT"
	EnvChromePath      = "PDFGEARS_CHROME_PATH"
	EnvBrowserDownload = "PDFGEARS_BROWSER_DOWNLOAD"
)

// Defaults applied when the environment is silent or invalid.
const (
	DefaultMaxFileBytes int64 = 50 << 20
	DefaultWorkers            = 4
	DefaultTimeout            = 2 * time.Minute
	DefaultOCRLanguage        = "eng"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
)

// Config holds runtime configuration sourced from environment variables.
type Config struct {
	MaxFileSizeBytes int64
	Workers          int
	Timeout          time.Duration
	OCRLanguage      string
	LogLevel         string
	LogFormat        string
	ChromePath       string
	BrowserDownload  bool
}

// MaxFileSizeMB returns the configured limit in whole megabytes.
func (c *Config) MaxFileSizeMB() int64 {
	return c.MaxFileSizeBytes >> 20
}

// Load reads Config from environment variables, falling back to defaults for
// missing or invalid values.
func Load() *Config {
	cfg := &Config{
		MaxFileSizeBytes: DefaultMaxFileBytes,
		Workers:          DefaultWorkers,
		Timeout:          DefaultTimeout,
		OCRLanguage:      DefaultOCRLanguage,
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
	}
	if v := os.Getenv(EnvMaxFileBytes); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxFileSizeBytes = n
		}
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvOCRLanguage)); v != "" {
		cfg.OCRLanguage = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		if _, err := logrus.ParseLevel(v); err == nil {
			cfg.LogLevel = strings.ToLower(v)
		}
	}
	if v := strings.ToLower(os.Getenv(EnvLogFormat)); v == "json" || v == "text" {
		cfg.LogFormat = v
	}
	cfg.ChromePath = os.Getenv(EnvChromePath)
	if v := os.Getenv(EnvBrowserDownload); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.BrowserDownload = b
		}
	}
	return cfg
}

// NewLogger builds a logrus logger honouring LogLevel and LogFormat.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logger.SetOutput(os.Stderr)
	return logger
}
