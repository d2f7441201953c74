package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvMaxFileBytes, EnvWorkers, EnvTimeout, EnvOCRLanguage,
		EnvLogLevel, EnvLogFormat, EnvChromePath, EnvBrowserDownload,
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, DefaultMaxFileBytes, cfg.MaxFileSizeBytes)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, "eng", cfg.OCRLanguage)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.BrowserDownload)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvMaxFileBytes, "1048576")
	t.Setenv(EnvWorkers, "8")
	t.Setenv(EnvTimeout, "30s")
	t.Setenv(EnvOCRLanguage, "deu")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvChromePath, "/usr/bin/chromium")
	t.Setenv(EnvBrowserDownload, "true")

	cfg := Load()

	assert.Equal(t, int64(1_048_576), cfg.MaxFileSizeBytes)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "deu", cfg.OCRLanguage)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/usr/bin/chromium", cfg.ChromePath)
	assert.True(t, cfg.BrowserDownload)
}

func TestLoad_InvalidValuesIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvMaxFileBytes, "not-a-number")
	t.Setenv(EnvWorkers, "0")
	t.Setenv(EnvTimeout, "-5s")
	t.Setenv(EnvLogLevel, "loud")
	t.Setenv(EnvLogFormat, "xml")
	t.Setenv(EnvBrowserDownload, "maybe")

	cfg := Load()

	assert.Equal(t, DefaultMaxFileBytes, cfg.MaxFileSizeBytes)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultLogFormat, cfg.LogFormat)
	assert.False(t, cfg.BrowserDownload)
}

func TestMaxFileSizeMB(t *testing.T) {
	cfg := &Config{MaxFileSizeBytes: 10 << 20}
	assert.Equal(t, int64(10), cfg.MaxFileSizeMB())
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{LogLevel: "warn", LogFormat: "json"}
	logger := cfg.NewLogger()

	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	cfg = &Config{LogLevel: "bogus"}
	assert.Equal(t, logrus.InfoLevel, cfg.NewLogger().GetLevel())
}
