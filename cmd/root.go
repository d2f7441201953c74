package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pdfgears/config"
	"pdfgears/converter"
)

var (
	cfg     *config.Config
	logger  *logrus.Logger
	service *converter.Service
)

var (
	logLevel        string
	logFormat       string
	workers         int
	timeout         time.Duration
	ocrLang         string
	maxSizeMB       int64
	chromePath      string
	browserDownload bool
	noSandbox       bool
)

var rootCmd = &cobra.Command{
	Use:   "pdfgears",
	Short: "Convert, rasterize, edit and protect PDF documents",
	Long: `pdfgears converts PDFs to Word, Excel and Markdown, turns Word and Excel
files and images into PDFs, renders pages to images, and splits, merges,
rotates, compresses and encrypts PDFs.

Text extraction picks a strategy per document:
  - structured: rebuilds paragraphs from positioned, styled text
  - regular:    plain per-line text for pages the structured pass cannot read
  - ocr:        tesseract over rendered pages, for scanned documents

Settings come from PDFGEARS_* environment variables; flags override them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		setup(cmd)
		return nil
	},
}

// setup loads configuration, applies flag overrides and builds the service.
func setup(cmd *cobra.Command) {
	cfg = config.Load()
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if flags.Changed("workers") && workers > 0 {
		cfg.Workers = workers
	}
	if flags.Changed("timeout") && timeout > 0 {
		cfg.Timeout = timeout
	}
	if flags.Changed("ocr-lang") {
		cfg.OCRLanguage = ocrLang
	}
	if flags.Changed("max-size-mb") && maxSizeMB > 0 {
		cfg.MaxFileSizeBytes = maxSizeMB << 20
	}
	if flags.Changed("chrome-path") {
		cfg.ChromePath = chromePath
	}
	if flags.Changed("browser-download") {
		cfg.BrowserDownload = browserDownload
	}

	logger = cfg.NewLogger()
	opts := converter.OptionsFromConfig(cfg, logger)
	opts.NoSandbox = noSandbox
	service = converter.New(opts)
}

// SetVersionInfo records build metadata injected via ldflags.
func SetVersionInfo(version, buildTime, gitCommit string) {
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", version, buildTime, gitCommit)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", config.DefaultLogFormat, "Log format: text or json")
	pf.IntVar(&workers, "workers", config.DefaultWorkers, "Pages processed concurrently")
	pf.DurationVar(&timeout, "timeout", config.DefaultTimeout, "Deadline for one conversion")
	pf.StringVar(&ocrLang, "ocr-lang", config.DefaultOCRLanguage, "Tesseract language code")
	pf.Int64Var(&maxSizeMB, "max-size-mb", config.DefaultMaxFileBytes>>20, "Largest accepted input in MB")
	pf.StringVar(&chromePath, "chrome-path", "", "Chrome or Chromium binary for Word/Excel to PDF")
	pf.BoolVar(&browserDownload, "browser-download", false, "Download Chromium when none is installed")
	pf.BoolVar(&noSandbox, "no-sandbox", false, "Run Chrome without its sandbox (containers)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
