package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort                   = 8080
	DefaultHost                   = "127.0.0.1"
	DefaultLogLevel               = "info"
	DefaultMaxFileSize            = 100 * 1024 * 1024 // 100MB
	DefaultRenderQuality          = 2.0
	DefaultCompressionLevel       = 2
	DefaultTimeout                = 30 * time.Second
	DefaultRendererPath           = "pdftoppm"
	DefaultRenderWorkers          = 4
	DefaultMaxConcurrentDocuments = 2

	// EnvPrefix is prepended to every environment variable
	EnvPrefix = "MCP_PDF_SANITIZER"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the PDF sanitizer MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// PDF configuration
	PDFDirectory    string
	OutputDirectory string // sanitized output, defaults to PDFDirectory

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 `validate:"gt=0"` // Maximum PDF file size in bytes

	// Sanitizer configuration
	RenderQuality          float64       `validate:"gte=0.5,lte=4"`
	CompressionLevel       int           `validate:"gte=0,lte=3"`
	Timeout                time.Duration `validate:"gt=0"`
	RendererPath           string        `validate:"required"`
	RenderWorkers          int           `validate:"gte=1,lte=64"`
	MaxConcurrentDocuments int           `validate:"gte=1,lte=64"`
}

var configValidator = validator.New()

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:                   ModeStdio, // Default to stdio mode for MCP compatibility
		Host:                   DefaultHost,
		Port:                   DefaultPort,
		PDFDirectory:           currentDir,
		Version:                "1.0.0",
		ServerName:             "mcp-pdf-sanitizer",
		LogLevel:               DefaultLogLevel,
		MaxFileSize:            DefaultMaxFileSize,
		RenderQuality:          DefaultRenderQuality,
		CompressionLevel:       DefaultCompressionLevel,
		Timeout:                DefaultTimeout,
		RendererPath:           DefaultRendererPath,
		RenderWorkers:          DefaultRenderWorkers,
		MaxConcurrentDocuments: DefaultMaxConcurrentDocuments,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}
	if cfg.OutputDirectory == "" {
		cfg.OutputDirectory = cfg.PDFDirectory
	} else if expandedPath, err := filepath.Abs(cfg.OutputDirectory); err == nil {
		cfg.OutputDirectory = expandedPath
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// MCP_PDF_SANITIZER_LOG_LEVEL maps to the "log-level" key
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("output-dir", cfg.OutputDirectory)
	viper.SetDefault("log-level", cfg.LogLevel)
	viper.SetDefault("max-file-size", cfg.MaxFileSize)
	viper.SetDefault("quality", cfg.RenderQuality)
	viper.SetDefault("compression", cfg.CompressionLevel)
	viper.SetDefault("timeout", cfg.Timeout)
	viper.SetDefault("renderer", cfg.RendererPath)
	viper.SetDefault("render-workers", cfg.RenderWorkers)
	viper.SetDefault("max-concurrent", cfg.MaxConcurrentDocuments)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing PDF files")
	pflag.String("output-dir", cfg.OutputDirectory, "Directory for sanitized PDFs (defaults to --dir)")
	pflag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.Float64("quality", cfg.RenderQuality, "Page render quality multiplier (0.5-4.0)")
	pflag.Int("compression", cfg.CompressionLevel, "Output compression level (0-3)")
	pflag.Duration("timeout", cfg.Timeout, "Maximum time to sanitize one document")
	pflag.String("renderer", cfg.RendererPath, "Path to the pdftoppm binary")
	pflag.Int("render-workers", cfg.RenderWorkers, "Pages rendered in parallel per document")
	pflag.Int("max-concurrent", cfg.MaxConcurrentDocuments, "Documents sanitized in parallel")
}

var flagKeys = []string{
	"mode", "host", "port", "dir", "output-dir", "log-level", "max-file-size",
	"quality", "compression", "timeout", "renderer", "render-workers", "max-concurrent",
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range flagKeys {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Sanitizer - A Model Context Protocol server that detects active content "+
			"in PDF files and rebuilds them as flat images\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/pdfs                     "+
			"# stdio mode with custom directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/in --output-dir=/out --quality=3 # sharper rebuilt pages\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		for _, key := range flagKeys {
			fmt.Fprintf(os.Stderr, "  %s_%s\n", EnvPrefix, strings.ToUpper(strings.ReplaceAll(key, "-", "_")))
		}
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.OutputDirectory = viper.GetString("output-dir")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.MaxFileSize = viper.GetInt64("max-file-size")
	cfg.RenderQuality = viper.GetFloat64("quality")
	cfg.CompressionLevel = viper.GetInt("compression")
	cfg.Timeout = viper.GetDuration("timeout")
	cfg.RendererPath = viper.GetString("renderer")
	cfg.RenderWorkers = viper.GetInt("render-workers")
	cfg.MaxConcurrentDocuments = viper.GetInt("max-concurrent")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate PDF directory
	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}
	if err := ensureDirectory(c.PDFDirectory); err != nil {
		return fmt.Errorf("cannot use PDF directory %s: %w", c.PDFDirectory, err)
	}

	if c.OutputDirectory != "" {
		if err := ensureDirectory(c.OutputDirectory); err != nil {
			return fmt.Errorf("cannot use output directory %s: %w", c.OutputDirectory, err)
		}
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	// Numeric ranges
	if err := configValidator.Struct(c); err != nil {
		return formatValidationError(err)
	}

	return nil
}

// ensureDirectory creates dir if it does not exist yet
func ensureDirectory(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Field() {
	case "MaxFileSize":
		return errors.New("maximum file size must be positive")
	case "RenderQuality":
		return fmt.Errorf("render quality must be between 0.5 and 4.0, got %v", fe.Value())
	case "CompressionLevel":
		return fmt.Errorf("compression level must be between 0 and 3, got %v", fe.Value())
	case "Timeout":
		return errors.New("timeout must be positive")
	default:
		return fmt.Errorf("invalid %s: failed %q check", fe.Field(), fe.Tag())
	}
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, OutputDirectory: %s, "+
		"LogLevel: %s, MaxFileSize: %d, RenderQuality: %.1f, CompressionLevel: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.OutputDirectory,
		c.LogLevel, c.MaxFileSize, c.RenderQuality, c.CompressionLevel)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// OutputDir returns the directory sanitized files are written to
func (c *Config) OutputDir() string {
	if c.OutputDirectory != "" {
		return c.OutputDirectory
	}
	return c.PDFDirectory
}
