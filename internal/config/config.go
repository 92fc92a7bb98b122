package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort           = 8080
	DefaultHost           = "127.0.0.1"
	DefaultLogLevel       = "info"
	DefaultMaxFileSize    = 50 * 1024 * 1024 // 50MB
	DefaultMinConfidence  = 0.2
	DefaultMaxOCR         = 2
	DefaultRateLimitRPS   = 5.0
	DefaultRateLimitBurst = 10
	DefaultMaxInFlight    = 16

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the form extraction server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Upload configuration
	UploadDirectory string
	MaxFileSize     int64 // Maximum upload size in bytes
	KeepUploads     bool  // Leave processed uploads on disk

	// Extraction configuration
	MinConfidence float64  // Exclusive lower bound for OCR detections
	Languages     []string // Tesseract language codes
	Preprocess    bool     // Enhance images before OCR

	// Throttling configuration (server mode only)
	MaxConcurrentOCR int64
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxInFlight      int

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:             ModeServer,
		Host:             DefaultHost,
		Port:             DefaultPort,
		UploadDirectory:  filepath.Join(os.TempDir(), "formscan-uploads"),
		MaxFileSize:      DefaultMaxFileSize,
		KeepUploads:      false,
		MinConfidence:    DefaultMinConfidence,
		Languages:        []string{"eng"},
		Preprocess:       true,
		MaxConcurrentOCR: DefaultMaxOCR,
		RateLimitRPS:     DefaultRateLimitRPS,
		RateLimitBurst:   DefaultRateLimitBurst,
		MaxInFlight:      DefaultMaxInFlight,
		Version:          "1.0.0",
		ServerName:       "formscan",
		LogLevel:         DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.UploadDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.UploadDirectory); err == nil {
			cfg.UploadDirectory = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("FORMSCAN")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.UploadDirectory)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("keepuploads", cfg.KeepUploads)
	viper.SetDefault("minconfidence", cfg.MinConfidence)
	viper.SetDefault("languages", cfg.Languages)
	viper.SetDefault("preprocess", cfg.Preprocess)
	viper.SetDefault("maxocr", cfg.MaxConcurrentOCR)
	viper.SetDefault("ratelimit", cfg.RateLimitRPS)
	viper.SetDefault("rateburst", cfg.RateLimitBurst)
	viper.SetDefault("maxinflight", cfg.MaxInFlight)
	viper.SetDefault("loglevel", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'server' for HTTP API, 'stdio' for MCP standard I/O")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.UploadDirectory, "Directory for uploaded files")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum upload size in bytes")
	pflag.Bool("keepuploads", cfg.KeepUploads, "Keep processed uploads on disk")
	pflag.Float64("minconfidence", cfg.MinConfidence, "Minimum OCR confidence for text blocks, in [0, 1)")
	pflag.StringSlice("languages", cfg.Languages, "Tesseract language codes")
	pflag.Bool("preprocess", cfg.Preprocess, "Enhance images before OCR")
	pflag.Int64("maxocr", cfg.MaxConcurrentOCR, "Maximum concurrent OCR recognitions")
	pflag.Float64("ratelimit", cfg.RateLimitRPS, "Per-client requests per second (server mode only)")
	pflag.Int("rateburst", cfg.RateLimitBurst, "Per-client request burst (server mode only)")
	pflag.Int("maxinflight", cfg.MaxInFlight, "Maximum in-flight HTTP requests (server mode only)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "maxfilesize", "keepuploads",
		"minconfidence", "languages", "preprocess", "maxocr",
		"ratelimit", "rateburst", "maxinflight", "loglevel",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nformscan - OCR form field extraction server\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          # HTTP server on 127.0.0.1:8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --host=0.0.0.0 --port=8081               # server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio                             # MCP stdio mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --languages=eng,deu --minconfidence=0.3  # tuned recognition\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  FORMSCAN_MODE           Run mode\n")
		fmt.Fprintf(os.Stderr, "  FORMSCAN_HOST           Server host\n")
		fmt.Fprintf(os.Stderr, "  FORMSCAN_PORT           Server port\n")
		fmt.Fprintf(os.Stderr, "  FORMSCAN_DIR            Upload directory\n")
		fmt.Fprintf(os.Stderr, "  FORMSCAN_MAXFILESIZE    Maximum upload size\n")
		fmt.Fprintf(os.Stderr, "  FORMSCAN_MINCONFIDENCE  Minimum OCR confidence\n")
		fmt.Fprintf(os.Stderr, "  FORMSCAN_LANGUAGES      Tesseract languages\n")
		fmt.Fprintf(os.Stderr, "  FORMSCAN_LOGLEVEL       Log level\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.UploadDirectory = viper.GetString("dir")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.KeepUploads = viper.GetBool("keepuploads")
	cfg.MinConfidence = viper.GetFloat64("minconfidence")
	cfg.Languages = viper.GetStringSlice("languages")
	cfg.Preprocess = viper.GetBool("preprocess")
	cfg.MaxConcurrentOCR = viper.GetInt64("maxocr")
	cfg.RateLimitRPS = viper.GetFloat64("ratelimit")
	cfg.RateLimitBurst = viper.GetInt("rateburst")
	cfg.MaxInFlight = viper.GetInt("maxinflight")
	cfg.LogLevel = viper.GetString("loglevel")
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

	// Validate upload directory
	if c.UploadDirectory == "" {
		return errors.New("upload directory cannot be empty")
	}

	// Check if upload directory exists, create if it doesn't
	if _, err := os.Stat(c.UploadDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.UploadDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create upload directory %s: %w", c.UploadDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access upload directory %s: %w", c.UploadDirectory, err)
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate confidence threshold
	if c.MinConfidence < 0 || c.MinConfidence >= 1 {
		return fmt.Errorf("minimum confidence must be in [0, 1), got %g", c.MinConfidence)
	}

	// Validate languages
	if len(c.Languages) == 0 {
		return errors.New("at least one OCR language is required")
	}
	for _, lang := range c.Languages {
		if strings.TrimSpace(lang) == "" {
			return errors.New("OCR language codes cannot be blank")
		}
	}

	// Validate throttling settings
	if c.MaxConcurrentOCR <= 0 {
		return errors.New("maximum concurrent OCR must be positive")
	}
	if c.Mode == ModeServer {
		if c.RateLimitRPS <= 0 {
			return errors.New("rate limit must be positive")
		}
		if c.RateLimitBurst <= 0 {
			return errors.New("rate limit burst must be positive")
		}
		if c.MaxInFlight <= 0 {
			return errors.New("maximum in-flight requests must be positive")
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

	return nil
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
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, UploadDirectory: %s, Languages: %s, MinConfidence: %g, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.UploadDirectory, strings.Join(c.Languages, "+"), c.MinConfidence, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if running in MCP stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
