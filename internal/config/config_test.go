package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// validConfig returns a config that passes Validate, rooted in a temp
// upload directory.
func validConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Mode:             ModeServer,
		Host:             "127.0.0.1",
		Port:             8080,
		UploadDirectory:  t.TempDir(),
		MaxFileSize:      1024,
		MinConfidence:    0.2,
		Languages:        []string{"eng"},
		MaxConcurrentOCR: 2,
		RateLimitRPS:     5,
		RateLimitBurst:   10,
		MaxInFlight:      16,
		LogLevel:         "info",
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "server" {
		t.Errorf("Expected default mode to be 'server', got '%s'", cfg.Mode)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected default host to be '127.0.0.1', got '%s'", cfg.Host)
	}

	if cfg.Port != 8080 {
		t.Errorf("Expected default port to be 8080, got %d", cfg.Port)
	}

	if cfg.Version != "1.0.0" {
		t.Errorf("Expected default version to be '1.0.0', got '%s'", cfg.Version)
	}

	if cfg.ServerName != "formscan" {
		t.Errorf("Expected default server name to be 'formscan', got '%s'", cfg.ServerName)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level to be 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.MaxFileSize != 50*1024*1024 {
		t.Errorf("Expected default max file size to be 50MB, got %d", cfg.MaxFileSize)
	}

	if cfg.MinConfidence != 0.2 {
		t.Errorf("Expected default min confidence to be 0.2, got %g", cfg.MinConfidence)
	}

	if len(cfg.Languages) != 1 || cfg.Languages[0] != "eng" {
		t.Errorf("Expected default languages to be [eng], got %v", cfg.Languages)
	}

	if !cfg.Preprocess {
		t.Error("Expected preprocessing to be enabled by default")
	}

	if cfg.UploadDirectory == "" {
		t.Error("Expected default upload directory to be set")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config - server mode",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "valid config - stdio mode",
			mutate:  func(c *Config) { c.Mode = ModeStdio },
			wantErr: false,
		},
		{
			name:    "invalid mode",
			mutate:  func(c *Config) { c.Mode = "invalid" },
			wantErr: true,
		},
		{
			name:    "invalid port - too low (server mode)",
			mutate:  func(c *Config) { c.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port - too high (server mode)",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: true,
		},
		{
			name: "invalid port ignored in stdio mode",
			mutate: func(c *Config) {
				c.Mode = ModeStdio
				c.Port = 0
			},
			wantErr: false,
		},
		{
			name:    "empty upload directory",
			mutate:  func(c *Config) { c.UploadDirectory = "" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
		{
			name:    "invalid max file size",
			mutate:  func(c *Config) { c.MaxFileSize = 0 },
			wantErr: true,
		},
		{
			name:    "negative min confidence",
			mutate:  func(c *Config) { c.MinConfidence = -0.1 },
			wantErr: true,
		},
		{
			name:    "min confidence at one",
			mutate:  func(c *Config) { c.MinConfidence = 1.0 },
			wantErr: true,
		},
		{
			name:    "no languages",
			mutate:  func(c *Config) { c.Languages = nil },
			wantErr: true,
		},
		{
			name:    "blank language code",
			mutate:  func(c *Config) { c.Languages = []string{"eng", " "} },
			wantErr: true,
		},
		{
			name:    "non-positive max ocr",
			mutate:  func(c *Config) { c.MaxConcurrentOCR = 0 },
			wantErr: true,
		},
		{
			name:    "non-positive rate limit (server mode)",
			mutate:  func(c *Config) { c.RateLimitRPS = 0 },
			wantErr: true,
		},
		{
			name: "rate limit ignored in stdio mode",
			mutate: func(c *Config) {
				c.Mode = ModeStdio
				c.RateLimitRPS = 0
			},
			wantErr: false,
		},
		{
			name:    "non-positive burst (server mode)",
			mutate:  func(c *Config) { c.RateLimitBurst = 0 },
			wantErr: true,
		},
		{
			name:    "non-positive max in-flight (server mode)",
			mutate:  func(c *Config) { c.MaxInFlight = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateCreatesUploadDirectory(t *testing.T) {
	cfg := validConfig(t)
	cfg.UploadDirectory = filepath.Join(t.TempDir(), "not-yet", "uploads")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Config.Validate() unexpected error: %v", err)
	}

	if _, err := os.Stat(cfg.UploadDirectory); err != nil {
		t.Errorf("Upload directory should have been created: %v", err)
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := &Config{
		Host: "192.168.1.1",
		Port: 9090,
	}

	expected := "192.168.1.1:9090"
	if got := cfg.Address(); got != expected {
		t.Errorf("Config.Address() = %v, want %v", got, expected)
	}
}

func TestConfigIsDebug(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		want     bool
	}{
		{name: "debug level", logLevel: "debug", want: true},
		{name: "info level", logLevel: "info", want: false},
		{name: "warn level", logLevel: "warn", want: false},
		{name: "error level", logLevel: "error", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			if got := cfg.IsDebug(); got != tt.want {
				t.Errorf("Config.IsDebug() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigString(t *testing.T) {
	cfg := &Config{
		Mode:            "server",
		Host:            "localhost",
		Port:            8080,
		UploadDirectory: "/var/lib/formscan/uploads",
		Languages:       []string{"eng", "deu"},
		MinConfidence:   0.3,
		LogLevel:        "debug",
		MaxFileSize:     1024,
	}

	result := cfg.String()

	expectedSubstrings := []string{
		"Mode: server",
		"Host: localhost",
		"Port: 8080",
		"UploadDirectory: /var/lib/formscan/uploads",
		"Languages: eng+deu",
		"MinConfidence: 0.3",
		"LogLevel: debug",
		"MaxFileSize: 1024",
	}

	for _, substr := range expectedSubstrings {
		if !strings.Contains(result, substr) {
			t.Errorf("Config.String() result doesn't contain expected substring: %s\nGot: %s", substr, result)
		}
	}
}

func TestConfigValidateLogLevels(t *testing.T) {
	validLevels := []string{"debug", "info", "warn", "error"}
	invalidLevels := []string{"DEBUG", "INFO", "trace", "fatal", ""}

	for _, level := range validLevels {
		t.Run("valid_"+level, func(t *testing.T) {
			cfg := validConfig(t)
			cfg.LogLevel = level

			if err := cfg.Validate(); err != nil {
				t.Errorf("Config.Validate() should accept log level '%s', got error: %v", level, err)
			}
		})
	}

	for _, level := range invalidLevels {
		t.Run("invalid_"+level, func(t *testing.T) {
			cfg := validConfig(t)
			cfg.LogLevel = level

			if err := cfg.Validate(); err == nil {
				t.Errorf("Config.Validate() should reject log level '%s'", level)
			}
		})
	}
}

func TestConfigIsServerMode(t *testing.T) {
	tests := []struct {
		name string
		mode string
		want bool
	}{
		{name: "server mode", mode: "server", want: true},
		{name: "stdio mode", mode: "stdio", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Mode: tt.mode}
			if got := cfg.IsServerMode(); got != tt.want {
				t.Errorf("Config.IsServerMode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigIsStdioMode(t *testing.T) {
	tests := []struct {
		name string
		mode string
		want bool
	}{
		{name: "stdio mode", mode: "stdio", want: true},
		{name: "server mode", mode: "server", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Mode: tt.mode}
			if got := cfg.IsStdioMode(); got != tt.want {
				t.Errorf("Config.IsStdioMode() = %v, want %v", got, tt.want)
			}
		})
	}
}
