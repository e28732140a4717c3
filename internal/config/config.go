// internal/config/config.go

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Record levels the collector accepts on the wire.
var validRecordLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// AddRecordDataSpec defines how to add or overwrite a field on a stored
// record.
type AddRecordDataSpec struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"` // static, header, query
	Value  string `yaml:"value"`  // Static value, or key name for header/query
}

// LogRotation defines parameters for log file rotation.
type LogRotation struct {
	MaxSize    string `yaml:"max_size,omitempty"` // MB value, e.g. "100"
	MaxAge     string `yaml:"max_age,omitempty"`  // e.g. "7d", "2w"
	MaxBackups int    `yaml:"max_backups,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}

// Config represents the collector configuration.
type Config struct {
	Server struct {
		Host           string   `yaml:"host"`
		Port           int      `yaml:"port"`
		Mode           string   `yaml:"mode"`      // debug or release
		Namespace      string   `yaml:"namespace"` // event channel namespace, default /program
		TrustedProxies []string `yaml:"trusted_proxies"`
		ClientIPHeader string   `yaml:"client_ip_header"`
		RequestLimits  struct {
			MaxRecordSize int `yaml:"max_record_size"` // bytes per record, 0 disables
			RateLimit     int `yaml:"rate_limit"`      // records per minute per connection, 0 disables
		} `yaml:"request_limits"`
	} `yaml:"server"`

	Security struct {
		Token struct {
			// Secret enables connect-time authentication when non-empty;
			// programs must present a token derived from the same secret.
			Secret string `yaml:"secret"`
		} `yaml:"token"`
	} `yaml:"security"`

	AppLog struct {
		Level          string `yaml:"level"`
		ShowHealthLogs bool   `yaml:"show_health_logs"`
	} `yaml:"app_log"`

	LogDestinations []LogDestination `yaml:"log_destinations"`
	RoutingRules    []RoutingRule    `yaml:"routing_rules"`
}

// LogDestination represents one place received records are written to.
type LogDestination struct {
	Name    string `yaml:"name"` // Mandatory, unique identifier
	Type    string `yaml:"type"` // Mandatory: file, gelf
	Enabled bool   `yaml:"enabled"`

	// File specific
	Path     string      `yaml:"path,omitempty"`
	Format   string      `yaml:"format,omitempty"` // json or text
	Rotation LogRotation `yaml:"rotation,omitempty"`

	// GELF specific
	Host            string `yaml:"host,omitempty"`
	Port            int    `yaml:"port,omitempty"`
	Protocol        string `yaml:"protocol,omitempty"`         // udp or tcp, default udp
	CompressionType string `yaml:"compression_type,omitempty"` // gzip, zlib, none

	AddRecordData []AddRecordDataSpec `yaml:"add_record_data,omitempty"`
}

// RoutingRuleCondition specifies criteria for matching received records.
type RoutingRuleCondition struct {
	LoggerNames []string `yaml:"logger_names,omitempty"` // glob patterns, any must match
	MinLevel    string   `yaml:"min_level,omitempty"`    // debug, info, warn, error
	Tags        []string `yaml:"tags,omitempty"`         // glob patterns, any record tag must match
}

// RoutingRule decides whether and where a received record is stored.
type RoutingRule struct {
	Condition       RoutingRuleCondition `yaml:"condition"`
	Enabled         bool                 `yaml:"enabled"`
	Continue        bool                 `yaml:"continue,omitempty"` // Default: false
	AddRecordData   []AddRecordDataSpec  `yaml:"add_record_data,omitempty"`
	LogDestinations []string             `yaml:"log_destinations,omitempty"` // Empty means all enabled
}

// LoadConfig loads and validates the configuration from a file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	// Defaults applied before unmarshalling.
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 4000
	cfg.Server.Mode = "release"
	cfg.Server.Namespace = "/program"
	cfg.AppLog.Level = "WARN"

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file '%s': %w", path, err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// ValidateConfig runs struct-level validation followed by the semantic
// checks validator tags cannot express.
func ValidateConfig(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors,
				fmt.Sprintf("Field validation for '%s' failed on the '%s' tag", err.Field(), err.Tag()))
		}
		return errors.New(strings.Join(validationErrors, "; "))
	}
	return validateConfig(cfg)
}

// validateConfig performs semantic validation of the configuration.
func validateConfig(cfg *Config) error {
	// Server validation
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", cfg.Server.Port)
	}
	if cfg.Server.Mode != "debug" && cfg.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode: '%s', must be 'debug' or 'release'", cfg.Server.Mode)
	}
	if !strings.HasPrefix(cfg.Server.Namespace, "/") {
		return fmt.Errorf("invalid server.namespace: '%s', must start with '/'", cfg.Server.Namespace)
	}
	if cfg.Server.RequestLimits.MaxRecordSize < 0 {
		return errors.New("server.request_limits.max_record_size cannot be negative")
	}
	if cfg.Server.RequestLimits.RateLimit < 0 {
		return errors.New("server.request_limits.rate_limit cannot be negative")
	}

	// Destinations validation
	destinationNames := make(map[string]bool)
	for i, dest := range cfg.LogDestinations {
		if dest.Name == "" {
			return fmt.Errorf("log_destinations[%d]: name is required", i)
		}
		if destinationNames[dest.Name] {
			return fmt.Errorf("log_destinations: duplicate name '%s' found", dest.Name)
		}
		destinationNames[dest.Name] = true

		switch dest.Type {
		case "file":
			if dest.Path == "" {
				return fmt.Errorf("log_destinations[%s]: path is required for type 'file'", dest.Name)
			}
			if dest.Format != "json" && dest.Format != "text" {
				return fmt.Errorf("log_destinations[%s]: invalid format '%s', must be 'json' or 'text'", dest.Name, dest.Format)
			}
			if dest.Rotation.MaxSize != "" {
				if _, err := ParseSize(dest.Rotation.MaxSize); err != nil {
					return fmt.Errorf("log_destinations[%s]: invalid rotation.max_size: %w", dest.Name, err)
				}
			}
			if dest.Rotation.MaxAge != "" {
				if _, err := ParseDuration(dest.Rotation.MaxAge); err != nil {
					return fmt.Errorf("log_destinations[%s]: invalid rotation.max_age: %w", dest.Name, err)
				}
			}
			if dest.Rotation.MaxBackups < 0 {
				return fmt.Errorf("log_destinations[%s]: rotation.max_backups cannot be negative", dest.Name)
			}
		case "gelf":
			if dest.Host == "" {
				return fmt.Errorf("log_destinations[%s]: host is required for type 'gelf'", dest.Name)
			}
			if dest.Port <= 0 || dest.Port > 65535 {
				return fmt.Errorf("log_destinations[%s]: invalid port %d for type 'gelf'", dest.Name, dest.Port)
			}
			if dest.Protocol != "" && dest.Protocol != "udp" && dest.Protocol != "tcp" {
				return fmt.Errorf("log_destinations[%s]: invalid protocol '%s', must be 'udp' or 'tcp'", dest.Name, dest.Protocol)
			}
			if dest.Protocol == "" {
				cfg.LogDestinations[i].Protocol = "udp"
			}
			if dest.CompressionType != "" && dest.CompressionType != "gzip" && dest.CompressionType != "zlib" && dest.CompressionType != "none" {
				return fmt.Errorf("log_destinations[%s]: invalid compression_type '%s'", dest.Name, dest.CompressionType)
			}
			if dest.CompressionType == "" {
				cfg.LogDestinations[i].CompressionType = "none"
			}
		default:
			return fmt.Errorf("log_destinations[%s]: unknown type '%s'", dest.Name, dest.Type)
		}

		if err := validateAddRecordDataSpecs(dest.AddRecordData, fmt.Sprintf("log_destinations[%s]", dest.Name)); err != nil {
			return err
		}
	}

	// Routing rules validation
	for i, rule := range cfg.RoutingRules {
		rulePath := fmt.Sprintf("routing_rules[%d]", i)
		if rule.Condition.MinLevel != "" && !validRecordLevels[strings.ToLower(rule.Condition.MinLevel)] {
			return fmt.Errorf("%s: invalid condition.min_level '%s'", rulePath, rule.Condition.MinLevel)
		}
		if err := validateAddRecordDataSpecs(rule.AddRecordData, rulePath+".add_record_data"); err != nil {
			return err
		}
		for _, destName := range rule.LogDestinations {
			if !destinationNames[destName] {
				return fmt.Errorf("%s: specified log_destination '%s' not found in top-level log_destinations", rulePath, destName)
			}
		}
	}

	return nil
}

// validateAddRecordDataSpecs validates a slice of AddRecordDataSpec.
func validateAddRecordDataSpecs(specs []AddRecordDataSpec, path string) error {
	validSources := map[string]bool{"static": true, "header": true, "query": true}
	for j, spec := range specs {
		specPath := fmt.Sprintf("%s[%d]", path, j)
		if spec.Name == "" {
			return fmt.Errorf("%s: name is required", specPath)
		}
		if !validSources[spec.Source] {
			return fmt.Errorf("%s: invalid source '%s', must be one of static, header, query", specPath, spec.Source)
		}
		if spec.Source == "static" && spec.Value == "" {
			return fmt.Errorf("%s: value is required for source 'static'", specPath)
		}
	}
	return nil
}

// ParseDuration parses a duration string (e.g., "10m", "1h30m", "7d").
// Supports standard time.ParseDuration units plus 'd' for days.
// Returns an error if the format is invalid or the duration is non-positive.
func ParseDuration(durationStr string) (time.Duration, error) {
	durationStr = strings.TrimSpace(durationStr)
	if durationStr == "" {
		return 0, errors.New("duration string cannot be empty")
	}

	if strings.HasSuffix(strings.ToLower(durationStr), "d") {
		numStr := strings.TrimSuffix(strings.ToLower(durationStr), "d")
		days, err := strconv.ParseInt(numStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number format for days in '%s': %w", durationStr, err)
		}
		if days <= 0 {
			return 0, fmt.Errorf("duration must be positive: '%s'", durationStr)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format '%s': %w", durationStr, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: '%s'", durationStr)
	}
	return d, nil
}

// ParseSize parses a size string (e.g., "10MB", "5k", "1G") into bytes.
// Supports K, M, G suffixes with optional trailing B, case-insensitive.
func ParseSize(sizeStr string) (int64, error) {
	sizeStr = strings.TrimSpace(strings.ToUpper(sizeStr))
	if sizeStr == "" {
		return 0, errors.New("size string cannot be empty")
	}

	var multiplier int64 = 1
	numStr := strings.TrimSuffix(sizeStr, "B")
	switch {
	case strings.HasSuffix(numStr, "K"):
		multiplier = 1024
		numStr = strings.TrimSuffix(numStr, "K")
	case strings.HasSuffix(numStr, "M"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(numStr, "M")
	case strings.HasSuffix(numStr, "G"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(numStr, "G")
	}
	numStr = strings.TrimSpace(numStr)

	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number format in size string '%s'", sizeStr)
	}
	if num < 0 {
		return 0, fmt.Errorf("size cannot be negative: %d", num)
	}
	if num > 0 && num > (1<<63-1)/multiplier {
		return 0, fmt.Errorf("size value '%s' results in overflow", sizeStr)
	}
	return num * multiplier, nil
}
