package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a temporary config file
func createTempConfigFile(t *testing.T, content string) string {
	tempDir := t.TempDir()
	tempFile := filepath.Join(tempDir, "config.yaml")
	err := os.WriteFile(tempFile, []byte(content), 0644)
	require.NoError(t, err, "Failed to create temporary config file")
	return tempFile
}

func TestLoadConfig_Valid(t *testing.T) {
	// Load the main test config file from the root directory
	cfg, err := LoadConfig("../../config/test.yaml")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 4100, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "/program", cfg.Server.Namespace)
	assert.Equal(t, []string{"127.0.0.1"}, cfg.Server.TrustedProxies)
	assert.Equal(t, "X-Real-IP", cfg.Server.ClientIPHeader)
	assert.Equal(t, 20480, cfg.Server.RequestLimits.MaxRecordSize)
	assert.Equal(t, 5000, cfg.Server.RequestLimits.RateLimit)

	// Security
	assert.Equal(t, "super-secret-test-key-!@#$", cfg.Security.Token.Secret)

	// App log
	assert.Equal(t, "DEBUG", cfg.AppLog.Level)

	// Log Destinations
	require.Len(t, cfg.LogDestinations, 3, "Expected 3 log destinations")

	dest1 := cfg.LogDestinations[0]
	assert.Equal(t, "file_rotated", dest1.Name)
	assert.Equal(t, "file", dest1.Type)
	assert.True(t, dest1.Enabled)
	assert.Equal(t, "json", dest1.Format)
	assert.Equal(t, "/tmp/vizlog-test-rotation.log", dest1.Path)
	assert.Equal(t, "1", dest1.Rotation.MaxSize)
	assert.Equal(t, "1d", dest1.Rotation.MaxAge)
	assert.Equal(t, 3, dest1.Rotation.MaxBackups)
	assert.False(t, dest1.Rotation.Compress)
	require.Len(t, dest1.AddRecordData, 2)
	assert.Equal(t, "output_format", dest1.AddRecordData[0].Name)
	assert.Equal(t, "static", dest1.AddRecordData[0].Source)
	assert.Equal(t, "json_lines", dest1.AddRecordData[0].Value)
	assert.Equal(t, "origin_header", dest1.AddRecordData[1].Name)
	assert.Equal(t, "header", dest1.AddRecordData[1].Source)
	assert.Equal(t, "X-Custom-Origin", dest1.AddRecordData[1].Value)

	dest2 := cfg.LogDestinations[1]
	assert.Equal(t, "file_plain", dest2.Name)
	assert.Equal(t, "text", dest2.Format)

	dest3 := cfg.LogDestinations[2]
	assert.Equal(t, "gelf_disabled", dest3.Name)
	assert.Equal(t, "gelf", dest3.Type)
	assert.False(t, dest3.Enabled)
	assert.Equal(t, "graylog.example.com", dest3.Host)
	assert.Equal(t, 12201, dest3.Port)
	assert.Equal(t, "udp", dest3.Protocol)
	assert.Equal(t, "gzip", dest3.CompressionType)

	// Routing rules
	require.Len(t, cfg.RoutingRules, 4)
	assert.Equal(t, []string{"renderer.*"}, cfg.RoutingRules[0].Condition.LoggerNames)
	assert.False(t, cfg.RoutingRules[0].Enabled)
	assert.True(t, cfg.RoutingRules[1].Continue)
	assert.Equal(t, []string{"train*"}, cfg.RoutingRules[1].Condition.Tags)
	assert.Equal(t, "info", cfg.RoutingRules[2].Condition.MinLevel)
	assert.Equal(t, []string{"file_rotated", "file_plain"}, cfg.RoutingRules[2].LogDestinations)
	assert.Empty(t, cfg.RoutingRules[3].Condition.LoggerNames)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := createTempConfigFile(t, `
log_destinations:
  - name: "records"
    type: "file"
    enabled: true
    path: "/tmp/records.log"
    format: "json"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "/program", cfg.Server.Namespace)
	assert.Equal(t, "WARN", cfg.AppLog.Level)
	assert.Empty(t, cfg.Security.Token.Secret)
}

func TestLoadConfig_GelfDefaults(t *testing.T) {
	path := createTempConfigFile(t, `
log_destinations:
  - name: "graylog"
    type: "gelf"
    enabled: true
    host: "localhost"
    port: 12201
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "udp", cfg.LogDestinations[0].Protocol)
	assert.Equal(t, "none", cfg.LogDestinations[0].CompressionType)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := createTempConfigFile(t, "server: [this is not\n  a mapping")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error parsing config file")
}

func TestLoadConfig_SemanticErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{
			name:    "invalid port",
			content: "server:\n  port: 70000\n",
			errPart: "invalid server.port",
		},
		{
			name:    "invalid mode",
			content: "server:\n  mode: \"embedded\"\n",
			errPart: "invalid server.mode",
		},
		{
			name:    "namespace without slash",
			content: "server:\n  namespace: \"program\"\n",
			errPart: "invalid server.namespace",
		},
		{
			name:    "negative record size",
			content: "server:\n  request_limits:\n    max_record_size: -1\n",
			errPart: "max_record_size cannot be negative",
		},
		{
			name: "duplicate destination names",
			content: `log_destinations:
  - name: "a"
    type: "file"
    path: "/tmp/a.log"
    format: "json"
  - name: "a"
    type: "file"
    path: "/tmp/b.log"
    format: "json"
`,
			errPart: "duplicate name 'a'",
		},
		{
			name: "file destination without path",
			content: `log_destinations:
  - name: "a"
    type: "file"
    format: "json"
`,
			errPart: "path is required",
		},
		{
			name: "file destination bad format",
			content: `log_destinations:
  - name: "a"
    type: "file"
    path: "/tmp/a.log"
    format: "xml"
`,
			errPart: "invalid format 'xml'",
		},
		{
			name: "file destination bad rotation size",
			content: `log_destinations:
  - name: "a"
    type: "file"
    path: "/tmp/a.log"
    format: "json"
    rotation:
      max_size: "ten"
`,
			errPart: "invalid rotation.max_size",
		},
		{
			name: "gelf destination without host",
			content: `log_destinations:
  - name: "g"
    type: "gelf"
    port: 12201
`,
			errPart: "host is required",
		},
		{
			name: "unknown destination type",
			content: `log_destinations:
  - name: "a"
    type: "syslog"
`,
			errPart: "unknown type 'syslog'",
		},
		{
			name: "rule with unknown destination",
			content: `routing_rules:
  - condition: {}
    enabled: true
    log_destinations: ["missing"]
`,
			errPart: "'missing' not found",
		},
		{
			name: "rule with invalid min level",
			content: `routing_rules:
  - condition:
      min_level: "fatal"
    enabled: true
`,
			errPart: "invalid condition.min_level",
		},
		{
			name: "add data with bad source",
			content: `routing_rules:
  - condition: {}
    enabled: true
    add_record_data:
      - name: "x"
        source: "post"
        value: "y"
`,
			errPart: "invalid source 'post'",
		},
		{
			name: "static add data without value",
			content: `routing_rules:
  - condition: {}
    enabled: true
    add_record_data:
      - name: "x"
        source: "static"
`,
			errPart: "value is required for source 'static'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := createTempConfigFile(t, tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"10m", 10 * time.Minute, false},
		{"1h30m", 90 * time.Minute, false},
		{"7d", 7 * 24 * time.Hour, false},
		{" 2D ", 48 * time.Hour, false},
		{"", 0, true},
		{"-5m", 0, true},
		{"0s", 0, true},
		{"xd", 0, true},
		{"bogus", 0, true},
	}
	for _, tt := range tests {
		d, err := ParseDuration(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
		} else {
			require.NoError(t, err, "input %q", tt.input)
			assert.Equal(t, tt.expected, d, "input %q", tt.input)
		}
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"1024", 1024, false},
		{"1K", 1024, false},
		{"10k", 10 * 1024, false},
		{"5MB", 5 * 1024 * 1024, false},
		{"2G", 2 * 1024 * 1024 * 1024, false},
		{"0", 0, false},
		{"", 0, true},
		{"-1K", 0, true},
		{"ten", 0, true},
	}
	for _, tt := range tests {
		n, err := ParseSize(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
		} else {
			require.NoError(t, err, "input %q", tt.input)
			assert.Equal(t, tt.expected, n, "input %q", tt.input)
		}
	}
}
