// internal/destination/file.go

package destination

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vizlog/vizlog/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileDestination writes records to a file with optional rotation.
type FileDestination struct {
	mu     sync.Mutex
	writer io.WriteCloser // *os.File or *lumberjack.Logger
	format string         // "json" or "text"
	name   string
}

// NewFileDestination creates a new FileDestination instance.
func NewFileDestination(cfg config.LogDestination) (*FileDestination, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file destination requires a path")
	}
	if cfg.Format != "json" && cfg.Format != "text" {
		return nil, fmt.Errorf("invalid file destination format: %s", cfg.Format)
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("file destination requires a name")
	}

	var writer io.WriteCloser
	var maxSizeMB int
	var maxAgeDays int
	var err error

	// The max_size value is in MB (e.g. "1", "100"); values with units
	// are accepted and converted.
	if cfg.Rotation.MaxSize != "" {
		maxSizeMB, err = strconv.Atoi(cfg.Rotation.MaxSize)
		if err != nil {
			var sizeBytes int64
			sizeBytes, err = config.ParseSize(cfg.Rotation.MaxSize)
			if err != nil {
				return nil, fmt.Errorf("invalid rotation.max_size '%s' for destination '%s': %w", cfg.Rotation.MaxSize, cfg.Name, err)
			}
			maxSizeMB = int(sizeBytes / (1024 * 1024))
			if sizeBytes > 0 && maxSizeMB == 0 {
				// lumberjack cannot rotate below 1MB
				maxSizeMB = 1
			}
		}
		if maxSizeMB < 0 {
			maxSizeMB = 0
		}
	}

	if cfg.Rotation.MaxAge != "" {
		var ageDuration time.Duration
		ageDuration, err = config.ParseDuration(cfg.Rotation.MaxAge)
		if err != nil {
			return nil, fmt.Errorf("invalid rotation.max_age '%s' for destination '%s': %w", cfg.Rotation.MaxAge, cfg.Name, err)
		}
		maxAgeDays = int(ageDuration.Hours() / 24)
		if maxAgeDays <= 0 && ageDuration > 0 {
			maxAgeDays = 1
		}
	}

	rotationConfigured := maxSizeMB > 0 || maxAgeDays > 0 || cfg.Rotation.MaxBackups > 0

	if rotationConfigured {
		writer = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    maxSizeMB,
			MaxBackups: cfg.Rotation.MaxBackups,
			MaxAge:     maxAgeDays,
			Compress:   cfg.Rotation.Compress,
			LocalTime:  false,
		}
	} else {
		file, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.Path, err)
		}
		writer = file
	}

	return &FileDestination{
		writer: writer,
		format: cfg.Format,
		name:   cfg.Name,
	}, nil
}

// Write appends the record to the file, one line per record.
func (d *FileDestination) Write(record map[string]interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var line []byte
	var err error

	if d.format == "json" {
		line, err = json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal record to JSON: %w", err)
		}
		line = append(line, '\n')
	} else { // format == "text"
		line = d.formatText(record)
		line = append(line, '\n')
	}

	_, err = d.writer.Write(line)
	if err != nil {
		return fmt.Errorf("failed to write record line: %w", err)
	}

	return nil
}

// formatText converts the record map into a single text line.
// Example: [TIME] LEVEL logger.name: message (key=value key2=value2 ...)
func (d *FileDestination) formatText(record map[string]interface{}) []byte {
	var sb strings.Builder

	// Records carry their timestamp as epoch milliseconds.
	timestamp := time.Now().UTC()
	if tsVal, ok := record["timestamp"]; ok {
		if tsFloat, ok := tsVal.(float64); ok {
			sec := int64(tsFloat) / 1000
			nsec := int64(tsFloat) % 1000 * 1000000
			timestamp = time.Unix(sec, nsec).UTC()
		} else if tsInt, ok := tsVal.(int64); ok {
			timestamp = time.UnixMilli(tsInt).UTC()
		}
	}
	sb.WriteString("[")
	sb.WriteString(timestamp.Format("2006-01-02T15:04:05.000Z"))
	sb.WriteString("]")

	levelStr := "info"
	if levelVal, ok := record["level"].(string); ok && levelVal != "" {
		levelStr = levelVal
	}
	sb.WriteString(" ")
	sb.WriteString(strings.ToUpper(levelStr))

	loggerName := "-"
	if nameVal, ok := record["loggerName"].(string); ok && nameVal != "" {
		loggerName = nameVal
	}
	sb.WriteString(" ")
	sb.WriteString(loggerName)
	sb.WriteString(":")

	sb.WriteString(" ")
	sb.WriteString(viewText(record))

	// Remaining fields, sorted for consistency. The view is skipped in
	// text output; its summary is already the message.
	keys := make([]string, 0, len(record))
	for k := range record {
		if k == "timestamp" || k == "level" || k == "loggerName" || k == "view" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		sb.WriteString(" ")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(formatValue(record[k]))
	}

	return []byte(sb.String())
}

// formatValue converts different types to string for text output.
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		if strings.Contains(v, " ") {
			return strconv.Quote(v)
		}
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return "<nil>"
	default:
		jsonBytes, err := json.Marshal(v)
		if err == nil {
			return string(jsonBytes)
		}
		return fmt.Sprintf("%v", v)
	}
}

// Close closes the underlying file writer.
func (d *FileDestination) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writer != nil {
		return d.writer.Close()
	}
	return nil
}

// Name returns the name of the destination.
func (d *FileDestination) Name() string {
	return d.name
}

// Ensure FileDestination implements the Destination interface.
var _ Destination = (*FileDestination)(nil)
