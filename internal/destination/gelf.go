// internal/destination/gelf.go

package destination

import (
	"fmt"
	"os"
	"time"

	"github.com/vizlog/vizlog/internal/config"
	"gopkg.in/Graylog2/go-gelf.v2/gelf"
)

// Writer factories as variables to allow mocking in tests
var gelfUDPWriterFactory = gelf.NewUDPWriter
var gelfTCPWriterFactory = gelf.NewTCPWriter

var setUDPCompression = func(writer *gelf.UDPWriter, compType gelf.CompressType) {
	writer.CompressionType = compType
}

// GelfDestination forwards records to a Graylog server.
type GelfDestination struct {
	name     string
	writer   gelf.Writer
	hostName string
}

// NewGelfDestination creates a new GELF destination.
func NewGelfDestination(cfg config.LogDestination) (*GelfDestination, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required for GELF destination")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("valid port is required for GELF destination")
	}

	hostName, err := os.Hostname()
	if err != nil {
		hostName = "unknown"
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var writer gelf.Writer
	if cfg.Protocol == "tcp" {
		tcpWriter, err := gelfTCPWriterFactory(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to create GELF TCP writer: %w", err)
		}
		writer = tcpWriter
	} else {
		// Default to UDP
		udpWriter, err := gelfUDPWriterFactory(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to create GELF UDP writer: %w", err)
		}

		switch cfg.CompressionType {
		case "gzip":
			setUDPCompression(udpWriter, gelf.CompressGzip)
		case "zlib":
			setUDPCompression(udpWriter, gelf.CompressZlib)
		default:
			setUDPCompression(udpWriter, gelf.CompressNone)
		}

		writer = udpWriter
	}

	return &GelfDestination{
		name:     cfg.Name,
		writer:   writer,
		hostName: hostName,
	}, nil
}

// Write sends a record to the Graylog server.
func (g *GelfDestination) Write(record map[string]interface{}) error {
	msg := &gelf.Message{
		Version:  "1.1",
		Host:     g.hostName,
		Short:    viewText(record),
		TimeUnix: recordTimeUnix(record),
		Level:    syslogLevel(record),
		Extra:    make(map[string]interface{}),
	}

	// Everything except the mapped standard fields travels as extra
	// fields. GELF requires their keys to start with an underscore and
	// only supports flat values.
	for k, v := range record {
		if k == "timestamp" || k == "level" {
			continue
		}

		extraKey := k
		if extraKey[0] != '_' {
			extraKey = "_" + extraKey
		}

		switch v := v.(type) {
		case string, float64, float32, int, int32, int64, uint, uint32, uint64:
			msg.Extra[extraKey] = v
		default:
			msg.Extra[extraKey] = fmt.Sprintf("%v", v)
		}
	}

	return g.writer.WriteMessage(msg)
}

// Close closes the GELF writer
func (g *GelfDestination) Close() error {
	return g.writer.Close()
}

// Name returns the name of the destination
func (g *GelfDestination) Name() string {
	return g.name
}

// recordTimeUnix converts the record's epoch-millisecond timestamp to
// GELF's fractional seconds, falling back to the current time.
func recordTimeUnix(record map[string]interface{}) float64 {
	if ts, ok := record["timestamp"]; ok {
		switch v := ts.(type) {
		case float64:
			return v / 1000
		case int64:
			return float64(v) / 1000
		case time.Time:
			return float64(v.Unix()) + float64(v.Nanosecond())/1e9
		}
	}
	now := time.Now()
	return float64(now.Unix()) + float64(now.Nanosecond())/1e9
}

// syslogLevel maps record level names to syslog severities.
func syslogLevel(record map[string]interface{}) int32 {
	if lvl, ok := record["level"].(string); ok {
		switch lvl {
		case "error":
			return 3
		case "warn":
			return 4
		case "info":
			return 6
		case "debug":
			return 7
		}
	}
	return 6 // Default to INFO severity
}

// Ensure GelfDestination implements the Destination interface.
var _ Destination = (*GelfDestination)(nil)
