// internal/enricher/enricher.go

package enricher

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/vizlog/vizlog/internal/config"
)

// Fields the collector adds to every stored record.
const (
	fieldReceivedAt    = "receivedAt"
	fieldCollectorHost = "collectorHost"
	fieldCollectorPid  = "collectorPid"
	fieldClientIP      = "clientIp"
	fieldSessionID     = "sessionId"
)

// Wire and enrichment fields that add_record_data specs must not touch.
var reservedFields = map[string]bool{
	"timestamp":        true,
	"filePath":         true,
	"lineNumber":       true,
	"columnNumber":     true,
	"functionName":     true,
	"loggerName":       true,
	"level":            true,
	"tags":             true,
	"view":             true,
	fieldReceivedAt:    true,
	fieldCollectorHost: true,
	fieldCollectorPid:  true,
	fieldClientIP:      true,
	fieldSessionID:     true,
}

// Cached system values to avoid repeated syscalls
var (
	cachedHostname string
	cachedPid      int
	cacheOnce      sync.Once
)

func initCachedValues() {
	hostname, err := os.Hostname()
	if err != nil {
		cachedHostname = "unknown"
	} else {
		cachedHostname = hostname
	}
	cachedPid = os.Getpid()
}

// Metadata carries per-session context captured when the program connected.
type Metadata struct {
	ClientIP  string
	SessionID string
}

// EnrichAndMerge copies the received record and merges in the configured
// add_record_data specs plus the collector's own fields. The record's wire
// fields always win over configured additions; receivedAt is stamped last.
// The request is the connection's original upgrade request, used for header
// and query sources.
func EnrichAndMerge(received map[string]interface{}, ruleAdds []config.AddRecordDataSpec, destAdds []config.AddRecordDataSpec, request *http.Request, meta Metadata) (map[string]interface{}, error) {
	cacheOnce.Do(initCachedValues)

	record := make(map[string]interface{}, len(received)+5)
	for k, v := range received {
		record[k] = v
	}

	for _, add := range ruleAdds {
		if err := processAddRecordData(add, record, request); err != nil {
			return nil, fmt.Errorf("processing rule add: %w", err)
		}
	}

	for _, add := range destAdds {
		if err := processAddRecordData(add, record, request); err != nil {
			return nil, fmt.Errorf("processing destination add: %w", err)
		}
	}

	record[fieldCollectorHost] = cachedHostname
	record[fieldCollectorPid] = cachedPid
	if meta.ClientIP != "" {
		record[fieldClientIP] = meta.ClientIP
	}
	if meta.SessionID != "" {
		record[fieldSessionID] = meta.SessionID
	}
	record[fieldReceivedAt] = time.Now().UTC().Format(time.RFC3339Nano)

	return record, nil
}

// processAddRecordData applies a single AddRecordDataSpec to the record.
func processAddRecordData(add config.AddRecordDataSpec, record map[string]interface{}, request *http.Request) error {
	if reservedFields[add.Name] {
		return fmt.Errorf("field '%s' is reserved and cannot be added", add.Name)
	}

	// Special case: a static "false" removes a previously added field.
	if add.Source == "static" && add.Value == "false" {
		delete(record, add.Name)
		return nil
	}

	var value string
	switch add.Source {
	case "static":
		value = add.Value
	case "header":
		if request != nil {
			value = request.Header.Get(add.Value)
		}
	case "query":
		if request != nil {
			value = request.URL.Query().Get(add.Value)
		}
	default:
		return fmt.Errorf("unknown source type: %s", add.Source)
	}

	if value == "" {
		return nil
	}
	record[add.Name] = value
	return nil
}
