// internal/destination/destination.go

package destination

import "fmt"

// Destination is implemented by every sink received records can be
// written to. Records arrive as the decoded wire map, already validated,
// routed and enriched.
type Destination interface {
	// Write stores a single record. Implementations transform the map
	// into their output format (JSON lines, GELF, ...).
	Write(record map[string]interface{}) error

	// Close flushes buffers and releases resources. Called on shutdown
	// and on configuration reload.
	Close() error

	// Name returns the unique destination name from the configuration.
	Name() string
}

// viewText extracts a short human-readable message from a record's view.
// Text leaves carry their value under "text"; anything else is summarized
// by its node type.
func viewText(record map[string]interface{}) string {
	view, ok := record["view"].(map[string]interface{})
	if !ok {
		return "-"
	}
	if text, ok := view["text"].(string); ok {
		return text
	}
	if nodeType, ok := view["type"].(string); ok {
		return fmt.Sprintf("<%s>", nodeType)
	}
	return "-"
}
