// pkg/vizlog/record.go

package vizlog

import (
	"github.com/vizlog/vizlog/pkg/view"
)

// Record is one fully assembled log record, ready for transmission. The JSON
// field names and shapes are part of the wire contract with the collector
// and must not change.
//
// ColumnNumber is always -1: it cannot be resolved from the Go runtime.
type Record struct {
	Timestamp    int64     `json:"timestamp"`
	FilePath     string    `json:"filePath"`
	LineNumber   int       `json:"lineNumber"`
	ColumnNumber int       `json:"columnNumber"`
	FunctionName string    `json:"functionName"`
	LoggerName   string    `json:"loggerName"`
	Level        string    `json:"level"`
	Tags         []string  `json:"tags"`
	View         view.View `json:"view"`
}
