package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestIsValidLoggerName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"simple", "app", nil},
		{"dotted", "train.metrics.loss", nil},
		{"with hyphen and underscore", "my-app_2", nil},
		{"empty", "", ErrInvalidChars},
		{"spaces", "my logger", ErrInvalidChars},
		{"slash", "a/b", ErrInvalidChars},
		{"too long", strings.Repeat("a", 300), ErrInputTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := IsValidLoggerName(tt.input, DefaultMaxLoggerNameLength)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func validWireRecord() map[string]interface{} {
	return map[string]interface{}{
		"timestamp":    float64(1724800000000),
		"filePath":     "/app/main.go",
		"lineNumber":   float64(10),
		"columnNumber": float64(-1),
		"functionName": "main.main",
		"loggerName":   "app",
		"level":        "info",
		"tags":         []interface{}{"a", "a", "b"},
		"view":         map[string]interface{}{"type": "text", "text": "hello"},
	}
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]interface{})
		wantErr bool
	}{
		{"valid", func(r map[string]interface{}) {}, false},
		{"missing loggerName", func(r map[string]interface{}) { delete(r, "loggerName") }, true},
		{"numeric loggerName", func(r map[string]interface{}) { r["loggerName"] = 7 }, true},
		{"invalid loggerName chars", func(r map[string]interface{}) { r["loggerName"] = "a b" }, true},
		{"missing level", func(r map[string]interface{}) { delete(r, "level") }, true},
		{"unknown level", func(r map[string]interface{}) { r["level"] = "fatal" }, true},
		{"missing timestamp", func(r map[string]interface{}) { delete(r, "timestamp") }, true},
		{"string timestamp", func(r map[string]interface{}) { r["timestamp"] = "now" }, true},
		{"tags not array", func(r map[string]interface{}) { r["tags"] = "oops" }, true},
		{"non-string tag", func(r map[string]interface{}) { r["tags"] = []interface{}{"ok", 3} }, true},
		{"view not object", func(r map[string]interface{}) { r["view"] = "text" }, true},
		{"nil view accepted", func(r map[string]interface{}) { r["view"] = nil }, false},
		{"absent tags accepted", func(r map[string]interface{}) { delete(r, "tags") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := validWireRecord()
			tt.mutate(record)
			err := ValidateRecord(record)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello\x00world  ", 100); got != "helloworld" {
		t.Errorf("SanitizeString = %q", got)
	}
	if got := SanitizeString("abcdef", 3); got != "abc" {
		t.Errorf("SanitizeString truncation = %q", got)
	}
}

func TestSanitizeMapRecursively(t *testing.T) {
	input := map[string]interface{}{
		"ok":        "value\x01with control",
		"nested":    map[string]interface{}{"inner": "fine"},
		"list":      []interface{}{"a\x02b", 7},
		"untouched": 42,
	}

	out, err := SanitizeMapRecursively(input, DefaultMaxDepth, 0, DefaultMaxKeyLength, DefaultMaxStringLength)
	if err != nil {
		t.Fatalf("SanitizeMapRecursively failed: %v", err)
	}
	if out["ok"] != "valuewith control" {
		t.Errorf("string not sanitized: %v", out["ok"])
	}
	list := out["list"].([]interface{})
	if list[0] != "ab" || list[1] != 7 {
		t.Errorf("slice not sanitized correctly: %v", list)
	}
	if out["untouched"] != 42 {
		t.Errorf("non-string value changed: %v", out["untouched"])
	}
}

func TestSanitizeMapRecursively_DepthLimit(t *testing.T) {
	deep := map[string]interface{}{}
	current := deep
	for i := 0; i < 15; i++ {
		next := map[string]interface{}{}
		current["d"] = next
		current = next
	}

	_, err := SanitizeMapRecursively(deep, 5, 0, DefaultMaxKeyLength, DefaultMaxStringLength)
	if !errors.Is(err, ErrMaxDepthExceeded) {
		t.Errorf("expected ErrMaxDepthExceeded, got %v", err)
	}
}
