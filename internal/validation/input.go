// internal/validation/input.go

package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	DefaultMaxLoggerNameLength = 256
	DefaultMaxDepth            = 10
	DefaultMaxKeyLength        = 64
	DefaultMaxStringLength     = 8192
)

// Logger names are dotted identifiers (alphanumeric, underscore, hyphen, dot).
var loggerNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Levels accepted on the wire.
var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// ErrInputTooLong indicates the input string exceeds the maximum allowed length.
var ErrInputTooLong = errors.New("input exceeds maximum length")

// ErrInvalidChars indicates the input string contains disallowed characters.
var ErrInvalidChars = errors.New("input contains invalid characters")

// ErrMaxDepthExceeded indicates the nested structure exceeds the maximum allowed depth.
var ErrMaxDepthExceeded = errors.New("maximum nesting depth exceeded")

// IsValidLoggerName checks if the input matches the allowed logger name format.
func IsValidLoggerName(name string, maxLength int) error {
	if name == "" {
		return fmt.Errorf("%w: logger name is empty", ErrInvalidChars)
	}
	if len(name) > maxLength {
		return fmt.Errorf("%w: got %d, max %d", ErrInputTooLong, len(name), maxLength)
	}
	if !loggerNameRegex.MatchString(name) {
		return fmt.Errorf("%w: allowed alphanumeric, underscore, hyphen, dot", ErrInvalidChars)
	}
	return nil
}

// ValidateRecord checks the structural invariants of a received record.
// It returns an error naming the first offending field.
func ValidateRecord(record map[string]interface{}) error {
	name, ok := record["loggerName"].(string)
	if !ok {
		return errors.New("loggerName: missing or not a string")
	}
	if err := IsValidLoggerName(name, DefaultMaxLoggerNameLength); err != nil {
		return fmt.Errorf("loggerName: %w", err)
	}

	level, ok := record["level"].(string)
	if !ok {
		return errors.New("level: missing or not a string")
	}
	if !validLevels[level] {
		return fmt.Errorf("level: unknown value '%s'", level)
	}

	if _, ok := record["timestamp"].(float64); !ok {
		return errors.New("timestamp: missing or not a number")
	}

	if tags, ok := record["tags"]; ok && tags != nil {
		tagList, ok := tags.([]interface{})
		if !ok {
			return errors.New("tags: not an array")
		}
		for i, tag := range tagList {
			if _, ok := tag.(string); !ok {
				return fmt.Errorf("tags[%d]: not a string", i)
			}
		}
	}

	if view, ok := record["view"]; ok && view != nil {
		if _, ok := view.(map[string]interface{}); !ok {
			return errors.New("view: not an object")
		}
	}

	return nil
}

// SanitizeString removes non-printable characters (excluding space) and trims whitespace.
// It also truncates the string to maxLength.
func SanitizeString(s string, maxLength int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	s = strings.Map(func(r rune) rune {
		if r == ' ' || (unicode.IsPrint(r) && r != '�') {
			return r
		}
		return -1
	}, s)
	return s
}

// SanitizeMapRecursively sanitizes keys and string values within a nested map.
// It limits nesting depth and key/string lengths.
func SanitizeMapRecursively(data map[string]interface{}, maxDepth, currentDepth, maxKeyLength, maxStringLength int) (map[string]interface{}, error) {
	if currentDepth > maxDepth {
		return nil, ErrMaxDepthExceeded
	}
	if data == nil {
		return nil, nil
	}

	sanitizedMap := make(map[string]interface{}, len(data))

	for key, value := range data {
		sanitizedKey := SanitizeString(key, maxKeyLength)
		if sanitizedKey == "" {
			continue
		}

		switch v := value.(type) {
		case string:
			sanitizedMap[sanitizedKey] = SanitizeString(v, maxStringLength)
		case map[string]interface{}:
			nestedMap, err := SanitizeMapRecursively(v, maxDepth, currentDepth+1, maxKeyLength, maxStringLength)
			if err != nil {
				return nil, fmt.Errorf("error sanitizing nested map under key '%s': %w", sanitizedKey, err)
			}
			sanitizedMap[sanitizedKey] = nestedMap
		case []interface{}:
			sanitizedSlice, err := SanitizeSliceRecursively(v, maxDepth, currentDepth+1, maxKeyLength, maxStringLength)
			if err != nil {
				return nil, fmt.Errorf("error sanitizing slice under key '%s': %w", sanitizedKey, err)
			}
			sanitizedMap[sanitizedKey] = sanitizedSlice
		default:
			// Keep numbers, booleans, nulls as they are
			sanitizedMap[sanitizedKey] = v
		}
	}
	return sanitizedMap, nil
}

// SanitizeSliceRecursively sanitizes elements within a slice, similar to map sanitization.
func SanitizeSliceRecursively(data []interface{}, maxDepth, currentDepth, maxKeyLength, maxStringLength int) ([]interface{}, error) {
	if currentDepth > maxDepth {
		return nil, ErrMaxDepthExceeded
	}
	if data == nil {
		return nil, nil
	}

	sanitizedSlice := make([]interface{}, len(data))
	for i, item := range data {
		switch v := item.(type) {
		case string:
			sanitizedSlice[i] = SanitizeString(v, maxStringLength)
		case map[string]interface{}:
			nestedMap, err := SanitizeMapRecursively(v, maxDepth, currentDepth+1, maxKeyLength, maxStringLength)
			if err != nil {
				return nil, fmt.Errorf("error sanitizing map in slice index %d: %w", i, err)
			}
			sanitizedSlice[i] = nestedMap
		case []interface{}:
			nestedSlice, err := SanitizeSliceRecursively(v, maxDepth, currentDepth+1, maxKeyLength, maxStringLength)
			if err != nil {
				return nil, fmt.Errorf("error sanitizing nested slice in slice index %d: %w", i, err)
			}
			sanitizedSlice[i] = nestedSlice
		default:
			sanitizedSlice[i] = v
		}
	}
	return sanitizedSlice, nil
}
