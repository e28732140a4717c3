// internal/truncate/truncate.go

package truncate

import (
	"encoding/json"
	"fmt"
	"sort"
)

const (
	ellipsis          = "..."
	minTruncateLength = 10 // Length a string keeps after truncation (excluding ellipsis)
	maxIterations     = 100
	maxNestedDepth    = 10
)

// Top-level fields that must never be truncated; routing and identity
// depend on them.
var protectedFields = map[string]bool{
	"loggerName": true,
	"level":      true,
	"tags":       true,
}

// RecordIfNeeded shrinks a record in place until its JSON size fits the
// limit. It repeatedly truncates the longest string value, then falls back
// to halving the largest nested array or object. Returns true if the record
// was modified.
func RecordIfNeeded(record *map[string]interface{}, limit int64) (bool, error) {
	if record == nil {
		return false, fmt.Errorf("input record cannot be nil")
	}
	if limit <= 0 {
		return false, fmt.Errorf("limit must be positive")
	}

	truncated := false
	currentSize := estimateSize(*record)

	for iterations := 0; currentSize > limit && iterations < maxIterations; iterations++ {
		path, longestStr, found := findLongestTruncatableString(*record, nil, minTruncateLength)
		if found {
			truncatedStr := longestStr[:minTruncateLength] + ellipsis
			if !updateValueByPath(record, path, truncatedStr) {
				return truncated, fmt.Errorf("failed to update value at path %v", path)
			}
			truncated = true
			currentSize = estimateSize(*record)
			continue
		}

		// No more long strings; shrink the largest nested structure.
		if !shrinkLargestStructure(record) {
			break
		}
		truncated = true
		newSize := estimateSize(*record)
		if newSize >= currentSize {
			break
		}
		currentSize = newSize
	}

	return truncated, nil
}

// shrinkLargestStructure halves the largest nested array or removes the
// biggest keys of the largest nested object. Returns true on success.
func shrinkLargestStructure(record *map[string]interface{}) bool {
	path, _, found := findLargestNestedStructure(*record, nil, 0)
	if !found || len(path) == 0 {
		return false
	}

	value, ok := getValueByPath(*record, path)
	if !ok {
		return false
	}

	switch v := value.(type) {
	case []interface{}:
		if len(v) <= 1 {
			return false
		}
		newLength := len(v) / 2
		if newLength < 1 {
			newLength = 1
		}
		return updateValueByPath(record, path, v[:newLength])

	case map[string]interface{}:
		if len(v) <= 1 {
			return false
		}
		shrunk := make(map[string]interface{}, len(v)/2)
		for _, key := range keysToKeep(v) {
			shrunk[key] = v[key]
		}
		return updateValueByPath(record, path, shrunk)
	}

	return false
}

// keysToKeep returns the half of an object's keys that contribute the least
// to its size.
func keysToKeep(m map[string]interface{}) []string {
	type keySize struct {
		key  string
		size int64
	}
	keySizes := make([]keySize, 0, len(m))
	for k, v := range m {
		keySizes = append(keySizes, keySize{key: k, size: estimateSize(v)})
	}
	sort.Slice(keySizes, func(i, j int) bool {
		if keySizes[i].size != keySizes[j].size {
			return keySizes[i].size < keySizes[j].size
		}
		return keySizes[i].key < keySizes[j].key
	})

	numToKeep := len(m) - len(m)/2
	kept := make([]string, 0, numToKeep)
	for _, ks := range keySizes[:numToKeep] {
		kept = append(kept, ks.key)
	}
	return kept
}

// findLargestNestedStructure finds the nested array or object below the top
// level with the largest JSON size contribution.
func findLargestNestedStructure(data interface{}, currentPath []interface{}, depth int) ([]interface{}, int64, bool) {
	if depth > maxNestedDepth {
		return nil, 0, false
	}

	var largestPath []interface{}
	largestSize := int64(0)
	found := false

	consider := func(candidatePath []interface{}, size int64, length int) {
		// Only structures below the record's top level are candidates,
		// and only ones that can actually shrink.
		if len(candidatePath) > 0 && length > 1 && size > largestSize {
			largestPath = candidatePath
			largestSize = size
			found = true
		}
	}

	switch value := data.(type) {
	case map[string]interface{}:
		consider(currentPath, estimateSize(value), len(value))
		for k, v := range value {
			if depth == 0 && protectedFields[k] {
				continue
			}
			newPath := appendPath(currentPath, k)
			path, size, ok := findLargestNestedStructure(v, newPath, depth+1)
			if ok && size > largestSize {
				largestPath = path
				largestSize = size
				found = true
			}
		}
	case []interface{}:
		consider(currentPath, estimateSize(value), len(value))
		for i, v := range value {
			newPath := appendPath(currentPath, i)
			path, size, ok := findLargestNestedStructure(v, newPath, depth+1)
			if ok && size > largestSize {
				largestPath = path
				largestSize = size
				found = true
			}
		}
	}

	return largestPath, largestSize, found
}

// findLongestTruncatableString searches the record for the longest string
// longer than minLen and returns its path and value. Protected top-level
// fields are skipped.
func findLongestTruncatableString(data interface{}, currentPath []interface{}, minLen int) ([]interface{}, string, bool) {
	longestStr := ""
	var longestPath []interface{}
	found := false

	switch value := data.(type) {
	case map[string]interface{}:
		for k, v := range value {
			if len(currentPath) == 0 && protectedFields[k] {
				continue
			}
			newPath := appendPath(currentPath, k)
			path, str, ok := findLongestTruncatableString(v, newPath, minLen)
			if ok && len(str) > len(longestStr) {
				longestStr = str
				longestPath = path
				found = true
			}
		}
	case []interface{}:
		for i, v := range value {
			newPath := appendPath(currentPath, i)
			path, str, ok := findLongestTruncatableString(v, newPath, minLen)
			if ok && len(str) > len(longestStr) {
				longestStr = str
				longestPath = path
				found = true
			}
		}
	case string:
		if len(value) > minLen+len(ellipsis) {
			longestStr = value
			longestPath = currentPath
			found = true
		}
	}

	return longestPath, longestStr, found
}

// appendPath copies the path before appending so sibling branches never
// share backing arrays.
func appendPath(path []interface{}, element interface{}) []interface{} {
	newPath := make([]interface{}, len(path), len(path)+1)
	copy(newPath, path)
	return append(newPath, element)
}

// estimateSize estimates JSON size by recursive traversal, avoiding
// repeated json.Marshal allocations during the truncation loop.
func estimateSize(data interface{}) int64 {
	switch v := data.(type) {
	case nil:
		return 4 // "null"

	case bool:
		if v {
			return 4
		}
		return 5

	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return int64(len(fmt.Sprintf("%d", v)))

	case float32, float64:
		return int64(len(fmt.Sprintf("%g", v)))

	case string:
		return stringJSONSize(v)

	case map[string]interface{}:
		if len(v) == 0 {
			return 2 // "{}"
		}
		size := int64(2)
		first := true
		for key, val := range v {
			if !first {
				size++ // comma
			}
			first = false
			size += stringJSONSize(key)
			size++ // colon
			size += estimateSize(val)
		}
		return size

	case []interface{}:
		if len(v) == 0 {
			return 2 // "[]"
		}
		size := int64(2)
		for i, val := range v {
			if i > 0 {
				size++ // comma
			}
			size += estimateSize(val)
		}
		return size

	default:
		bytes, err := json.Marshal(data)
		if err != nil {
			return 0
		}
		return int64(len(bytes))
	}
}

// stringJSONSize approximates the encoded size of a string including quotes
// and escapes.
func stringJSONSize(s string) int64 {
	escaped := 0
	for _, c := range s {
		if c == '"' || c == '\\' || c == '\n' || c == '\r' || c == '\t' {
			escaped++
		}
	}
	return int64(len(s) + escaped + 2)
}

// updateValueByPath updates the value within nested maps and slices using
// the provided path. Returns true if the update succeeded.
func updateValueByPath(data *map[string]interface{}, path []interface{}, newValue interface{}) bool {
	if data == nil || *data == nil || len(path) == 0 {
		return false
	}

	var current interface{} = *data

	for i, keyOrIndex := range path {
		isLast := i == len(path)-1

		switch currentVal := current.(type) {
		case map[string]interface{}:
			key, ok := keyOrIndex.(string)
			if !ok {
				return false
			}
			if isLast {
				currentVal[key] = newValue
				return true
			}
			nextLevel, exists := currentVal[key]
			if !exists {
				return false
			}
			current = nextLevel

		case []interface{}:
			index, ok := keyOrIndex.(int)
			if !ok || index < 0 || index >= len(currentVal) {
				return false
			}
			if isLast {
				currentVal[index] = newValue
				return true
			}
			current = currentVal[index]

		default:
			return false
		}
	}

	return false
}

// getValueByPath retrieves a value from nested maps and slices.
func getValueByPath(data interface{}, path []interface{}) (interface{}, bool) {
	current := data
	for _, keyOrIndex := range path {
		switch currentVal := current.(type) {
		case map[string]interface{}:
			key, ok := keyOrIndex.(string)
			if !ok {
				return nil, false
			}
			nextVal, exists := currentVal[key]
			if !exists {
				return nil, false
			}
			current = nextVal
		case []interface{}:
			index, ok := keyOrIndex.(int)
			if !ok || index < 0 || index >= len(currentVal) {
				return nil, false
			}
			current = currentVal[index]
		default:
			return nil, false
		}
	}
	return current, true
}
