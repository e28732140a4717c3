// pkg/vizlog/level.go

package vizlog

import (
	"fmt"
	"strings"
)

// Level defines the available record severities.
type Level int

const (
	LevelDebug Level = 1
	LevelInfo  Level = 2
	LevelWarn  Level = 3
	LevelError Level = 4
)

// Level to wire name mapping. The collector depends on these exact strings.
var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// LevelNameToLevel maps wire names to level values.
var LevelNameToLevel = map[string]Level{
	"debug": LevelDebug,
	"info":  LevelInfo,
	"warn":  LevelWarn,
	"error": LevelError,
}

// String returns the wire name of the level.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func (l Level) valid() bool {
	_, ok := levelNames[l]
	return ok
}

// ParseLevel converts a level name to its Level value. Matching is
// case-insensitive.
func ParseLevel(name string) (Level, error) {
	level, ok := LevelNameToLevel[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("invalid log level: %s", name)
	}
	return level, nil
}
