// internal/caller/caller.go

package caller

import "runtime"

// Location identifies the source position of a log call.
type Location struct {
	FilePath     string
	LineNumber   int
	FunctionName string
}

// Unknown is returned when the stack cannot be resolved at the requested
// depth. Line numbers use -1 for unknown, matching the wire contract.
var Unknown = Location{FilePath: "", LineNumber: -1, FunctionName: ""}

// Resolve returns the location skip frames above the caller of Resolve
// itself. skip=0 resolves the immediate caller.
func Resolve(skip int) Location {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Unknown
	}

	loc := Location{FilePath: file, LineNumber: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		loc.FunctionName = fn.Name()
	}
	return loc
}
