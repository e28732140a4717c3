// pkg/vizlog/registry.go

package vizlog

import (
	"strings"
	"sync"
)

// Registry maps names to Logger instances so loggers can be recycled: the
// same name always yields the same instance for the life of the process.
type Registry struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
	client  *Client
}

func newRegistry(client *Client) *Registry {
	return &Registry{
		loggers: make(map[string]*Logger),
		client:  client,
	}
}

// GetLogger returns the Logger for the given name, creating it with default
// configuration if it does not exist yet. Panics on an empty name: invalid
// configuration fails at configuration time, never at log time.
func (r *Registry) GetLogger(name string) *Logger {
	name = canonicalName(name)
	if name == "" {
		panic("vizlog: logger name cannot be empty")
	}

	r.mu.RLock()
	logger, ok := r.loggers[name]
	r.mu.RUnlock()
	if ok {
		return logger
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if logger, ok := r.loggers[name]; ok {
		return logger
	}
	logger = newLogger(name, r.client)
	r.loggers[name] = logger
	return logger
}

// Names returns the names of all loggers created so far.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.loggers))
	for name := range r.loggers {
		names = append(names, name)
	}
	return names
}

func canonicalName(name string) string {
	return strings.TrimSpace(name)
}
