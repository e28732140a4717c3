// internal/destination/manager.go

package destination

import (
	"fmt"
	"sync"

	"github.com/vizlog/vizlog/internal/applog"
	"github.com/vizlog/vizlog/internal/config"
)

// Manager handles the lifecycle and access to destination instances.
type Manager struct {
	destinations map[string]Destination
	mu           sync.RWMutex
	appLog       *applog.Logger
}

// NewManager creates a new destination manager.
func NewManager() *Manager {
	return &Manager{
		destinations: make(map[string]Destination),
		appLog:       applog.Get(),
	}
}

// Init initializes destinations based on the provided configuration.
func (m *Manager) Init(destinations []config.LogDestination) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Close existing destinations first if any (e.g., on config reload)
	for name, dest := range m.destinations {
		if err := dest.Close(); err != nil {
			m.appLog.Warn("Error closing existing destination '%s' during re-initialization: %v", name, err)
		}
	}
	m.destinations = make(map[string]Destination)

	var initErrors []error
	for _, cfg := range destinations {
		if !cfg.Enabled {
			continue
		}

		var dest Destination
		var err error

		switch cfg.Type {
		case "file":
			dest, err = NewFileDestination(cfg)
		case "gelf":
			dest, err = NewGelfDestination(cfg)
		default:
			err = fmt.Errorf("unsupported destination type: %s", cfg.Type)
		}

		if err != nil {
			m.appLog.Error("Failed to initialize destination '%s' (type: %s): %v", cfg.Name, cfg.Type, err)
			initErrors = append(initErrors, fmt.Errorf("dest '%s': %w", cfg.Name, err))
			continue
		}

		m.destinations[cfg.Name] = dest
		m.appLog.Info("Initialized destination '%s' (type: %s)", cfg.Name, cfg.Type)
	}

	if len(initErrors) > 0 {
		return fmt.Errorf("failed to initialize some destinations: %v", initErrors)
	}
	return nil
}

// Get retrieves a destination instance by name.
// Returns nil if the destination is not found or not initialized.
func (m *Manager) Get(name string) Destination {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dest, ok := m.destinations[name]
	if !ok {
		return nil
	}
	return dest
}

// EnabledNames returns the names of all initialized destinations.
func (m *Manager) EnabledNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.destinations))
	for name := range m.destinations {
		names = append(names, name)
	}
	return names
}

// CloseAll closes all managed destination instances.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.appLog.Info("Shutting down... Closing destinations.")
	var wg sync.WaitGroup
	for name, dest := range m.destinations {
		wg.Add(1)
		go func(name string, dest Destination) {
			defer wg.Done()
			if err := dest.Close(); err != nil {
				m.appLog.Warn("Error closing destination '%s': %v", name, err)
			}
		}(name, dest)
	}
	wg.Wait()
	m.appLog.Info("Destinations closed.")
	m.destinations = make(map[string]Destination)
}
