package destination

import (
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/vizlog/vizlog/internal/config"
)

func tempLogFilePathManager(t *testing.T, pattern string) string {
	t.Helper()
	tmpDir := t.TempDir()
	return filepath.Join(tmpDir, pattern)
}

func TestManager_Init(t *testing.T) {
	tests := []struct {
		name            string
		destCfgs        []config.LogDestination
		expectInitError bool
		expectedCount   int
		expectedDests   map[string]string // map[name]type
	}{
		{
			name:            "No destinations",
			destCfgs:        []config.LogDestination{},
			expectInitError: false,
			expectedCount:   0,
			expectedDests:   map[string]string{},
		},
		{
			name: "One valid file destination (no rotation)",
			destCfgs: []config.LogDestination{
				{
					Name:    "file1",
					Type:    "file",
					Enabled: true,
					Path:    tempLogFilePathManager(t, "file1.log"),
					Format:  "json",
				},
			},
			expectInitError: false,
			expectedCount:   1,
			expectedDests:   map[string]string{"file1": "*destination.FileDestination"},
		},
		{
			name: "One valid file destination (with rotation)",
			destCfgs: []config.LogDestination{
				{
					Name:     "file_rotated",
					Type:     "file",
					Enabled:  true,
					Path:     tempLogFilePathManager(t, "file_rotated.log"),
					Format:   "text",
					Rotation: config.LogRotation{MaxSize: "1", MaxAge: "1d", MaxBackups: 1},
				},
			},
			expectInitError: false,
			expectedCount:   1,
			expectedDests:   map[string]string{"file_rotated": "*destination.FileDestination"},
		},
		{
			name: "Mix of valid and disabled destinations",
			destCfgs: []config.LogDestination{
				{
					Name:    "valid_file",
					Type:    "file",
					Enabled: true,
					Path:    tempLogFilePathManager(t, "valid.log"),
					Format:  "json",
				},
				{
					Name:    "disabled_file",
					Type:    "file",
					Enabled: false,
					Path:    tempLogFilePathManager(t, "disabled.log"),
					Format:  "text",
				},
			},
			expectInitError: false,
			expectedCount:   1,
			expectedDests:   map[string]string{"valid_file": "*destination.FileDestination"},
		},
		{
			name: "Mix of valid and invalid (missing path) destinations",
			destCfgs: []config.LogDestination{
				{
					Name:    "valid_again",
					Type:    "file",
					Enabled: true,
					Path:    tempLogFilePathManager(t, "valid_again.log"),
					Format:  "text",
				},
				{
					Name:    "invalid_path",
					Type:    "file",
					Enabled: true,
					Path:    "",
					Format:  "json",
				},
			},
			expectInitError: true,
			expectedCount:   1,
			expectedDests:   map[string]string{"valid_again": "*destination.FileDestination"},
		},
		{
			name: "Invalid destination type",
			destCfgs: []config.LogDestination{
				{
					Name:    "unknown_type",
					Type:    "email",
					Enabled: true,
					Path:    "should_be_ignored",
				},
			},
			expectInitError: true,
			expectedCount:   0,
			expectedDests:   map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := NewManager()
			if mgr == nil {
				t.Fatal("NewManager() returned nil manager")
			}
			defer mgr.CloseAll()

			initErr := mgr.Init(tt.destCfgs)

			if tt.expectInitError {
				if initErr == nil {
					t.Errorf("Init() expected an error, but got nil")
				}
			} else if initErr != nil {
				t.Fatalf("Init() did not expect an error, but got: %v", initErr)
			}

			mgr.mu.RLock()
			count := len(mgr.destinations)
			mgr.mu.RUnlock()
			if count != tt.expectedCount {
				t.Errorf("Expected %d destinations, but found %d", tt.expectedCount, count)
			}

			mgr.mu.RLock()
			for name, expectedType := range tt.expectedDests {
				dest, exists := mgr.destinations[name]
				if !exists {
					t.Errorf("Expected destination with name '%s' not found", name)
					continue
				}
				actualType := reflect.TypeOf(dest).String()
				if actualType != expectedType {
					t.Errorf("Destination '%s' has wrong type: expected %s, got %s", name, expectedType, actualType)
				}
			}
			for name := range mgr.destinations {
				if _, ok := tt.expectedDests[name]; !ok {
					t.Errorf("Unexpected destination found in manager: '%s'", name)
				}
			}
			mgr.mu.RUnlock()
		})
	}
}

func TestManager_GetAndNames(t *testing.T) {
	mgr := NewManager()
	defer mgr.CloseAll()

	err := mgr.Init([]config.LogDestination{
		{
			Name:    "a",
			Type:    "file",
			Enabled: true,
			Path:    tempLogFilePathManager(t, "a.log"),
			Format:  "json",
		},
		{
			Name:    "b",
			Type:    "file",
			Enabled: true,
			Path:    tempLogFilePathManager(t, "b.log"),
			Format:  "text",
		},
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if mgr.Get("a") == nil {
		t.Error("Get(\"a\") returned nil for initialized destination")
	}
	if mgr.Get("missing") != nil {
		t.Error("Get(\"missing\") should return nil")
	}

	names := mgr.EnabledNames()
	sort.Strings(names)
	if !reflect.DeepEqual(names, []string{"a", "b"}) {
		t.Errorf("EnabledNames() = %v, want [a b]", names)
	}

	mgr.CloseAll()
	if mgr.Get("a") != nil {
		t.Error("Get(\"a\") should return nil after CloseAll")
	}
}
