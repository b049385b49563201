package connector

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/tablemigrate/pkg/core"
)

// Factory builds a fresh, disconnected connector.
type Factory func(*slog.Logger) Connector

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a connector factory to the registry.
// Called by connector implementations in their init() functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a connector factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// NewConnector creates a new connector instance by registered name.
// The logger is passed to the connector constructor (nil uses a discard logger).
func NewConnector(name string, logger *slog.Logger) (Connector, error) {
	if name == "" {
		return nil, fmt.Errorf("connector type not specified")
	}

	factory, ok := Get(name)
	if !ok {
		return nil, &UnknownConnectorError{
			Type:      name,
			Available: ListConnectors(),
		}
	}
	return factory(logger), nil
}

// ForConfig picks the registered connector that serves cfg.
// File-backed configs resolve by extension: .duckdb and .ddb go to duckdb,
// everything else to sqlite. Network-backed configs go to network.
func ForConfig(cfg core.ConnectionConfig, logger *slog.Logger) (Connector, error) {
	if cfg == nil {
		return nil, fmt.Errorf("connection config is required")
	}
	return NewConnector(NameForConfig(cfg), logger)
}

// NameForConfig returns the registry name ForConfig resolves cfg to.
func NameForConfig(cfg core.ConnectionConfig) string {
	switch c := cfg.(type) {
	case core.FileBacked:
		return nameForPath(c.Path)
	case *core.FileBacked:
		return nameForPath(c.Path)
	default:
		return "network"
	}
}

func nameForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".duckdb", ".ddb":
		return "duckdb"
	default:
		return "sqlite"
	}
}

// ListConnectors returns all registered connector names (sorted).
func ListConnectors() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a connector name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownConnectorError is returned when an unknown connector is requested.
type UnknownConnectorError struct {
	Type      string
	Available []string
}

func (e *UnknownConnectorError) Error() string {
	return fmt.Sprintf("unknown connector %q\nAvailable connectors: %v\nHint: Check the source and target sections in tablemigrate.yaml", e.Type, e.Available)
}
