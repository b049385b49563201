// Package project persists migration configurations as JSON documents.
//
// A document names the source and target endpoints and carries optional
// free-text metadata:
//
//	{
//	  "sourceConfig": {"type": "file", "filePath": "source.db"},
//	  "targetConfig": {"type": "network", "uri": "postgres://...", "driverId": "pgx"},
//	  "projectName": "orders",
//	  "version": "1.0"
//	}
//
// Unknown fields are ignored on read so documents written by newer
// versions still load.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/tablemigrate/pkg/core"
)

// DefaultFileName is used when no project path is given.
const DefaultFileName = "migration_config.json"

// ErrNotFound is returned by Load when the document does not exist.
var ErrNotFound = errors.New("project file not found")

type document struct {
	SourceConfig Endpoint `json:"sourceConfig"`
	TargetConfig Endpoint `json:"targetConfig"`
	ProjectName  *string  `json:"projectName,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Version      string   `json:"version"`
}

// Marshal encodes cfg as an indented JSON document.
func Marshal(cfg *core.MigrationConfig) ([]byte, error) {
	if cfg == nil {
		return nil, errors.New("migration config is nil")
	}
	src, err := EndpointFrom(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("sourceConfig: %w", err)
	}
	dst, err := EndpointFrom(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("targetConfig: %w", err)
	}
	doc := document{
		SourceConfig: src,
		TargetConfig: dst,
		ProjectName:  cfg.ProjectName,
		Description:  cfg.Description,
		Version:      cfg.Version,
	}
	if doc.Version == "" {
		doc.Version = core.DefaultConfigVersion
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Unmarshal decodes a JSON document, expanding ${VAR} references in
// endpoint fields. The result is not validated.
func Unmarshal(data []byte) (*core.MigrationConfig, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse project document: %w", err)
	}
	src, err := doc.SourceConfig.Expanded().Config()
	if err != nil {
		return nil, fmt.Errorf("sourceConfig: %w", err)
	}
	dst, err := doc.TargetConfig.Expanded().Config()
	if err != nil {
		return nil, fmt.Errorf("targetConfig: %w", err)
	}
	version := doc.Version
	if version == "" {
		version = core.DefaultConfigVersion
	}
	return &core.MigrationConfig{
		Source:      src,
		Target:      dst,
		ProjectName: doc.ProjectName,
		Description: doc.Description,
		Version:     version,
	}, nil
}

// Load reads the document at path.
func Load(path string) (*core.MigrationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}
	cfg, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
// A missing .json extension is appended; the written path is returned.
func Save(path string, cfg *core.MigrationConfig) (string, error) {
	path = WithJSONExt(path)
	data, err := Marshal(cfg)
	if err != nil {
		return "", err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return "", fmt.Errorf("failed to write project file: %w", err)
	}
	return path, nil
}

// WithJSONExt replaces a non-.json extension with .json.
func WithJSONExt(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
}

// Default returns a placeholder configuration between two SQLite files.
// An empty sourcePath uses "path/to/source.db".
func Default(sourcePath string) *core.MigrationConfig {
	if sourcePath == "" {
		sourcePath = "path/to/source.db"
	}
	return &core.MigrationConfig{
		Source:      core.FileBacked{Path: sourcePath},
		Target:      core.FileBacked{Path: "path/to/target.db"},
		ProjectName: core.StringPtr("New Migration Project"),
		Description: core.StringPtr("Default configuration. Please update source/target."),
		Version:     core.DefaultConfigVersion,
	}
}
