// Package config loads tablemigrate CLI configuration.
//
// Values are layered, lowest precedence first: built-in defaults,
// tablemigrate.yaml, TABLEMIGRATE_* environment variables, then flags
// set on the command line. Connection endpoints may additionally come
// from a JSON project document named by the "project" key.
package config

import (
	"time"

	"github.com/leapstack-labs/tablemigrate/internal/project"
)

// Config holds all CLI configuration options.
type Config struct {
	// ProjectFile is an optional JSON project document supplying endpoints.
	ProjectFile  string            `koanf:"project"`
	Source       *project.Endpoint `koanf:"source"`
	Target       *project.Endpoint `koanf:"target"`
	StatePath    string            `koanf:"state_path"`
	NoHistory    bool              `koanf:"no_history"`
	Verbose      bool              `koanf:"verbose"`
	LogLevel     string            `koanf:"log_level"`
	OutputFormat string            `koanf:"output"`
	Concurrency  int               `koanf:"concurrency"`
	Timeout      time.Duration     `koanf:"timeout"`

	// ProjectRoot is the directory relative paths resolve against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultStateFile = ".tablemigrate/state.db"
	DefaultLogLevel  = "warn"
	DefaultOutput    = "auto" // TTY=text, non-TTY=markdown
)

// ConfigFileNames are searched, in order, in the project root.
var ConfigFileNames = []string{"tablemigrate.yaml", "tablemigrate.yml"}
