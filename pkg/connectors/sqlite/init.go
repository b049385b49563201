// Package sqlite provides the SQLite connector for tablemigrate.
//
// This file registers the SQLite connector with the connector registry.
// Import this package with a blank identifier to register the connector:
//
//	import _ "github.com/leapstack-labs/tablemigrate/pkg/connectors/sqlite"
package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/tablemigrate/pkg/connector"
)

func init() {
	connector.Register("sqlite", func(logger *slog.Logger) connector.Connector { return New(logger) })
}
