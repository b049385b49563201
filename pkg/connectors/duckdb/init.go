// Package duckdb provides the DuckDB connector for tablemigrate.
//
// This file registers the DuckDB connector with the connector registry.
// Import this package with a blank identifier to register the connector:
//
//	import _ "github.com/leapstack-labs/tablemigrate/pkg/connectors/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/tablemigrate/pkg/connector"
)

func init() {
	connector.Register("duckdb", func(logger *slog.Logger) connector.Connector { return New(logger) })
}
