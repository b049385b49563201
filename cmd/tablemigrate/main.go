// Package main is the tablemigrate command.
package main

import (
	"os"

	"github.com/leapstack-labs/tablemigrate/internal/cli"

	// Connectors register themselves from init().
	_ "github.com/leapstack-labs/tablemigrate/pkg/connectors/duckdb"
	_ "github.com/leapstack-labs/tablemigrate/pkg/connectors/network"
	_ "github.com/leapstack-labs/tablemigrate/pkg/connectors/sqlite"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
