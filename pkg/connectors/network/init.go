// Package network provides the connector for network-backed databases.
//
// This file registers the network connector with the connector registry.
// Import this package with a blank identifier to register the connector:
//
//	import _ "github.com/leapstack-labs/tablemigrate/pkg/connectors/network"
package network

import (
	"log/slog"

	"github.com/leapstack-labs/tablemigrate/pkg/connector"
)

func init() {
	connector.Register("network", func(logger *slog.Logger) connector.Connector { return New(logger) })
}
