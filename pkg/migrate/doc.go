// Package migrate copies one table from a source connector to a target
// connector: schema check, idempotent create, full extract, transactional load.
//
// Run executes a migration synchronously and reports free-text status updates.
// Start runs it on its own goroutine and streams the updates over a channel.
// Batch runs several independent migrations in parallel, each with its own
// pair of connectors.
package migrate
