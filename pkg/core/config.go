package core

import (
	"errors"
	"fmt"
)

// ConfigKind discriminates the ConnectionConfig variants.
type ConfigKind string

// Supported connection config kinds.
const (
	KindFileBacked    ConfigKind = "file"
	KindNetworkBacked ConfigKind = "network"
)

// ConnectionConfig is a tagged union over backend kinds.
// The interface is sealed: FileBacked and NetworkBacked are the only variants.
type ConnectionConfig interface {
	// Kind returns the discriminator of the active variant.
	Kind() ConfigKind

	// Validate reports whether the required fields of the variant are set.
	Validate() error

	connectionConfig()
}

// FileBacked configures an embedded, file-backed database.
type FileBacked struct {
	Path string
}

// Kind implements ConnectionConfig.
func (FileBacked) Kind() ConfigKind { return KindFileBacked }

// Validate implements ConnectionConfig.
func (c FileBacked) Validate() error {
	if c.Path == "" {
		return errors.New("file-backed config: path is required")
	}
	return nil
}

func (c FileBacked) String() string {
	return fmt.Sprintf("file(%s)", c.Path)
}

func (FileBacked) connectionConfig() {}

// NetworkBacked configures a database reached over the network through a
// database/sql driver identified by DriverID.
type NetworkBacked struct {
	URI      string
	User     *string
	Password *string
	DriverID string
}

// Kind implements ConnectionConfig.
func (NetworkBacked) Kind() ConfigKind { return KindNetworkBacked }

// Validate implements ConnectionConfig.
func (c NetworkBacked) Validate() error {
	if c.URI == "" {
		return errors.New("network-backed config: uri is required")
	}
	if c.DriverID == "" {
		return errors.New("network-backed config: driver id is required")
	}
	return nil
}

// String never includes the password.
func (c NetworkBacked) String() string {
	user := ""
	if c.User != nil {
		user = *c.User + "@"
	}
	return fmt.Sprintf("%s(%s%s)", c.DriverID, user, c.URI)
}

func (NetworkBacked) connectionConfig() {}

// StringPtr returns a pointer to s, or nil when s is empty.
// Convenient for the optional NetworkBacked credentials.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
