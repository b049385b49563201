package core

// DefaultConfigVersion is the format version written to new migration configurations.
const DefaultConfigVersion = "1.0"

// MigrationConfig is the persisted description of a migration project:
// the two endpoints plus optional free-text metadata.
type MigrationConfig struct {
	Source      ConnectionConfig
	Target      ConnectionConfig
	ProjectName *string
	Description *string
	Version     string
}

// Validate checks both endpoints.
func (m *MigrationConfig) Validate() error {
	if m.Source == nil {
		return errMissingEndpoint("source")
	}
	if m.Target == nil {
		return errMissingEndpoint("target")
	}
	if err := m.Source.Validate(); err != nil {
		return err
	}
	return m.Target.Validate()
}

type errMissingEndpoint string

func (e errMissingEndpoint) Error() string {
	return "migration config: " + string(e) + " connection is required"
}
