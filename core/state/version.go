package state

import (
	"errors"
	"fmt"

	"peerswap/native/peerswap"
	"peerswap/storage"
)

// SchemaVersion is the layout of the keys in prefixes.go. Bump it when a
// stored record changes incompatibly.
const SchemaVersion uint32 = 1

var (
	// ErrSchemaMismatch reports a database stamped by another schema version.
	ErrSchemaMismatch = errors.New("state: schema version mismatch")
	// ErrForeignState reports a database instantiated by another contract.
	ErrForeignState = errors.New("state: database belongs to another contract")
)

// SetSchemaVersion stamps the database with version.
func (m *Manager) SetSchemaVersion(version uint32) error {
	return m.KVPut(schemaVersionKey, uint64(version))
}

// SchemaVersion returns the stamped version and whether one was found.
func (m *Manager) SchemaVersion() (uint32, bool, error) {
	var stored uint64
	ok, err := m.KVGet(schemaVersionKey, &stored)
	if err != nil || !ok {
		return 0, false, err
	}
	if stored > uint64(^uint32(0)) {
		return 0, false, fmt.Errorf("state: schema version %d out of range", stored)
	}
	return uint32(stored), true, nil
}

// EnsureSchema stamps an empty database and otherwise checks that it was
// written by this contract at SchemaVersion. allowMigrate skips the version
// comparison for operators migrating by hand.
func EnsureSchema(db storage.Database, allowMigrate bool) error {
	if db == nil {
		return errors.New("state: database must not be nil")
	}
	m := NewManager(db)
	info, ok, err := m.ContractInfoGet()
	if err != nil {
		return err
	}
	if ok && info.Name != peerswap.ContractName {
		return fmt.Errorf("%w: %q", ErrForeignState, info.Name)
	}
	version, ok, err := m.SchemaVersion()
	if err != nil {
		return err
	}
	switch {
	case !ok:
		return m.SetSchemaVersion(SchemaVersion)
	case version == SchemaVersion, allowMigrate:
		return nil
	default:
		return fmt.Errorf("%w: stored %d, binary %d", ErrSchemaMismatch, version, SchemaVersion)
	}
}
