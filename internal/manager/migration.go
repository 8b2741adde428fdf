package manager

import (
	"github.com/iotaledger/wallet.go/log"
	"github.com/iotaledger/wallet.go/storage"
)

var migrationLogger = log.NewModuleLogger(log.Migration)

// schemaVersionKey stores the on-disk record schema version, alongside the
// account records themselves (SPEC_FULL.md §7, grounded on
// _examples/original_source/src/account_manager/migration.rs and the
// teacher's storage/database db_manager versioning idiom).
var schemaVersionKey = []byte("schema:version")

// currentSchemaVersion is bumped whenever a migration step is added below.
const currentSchemaVersion = 1

// migrationStep transforms every stored record from one schema version to
// the next. Steps run in order starting with the one whose fromVersion is
// the version recorded in storage.
type migrationStep struct {
	fromVersion int
	describe    string
	run         func(s storage.Storage) error
}

// steps is the ordered list of migrations this binary knows how to apply.
// There is currently nothing to migrate from (the schema has not changed
// since version 1), so the list is empty; it exists so a future schema
// change has a place to land without restructuring runMigrations.
var steps []migrationStep

// runMigrations reads the stored schema version (defaulting to
// currentSchemaVersion for a fresh store with no prior records) and applies
// every step whose fromVersion is still at or above it, in order, writing
// the new version after each step succeeds.
func runMigrations(s storage.Storage) error {
	version := currentSchemaVersion
	if raw, err := s.Get(schemaVersionKey); err == nil && len(raw) == 1 {
		version = int(raw[0])
	}

	for _, step := range steps {
		if step.fromVersion < version {
			continue
		}
		migrationLogger.Infow("running storage migration", "from", step.fromVersion, "description", step.describe)
		if err := step.run(s); err != nil {
			return err
		}
		version = step.fromVersion + 1
		if err := s.Put(schemaVersionKey, []byte{byte(version)}); err != nil {
			return err
		}
	}

	if version != currentSchemaVersion {
		return s.Put(schemaVersionKey, []byte{byte(currentSchemaVersion)})
	}
	return nil
}
