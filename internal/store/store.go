package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/formtree/internal/form"
)

//go:embed schema.sql
var schemaSQL string

// journalPragmas are applied to every connection of the journal. WAL lets
// trace read a journal that run is still appending to.
var journalPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

// journalUpgrade moves a journal from version-1 to version.
type journalUpgrade struct {
	version int
	stmt    string
}

// journalUpgrades are applied in order to journals below their version,
// fresh ones included. Statements must tolerate existing objects.
var journalUpgrades = []journalUpgrade{
	{
		// per-node lookups of ReadNode
		version: 1,
		stmt:    `CREATE INDEX IF NOT EXISTS idx_validations_node ON validations(session, node_id, seq)`,
	},
}

// journalVersion is the user_version of an up to date journal.
var journalVersion = journalUpgrades[len(journalUpgrades)-1].version

// Store is the SQLite validation journal. It implements form.Journal and
// is safe for concurrent use.
type Store struct {
	db *sql.DB
}

var _ form.Journal = (*Store)(nil)

// Open creates the journal at path or opens an existing one, bringing its
// schema up to date. Opening the same path again is harmless.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	// one connection serializes journal writes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepareJournal(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the journal.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func prepareJournal(db *sql.DB) error {
	for _, p := range journalPragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("journal pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("journal schema: %w", err)
	}
	return upgradeJournal(db)
}

// upgradeJournal applies the pending upgrades and stamps the version in
// one transaction.
func upgradeJournal(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read journal version: %w", err)
	}
	if version >= journalVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("upgrade journal: %w", err)
	}
	defer tx.Rollback()

	for _, u := range journalUpgrades {
		if u.version <= version {
			continue
		}
		if _, err := tx.Exec(u.stmt); err != nil {
			return fmt.Errorf("upgrade journal to v%d: %w", u.version, err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", journalVersion)); err != nil {
		return fmt.Errorf("stamp journal version: %w", err)
	}
	return tx.Commit()
}

// pragma reads the current value of a journal setting.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}
