package state

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

//go:embed schema.sql
var schemaSQL string

// DefaultDSN is used by the sqlite backend when no dsn is configured
const DefaultDSN = "file:.cache/state.db?mode=rwc&_txlock=immediate"

// SQLiteStore keeps records in the state_records table
type SQLiteStore struct {
	db *sqlx.DB
}

type recordRow struct {
	Key string `db:"record_key"`
	domain.StateRecord
}

// NewSQLiteStore opens the database and makes sure the schema exists
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		if err := os.MkdirAll(".cache", 0o750); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
		dsn = DefaultDSN
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// single writer, also keeps :memory: databases on one connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000", // 5 second timeout for locks
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("execute schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load reads all records. Query failures give an empty mapping.
func (s *SQLiteStore) Load(ctx context.Context) domain.Records {
	var rows []recordRow
	query := `SELECT record_key, first_seen, last_seen, last_modified_hint, last_content_hash, last_title, last_source
		FROM state_records`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		log.Printf("[WARN] can't load state records, starting empty: %v", err)
		return domain.Records{}
	}

	res := make(domain.Records, len(rows))
	for _, r := range rows {
		res[r.Key] = r.StateRecord
	}
	log.Printf("[DEBUG] loaded %d state records from sqlite", len(res))
	return res
}

// Save replaces the whole table with records in one transaction, retrying on lock errors
func (s *SQLiteStore) Save(ctx context.Context, records domain.Records) error {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	err := retrier.Do(ctx, func() error {
		err := s.replaceAll(ctx, keys, records)
		if err != nil && !isLockError(err) {
			return fmt.Errorf("%w: %w", errNotRetryable, err)
		}
		return err
	}, errNotRetryable)
	if err != nil {
		return fmt.Errorf("save state records: %w", err)
	}
	log.Printf("[DEBUG] saved %d state records to sqlite", len(records))
	return nil
}

func (s *SQLiteStore) replaceAll(ctx context.Context, keys []string, records domain.Records) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM state_records"); err != nil {
		return fmt.Errorf("clear state records: %w", err)
	}

	insert := `INSERT INTO state_records
		(record_key, first_seen, last_seen, last_modified_hint, last_content_hash, last_title, last_source)
		VALUES (:record_key, :first_seen, :last_seen, :last_modified_hint, :last_content_hash, :last_title, :last_source)`
	for _, k := range keys {
		if _, err := tx.NamedExecContext(ctx, insert, recordRow{Key: k, StateRecord: records[k]}); err != nil {
			return fmt.Errorf("insert state record %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// errNotRetryable stops the repeater on failures other than lock contention
var errNotRetryable = errors.New("not retryable")

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}
