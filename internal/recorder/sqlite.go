package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"MarketPulse/internal/model"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	sqliteUniqueRe     = regexp.MustCompile(`UNIQUE constraint failed: ([\w.]+(?:, [\w.]+)*)`)
	sqliteNoConflictRe = regexp.MustCompile(`ON CONFLICT clause does not match any PRIMARY KEY or UNIQUE constraint`)
)

// SQLiteStore persists rows to a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle for health checks and tests.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Migrate creates latest-only candle and indicator tables keyed by symbol.
func (s *SQLiteStore) Migrate(candlesTable, indicatorsTable string) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			symbol   TEXT PRIMARY KEY,
			interval TEXT,
			start,
			"end",
			open     REAL,
			close    REAL,
			high     REAL,
			low      REAL,
			volume   REAL
		)`, sqliteQuote(candlesTable)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			symbol       TEXT PRIMARY KEY,
			ema50        REAL,
			ema200       REAL,
			rsi14        REAL,
			macd         REAL,
			"macdSignal" REAL,
			score        INTEGER,
			label        TEXT,
			"lastTs"
		)`, sqliteQuote(indicatorsTable)),
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", strings.Fields(stmt)[5], err)
		}
	}
	return nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, table string, rows []model.Row, conflictKey []string) (int, error) {
	return s.exec(ctx, table, rows, conflictKey)
}

func (s *SQLiteStore) Insert(ctx context.Context, table string, rows []model.Row) (int, error) {
	return s.exec(ctx, table, rows, nil)
}

func (s *SQLiteStore) exec(ctx context.Context, table string, rows []model.Row, conflictKey []string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args := buildInsert(sqliteDialect, sqliteQuote(table), rows, conflictKey)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classifySQLite(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(rows), nil
	}
	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing sqlite store")
	return s.db.Close()
}

var sqliteDialect = dialect{
	quote:       sqliteQuote,
	placeholder: func(int) string { return "?" },
	excluded:    "excluded",
}

func sqliteQuote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func classifySQLite(err error) error {
	se := &StoreError{Kind: KindUnknown, Message: err.Error(), Err: err}
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		se.Code = strconv.Itoa(serr.Code())
	}
	switch {
	case sqliteNoConflictRe.MatchString(se.Message):
		se.Kind = KindNoMatchingConstraint
	case sqliteUniqueRe.MatchString(se.Message):
		se.Kind = KindDuplicateKey
		se.Column = uniqueColumns(sqliteUniqueRe.FindStringSubmatch(se.Message)[1])
	case serr != nil && (serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || serr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY):
		se.Kind = KindDuplicateKey
	}
	return se
}

// uniqueColumns turns "t.a, t.b" into "a,b".
func uniqueColumns(s string) string {
	parts := strings.Split(s, ", ")
	for i, p := range parts {
		if dot := strings.LastIndex(p, "."); dot >= 0 {
			parts[i] = p[dot+1:]
		}
	}
	return strings.Join(parts, ",")
}
