package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"MarketPulse/internal/model"

	"github.com/lib/pq"
)

const (
	pgNoMatchingConstraint = "42P10"
	pgUniqueViolation      = "23505"
)

var pgKeyDetailRe = regexp.MustCompile(`Key \(([^)]+)\)=`)

// PostgresStore writes rows to a Postgres (or Supabase) schema.
type PostgresStore struct {
	db     *sql.DB
	schema string
}

// NewPostgresStore opens a connection pool and verifies it with a ping.
func NewPostgresStore(ctx context.Context, dsn, schema string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if schema == "" {
		schema = "public"
	}
	log.Printf("[INFO] postgres store connected (schema %s)", schema)
	return &PostgresStore{db: db, schema: schema}, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, table string, rows []model.Row, conflictKey []string) (int, error) {
	return s.exec(ctx, table, rows, conflictKey)
}

func (s *PostgresStore) Insert(ctx context.Context, table string, rows []model.Row) (int, error) {
	return s.exec(ctx, table, rows, nil)
}

func (s *PostgresStore) exec(ctx context.Context, table string, rows []model.Row, conflictKey []string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	qualified := pq.QuoteIdentifier(s.schema) + "." + pq.QuoteIdentifier(table)
	query, args := buildInsert(postgresDialect, qualified, rows, conflictKey)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classifyPostgres(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(rows), nil
	}
	return int(n), nil
}

func (s *PostgresStore) Close() error {
	log.Println("[INFO] closing postgres store")
	return s.db.Close()
}

var postgresDialect = dialect{
	quote:       pq.QuoteIdentifier,
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	excluded:    "EXCLUDED",
}

func classifyPostgres(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return &StoreError{Kind: KindUnknown, Message: err.Error(), Err: err}
	}
	se := &StoreError{
		Kind:    KindUnknown,
		Code:    string(pqErr.Code),
		Message: pqErr.Message,
		Detail:  pqErr.Detail,
		Err:     err,
	}
	switch se.Code {
	case pgNoMatchingConstraint:
		se.Kind = KindNoMatchingConstraint
	case pgUniqueViolation:
		se.Kind = KindDuplicateKey
		if m := pgKeyDetailRe.FindStringSubmatch(pqErr.Detail); m != nil {
			se.Column = strings.ReplaceAll(m[1], " ", "")
		}
	}
	return se
}
