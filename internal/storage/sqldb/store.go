package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
	"github.com/tjfontaine/pipeline-library/internal/core/ports"
	"github.com/tjfontaine/pipeline-library/internal/storage/dialect"
)

// Store is a SQL implementation of ports.PipelineStore that supports
// multiple database dialects.
type Store struct {
	db         *sqlx.DB
	dialect    dialect.Dialect
	optimistic bool

	// writes are serialized within the process; revision numbers are also
	// protected by the (name, rev) primary key across processes.
	writeMu sync.Mutex
}

var _ ports.PipelineStore = (*Store)(nil)

// Config holds database connection configuration
type Config struct {
	Driver string // Driver name: sqlite, postgres
	DSN    string // Data source name / connection string

	// OptimisticConcurrency rejects writes carrying a stale uuid.
	OptimisticConcurrency bool
}

// New creates a new SQL store with the specified configuration.
func New(cfg Config) (*Store, error) {
	d, err := dialect.FromDriverName(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("unsupported database driver: %w", err)
	}

	db, err := sqlx.Open(d.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Run dialect-specific initialization (e.g., PRAGMA for SQLite)
	for _, stmt := range d.PragmaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db, dialect: d, optimistic: cfg.OptimisticConcurrency}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSQLite creates a new SQLite store.
func NewSQLite(dbPath string) (*Store, error) {
	return New(Config{Driver: "sqlite", DSN: dbPath})
}

// DB returns the underlying sqlx.DB for advanced operations
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Dialect returns the dialect being used
func (s *Store) Dialect() dialect.Dialect {
	return s.dialect
}

func (s *Store) initSchema() error {
	ts := s.dialect.TimestampType()
	text := s.dialect.TextType()

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS pipelines (
name TEXT PRIMARY KEY,
description %[2]s NOT NULL,
creator TEXT NOT NULL,
last_modifier TEXT NOT NULL,
created_at %[1]s NOT NULL,
updated_at %[1]s NOT NULL,
last_rev TEXT NOT NULL,
uuid TEXT NOT NULL,
document %[2]s NOT NULL
)`, ts, text),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS pipeline_revisions (
name TEXT NOT NULL,
rev TEXT NOT NULL,
seq INTEGER NOT NULL,
tag TEXT NOT NULL,
tag_description %[2]s NOT NULL,
user_name TEXT NOT NULL,
created_at %[1]s NOT NULL,
document %[2]s NOT NULL,
PRIMARY KEY (name, rev)
)`, ts, text),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS pipeline_rules (
name TEXT NOT NULL,
rev TEXT NOT NULL,
uuid TEXT NOT NULL,
document %[2]s NOT NULL,
updated_at %[1]s NOT NULL,
PRIMARY KEY (name, rev)
)`, ts, text),
		`CREATE INDEX IF NOT EXISTS idx_pipeline_revisions_seq ON pipeline_revisions(name, seq)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

type pipelineRow struct {
	Name         string    `db:"name"`
	Description  string    `db:"description"`
	Creator      string    `db:"creator"`
	LastModifier string    `db:"last_modifier"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastRev      string    `db:"last_rev"`
	UUID         string    `db:"uuid"`
	Document     string    `db:"document"`
}

func (r *pipelineRow) info() *domain.PipelineInfo {
	return &domain.PipelineInfo{
		Name:         r.Name,
		Description:  r.Description,
		Creator:      r.Creator,
		LastModifier: r.LastModifier,
		Created:      r.CreatedAt.UTC(),
		LastModified: r.UpdatedAt.UTC(),
		LastRev:      r.LastRev,
		UUID:         r.UUID,
	}
}

type revisionRow struct {
	Rev            string    `db:"rev"`
	Tag            string    `db:"tag"`
	TagDescription string    `db:"tag_description"`
	UserName       string    `db:"user_name"`
	CreatedAt      time.Time `db:"created_at"`
}

const pipelineColumns = `name, description, creator, last_modifier, created_at, updated_at, last_rev, uuid, document`

func (s *Store) ListPipelines(ctx context.Context) ([]*domain.PipelineInfo, error) {
	var rows []pipelineRow
	query := `SELECT ` + pipelineColumns + ` FROM pipelines ORDER BY name`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}

	result := make([]*domain.PipelineInfo, len(rows))
	for i := range rows {
		result[i] = rows[i].info()
	}
	return result, nil
}

func (s *Store) getPipeline(ctx context.Context, q sqlx.QueryerContext, name string) (*pipelineRow, error) {
	var row pipelineRow
	query := s.dialect.Rebind(`SELECT ` + pipelineColumns + ` FROM pipelines WHERE name = ?`)
	if err := sqlx.GetContext(ctx, q, &row, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPipelineNotFound(name)
		}
		return nil, fmt.Errorf("failed to get pipeline: %w", err)
	}
	return &row, nil
}

func (s *Store) GetInfo(ctx context.Context, name string) (*domain.PipelineInfo, error) {
	row, err := s.getPipeline(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	return row.info(), nil
}

func (s *Store) GetHistory(ctx context.Context, name string) ([]*domain.RevisionInfo, error) {
	if _, err := s.getPipeline(ctx, s.db, name); err != nil {
		return nil, err
	}

	var rows []revisionRow
	query := s.dialect.Rebind(`SELECT rev, tag, tag_description, user_name, created_at
FROM pipeline_revisions WHERE name = ? ORDER BY seq`)
	if err := s.db.SelectContext(ctx, &rows, query, name); err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	history := make([]*domain.RevisionInfo, len(rows))
	for i, r := range rows {
		history[i] = &domain.RevisionInfo{
			Rev:            r.Rev,
			Tag:            r.Tag,
			TagDescription: r.TagDescription,
			User:           r.UserName,
			Date:           r.CreatedAt.UTC(),
		}
	}
	return history, nil
}

func (s *Store) Load(ctx context.Context, name, rev string) (*domain.PipelineConfiguration, error) {
	row, err := s.getPipeline(ctx, s.db, name)
	if err != nil {
		return nil, err
	}

	rev = domain.NormalizeRev(rev)
	if rev == domain.HeadRevision {
		return decodePipeline(row.Document)
	}

	var document string
	query := s.dialect.Rebind(`SELECT document FROM pipeline_revisions WHERE name = ? AND rev = ?`)
	if err := s.db.GetContext(ctx, &document, query, name, rev); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRevisionNotFound(name, rev)
		}
		return nil, fmt.Errorf("failed to load revision: %w", err)
	}
	return decodePipeline(document)
}

func (s *Store) Create(ctx context.Context, name, description, user string) (*domain.PipelineConfiguration, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := time.Now().UTC()
	info := &domain.PipelineInfo{
		Name:         name,
		Description:  description,
		Creator:      user,
		LastModifier: user,
		Created:      now,
		LastModified: now,
		LastRev:      domain.HeadRevision,
		UUID:         uuid.NewString(),
	}
	cfg := &domain.PipelineConfiguration{
		SchemaVersion: domain.SchemaVersion,
		UUID:          info.UUID,
		Description:   description,
		Configuration: []domain.ConfigValue{},
		Stages:        []domain.StageConfiguration{},
		Info:          info,
	}
	document, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pipeline: %w", err)
	}

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, s.dialect.Rebind(`SELECT COUNT(*) FROM pipelines WHERE name = ?`), name); err != nil {
			return fmt.Errorf("failed to check pipeline: %w", err)
		}
		if count > 0 {
			return domain.ErrPipelineExists(name)
		}

		if _, err := tx.ExecContext(ctx, s.dialect.Rebind(`INSERT INTO pipelines (`+pipelineColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			name, description, user, user, now, now, domain.HeadRevision, info.UUID, string(document)); err != nil {
			return fmt.Errorf("failed to insert pipeline: %w", err)
		}

		return s.insertRevision(ctx, tx, name, 0, domain.HeadRevision, "", user, now, document)
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Store) Save(ctx context.Context, name, user, tag, tagDescription string, cfg *domain.PipelineConfiguration) (*domain.PipelineConfiguration, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var saved *domain.PipelineConfiguration
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		row, err := s.getPipeline(ctx, tx, name)
		if err != nil {
			return err
		}
		if s.optimistic && cfg.UUID != row.UUID {
			return domain.ErrStaleUUID(name)
		}

		var seq int
		if err := tx.GetContext(ctx, &seq, s.dialect.Rebind(`SELECT COALESCE(MAX(seq), -1) + 1 FROM pipeline_revisions WHERE name = ?`), name); err != nil {
			return fmt.Errorf("failed to allocate revision: %w", err)
		}
		rev := strconv.Itoa(seq)
		now := time.Now().UTC()

		info := row.info()
		info.Description = cfg.Description
		info.LastModifier = user
		info.LastModified = now
		info.LastRev = rev
		info.UUID = uuid.NewString()

		saved = cfg.Clone()
		saved.UUID = info.UUID
		if saved.SchemaVersion == 0 {
			saved.SchemaVersion = domain.SchemaVersion
		}
		saved.Info = info

		document, err := json.Marshal(saved)
		if err != nil {
			return fmt.Errorf("failed to marshal pipeline: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.dialect.Rebind(`UPDATE pipelines
SET description = ?, last_modifier = ?, updated_at = ?, last_rev = ?, uuid = ?, document = ?
WHERE name = ?`),
			info.Description, user, now, rev, info.UUID, string(document), name); err != nil {
			return fmt.Errorf("failed to update pipeline: %w", err)
		}

		return s.insertRevision(ctx, tx, name, seq, tag, tagDescription, user, now, document)
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Store) insertRevision(ctx context.Context, tx *sqlx.Tx, name string, seq int, tag, tagDescription, user string, at time.Time, document []byte) error {
	_, err := tx.ExecContext(ctx, s.dialect.Rebind(`INSERT INTO pipeline_revisions
(name, rev, seq, tag, tag_description, user_name, created_at, document)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		name, strconv.Itoa(seq), seq, tag, tagDescription, user, at, string(document))
	if err != nil {
		return fmt.Errorf("failed to insert revision: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM pipelines WHERE name = ?`), name)
		if err != nil {
			return fmt.Errorf("failed to delete pipeline: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return domain.ErrPipelineNotFound(name)
		}
		if _, err := tx.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM pipeline_revisions WHERE name = ?`), name); err != nil {
			return fmt.Errorf("failed to delete revisions: %w", err)
		}
		return nil
	})
}

func (s *Store) RetrieveRules(ctx context.Context, name, rev string) (*domain.RuleDefinitions, error) {
	rev = domain.NormalizeRev(rev)
	document, found, err := s.rulesDocument(ctx, name, rev)
	if err != nil {
		return nil, err
	}
	if !found && rev != domain.HeadRevision {
		// A saved revision without its own document reports the head rules.
		var exists int
		query := s.dialect.Rebind(`SELECT COUNT(*) FROM pipeline_revisions WHERE name = ? AND rev = ?`)
		if err := s.db.GetContext(ctx, &exists, query, name, rev); err != nil {
			return nil, fmt.Errorf("failed to look up revision: %w", err)
		}
		if exists > 0 {
			document, found, err = s.rulesDocument(ctx, name, domain.HeadRevision)
			if err != nil {
				return nil, err
			}
		}
	}
	if !found {
		return nil, nil
	}

	var rules domain.RuleDefinitions
	if err := json.Unmarshal([]byte(document), &rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
	}
	return &rules, nil
}

func (s *Store) rulesDocument(ctx context.Context, name, rev string) (string, bool, error) {
	var document string
	query := s.dialect.Rebind(`SELECT document FROM pipeline_rules WHERE name = ? AND rev = ?`)
	if err := s.db.GetContext(ctx, &document, query, name, rev); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to retrieve rules: %w", err)
	}
	return document, true, nil
}

func (s *Store) StoreRules(ctx context.Context, name, rev string, rules *domain.RuleDefinitions) (*domain.RuleDefinitions, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rev = domain.NormalizeRev(rev)
	var saved *domain.RuleDefinitions
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.getPipeline(ctx, tx, name); err != nil {
			return err
		}

		if s.optimistic && rules.UUID != nil {
			var current string
			err := tx.GetContext(ctx, &current, s.dialect.Rebind(`SELECT uuid FROM pipeline_rules WHERE name = ? AND rev = ?`), name, rev)
			switch {
			case err == nil && current != *rules.UUID:
				return domain.ErrStaleUUID(name)
			case err != nil && !errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("failed to check rules: %w", err)
			}
		}

		saved = rules.Clone()
		id := uuid.NewString()
		saved.UUID = &id

		persisted := saved.Clone()
		persisted.RuleIssues = nil
		document, err := json.Marshal(persisted)
		if err != nil {
			return fmt.Errorf("failed to marshal rules: %w", err)
		}

		query := s.dialect.Rebind(`INSERT INTO pipeline_rules (name, rev, uuid, document, updated_at)
VALUES (?, ?, ?, ?, ?) ` + s.dialect.UpsertClause("name, rev", []string{"uuid", "document", "updated_at"}))
		if _, err := tx.ExecContext(ctx, query, name, rev, id, string(document), time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to store rules: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Store) DeleteRules(ctx context.Context, name string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM pipeline_rules WHERE name = ?`), name); err != nil {
		return fmt.Errorf("failed to delete rules: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func decodePipeline(document string) (*domain.PipelineConfiguration, error) {
	var cfg domain.PipelineConfiguration
	if err := json.Unmarshal([]byte(document), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline: %w", err)
	}
	return &cfg, nil
}
