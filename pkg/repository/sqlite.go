package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/raven/pkg/model"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// InMemory is a special path to open a transient database
const InMemory = ":memory:"

// SQLite implements Repository with SQLite and an FTS5 external content table.
// Triggers keep the index in sync with the memories table, and every write runs
// in an explicit transaction so a failed index update rolls back the record.
type SQLite struct {
	db *sql.DB
}

var _ Repository = (*SQLite)(nil)

// New opens (or creates) the database at path and provisions the schema
func New(path string) (*SQLite, error) {
	if path == "" {
		return nil, goerr.New("database path is required")
	}

	dsn := InMemory
	if path != InMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, goerr.Wrap(err, "failed to create database directory", goerr.V("path", path))
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("path", path))
	}

	// every connection to :memory: is a separate database
	if path == InMemory {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to initialize schema", goerr.V("path", path))
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection
func (r *SQLite) Close() error {
	return r.db.Close()
}

func (r *SQLite) Insert(ctx context.Context, text string, tags []string) (*model.Memory, error) {
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal tags")
	}

	createdAt := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO memories (created_at, text, tags) VALUES (?, ?, ?)`,
		createdAt.Format(time.RFC3339Nano), text, string(tagsJSON),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert memory")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get inserted memory id")
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit memory insert", goerr.V("id", id))
	}

	return &model.Memory{
		ID:        model.MemoryID(id),
		CreatedAt: createdAt,
		Text:      text,
		Tags:      tags,
	}, nil
}

func (r *SQLite) DeleteByIDs(ctx context.Context, ids []model.MemoryID) ([]model.MemoryID, error) {
	if len(ids) == 0 {
		return []model.MemoryID{}, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	seen := make(map[model.MemoryID]struct{}, len(ids))
	deleted := make([]model.MemoryID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		res, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, int64(id))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to delete memory", goerr.V("id", id))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get affected rows", goerr.V("id", id))
		}
		if n > 0 {
			deleted = append(deleted, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit memory deletion", goerr.V("ids", ids))
	}

	return deleted, nil
}

func (r *SQLite) MatchIndex(ctx context.Context, expr string, limit int) ([]model.Hit, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT rowid, rank FROM memories_fts WHERE memories_fts MATCH ? ORDER BY rank LIMIT ?`,
		expr, limit,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query full-text index", goerr.V("expr", expr))
	}
	defer rows.Close()

	var hits []model.Hit
	for rows.Next() {
		var id int64
		var rank float64
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, goerr.Wrap(err, "failed to scan index hit", goerr.V("expr", expr))
		}
		hits = append(hits, model.Hit{ID: model.MemoryID(id), Rank: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate index hits", goerr.V("expr", expr))
	}

	return hits, nil
}

func (r *SQLite) FetchByIDs(ctx context.Context, ids []model.MemoryID) ([]*model.Memory, error) {
	if len(ids) == 0 {
		return []*model.Memory{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = int64(id)
	}

	query := `SELECT id, created_at, text, tags FROM memories WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch memories", goerr.V("ids", ids))
	}
	defer rows.Close()

	return scanMemories(rows)
}

func (r *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&n); err != nil {
		return 0, goerr.Wrap(err, "failed to count memories")
	}
	return n, nil
}

func (r *SQLite) List(ctx context.Context, offset, limit int) ([]*model.Memory, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at, text, tags FROM memories ORDER BY id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memories", goerr.V("offset", offset), goerr.V("limit", limit))
	}
	defer rows.Close()

	return scanMemories(rows)
}

func scanMemories(rows *sql.Rows) ([]*model.Memory, error) {
	memories := []*model.Memory{}
	for rows.Next() {
		var (
			id        int64
			createdAt string
			text      string
			tagsJSON  string
		)
		if err := rows.Scan(&id, &createdAt, &text, &tagsJSON); err != nil {
			return nil, goerr.Wrap(err, "failed to scan memory")
		}

		m := &model.Memory{
			ID:   model.MemoryID(id),
			Text: text,
			Tags: []string{},
		}

		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse created_at", goerr.V("id", id), goerr.V("created_at", createdAt))
		}
		m.CreatedAt = t

		if tagsJSON != "" {
			if err := json.Unmarshal([]byte(tagsJSON), &m.Tags); err != nil {
				return nil, goerr.Wrap(err, "failed to parse tags", goerr.V("id", id))
			}
			if m.Tags == nil {
				m.Tags = []string{}
			}
		}

		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate memories")
	}

	return memories, nil
}
