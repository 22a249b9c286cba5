package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS drafts (
	id             TEXT PRIMARY KEY,
	reference_date DATETIME NOT NULL,
	topics         TEXT NOT NULL,
	kind           TEXT NOT NULL,
	content        TEXT NOT NULL,
	approval_state TEXT NOT NULL,
	issue_number   INTEGER NOT NULL
)`

// SQLite persists drafts across restarts. The schema is created on open, so
// pointing DRAFT_DB_PATH at a fresh file is enough to bootstrap.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and if needed initializes) the draft database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open draft db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init draft schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Put(ctx context.Context, d *models.Draft) error {
	topics, err := json.Marshal(d.Topics)
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO drafts (id, reference_date, topics, kind, content, approval_state, issue_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ReferenceDate.UTC().Format(time.RFC3339), string(topics),
		string(d.Kind), d.Content, string(d.ApprovalState), d.IssueNumber,
	)
	if err != nil {
		return fmt.Errorf("insert draft: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*models.Draft, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, reference_date, topics, kind, content, approval_state, issue_number
		 FROM drafts WHERE id = ?`, id)

	d, err := scanDraft(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query draft: %w", err)
	}
	return d, nil
}

func (s *SQLite) Update(ctx context.Context, d *models.Draft) error {
	topics, err := json.Marshal(d.Topics)
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE drafts SET topics = ?, kind = ?, content = ?, approval_state = ?, issue_number = ?
		 WHERE id = ?`,
		string(topics), string(d.Kind), d.Content, string(d.ApprovalState), d.IssueNumber, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]models.Draft, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, reference_date, topics, kind, content, approval_state, issue_number
		 FROM drafts ORDER BY reference_date`)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var out []models.Draft
	for rows.Next() {
		d, err := scanDraft(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return out, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func scanDraft(scan func(dest ...any) error) (*models.Draft, error) {
	var (
		d        models.Draft
		refDate  string
		topics   string
		kind     string
		approval string
	)
	if err := scan(&d.ID, &refDate, &topics, &kind, &d.Content, &approval, &d.IssueNumber); err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339, refDate)
	if err != nil {
		return nil, fmt.Errorf("parse reference date %q: %w", refDate, err)
	}
	d.ReferenceDate = ts

	if err := json.Unmarshal([]byte(topics), &d.Topics); err != nil {
		return nil, fmt.Errorf("unmarshal topics: %w", err)
	}

	d.Kind = models.Kind(kind)
	d.ApprovalState = models.ApprovalState(approval)
	return &d, nil
}
