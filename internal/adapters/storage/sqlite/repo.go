package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/lanes/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// defaultEventLimit caps ListChangeEvents when no limit is given.
const defaultEventLimit = 50

// Repository stores one board and its change ledger.
type Repository struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Every pooled connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)
	return newRepository(db)
}

// newRepository migrates db and wraps it.
func newRepository(db *sql.DB) (*Repository, error) {
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the schema when missing.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			lane TEXT NOT NULL,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			subtasks_json TEXT NOT NULL DEFAULT '[]',
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS change_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			from_lane TEXT NOT NULL DEFAULT '',
			to_lane TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_lane_position ON tasks(lane, position);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// LoadBoard returns every stored task grouped by lane in stored order.
func (r *Repository) LoadBoard(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, lane, title, description, subtasks_json
		FROM tasks
		ORDER BY lane ASC, position ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

// SaveBoard replaces the stored board with tasks. Positions restart at zero in
// each lane, in slice order.
func (r *Repository) SaveBoard(ctx context.Context, tasks []domain.Task) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	now := ts(time.Now())
	positions := map[domain.LaneID]int{}
	for _, task := range tasks {
		subtasksJSON, encErr := json.Marshal(nonNilStrings(task.Subtasks))
		if encErr != nil {
			return fmt.Errorf("encode subtasks: %w", encErr)
		}
		pos := positions[task.Lane]
		positions[task.Lane] = pos + 1
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO tasks(id, lane, position, title, description, subtasks_json, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, task.ID, string(task.Lane), pos, task.Title, task.Description, string(subtasksJSON), now); err != nil {
			return fmt.Errorf("insert task %q: %w", task.ID, err)
		}
	}
	return tx.Commit()
}

// AppendChangeEvents writes events to the change ledger in order.
func (r *Repository) AppendChangeEvents(ctx context.Context, events []domain.ChangeEvent) (err error) {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, event := range events {
		if err = insertChangeEvent(ctx, tx, event); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListChangeEvents returns the most recent events, newest first. Rows are
// ordered by insertion since events are appended as they occur.
func (r *Repository) ListChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT task_id, operation, title, from_lane, to_lane, created_at
		FROM change_events
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChangeEvent, 0)
	for rows.Next() {
		var (
			event      domain.ChangeEvent
			opRaw      string
			fromRaw    string
			toRaw      string
			createdRaw string
		)
		if err := rows.Scan(&event.TaskID, &opRaw, &event.Title, &fromRaw, &toRaw, &createdRaw); err != nil {
			return nil, err
		}
		event.Operation = domain.ChangeOperation(opRaw)
		event.FromLane = domain.LaneID(fromRaw)
		event.ToLane = domain.LaneID(toRaw)
		event.OccurredAt = parseTS(createdRaw)
		out = append(out, event)
	}
	return out, rows.Err()
}

// execerContext represents a write-only DB contract used by DB and Tx implementations.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// insertChangeEvent inserts one change-ledger record.
func insertChangeEvent(ctx context.Context, execer execerContext, event domain.ChangeEvent) error {
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	_, err := execer.ExecContext(ctx, `
		INSERT INTO change_events(task_id, operation, title, from_lane, to_lane, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		event.TaskID,
		string(event.Operation),
		event.Title,
		string(event.FromLane),
		string(event.ToLane),
		ts(occurred),
	)
	if err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

// scanner represents the row-scanning contract shared by sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTask decodes one tasks row.
func scanTask(s scanner) (domain.Task, error) {
	var (
		task         domain.Task
		laneRaw      string
		subtasksJSON string
	)
	if err := s.Scan(&task.ID, &laneRaw, &task.Title, &task.Description, &subtasksJSON); err != nil {
		return domain.Task{}, err
	}
	task.Lane = domain.LaneID(laneRaw)
	if strings.TrimSpace(subtasksJSON) == "" {
		subtasksJSON = "[]"
	}
	if err := json.Unmarshal([]byte(subtasksJSON), &task.Subtasks); err != nil {
		return domain.Task{}, fmt.Errorf("decode tasks.subtasks_json: %w", err)
	}
	task.Subtasks = nonNilStrings(task.Subtasks)
	return task, nil
}

// nonNilStrings keeps empty lists encoding as [] rather than null.
func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// tsLayout is fixed width so stored timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ts formats a timestamp for storage.
func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// parseTS parses a stored timestamp, returning the zero time when malformed.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
