package session

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore implements Store using SQLite. History and article content
// are stored as JSON columns.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and runs migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, topic, user_name, step, history, article_content_history, version, created_at, updated_at
		FROM sessions WHERE id = ?`, id)

	var (
		sess                 Session
		history, contentHist string
		createdAt, updatedAt int64
	)
	err := row.Scan(&sess.ID, &sess.Topic, &sess.UserName, &sess.Step,
		&history, &contentHist, &sess.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get", err)
	}

	if err := sonic.UnmarshalString(history, &sess.History); err != nil {
		return nil, storageErr("get", fmt.Errorf("decode history: %w", err))
	}
	if err := sonic.UnmarshalString(contentHist, &sess.ArticleContentHistory); err != nil {
		return nil, storageErr("get", fmt.Errorf("decode article content history: %w", err))
	}
	sess.CreatedAt = time.UnixMilli(createdAt).UTC()
	sess.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	sess.normalize()
	return &sess, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	sess.normalize()
	history, err := sonic.MarshalString(sess.History)
	if err != nil {
		return storageErr("save", fmt.Errorf("encode history: %w", err))
	}
	contentHist, err := sonic.MarshalString(sess.ArticleContentHistory)
	if err != nil {
		return storageErr("save", fmt.Errorf("encode article content history: %w", err))
	}

	now := time.Now().UTC()
	created, updated := sess.CreatedAt, now
	if created.IsZero() {
		created = now
	}

	var res sql.Result
	if sess.Version == 0 {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO sessions (id, topic, user_name, step, history, article_content_history, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			sess.ID, sess.Topic, sess.UserName, sess.Step, history, contentHist,
			created.UnixMilli(), updated.UnixMilli())
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE sessions
			SET topic = ?, user_name = ?, step = ?, history = ?, article_content_history = ?,
			    version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?`,
			sess.Topic, sess.UserName, sess.Step, history, contentHist,
			updated.UnixMilli(), sess.ID, sess.Version)
	}
	if err != nil {
		return storageErr("save", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("save", err)
	}
	if n == 0 {
		return ErrConflict
	}

	sess.Version++
	sess.CreatedAt = time.UnixMilli(created.UnixMilli()).UTC()
	sess.UpdatedAt = time.UnixMilli(updated.UnixMilli()).UTC()
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic, user_name, step, json_array_length(history), updated_at
		FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, storageErr("list", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum       Summary
			updatedAt int64
		)
		if err := rows.Scan(&sum.ID, &sum.Topic, &sum.UserName, &sum.Step, &sum.Turns, &updatedAt); err != nil {
			return nil, storageErr("list", err)
		}
		sum.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", err)
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
