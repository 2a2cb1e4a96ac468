package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore keeps sessions in SQLite. The default DSN points at a shared
// in-memory database, so sessions still end with the process.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS sessions (
        id TEXT PRIMARY KEY, -- UUID
        authenticated BOOLEAN NOT NULL DEFAULT FALSE,
        created_at INTEGER NOT NULL, -- unix nanoseconds
        last_seen_at INTEGER NOT NULL -- unix nanoseconds
    );

    CREATE TABLE IF NOT EXISTS messages (
        seq INTEGER PRIMARY KEY AUTOINCREMENT, -- insertion order
        session_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        content TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        FOREIGN KEY (session_id) REFERENCES sessions (id)
    );

    CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, seq);
    `
	_, err := s.db.Exec(schema)
	return err
}

// Session methods
func (s *SQLiteStore) CreateSession(ctx context.Context) (*Session, error) {
	now := s.now()
	sess := Session{ID: uuid.NewString(), CreatedAt: now, LastSeenAt: now}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, authenticated, created_at, last_seen_at) VALUES (?, ?, ?, ?)",
		sess.ID, sess.Authenticated, sess.CreatedAt.UnixNano(), sess.LastSeenAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	return &sess, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	var createdAt, lastSeenAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, authenticated, created_at, last_seen_at FROM sessions WHERE id = ?", id).
		Scan(&sess.ID, &sess.Authenticated, &createdAt, &lastSeenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	sess.CreatedAt = time.Unix(0, createdAt)
	sess.LastSeenAt = time.Unix(0, lastSeenAt)
	return &sess, nil
}

func (s *SQLiteStore) Touch(ctx context.Context, id string) error {
	return s.execOnSession(ctx, "UPDATE sessions SET last_seen_at = ? WHERE id = ?", s.now().UnixNano(), id)
}

func (s *SQLiteStore) MarkAuthenticated(ctx context.Context, id string) error {
	return s.execOnSession(ctx, "UPDATE sessions SET authenticated = TRUE WHERE id = ?", id)
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin session delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteIdleSessions(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM sessions WHERE last_seen_at < ?", before.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query idle sessions: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate idle sessions: %w", err)
	}

	for _, id := range ids {
		if err := s.DeleteSession(ctx, id); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// Message methods
func (s *SQLiteStore) AppendMessage(ctx context.Context, id string, msg Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("invalid message role %q", msg.Role)
	}
	if _, err := s.GetSession(ctx, id); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)",
		id, string(msg.Role), msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, id string) ([]Message, error) {
	if _, err := s.GetSession(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content, created_at FROM messages WHERE session_id = ? ORDER BY seq ASC", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var msg Message
		var role string
		if err := rows.Scan(&role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msg.Role = Role(role)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) ClearMessages(ctx context.Context, id string) error {
	if _, err := s.GetSession(ctx, id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

func (s *SQLiteStore) execOnSession(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}
