package answerd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS questions (
	room       TEXT PRIMARY KEY,
	id         TEXT NOT NULL,
	text       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS answers (
	room       TEXT PRIMARY KEY,
	id         TEXT NOT NULL,
	answer     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS discards (
	room       TEXT PRIMARY KEY,
	id         TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteQueue keeps the queue in a SQLite database so pending work survives restarts.
type SQLiteQueue struct {
	db *sql.DB
}

var _ Queue = (*SQLiteQueue)(nil)

// NewSQLiteQueue opens (or creates) the database at dbPath and applies the schema.
func NewSQLiteQueue(dbPath string) (*SQLiteQueue, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteQueue{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteQueue) Close() error {
	return s.db.Close()
}

func (s *SQLiteQueue) PutQuestion(ctx context.Context, q Question) error {
	query := `
		INSERT INTO questions (room, id, text) VALUES (?, ?, ?)
		ON CONFLICT(room) DO UPDATE SET id = excluded.id, text = excluded.text, created_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, q.Room, q.ID, q.Text); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *SQLiteQueue) TakeQuestions(ctx context.Context) ([]Question, error) {
	var out []Question
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT room, id, text FROM questions ORDER BY room`)
		if err != nil {
			return fmt.Errorf("query questions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var q Question
			if err := rows.Scan(&q.Room, &q.ID, &q.Text); err != nil {
				return fmt.Errorf("scan question: %w", err)
			}
			out = append(out, q)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate questions: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM questions`); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteQueue) PutAnswer(ctx context.Context, a Answer) error {
	query := `
		INSERT INTO answers (room, id, answer) VALUES (?, ?, ?)
		ON CONFLICT(room) DO UPDATE SET id = excluded.id, answer = excluded.answer, created_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, a.Room, a.ID, a.Text); err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

func (s *SQLiteQueue) TakeAnswer(ctx context.Context, room string) (string, error) {
	var answer string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT answer FROM answers WHERE room = ?`, room).Scan(&answer)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("query answer: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE room = ?`, room); err != nil {
			return fmt.Errorf("delete answer: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}

func (s *SQLiteQueue) PutDiscard(ctx context.Context, d Discard) error {
	query := `
		INSERT INTO discards (room, id) VALUES (?, ?)
		ON CONFLICT(room) DO UPDATE SET id = excluded.id, created_at = CURRENT_TIMESTAMP
	`
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query, d.Room, d.ID); err != nil {
			return fmt.Errorf("insert discard: %w", err)
		}
		for _, table := range []string{"questions", "answers"} {
			if err := dropFrom(ctx, tx, table, d); err != nil {
				return err
			}
		}
		return nil
	})
}

// dropFrom deletes the room's row in table when it belongs to d.ID or a later question.
func dropFrom(ctx context.Context, tx *sql.Tx, table string, d Discard) error {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE room = ?`, d.Room).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	if !notBefore(id, d.ID) {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE room = ?`, d.Room); err != nil {
		return fmt.Errorf("drop from %s: %w", table, err)
	}
	return nil
}

func (s *SQLiteQueue) TakeDiscards(ctx context.Context) ([]Discard, error) {
	var out []Discard
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT room, id FROM discards ORDER BY room`)
		if err != nil {
			return fmt.Errorf("query discards: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var d Discard
			if err := rows.Scan(&d.Room, &d.ID); err != nil {
				return fmt.Errorf("scan discard: %w", err)
			}
			out = append(out, d)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate discards: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM discards`); err != nil {
			return fmt.Errorf("delete discards: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteQueue) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
