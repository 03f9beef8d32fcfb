// Package store archives finished and live transcripts in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/loqalabs/loqa-transcribe/internal/config"
	"github.com/loqalabs/loqa-transcribe/internal/transcript"
)

// Session is one archived transcription run: a batch file or a live
// session.
type Session struct {
	ID        string
	Source    string
	Mode      string
	CreatedAt time.Time
}

// Store wraps a SQLite-backed transcript archive. A disabled store accepts
// writes and returns nothing.
type Store struct {
	db    *sql.DB
	cfg   config.StoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the store according to config.
func Open(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*Store, error) {
	log = log.With(slog.String("component", "store"))
	if !cfg.Enabled {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.Prune(ctx); err != nil {
		log.Warn("transcript store prune on start failed", slog.String("error", err.Error()))
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    source TEXT,
    mode TEXT,
    created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS segments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    start_s REAL NOT NULL,
    end_s REAL NOT NULL,
    text TEXT NOT NULL,
    FOREIGN KEY(session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_segments_session ON segments(session_id, start_s);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Enabled reports whether writes reach a database.
func (s *Store) Enabled() bool { return s != nil && s.db != nil }

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSession ensures a session row exists.
func (s *Store) SaveSession(ctx context.Context, sess Session) error {
	if s.db == nil {
		return nil
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.clock()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(session_id, source, mode, created_at)
		 VALUES(?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET source=excluded.source, mode=excluded.mode`,
		sess.ID, sess.Source, sess.Mode, sess.CreatedAt.UnixMilli())
	return err
}

// AppendSegments adds segments to a session in order. Empty text is skipped.
func (s *Store) AppendSegments(ctx context.Context, sessionID string, segs ...transcript.Segment) error {
	if s.db == nil || len(segs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, seg := range segs {
		if seg.Text == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO segments(session_id, start_s, end_s, text) VALUES(?, ?, ?, ?)`,
			sessionID, seg.Start, seg.End, seg.Text); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SaveTranscript records a finished transcript in one call.
func (s *Store) SaveTranscript(ctx context.Context, sess Session, segs []transcript.Segment) error {
	if err := s.SaveSession(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := s.AppendSegments(ctx, sess.ID, segs...); err != nil {
		return fmt.Errorf("save segments: %w", err)
	}
	return nil
}

// Segments returns a session's segments ordered by insertion.
func (s *Store) Segments(ctx context.Context, sessionID string) ([]transcript.Segment, error) {
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT start_s, end_s, text FROM segments WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segs []transcript.Segment
	for rows.Next() {
		var seg transcript.Segment
		if err := rows.Scan(&seg.Start, &seg.End, &seg.Text); err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return segs, rows.Err()
}

// Sessions lists up to limit sessions, newest first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]Session, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, source, mode, created_at FROM sessions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var created int64
		if err := rows.Scan(&sess.ID, &sess.Source, &sess.Mode, &created); err != nil {
			return nil, err
		}
		sess.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Prune applies configured retention (called on startup).
func (s *Store) Prune(ctx context.Context) (err error) {
	if s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE created_at < ?`, cutoff.UnixMilli()); err != nil {
			return err
		}
	}
	if s.cfg.MaxSessions > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id IN (
			SELECT session_id FROM sessions ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxSessions)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}
