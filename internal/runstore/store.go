// Package runstore persists run history: one row per processed
// recording plus the per-chunk merge audit trail, in a SQLite
// database. Retention is configurable; ephemeral mode keeps nothing.
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/minutelabs/minuted/internal/config"
	_ "modernc.org/sqlite"
)

// Run summarizes one completed processing run.
type Run struct {
	RunID            string
	AudioPath        string
	StartedAt        time.Time
	CompletedAt      time.Time
	ChunkCount       int
	WordCount        int
	TranscriptLength int
}

// Chunk is one merge audit record tied to a run.
type Chunk struct {
	RunID             string
	ChunkIndex        int
	StartTime         float64
	EndTime           float64
	OriginalText      string
	UniqueText        string
	AccumulatedLength int
	CreatedAt         time.Time
}

// Store wraps the SQLite-backed run history.
type Store struct {
	db    *sql.DB
	cfg   config.RunStoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the run store according to config. In ephemeral
// mode no database is opened and every write is a no-op.
func Open(ctx context.Context, cfg config.RunStoreConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
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

	if cfg.VacuumOnStart {
		if err := s.vacuum(ctx); err != nil {
			log.Warn("run store vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("run store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    audio_path TEXT,
    started_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP,
    chunk_count INTEGER,
    word_count INTEGER,
    transcript_length INTEGER
);
CREATE TABLE IF NOT EXISTS chunks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    start_time REAL,
    end_time REAL,
    original_text TEXT,
    unique_text TEXT,
    accumulated_length INTEGER,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY(run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_chunks_run_index ON chunks(run_id, chunk_index);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) vacuum(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun ensures a run row exists before chunks reference it.
func (s *Store) BeginRun(ctx context.Context, runID, audioPath string) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(run_id, audio_path, started_at)
		 VALUES(?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET audio_path=excluded.audio_path`,
		runID, audioPath, s.clock().UTC())
	return err
}

// CompleteRun records the final statistics for a run.
func (s *Store) CompleteRun(ctx context.Context, run Run) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	if run.CompletedAt.IsZero() {
		run.CompletedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET completed_at = ?, chunk_count = ?, word_count = ?, transcript_length = ?
		 WHERE run_id = ?`,
		run.CompletedAt, run.ChunkCount, run.WordCount, run.TranscriptLength, run.RunID)
	return err
}

// AppendChunk writes one merge audit record.
func (s *Store) AppendChunk(ctx context.Context, c Chunk) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chunks(run_id, chunk_index, start_time, end_time, original_text, unique_text, accumulated_length, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		c.RunID, c.ChunkIndex, c.StartTime, c.EndTime, c.OriginalText, c.UniqueText, c.AccumulatedLength, c.CreatedAt)
	return err
}

// ListRunChunks retrieves the audit records for a run ordered by chunk index.
func (s *Store) ListRunChunks(ctx context.Context, runID string) ([]Chunk, error) {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, chunk_index, start_time, end_time, original_text, unique_text, accumulated_length, created_at
		 FROM chunks WHERE run_id = ? ORDER BY chunk_index ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var created string
		if err := rows.Scan(&c.RunID, &c.ChunkIndex, &c.StartTime, &c.EndTime, &c.OriginalText, &c.UniqueText, &c.AccumulatedLength, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			c.CreatedAt = ts
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Prune applies configured retention (called on startup and can be scheduled).
func (s *Store) Prune(ctx context.Context) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
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
		if _, err = tx.ExecContext(ctx, `DELETE FROM chunks WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxRuns > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id IN (
			SELECT run_id FROM runs ORDER BY started_at DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxRuns)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}
