package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sosai/counsel/backend/internal/model/chat"
)

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

const createTurnsTable = `
CREATE TABLE IF NOT EXISTS turns (
  chat_id    TEXT    NOT NULL,
  seq        INTEGER NOT NULL,
  role       TEXT    NOT NULL,
  content    TEXT    NOT NULL,
  created_at INTEGER NOT NULL,
  anxiety    REAL,
  depression REAL,
  anger      REAL,
  stress     REAL,
  risk_level TEXT,
  PRIMARY KEY (chat_id, seq)
)`

// SQLiteStore persists transcripts in a local SQLite database.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens (and if necessary creates) the transcript database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", ErrInvalidConfig)
	}

	// modernc.org/sqlite takes pragmas as _pragma=name(value) pairs, not
	// the mattn-style _journal_mode form.
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(createTurnsTable); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create turns table: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Append inserts one turn. The (chat_id, seq) primary key rejects duplicate
// sequence numbers, so a retried write surfaces as an error instead of a
// silent double append.
func (s *SQLiteStore) Append(ctx context.Context, chatID string, turn chat.Turn) error {
	var anxiety, depression, anger, stress sql.NullFloat64
	if turn.Emotion != nil {
		anxiety = sql.NullFloat64{Float64: turn.Emotion.Anxiety, Valid: true}
		depression = sql.NullFloat64{Float64: turn.Emotion.Depression, Valid: true}
		anger = sql.NullFloat64{Float64: turn.Emotion.Anger, Valid: true}
		stress = sql.NullFloat64{Float64: turn.Emotion.Stress, Valid: true}
	}
	var risk sql.NullString
	if turn.Risk != "" {
		risk = sql.NullString{String: string(turn.Risk), Valid: true}
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO turns (chat_id, seq, role, content, created_at,
		   anxiety, depression, anger, stress, risk_level)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chatID,
		turn.Seq,
		string(turn.Role),
		turn.Content,
		turn.CreatedAt.UTC().UnixMilli(),
		anxiety, depression, anger, stress,
		risk,
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// LoadRecent returns up to n most recent turns in chronological order.
func (s *SQLiteStore) LoadRecent(ctx context.Context, chatID string, n int) ([]chat.Turn, error) {
	if n <= 0 {
		n = 50
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT seq, role, content, created_at,
		   anxiety, depression, anger, stress, risk_level
		 FROM turns WHERE chat_id = ?
		 ORDER BY seq DESC LIMIT ?`,
		chatID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	defer rows.Close()

	var turns []chat.Turn
	for rows.Next() {
		var (
			turn       chat.Turn
			role       string
			createdAt  int64
			anxiety    sql.NullFloat64
			depression sql.NullFloat64
			anger      sql.NullFloat64
			stress     sql.NullFloat64
			risk       sql.NullString
		)
		if err := rows.Scan(&turn.Seq, &role, &turn.Content, &createdAt,
			&anxiety, &depression, &anger, &stress, &risk); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turn.Role = chat.Role(role)
		turn.CreatedAt = fromMillis(createdAt)
		if anxiety.Valid {
			turn.Emotion = &chat.EmotionScore{
				Anxiety:    anxiety.Float64,
				Depression: depression.Float64,
				Anger:      anger.Float64,
				Stress:     stress.Float64,
			}
		}
		if risk.Valid {
			turn.Risk = chat.RiskLevel(risk.String)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	// Query returned newest-first; flip into transcript order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
