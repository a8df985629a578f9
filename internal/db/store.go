// internal/db/store.go
package db

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists debates, turns and verdicts to sqlite.
type Store struct {
	db *sql.DB
}

type DebateRow struct {
	ID         string
	TopicID    string
	Claim      string
	HelperType string
	Result     string
	Reason     string
	Rounds     int
	CreatedAt  time.Time
	EndedAt    sql.NullTime
}

type TurnRow struct {
	ID        int64
	DebateID  string
	Role      string
	Round     int
	Content   string
	Tokens    int
	CreatedAt time.Time
}

type VerdictRow struct {
	ID        int64
	DebateID  string
	Moderator string
	Round     int
	Signal    string
	Rationale string
	CreatedAt time.Time
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS debates (
		id TEXT PRIMARY KEY,
		topic_id TEXT NOT NULL,
		claim TEXT NOT NULL,
		helper_type TEXT NOT NULL,
		result TEXT,
		reason TEXT,
		rounds INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		ended_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		debate_id TEXT NOT NULL REFERENCES debates(id),
		role TEXT NOT NULL,
		round INTEGER NOT NULL,
		content TEXT NOT NULL,
		tokens INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_turns_debate ON turns(debate_id);

	CREATE TABLE IF NOT EXISTS verdicts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		debate_id TEXT NOT NULL REFERENCES debates(id),
		moderator TEXT NOT NULL,
		round INTEGER NOT NULL,
		signal TEXT NOT NULL,
		rationale TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_verdicts_debate ON verdicts(debate_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateDebate registers a debate at start.
func (s *Store) CreateDebate(id, topicID, claim, helperType string) error {
	_, err := s.db.Exec(
		`INSERT INTO debates (id, topic_id, claim, helper_type) VALUES (?, ?, ?, ?)`,
		id, topicID, claim, helperType,
	)
	return err
}

// AddTurn appends one transcript turn.
func (s *Store) AddTurn(debateID, role string, round int, content string, tokens int) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO turns (debate_id, role, round, content, tokens) VALUES (?, ?, ?, ?, ?)`,
		debateID, role, round, content, tokens,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// AddVerdict appends one moderator verdict.
func (s *Store) AddVerdict(debateID, moderator string, round int, signal, rationale string) error {
	_, err := s.db.Exec(
		`INSERT INTO verdicts (debate_id, moderator, round, signal, rationale) VALUES (?, ?, ?, ?, ?)`,
		debateID, moderator, round, signal, rationale,
	)
	return err
}

// FinishDebate records the terminal result.
func (s *Store) FinishDebate(id, result, reason string, rounds int) error {
	_, err := s.db.Exec(
		`UPDATE debates SET result = ?, reason = ?, rounds = ?, ended_at = CURRENT_TIMESTAMP WHERE id = ?`,
		result, reason, rounds, id,
	)
	return err
}

// GetDebate retrieves one debate by ID.
func (s *Store) GetDebate(id string) (*DebateRow, error) {
	row := s.db.QueryRow(
		`SELECT id, topic_id, claim, helper_type, result, reason, rounds, created_at, ended_at
		 FROM debates WHERE id = ?`, id,
	)

	var d DebateRow
	var result, reason sql.NullString
	if err := row.Scan(&d.ID, &d.TopicID, &d.Claim, &d.HelperType, &result, &reason, &d.Rounds, &d.CreatedAt, &d.EndedAt); err != nil {
		return nil, err
	}
	d.Result = result.String
	d.Reason = reason.String
	return &d, nil
}

// ListDebates returns all debates, newest first.
func (s *Store) ListDebates() ([]DebateRow, error) {
	rows, err := s.db.Query(
		`SELECT id, topic_id, claim, helper_type, result, reason, rounds, created_at, ended_at
		 FROM debates ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var debates []DebateRow
	for rows.Next() {
		var d DebateRow
		var result, reason sql.NullString
		if err := rows.Scan(&d.ID, &d.TopicID, &d.Claim, &d.HelperType, &result, &reason, &d.Rounds, &d.CreatedAt, &d.EndedAt); err != nil {
			return nil, err
		}
		d.Result = result.String
		d.Reason = reason.String
		debates = append(debates, d)
	}
	return debates, rows.Err()
}

// GetTurns retrieves a debate's transcript in order.
func (s *Store) GetTurns(debateID string) ([]TurnRow, error) {
	rows, err := s.db.Query(
		`SELECT id, debate_id, role, round, content, tokens, created_at
		 FROM turns WHERE debate_id = ? ORDER BY id`,
		debateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []TurnRow
	for rows.Next() {
		var t TurnRow
		if err := rows.Scan(&t.ID, &t.DebateID, &t.Role, &t.Round, &t.Content, &t.Tokens, &t.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// GetVerdicts retrieves a debate's verdicts in order.
func (s *Store) GetVerdicts(debateID string) ([]VerdictRow, error) {
	rows, err := s.db.Query(
		`SELECT id, debate_id, moderator, round, signal, rationale, created_at
		 FROM verdicts WHERE debate_id = ? ORDER BY id`,
		debateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var verdicts []VerdictRow
	for rows.Next() {
		var v VerdictRow
		var rationale sql.NullString
		if err := rows.Scan(&v.ID, &v.DebateID, &v.Moderator, &v.Round, &v.Signal, &rationale, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Rationale = rationale.String
		verdicts = append(verdicts, v)
	}
	return verdicts, rows.Err()
}
