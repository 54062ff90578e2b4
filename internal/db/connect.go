package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:tryout.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/tryout?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  phone TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'student',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tryouts (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  question_count INTEGER NOT NULL DEFAULT 0,
  duration_minutes INTEGER NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  tryout_id TEXT NOT NULL REFERENCES tryouts(id) ON DELETE CASCADE,
  qtype TEXT NOT NULL,
  prompt TEXT NOT NULL,
  options_json TEXT NOT NULL,
  answer_key_json TEXT NOT NULL,
  explanation TEXT NOT NULL DEFAULT '',
  image_key TEXT NOT NULL DEFAULT '',
  position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS attempt_sessions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  tryout_id TEXT NOT NULL REFERENCES tryouts(id) ON DELETE CASCADE,
  started_at INTEGER NOT NULL,
  draft_json TEXT NOT NULL,
  UNIQUE (user_id, tryout_id)
);

CREATE TABLE IF NOT EXISTS results (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  tryout_id TEXT NOT NULL REFERENCES tryouts(id) ON DELETE CASCADE,
  attempt_number INTEGER NOT NULL,
  correct_count INTEGER NOT NULL,
  wrong_count INTEGER NOT NULL,
  unanswered_count INTEGER NOT NULL,
  total_questions INTEGER NOT NULL,
  score INTEGER NOT NULL,
  percentage REAL NOT NULL,
  duration_seconds INTEGER NOT NULL,
  is_locked INTEGER NOT NULL DEFAULT 0,
  completed_at INTEGER NOT NULL,
  UNIQUE (user_id, tryout_id, attempt_number)
);

CREATE TABLE IF NOT EXISTS user_answers (
  id TEXT PRIMARY KEY,
  result_id TEXT NOT NULL REFERENCES results(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  tryout_id TEXT NOT NULL,
  question_id TEXT NOT NULL,
  answer_json TEXT NOT NULL,
  is_correct INTEGER NOT NULL,
  has_answer INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rankings (
  user_id TEXT NOT NULL,
  tryout_id TEXT NOT NULL REFERENCES tryouts(id) ON DELETE CASCADE,
  result_id TEXT NOT NULL,
  user_name TEXT NOT NULL DEFAULT '',
  score INTEGER NOT NULL,
  percentage REAL NOT NULL,
  correct_count INTEGER NOT NULL,
  wrong_count INTEGER NOT NULL,
  duration_seconds INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, tryout_id)
);

CREATE TABLE IF NOT EXISTS payments (
  order_id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  tryout_id TEXT NOT NULL REFERENCES tryouts(id) ON DELETE CASCADE,
  amount INTEGER NOT NULL,
  status TEXT NOT NULL,
  reference TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
  offset INTEGER PRIMARY KEY AUTOINCREMENT,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  phone TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'student',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS tryouts (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  question_count INTEGER NOT NULL DEFAULT 0,
  duration_minutes INTEGER NOT NULL,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  tryout_id TEXT NOT NULL REFERENCES tryouts(id) ON DELETE CASCADE,
  qtype TEXT NOT NULL,
  prompt TEXT NOT NULL,
  options_json TEXT NOT NULL,
  answer_key_json TEXT NOT NULL,
  explanation TEXT NOT NULL DEFAULT '',
  image_key TEXT NOT NULL DEFAULT '',
  position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS attempt_sessions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  tryout_id TEXT NOT NULL REFERENCES tryouts(id) ON DELETE CASCADE,
  started_at BIGINT NOT NULL,
  draft_json TEXT NOT NULL,
  UNIQUE (user_id, tryout_id)
);

CREATE TABLE IF NOT EXISTS results (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  tryout_id TEXT NOT NULL REFERENCES tryouts(id) ON DELETE CASCADE,
  attempt_number INTEGER NOT NULL,
  correct_count INTEGER NOT NULL,
  wrong_count INTEGER NOT NULL,
  unanswered_count INTEGER NOT NULL,
  total_questions INTEGER NOT NULL,
  score INTEGER NOT NULL,
  percentage DOUBLE PRECISION NOT NULL,
  duration_seconds INTEGER NOT NULL,
  is_locked BOOLEAN NOT NULL DEFAULT FALSE,
  completed_at BIGINT NOT NULL,
  UNIQUE (user_id, tryout_id, attempt_number)
);

CREATE TABLE IF NOT EXISTS user_answers (
  id TEXT PRIMARY KEY,
  result_id TEXT NOT NULL REFERENCES results(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  tryout_id TEXT NOT NULL,
  question_id TEXT NOT NULL,
  answer_json TEXT NOT NULL,
  is_correct BOOLEAN NOT NULL,
  has_answer BOOLEAN NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS rankings (
  user_id TEXT NOT NULL,
  tryout_id TEXT NOT NULL REFERENCES tryouts(id) ON DELETE CASCADE,
  result_id TEXT NOT NULL,
  user_name TEXT NOT NULL DEFAULT '',
  score INTEGER NOT NULL,
  percentage DOUBLE PRECISION NOT NULL,
  correct_count INTEGER NOT NULL,
  wrong_count INTEGER NOT NULL,
  duration_seconds INTEGER NOT NULL,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (user_id, tryout_id)
);

CREATE TABLE IF NOT EXISTS payments (
  order_id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  tryout_id TEXT NOT NULL REFERENCES tryouts(id) ON DELETE CASCADE,
  amount BIGINT NOT NULL,
  status TEXT NOT NULL,
  reference TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
  "offset" BIGSERIAL PRIMARY KEY,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
