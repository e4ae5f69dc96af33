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
			dsn = "file:erubric.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/erubric?sslmode=disable"
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

CREATE TABLE IF NOT EXISTS grading_definitions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'draft',
  options_json TEXT NOT NULL DEFAULT '{}',
  modified_by TEXT NOT NULL DEFAULT '',
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rubric_criteria (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  definition_id INTEGER NOT NULL REFERENCES grading_definitions(id) ON DELETE CASCADE,
  sort_order INTEGER NOT NULL DEFAULT 0,
  description TEXT NOT NULL DEFAULT '',
  enrichment TEXT NOT NULL DEFAULT 'none',
  collab_kind TEXT NOT NULL DEFAULT '',
  operator TEXT NOT NULL DEFAULT '',
  scope TEXT NOT NULL DEFAULT '',
  modules_json TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS rubric_levels (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  criterion_id INTEGER NOT NULL REFERENCES rubric_criteria(id) ON DELETE CASCADE,
  score REAL NOT NULL,
  definition TEXT NOT NULL DEFAULT '',
  enriched_value INTEGER
);

CREATE TABLE IF NOT EXISTS grading_instances (
  id TEXT PRIMARY KEY,
  definition_id INTEGER NOT NULL REFERENCES grading_definitions(id) ON DELETE CASCADE,
  rater_id TEXT NOT NULL,
  item_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'incomplete',
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS instance_fillings (
  instance_id TEXT NOT NULL REFERENCES grading_instances(id) ON DELETE CASCADE,
  criterion_id INTEGER NOT NULL REFERENCES rubric_criteria(id) ON DELETE CASCADE,
  level_id INTEGER,
  remark TEXT NOT NULL DEFAULT '',
  enriched_benchmark INTEGER,
  student_benchmark REAL,
  cohort_benchmark REAL,
  PRIMARY KEY (instance_id, criterion_id)
);

CREATE TABLE IF NOT EXISTS course_modules (
  module_type TEXT NOT NULL,
  module_id INTEGER NOT NULL,
  instance_id INTEGER NOT NULL DEFAULT 0,
  name TEXT NOT NULL DEFAULT '',
  max_grade REAL NOT NULL DEFAULT 100,
  PRIMARY KEY (module_type, module_id)
);

CREATE TABLE IF NOT EXISTS cohort_members (
  student_id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS activity_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  kind TEXT NOT NULL,
  module_type TEXT NOT NULL,
  module_id INTEGER NOT NULL,
  student_id TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_events_lookup
  ON activity_events (kind, module_type, module_id, created_at);

CREATE TABLE IF NOT EXISTS forum_posts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  module_id INTEGER NOT NULL,
  thread_id INTEGER NOT NULL,
  author TEXT NOT NULL,
  parent_id INTEGER,
  attachments INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_forum_posts_lookup
  ON forum_posts (module_id, created_at);

CREATE TABLE IF NOT EXISTS chat_messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  module_id INTEGER NOT NULL,
  author TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_lookup
  ON chat_messages (module_id, created_at);

CREATE TABLE IF NOT EXISTS module_grades (
  module_type TEXT NOT NULL,
  module_id INTEGER NOT NULL,
  student_id TEXT NOT NULL,
  grade REAL NOT NULL,
  PRIMARY KEY (module_type, module_id, student_id)
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS grading_definitions (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'draft',
  options_json TEXT NOT NULL DEFAULT '{}',
  modified_by TEXT NOT NULL DEFAULT '',
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS rubric_criteria (
  id BIGSERIAL PRIMARY KEY,
  definition_id BIGINT NOT NULL REFERENCES grading_definitions(id) ON DELETE CASCADE,
  sort_order INTEGER NOT NULL DEFAULT 0,
  description TEXT NOT NULL DEFAULT '',
  enrichment TEXT NOT NULL DEFAULT 'none',
  collab_kind TEXT NOT NULL DEFAULT '',
  operator TEXT NOT NULL DEFAULT '',
  scope TEXT NOT NULL DEFAULT '',
  modules_json TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS rubric_levels (
  id BIGSERIAL PRIMARY KEY,
  criterion_id BIGINT NOT NULL REFERENCES rubric_criteria(id) ON DELETE CASCADE,
  score DOUBLE PRECISION NOT NULL,
  definition TEXT NOT NULL DEFAULT '',
  enriched_value INTEGER
);

CREATE TABLE IF NOT EXISTS grading_instances (
  id TEXT PRIMARY KEY,
  definition_id BIGINT NOT NULL REFERENCES grading_definitions(id) ON DELETE CASCADE,
  rater_id TEXT NOT NULL,
  item_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'incomplete',
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS instance_fillings (
  instance_id TEXT NOT NULL REFERENCES grading_instances(id) ON DELETE CASCADE,
  criterion_id BIGINT NOT NULL REFERENCES rubric_criteria(id) ON DELETE CASCADE,
  level_id BIGINT,
  remark TEXT NOT NULL DEFAULT '',
  enriched_benchmark INTEGER,
  student_benchmark DOUBLE PRECISION,
  cohort_benchmark DOUBLE PRECISION,
  PRIMARY KEY (instance_id, criterion_id)
);

CREATE TABLE IF NOT EXISTS course_modules (
  module_type TEXT NOT NULL,
  module_id BIGINT NOT NULL,
  instance_id BIGINT NOT NULL DEFAULT 0,
  name TEXT NOT NULL DEFAULT '',
  max_grade DOUBLE PRECISION NOT NULL DEFAULT 100,
  PRIMARY KEY (module_type, module_id)
);

CREATE TABLE IF NOT EXISTS cohort_members (
  student_id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS activity_events (
  id BIGSERIAL PRIMARY KEY,
  kind TEXT NOT NULL,
  module_type TEXT NOT NULL,
  module_id BIGINT NOT NULL,
  student_id TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_events_lookup
  ON activity_events (kind, module_type, module_id, created_at);

CREATE TABLE IF NOT EXISTS forum_posts (
  id BIGSERIAL PRIMARY KEY,
  module_id BIGINT NOT NULL,
  thread_id BIGINT NOT NULL,
  author TEXT NOT NULL,
  parent_id BIGINT,
  attachments INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_forum_posts_lookup
  ON forum_posts (module_id, created_at);

CREATE TABLE IF NOT EXISTS chat_messages (
  id BIGSERIAL PRIMARY KEY,
  module_id BIGINT NOT NULL,
  author TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_lookup
  ON chat_messages (module_id, created_at);

CREATE TABLE IF NOT EXISTS module_grades (
  module_type TEXT NOT NULL,
  module_id BIGINT NOT NULL,
  student_id TEXT NOT NULL,
  grade DOUBLE PRECISION NOT NULL,
  PRIMARY KEY (module_type, module_id, student_id)
);
`
