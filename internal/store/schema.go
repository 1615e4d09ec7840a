package store

import "context"

// schema models the collaborative learning environment: users group
// into teams, teams take classes, classes define assignments, teams
// submit work and submissions receive feedback and evaluations.
// analysis_run tracks static-analysis executions over submitted code.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS role (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS user (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		role_id INTEGER REFERENCES role(id),
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,
	`CREATE TABLE IF NOT EXISTS team (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS team_user (
		team_id INTEGER NOT NULL REFERENCES team(id),
		user_id INTEGER NOT NULL REFERENCES user(id),
		PRIMARY KEY (team_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS class (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		semester TEXT,
		professor_id INTEGER REFERENCES user(id)
	)`,
	`CREATE TABLE IF NOT EXISTS class_team (
		class_id INTEGER NOT NULL REFERENCES class(id),
		team_id INTEGER NOT NULL REFERENCES team(id),
		PRIMARY KEY (class_id, team_id)
	)`,
	`CREATE TABLE IF NOT EXISTS assignment (
		id INTEGER PRIMARY KEY,
		class_id INTEGER NOT NULL REFERENCES class(id),
		title TEXT NOT NULL,
		starts_at TEXT,
		due_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS submission (
		id INTEGER PRIMARY KEY,
		assignment_id INTEGER NOT NULL REFERENCES assignment(id),
		team_id INTEGER NOT NULL REFERENCES team(id),
		file_url TEXT NOT NULL,
		submitted_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS evaluation (
		id INTEGER PRIMARY KEY,
		submission_id INTEGER NOT NULL REFERENCES submission(id),
		evaluator_id INTEGER NOT NULL REFERENCES user(id),
		evaluation_type TEXT NOT NULL,
		score REAL,
		criteria_json TEXT,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY,
		submission_id INTEGER NOT NULL UNIQUE REFERENCES submission(id),
		feedback_type TEXT NOT NULL,
		content TEXT NOT NULL,
		strengths TEXT,
		improvements TEXT,
		feedback_date TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS analysis_run (
		id TEXT PRIMARY KEY,
		repo_url TEXT NOT NULL,
		status TEXT NOT NULL,
		report_path TEXT,
		error TEXT,
		error_count INTEGER NOT NULL DEFAULT 0,
		warning_count INTEGER NOT NULL DEFAULT 0,
		info_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		completed_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_evaluation_submission ON evaluation(submission_id)`,
	`CREATE INDEX IF NOT EXISTS idx_submission_assignment ON submission(assignment_id)`,
}

// Migrate applies the schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
