package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		id            BIGSERIAL PRIMARY KEY,
		email         VARCHAR(254) NOT NULL UNIQUE,
		first_name    VARCHAR(150) NOT NULL DEFAULT '',
		last_name     VARCHAR(150) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id                      BIGSERIAL PRIMARY KEY,
		full_name               VARCHAR(255) NOT NULL,
		company_name            VARCHAR(255),
		email_address           VARCHAR(254),
		contact_number          VARCHAR(50),
		status                  VARCHAR(50) NOT NULL DEFAULT 'new',
		lead_type               VARCHAR(50) NOT NULL DEFAULT '',
		assigned_sales_staff_id BIGINT REFERENCES employees(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id             BIGSERIAL PRIMARY KEY,
		title          VARCHAR(255) NOT NULL,
		description    TEXT,
		assigned_to_id BIGINT REFERENCES employees(id) ON DELETE SET NULL,
		priority       VARCHAR(20) NOT NULL DEFAULT 'medium',
		status         VARCHAR(20) NOT NULL DEFAULT 'to_do',
		due_date       DATE NOT NULL,
		due_time       TIME NOT NULL,
		is_deleted     BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS task_reminders (
		id         BIGSERIAL PRIMARY KEY,
		task_id    BIGINT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		remind_at  TIMESTAMPTZ NOT NULL,
		is_sent    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_task_reminders_due ON task_reminders (is_sent, remind_at)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id                BIGSERIAL PRIMARY KEY,
		user_id           BIGINT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		notification_type VARCHAR(20) NOT NULL,
		title             VARCHAR(255) NOT NULL,
		message           TEXT NOT NULL,
		lead_id           BIGINT REFERENCES leads(id) ON DELETE CASCADE,
		task_id           BIGINT REFERENCES tasks(id) ON DELETE CASCADE,
		reminder_id       BIGINT REFERENCES task_reminders(id) ON DELETE CASCADE,
		metadata          JSONB NOT NULL DEFAULT '{}',
		is_read           BOOLEAN NOT NULL DEFAULT FALSE,
		read_at           TIMESTAMPTZ,
		created_at        TIMESTAMPTZ NOT NULL,
		updated_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications (user_id, is_read)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		email         TEXT NOT NULL UNIQUE,
		first_name    TEXT NOT NULL DEFAULT '',
		last_name     TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT 1,
		created_at    TIMESTAMP NOT NULL,
		updated_at    TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id                      INTEGER PRIMARY KEY AUTOINCREMENT,
		full_name               TEXT NOT NULL,
		company_name            TEXT,
		email_address           TEXT,
		contact_number          TEXT,
		status                  TEXT NOT NULL DEFAULT 'new',
		lead_type               TEXT NOT NULL DEFAULT '',
		assigned_sales_staff_id INTEGER REFERENCES employees(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		title          TEXT NOT NULL,
		description    TEXT,
		assigned_to_id INTEGER REFERENCES employees(id) ON DELETE SET NULL,
		priority       TEXT NOT NULL DEFAULT 'medium',
		status         TEXT NOT NULL DEFAULT 'to_do',
		due_date       TEXT NOT NULL,
		due_time       TEXT NOT NULL,
		is_deleted     BOOLEAN NOT NULL DEFAULT 0,
		created_at     TIMESTAMP NOT NULL,
		updated_at     TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS task_reminders (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id    INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		remind_at  TIMESTAMP NOT NULL,
		is_sent    BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_task_reminders_due ON task_reminders (is_sent, remind_at)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id           INTEGER NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		notification_type TEXT NOT NULL,
		title             TEXT NOT NULL,
		message           TEXT NOT NULL,
		lead_id           INTEGER REFERENCES leads(id) ON DELETE CASCADE,
		task_id           INTEGER REFERENCES tasks(id) ON DELETE CASCADE,
		reminder_id       INTEGER REFERENCES task_reminders(id) ON DELETE CASCADE,
		metadata          TEXT NOT NULL DEFAULT '{}',
		is_read           BOOLEAN NOT NULL DEFAULT 0,
		read_at           TIMESTAMP,
		created_at        TIMESTAMP NOT NULL,
		updated_at        TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications (user_id, is_read)`,
}

// Migrate creates the tables used by the notification service if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	stmts := postgresSchema
	if db.DriverName() == "sqlite" {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}
