package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS property_units (
		id BIGSERIAL PRIMARY KEY,
		unit_number VARCHAR(32) NOT NULL UNIQUE,
		floor VARCHAR(16),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS persons (
		id BIGSERIAL PRIMARY KEY,
		full_name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		phone VARCHAR(32),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS unit_person_roles (
		id BIGSERIAL PRIMARY KEY,
		unit_id BIGINT NOT NULL REFERENCES property_units(id) ON DELETE CASCADE,
		person_id BIGINT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
		role VARCHAR(16) NOT NULL,
		receive_email_notifications BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_unit_person_roles_unit_id ON unit_person_roles (unit_id);`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		full_name VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS violation_categories (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		bylaw_reference VARCHAR(255),
		default_fine_amount BIGINT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS violations (
		id BIGSERIAL PRIMARY KEY,
		uuid UUID NOT NULL UNIQUE,
		reference_number UUID NOT NULL UNIQUE,
		unit_id BIGINT NOT NULL REFERENCES property_units(id),
		reported_by_id BIGINT NOT NULL REFERENCES users(id),
		category_id BIGINT REFERENCES violation_categories(id) ON DELETE SET NULL,
		violation_type VARCHAR(255) NOT NULL,
		violation_date DATE NOT NULL,
		violation_time VARCHAR(8),
		description TEXT NOT NULL,
		bylaw_reference VARCHAR(255),
		status VARCHAR(32) NOT NULL DEFAULT 'pending_approval'
			CHECK (status IN ('new', 'pending_approval', 'approved', 'disputed', 'rejected')),
		fine_amount BIGINT CHECK (fine_amount IS NULL OR fine_amount >= 0),
		attachments JSONB NOT NULL DEFAULT '[]'::jsonb,
		incident_area TEXT,
		concierge_name VARCHAR(255),
		people_involved TEXT,
		noticed_by VARCHAR(255),
		damage_to_property BOOLEAN NOT NULL DEFAULT FALSE,
		damage_details TEXT,
		police_involved BOOLEAN NOT NULL DEFAULT FALSE,
		police_details TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_violations_unit_id ON violations (unit_id);`,
	`CREATE INDEX IF NOT EXISTS idx_violations_status ON violations (status);`,
	`CREATE INDEX IF NOT EXISTS idx_violations_created_at ON violations (created_at);`,
	`CREATE TABLE IF NOT EXISTS violation_history (
		id BIGSERIAL PRIMARY KEY,
		violation_id BIGINT NOT NULL REFERENCES violations(id) ON DELETE CASCADE,
		user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
		action VARCHAR(255) NOT NULL,
		details JSONB,
		rejection_reason TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_violation_history_violation_id ON violation_history (violation_id);`,
	`CREATE TABLE IF NOT EXISTS violation_access_links (
		id BIGSERIAL PRIMARY KEY,
		violation_id BIGINT NOT NULL REFERENCES violations(id) ON DELETE CASCADE,
		violation_uuid UUID NOT NULL,
		person_id BIGINT REFERENCES persons(id) ON DELETE SET NULL,
		recipient_email VARCHAR(255) NOT NULL,
		token UUID NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		used_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_violation_access_links_violation_id ON violation_access_links (violation_id);`,
	`CREATE TABLE IF NOT EXISTS email_verification_codes (
		id BIGSERIAL PRIMARY KEY,
		person_id BIGINT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
		violation_id BIGINT NOT NULL REFERENCES violations(id) ON DELETE CASCADE,
		code_hash VARCHAR(255) NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		used_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_verification_person_violation ON email_verification_codes (person_id, violation_id);`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT,
		action VARCHAR(64) NOT NULL,
		entity_type VARCHAR(64) NOT NULL,
		entity_id VARCHAR(64) NOT NULL,
		details JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_entity_id ON audit_logs (entity_id);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs (action);`,
	`CREATE TABLE IF NOT EXISTS notification_jobs (
		id BIGSERIAL PRIMARY KEY,
		template VARCHAR(64) NOT NULL,
		recipient VARCHAR(255) NOT NULL,
		payload JSONB,
		attempts INT NOT NULL DEFAULT 0,
		last_error TEXT,
		next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		sent_at TIMESTAMPTZ,
		failed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_notification_jobs_pending
		ON notification_jobs (next_attempt_at)
		WHERE sent_at IS NULL AND failed_at IS NULL;`,
	`CREATE OR REPLACE FUNCTION set_row_updated_at()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_violations_updated_at') THEN
			CREATE TRIGGER trg_violations_updated_at
				BEFORE UPDATE ON violations
				FOR EACH ROW
				EXECUTE PROCEDURE set_row_updated_at();
		END IF;
	END
	$$;`,
	`CREATE OR REPLACE FUNCTION forbid_history_mutation()
	RETURNS TRIGGER AS $$
	BEGIN
		RAISE EXCEPTION 'violation_history is append-only';
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_violation_history_append_only') THEN
			CREATE TRIGGER trg_violation_history_append_only
				BEFORE UPDATE ON violation_history
				FOR EACH ROW
				EXECUTE PROCEDURE forbid_history_mutation();
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
