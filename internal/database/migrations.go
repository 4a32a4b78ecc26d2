package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the database schema.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			default_currency TEXT NOT NULL DEFAULT 'SGD',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			company_id BIGINT NOT NULL REFERENCES companies(id),
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'employee'
				CHECK (role IN ('admin', 'manager', 'employee')),
			manager_id BIGINT REFERENCES users(id),
			telegram_chat_id BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_company_id ON users(company_id)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			id BIGSERIAL PRIMARY KEY,
			company_id BIGINT NOT NULL REFERENCES companies(id),
			submitter_id BIGINT NOT NULL REFERENCES users(id),
			amount DECIMAL(12, 2) NOT NULL,
			currency TEXT NOT NULL DEFAULT 'SGD',
			category TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			expense_date DATE NOT NULL DEFAULT CURRENT_DATE,
			status TEXT NOT NULL DEFAULT 'draft'
				CHECK (status IN ('draft', 'pending', 'approved', 'rejected')),
			current_approver_id BIGINT REFERENCES users(id),
			current_approval_step INTEGER NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT expenses_pending_has_approver
				CHECK ((status = 'pending') = (current_approver_id IS NOT NULL))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_submitter_id ON expenses(submitter_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_pending_approver
			ON expenses(current_approver_id, created_at) WHERE status = 'pending'`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_pending_company
			ON expenses(company_id, created_at) WHERE status = 'pending'`,

		`CREATE TABLE IF NOT EXISTS approval_rules (
			id BIGSERIAL PRIMARY KEY,
			company_id BIGINT NOT NULL REFERENCES companies(id),
			name TEXT NOT NULL DEFAULT '',
			approval_type TEXT NOT NULL
				CHECK (approval_type IN ('SEQUENTIAL', 'PERCENTAGE', 'SPECIFIC_APPROVER', 'HYBRID')),
			use_sequence BOOLEAN NOT NULL DEFAULT FALSE,
			is_manager_approver BOOLEAN NOT NULL DEFAULT FALSE,
			percentage_threshold INTEGER CHECK (percentage_threshold BETWEEN 1 AND 100),
			specific_approver_id BIGINT REFERENCES users(id),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_approval_rules_active
			ON approval_rules(company_id, id) WHERE is_active`,

		`CREATE TABLE IF NOT EXISTS approval_rule_approvers (
			id BIGSERIAL PRIMARY KEY,
			rule_id BIGINT NOT NULL REFERENCES approval_rules(id) ON DELETE CASCADE,
			approver_id BIGINT NOT NULL REFERENCES users(id),
			is_required BOOLEAN NOT NULL DEFAULT FALSE,
			sequence_order INTEGER NOT NULL,
			UNIQUE (rule_id, sequence_order)
		)`,

		`CREATE TABLE IF NOT EXISTS user_approval_rules (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			name TEXT NOT NULL DEFAULT '',
			approval_type TEXT NOT NULL
				CHECK (approval_type IN ('SEQUENTIAL', 'PERCENTAGE', 'SPECIFIC_APPROVER', 'HYBRID')),
			use_sequence BOOLEAN NOT NULL DEFAULT FALSE,
			is_manager_approver BOOLEAN NOT NULL DEFAULT FALSE,
			percentage_threshold INTEGER CHECK (percentage_threshold BETWEEN 1 AND 100),
			specific_approver_id BIGINT REFERENCES users(id),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_approval_rules_active
			ON user_approval_rules(user_id, id) WHERE is_active`,

		`CREATE TABLE IF NOT EXISTS user_approval_rule_approvers (
			id BIGSERIAL PRIMARY KEY,
			rule_id BIGINT NOT NULL REFERENCES user_approval_rules(id) ON DELETE CASCADE,
			approver_id BIGINT NOT NULL REFERENCES users(id),
			is_required BOOLEAN NOT NULL DEFAULT FALSE,
			sequence_order INTEGER NOT NULL,
			UNIQUE (rule_id, sequence_order)
		)`,

		`CREATE TABLE IF NOT EXISTS approvals (
			id BIGSERIAL PRIMARY KEY,
			expense_id BIGINT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
			approver_id BIGINT NOT NULL REFERENCES users(id),
			step_number INTEGER NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('approved', 'rejected')),
			comments TEXT NOT NULL DEFAULT '',
			approved_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_approvals_expense_id ON approvals(expense_id, step_number, id)`,
	}

	for i, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
