package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/expense-approval/internal/database"
	"gitlab.com/yelinaung/expense-approval/internal/models"
)

// ruleTables names the rule table pair of one rule kind and the column that owns a rule.
type ruleTables struct {
	rules     string
	approvers string
	owner     string
}

var (
	companyRuleTables = ruleTables{rules: "approval_rules", approvers: "approval_rule_approvers", owner: "company_id"}
	userRuleTables    = ruleTables{rules: "user_approval_rules", approvers: "user_approval_rule_approvers", owner: "user_id"}
)

// RuleRepository handles company-wide and per-user approval rules.
type RuleRepository struct {
	db database.PGXDB
}

// NewRuleRepository creates a new RuleRepository.
func NewRuleRepository(db database.PGXDB) *RuleRepository {
	return &RuleRepository{db: db}
}

// CreateCompanyRule stores a company-wide rule with its approvers.
func (r *RuleRepository) CreateCompanyRule(ctx context.Context, rule *models.ApprovalRule) error {
	if err := r.create(ctx, companyRuleTables, rule.CompanyID, &rule.RuleConfig, &rule.ID, &rule.CreatedAt); err != nil {
		return fmt.Errorf("failed to create company rule: %w", err)
	}
	return nil
}

// CreateUserRule stores a per-submitter rule with its approvers.
func (r *RuleRepository) CreateUserRule(ctx context.Context, rule *models.UserApprovalRule) error {
	if err := r.create(ctx, userRuleTables, rule.UserID, &rule.RuleConfig, &rule.ID, &rule.CreatedAt); err != nil {
		return fmt.Errorf("failed to create user rule: %w", err)
	}
	return nil
}

// ActiveCompanyRule returns the first active rule of a company, or nil when there is none.
func (r *RuleRepository) ActiveCompanyRule(ctx context.Context, companyID int64) (*models.ApprovalRule, error) {
	rule := &models.ApprovalRule{CompanyID: companyID}
	found, err := r.active(ctx, companyRuleTables, companyID, &rule.RuleConfig, &rule.ID, &rule.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get active company rule: %w", err)
	}
	if !found {
		return nil, nil
	}
	return rule, nil
}

// ActiveUserRule returns the first active rule of a submitter, or nil when there is none.
func (r *RuleRepository) ActiveUserRule(ctx context.Context, userID int64) (*models.UserApprovalRule, error) {
	rule := &models.UserApprovalRule{UserID: userID}
	found, err := r.active(ctx, userRuleTables, userID, &rule.RuleConfig, &rule.ID, &rule.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get active user rule: %w", err)
	}
	if !found {
		return nil, nil
	}
	return rule, nil
}

// DeactivateCompanyRules turns off every active company rule so a replacement can take over.
func (r *RuleRepository) DeactivateCompanyRules(ctx context.Context, companyID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE approval_rules SET is_active = FALSE WHERE company_id = $1 AND is_active`, companyID)
	if err != nil {
		return fmt.Errorf("failed to deactivate company rules: %w", err)
	}
	return nil
}

func (r *RuleRepository) create(
	ctx context.Context,
	t ruleTables,
	ownerID int64,
	cfg *models.RuleConfig,
	id *int64,
	createdAt *time.Time,
) error {
	return withTx(ctx, r.db, func(db database.PGXDB) error {
		return insertRule(ctx, db, t, ownerID, cfg, id, createdAt)
	})
}

func insertRule(
	ctx context.Context,
	db database.PGXDB,
	t ruleTables,
	ownerID int64,
	cfg *models.RuleConfig,
	id *int64,
	createdAt *time.Time,
) error {
	err := db.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s, name, approval_type, use_sequence, is_manager_approver,
			percentage_threshold, specific_approver_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, t.rules, t.owner), ownerID, cfg.Name, cfg.ApprovalType, cfg.UseSequence, cfg.IsManagerApprover,
		cfg.PercentageThreshold, cfg.SpecificApproverID, cfg.IsActive,
	).Scan(id, createdAt)
	if err != nil {
		return err
	}

	for _, a := range cfg.Approvers {
		_, err := db.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (rule_id, approver_id, is_required, sequence_order)
			VALUES ($1, $2, $3, $4)
		`, t.approvers), *id, a.ApproverID, a.IsRequired, a.SequenceOrder)
		if err != nil {
			return fmt.Errorf("failed to add approver %d: %w", a.ApproverID, err)
		}
	}
	return nil
}

func (r *RuleRepository) active(
	ctx context.Context,
	t ruleTables,
	ownerID int64,
	cfg *models.RuleConfig,
	id *int64,
	createdAt *time.Time,
) (bool, error) {
	err := r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, name, approval_type, use_sequence, is_manager_approver,
			percentage_threshold, specific_approver_id, is_active, created_at
		FROM %s
		WHERE %s = $1 AND is_active
		ORDER BY id
		LIMIT 1
	`, t.rules, t.owner), ownerID).Scan(
		id, &cfg.Name, &cfg.ApprovalType, &cfg.UseSequence, &cfg.IsManagerApprover,
		&cfg.PercentageThreshold, &cfg.SpecificApproverID, &cfg.IsActive, createdAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT approver_id, is_required, sequence_order
		FROM %s
		WHERE rule_id = $1
		ORDER BY sequence_order
	`, t.approvers), *id)
	if err != nil {
		return false, fmt.Errorf("failed to query rule approvers: %w", err)
	}
	defer rows.Close()

	cfg.Approvers = nil
	for rows.Next() {
		var a models.RuleApprover
		if err := rows.Scan(&a.ApproverID, &a.IsRequired, &a.SequenceOrder); err != nil {
			return false, fmt.Errorf("failed to scan rule approver: %w", err)
		}
		cfg.Approvers = append(cfg.Approvers, a)
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("error iterating rule approvers: %w", err)
	}
	return true, nil
}
