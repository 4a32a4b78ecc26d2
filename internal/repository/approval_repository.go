package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/expense-approval/internal/database"
	"gitlab.com/yelinaung/expense-approval/internal/models"
)

// ApprovalRepository handles the append-only approval audit trail.
type ApprovalRepository struct {
	db database.PGXDB
}

// NewApprovalRepository creates a new ApprovalRepository.
func NewApprovalRepository(db database.PGXDB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Create records a decision. ApprovedAt defaults to the database clock when zero.
func (r *ApprovalRepository) Create(ctx context.Context, a *models.Approval) error {
	var approvedAt any
	if !a.ApprovedAt.IsZero() {
		approvedAt = a.ApprovedAt
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO approvals (expense_id, approver_id, step_number, status, comments, approved_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6::timestamptz, NOW()))
		RETURNING id, approved_at
	`, a.ExpenseID, a.ApproverID, a.StepNumber, a.Status, a.Comments, approvedAt,
	).Scan(&a.ID, &a.ApprovedAt)
	if err != nil {
		return fmt.Errorf("failed to create approval: %w", err)
	}
	return nil
}

// ListByExpense returns the decisions on an expense ordered by step, then insertion.
func (r *ApprovalRepository) ListByExpense(ctx context.Context, expenseID int64) ([]models.Approval, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, expense_id, approver_id, step_number, status, comments, approved_at
		FROM approvals
		WHERE expense_id = $1
		ORDER BY step_number, id
	`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer rows.Close()

	approvals := []models.Approval{}
	for rows.Next() {
		var a models.Approval
		if err := rows.Scan(&a.ID, &a.ExpenseID, &a.ApproverID, &a.StepNumber, &a.Status, &a.Comments, &a.ApprovedAt); err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		approvals = append(approvals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating approvals: %w", err)
	}
	return approvals, nil
}
