package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/expense-approval/internal/approval"
	"gitlab.com/yelinaung/expense-approval/internal/database"
	"gitlab.com/yelinaung/expense-approval/internal/models"
)

const expenseColumns = `id, company_id, submitter_id, amount, currency, category, description, expense_date,
	status, current_approver_id, current_approval_step, version, created_at, updated_at`

// ExpenseRepository handles expense database operations.
type ExpenseRepository struct {
	db database.PGXDB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db database.PGXDB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create adds a new expense. Status defaults to draft and currency to SGD.
func (r *ExpenseRepository) Create(ctx context.Context, e *models.Expense) error {
	if e.Status == "" {
		e.Status = models.ExpenseStatusDraft
	}
	if e.Currency == "" {
		e.Currency = models.DefaultCurrency
	}
	var date *time.Time
	if !e.ExpenseDate.IsZero() {
		date = &e.ExpenseDate
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO expenses (company_id, submitter_id, amount, currency, category, description, expense_date,
			status, current_approver_id, current_approval_step)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7::date, CURRENT_DATE), $8, $9, $10)
		RETURNING id, expense_date, version, created_at, updated_at
	`, e.CompanyID, e.SubmitterID, e.Amount, e.Currency, e.Category, e.Description, date,
		e.Status, e.CurrentApproverID, e.CurrentApprovalStep,
	).Scan(&e.ID, &e.ExpenseDate, &e.Version, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetByID retrieves an expense by ID.
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*models.Expense, error) {
	e, err := scanExpense(r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

// GetByIDForUpdate retrieves an expense and locks its row until the surrounding transaction ends.
func (r *ExpenseRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Expense, error) {
	e, err := scanExpense(r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock expense: %w", err)
	}
	return e, nil
}

// UpdateRouting writes the status and approver pointer of e if its version is
// still current, then advances e.Version. A stale version is a CONFLICT.
func (r *ExpenseRepository) UpdateRouting(ctx context.Context, e *models.Expense) error {
	err := r.db.QueryRow(ctx, `
		UPDATE expenses
		SET status = $1, current_approver_id = $2, current_approval_step = $3,
			version = version + 1, updated_at = NOW()
		WHERE id = $4 AND version = $5
		RETURNING version, updated_at
	`, e.Status, e.CurrentApproverID, e.CurrentApprovalStep, e.ID, e.Version,
	).Scan(&e.Version, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return approval.Conflictf("expense %d version %d is stale", e.ID, e.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to update expense routing: %w", err)
	}
	return nil
}

// ListPendingByCompany returns every pending expense of a company, oldest first.
func (r *ExpenseRepository) ListPendingByCompany(ctx context.Context, companyID int64) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE status = 'pending' AND company_id = $1
		ORDER BY created_at, id
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query company pending expenses: %w", err)
	}
	defer rows.Close()

	return scanExpenses(rows)
}

func scanExpense(row interface{ Scan(dest ...any) error }) (*models.Expense, error) {
	var e models.Expense
	if err := row.Scan(
		&e.ID, &e.CompanyID, &e.SubmitterID, &e.Amount, &e.Currency, &e.Category, &e.Description, &e.ExpenseDate,
		&e.Status, &e.CurrentApproverID, &e.CurrentApprovalStep, &e.Version, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanExpenses(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
},
) ([]models.Expense, error) {
	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}
