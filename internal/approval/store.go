package approval

import (
	"context"

	"gitlab.com/yelinaung/expense-approval/internal/models"
)

// RuleLookup reads users and approval rules.
// Missing rules are reported as (nil, nil); a missing user is NOT_FOUND.
type RuleLookup interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ActiveUserRule(ctx context.Context, userID int64) (*models.UserApprovalRule, error)
	ActiveCompanyRule(ctx context.Context, companyID int64) (*models.ApprovalRule, error)
}

// Reader is the non-locking read side used by queries.
type Reader interface {
	RuleLookup
	GetExpense(ctx context.Context, id int64) (*models.Expense, error)
	ListApprovals(ctx context.Context, expenseID int64) ([]models.Approval, error)
	ListPendingByCompany(ctx context.Context, companyID int64) ([]models.Expense, error)
}

// Tx is the transactional view handed to the read-evaluate-write unit.
// LockExpense must hold the expense row until the transaction ends, and
// UpdateExpenseRouting must fail with CONFLICT when exp.Version no longer
// matches the stored row. On success it increments exp.Version.
type Tx interface {
	RuleLookup
	LockExpense(ctx context.Context, id int64) (*models.Expense, error)
	ListApprovals(ctx context.Context, expenseID int64) ([]models.Approval, error)
	InsertApproval(ctx context.Context, a *models.Approval) error
	UpdateExpenseRouting(ctx context.Context, exp *models.Expense) error
	FirstAdmin(ctx context.Context, companyID int64) (*models.User, error)
}

// Store gives the engine reads and a transactional boundary.
// InTx commits when fn returns nil and rolls back otherwise.
type Store interface {
	Reader
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
