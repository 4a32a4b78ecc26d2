package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"gitlab.com/yelinaung/expense-approval/internal/approval"
	"gitlab.com/yelinaung/expense-approval/internal/database"
	"gitlab.com/yelinaung/expense-approval/internal/models"
)

// SQLSTATE codes Postgres uses when a transaction lost a race.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// Store adapts the repositories to the approval engine's storage ports.
type Store struct {
	db database.PGXDB
}

var _ approval.Store = (*Store)(nil)

// NewStore creates a Store. When db can begin transactions, InTx runs in one;
// otherwise, as inside a test transaction, statements run on db directly.
func NewStore(db database.PGXDB) *Store {
	return &Store{db: db}
}

// GetUser implements approval.RuleLookup.
func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := NewUserRepository(s.db).GetByID(ctx, id)
	return u, classify(err, "user %d not found", id)
}

// ActiveUserRule implements approval.RuleLookup.
func (s *Store) ActiveUserRule(ctx context.Context, userID int64) (*models.UserApprovalRule, error) {
	r, err := NewRuleRepository(s.db).ActiveUserRule(ctx, userID)
	return r, classify(err, "user rule for %d not found", userID)
}

// ActiveCompanyRule implements approval.RuleLookup.
func (s *Store) ActiveCompanyRule(ctx context.Context, companyID int64) (*models.ApprovalRule, error) {
	r, err := NewRuleRepository(s.db).ActiveCompanyRule(ctx, companyID)
	return r, classify(err, "company rule for %d not found", companyID)
}

// GetExpense implements approval.Reader.
func (s *Store) GetExpense(ctx context.Context, id int64) (*models.Expense, error) {
	e, err := NewExpenseRepository(s.db).GetByID(ctx, id)
	return e, classify(err, "expense %d not found", id)
}

// ListApprovals implements approval.Reader.
func (s *Store) ListApprovals(ctx context.Context, expenseID int64) ([]models.Approval, error) {
	a, err := NewApprovalRepository(s.db).ListByExpense(ctx, expenseID)
	return a, classify(err, "approvals of expense %d not found", expenseID)
}

// ListPendingByCompany implements approval.Reader.
func (s *Store) ListPendingByCompany(ctx context.Context, companyID int64) ([]models.Expense, error) {
	e, err := NewExpenseRepository(s.db).ListPendingByCompany(ctx, companyID)
	return e, classify(err, "pending expenses of company %d not found", companyID)
}

// InTx implements approval.Store. The transaction commits only when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx approval.Tx) error) error {
	err := withTx(ctx, s.db, func(db database.PGXDB) error {
		return fn(ctx, &storeTx{
			Store:     &Store{db: db},
			expenses:  NewExpenseRepository(db),
			approvals: NewApprovalRepository(db),
			users:     NewUserRepository(db),
		})
	})
	return classify(err, "record not found")
}

// storeTx is the transactional view handed to the engine.
type storeTx struct {
	*Store
	expenses  *ExpenseRepository
	approvals *ApprovalRepository
	users     *UserRepository
}

var _ approval.Tx = (*storeTx)(nil)

func (t *storeTx) LockExpense(ctx context.Context, id int64) (*models.Expense, error) {
	e, err := t.expenses.GetByIDForUpdate(ctx, id)
	return e, classify(err, "expense %d not found", id)
}

func (t *storeTx) InsertApproval(ctx context.Context, a *models.Approval) error {
	return classify(t.approvals.Create(ctx, a), "expense %d not found", a.ExpenseID)
}

func (t *storeTx) UpdateExpenseRouting(ctx context.Context, e *models.Expense) error {
	return classify(t.expenses.UpdateRouting(ctx, e), "expense %d not found", e.ID)
}

func (t *storeTx) FirstAdmin(ctx context.Context, companyID int64) (*models.User, error) {
	u, err := t.users.FirstAdmin(ctx, companyID)
	return u, classify(err, "company %d has no admin", companyID)
}

// withTx runs fn in a transaction when db supports one and on db itself otherwise.
func withTx(ctx context.Context, db database.PGXDB, fn func(database.PGXDB) error) error {
	beginner, ok := db.(database.TxBeginner)
	if !ok {
		return fn(db)
	}

	tx, err := beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// classify maps driver errors onto the engine's error codes. Errors that are
// already classified pass through unchanged.
func classify(err error, notFound string, args ...any) error {
	if err == nil || approval.CodeOf(err) != "" {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return approval.Wrap(approval.CodeNotFound, err, fmt.Sprintf(notFound, args...))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return approval.Wrap(approval.CodeConflict, err, "concurrent modification")
		}
	}
	return err
}
