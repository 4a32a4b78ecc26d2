package memstore

import (
	"context"
	"sync"
	"time"

	"gitlab.com/yelinaung/expense-approval/internal/approval"
	"gitlab.com/yelinaung/expense-approval/internal/models"
)

// tx stages writes until commit. Reads see the transaction's own writes.
type tx struct {
	store     *Store
	locks     []*sync.Mutex
	lockedIDs map[int64]struct{}
	approvals []models.Approval
	staged    map[int64]models.Expense
}

var _ approval.Tx = (*tx)(nil)

func (t *tx) release() {
	for i := len(t.locks) - 1; i >= 0; i-- {
		t.locks[i].Unlock()
	}
	t.locks = nil
}

func (t *tx) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return t.store.GetUser(ctx, id)
}

func (t *tx) ActiveUserRule(ctx context.Context, userID int64) (*models.UserApprovalRule, error) {
	return t.store.ActiveUserRule(ctx, userID)
}

func (t *tx) ActiveCompanyRule(ctx context.Context, companyID int64) (*models.ApprovalRule, error) {
	return t.store.ActiveCompanyRule(ctx, companyID)
}

// LockExpense holds the expense's row lock until the transaction ends.
func (t *tx) LockExpense(ctx context.Context, id int64) (*models.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.lockedIDs == nil {
		t.lockedIDs = make(map[int64]struct{})
	}
	if _, held := t.lockedIDs[id]; !held {
		l := t.store.rowLock(id)
		l.Lock()
		t.locks = append(t.locks, l)
		t.lockedIDs[id] = struct{}{}
	}

	if e, ok := t.staged[id]; ok {
		e = cloneExpense(e)
		return &e, nil
	}
	return t.store.GetExpense(ctx, id)
}

func (t *tx) ListApprovals(ctx context.Context, expenseID int64) ([]models.Approval, error) {
	out, err := t.store.ListApprovals(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	for _, a := range t.approvals {
		if a.ExpenseID == expenseID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *tx) InsertApproval(_ context.Context, a *models.Approval) error {
	t.store.mu.Lock()
	a.ID = t.store.allocID()
	t.store.mu.Unlock()
	if a.ApprovedAt.IsZero() {
		a.ApprovedAt = time.Now()
	}
	t.approvals = append(t.approvals, *a)
	return nil
}

func (t *tx) UpdateExpenseRouting(_ context.Context, exp *models.Expense) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.store.conflicts > 0 {
		t.store.conflicts--
		return approval.Conflictf("expense %d was modified concurrently", exp.ID)
	}

	current, ok := t.staged[exp.ID]
	if !ok {
		current, ok = t.store.expenses[exp.ID]
	}
	if !ok {
		return approval.NotFoundf("expense %d not found", exp.ID)
	}
	if current.Version != exp.Version {
		return approval.Conflictf("expense %d version %d is stale", exp.ID, exp.Version)
	}

	exp.Version++
	exp.UpdatedAt = time.Now()
	t.staged[exp.ID] = cloneExpense(*exp)
	return nil
}

func (t *tx) FirstAdmin(_ context.Context, companyID int64) (*models.User, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	var first *models.User
	for _, u := range t.store.users {
		if u.CompanyID != companyID || u.Role != models.RoleAdmin {
			continue
		}
		if first == nil || u.ID < first.ID {
			c := cloneUser(u)
			first = &c
		}
	}
	if first == nil {
		return nil, approval.NotFoundf("company %d has no admin", companyID)
	}
	return first, nil
}

func (t *tx) commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for id, e := range t.staged {
		t.store.expenses[id] = e
	}
	t.store.approvals = append(t.store.approvals, t.approvals...)
	return nil
}
