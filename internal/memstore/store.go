// Package memstore provides an in-memory implementation of the approval store.
// Expense rows are locked per id for the lifetime of a transaction and writes
// are staged until commit, so it honours the same atomicity the Postgres store does.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"gitlab.com/yelinaung/expense-approval/internal/approval"
	"gitlab.com/yelinaung/expense-approval/internal/models"
)

var _ approval.Store = (*Store)(nil)

// Store is a thread-safe in-memory store. All API methods work with copies.
type Store struct {
	mu           sync.RWMutex
	nextID       int64
	companies    map[int64]models.Company
	users        map[int64]models.User
	expenses     map[int64]models.Expense
	approvals    []models.Approval
	companyRules []models.ApprovalRule
	userRules    []models.UserApprovalRule
	conflicts    int

	locksMu  sync.Mutex
	rowLocks map[int64]*sync.Mutex
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		companies: make(map[int64]models.Company),
		users:     make(map[int64]models.User),
		expenses:  make(map[int64]models.Expense),
		rowLocks:  make(map[int64]*sync.Mutex),
	}
}

func (s *Store) allocID() int64 {
	s.nextID++
	return s.nextID
}

// AddCompany stores c and assigns its ID.
func (s *Store) AddCompany(c *models.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.allocID()
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = models.DefaultCurrency
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.companies[c.ID] = *c
}

// AddUser stores u and assigns its ID.
func (s *Store) AddUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.allocID()
	if u.Role == "" {
		u.Role = models.RoleEmployee
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = cloneUser(*u)
}

// AddExpense stores e and assigns its ID. Status defaults to draft.
func (s *Store) AddExpense(e *models.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.allocID()
	if e.Status == "" {
		e.Status = models.ExpenseStatusDraft
	}
	if e.Currency == "" {
		e.Currency = models.DefaultCurrency
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.UpdatedAt = e.CreatedAt
	s.expenses[e.ID] = cloneExpense(*e)
}

// AddCompanyRule stores a company-wide rule and assigns its ID.
func (s *Store) AddCompanyRule(r *models.ApprovalRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.allocID()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	rule := *r
	rule.RuleConfig = cloneRuleConfig(r.RuleConfig)
	s.companyRules = append(s.companyRules, rule)
}

// AddUserRule stores a per-user rule and assigns its ID.
func (s *Store) AddUserRule(r *models.UserApprovalRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.allocID()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	rule := *r
	rule.RuleConfig = cloneRuleConfig(r.RuleConfig)
	s.userRules = append(s.userRules, rule)
}

// InjectConflicts makes the next n expense updates fail with CONFLICT.
func (s *Store) InjectConflicts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = n
}

// GetUser implements approval.RuleLookup.
func (s *Store) GetUser(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, approval.NotFoundf("user %d not found", id)
	}
	u = cloneUser(u)
	return &u, nil
}

// ActiveUserRule implements approval.RuleLookup.
func (s *Store) ActiveUserRule(_ context.Context, userID int64) (*models.UserApprovalRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.userRules {
		if r.UserID == userID && r.IsActive {
			out := r
			out.RuleConfig = cloneRuleConfig(r.RuleConfig)
			return &out, nil
		}
	}
	return nil, nil
}

// ActiveCompanyRule implements approval.RuleLookup.
func (s *Store) ActiveCompanyRule(_ context.Context, companyID int64) (*models.ApprovalRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.companyRules {
		if r.CompanyID == companyID && r.IsActive {
			out := r
			out.RuleConfig = cloneRuleConfig(r.RuleConfig)
			return &out, nil
		}
	}
	return nil, nil
}

// GetExpense implements approval.Reader.
func (s *Store) GetExpense(_ context.Context, id int64) (*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok {
		return nil, approval.NotFoundf("expense %d not found", id)
	}
	e = cloneExpense(e)
	return &e, nil
}

// ListApprovals implements approval.Reader. Results are ordered by step, then insertion.
func (s *Store) ListApprovals(_ context.Context, expenseID int64) ([]models.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.approvalsLocked(expenseID), nil
}

func (s *Store) approvalsLocked(expenseID int64) []models.Approval {
	out := []models.Approval{}
	for _, a := range s.approvals {
		if a.ExpenseID == expenseID {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Approval) int {
		return cmp.Compare(a.StepNumber, b.StepNumber)
	})
	return out
}

// ListPendingByCompany implements approval.Reader.
func (s *Store) ListPendingByCompany(_ context.Context, companyID int64) ([]models.Expense, error) {
	return s.pending(func(e models.Expense) bool {
		return e.CompanyID == companyID
	}), nil
}

func (s *Store) pending(match func(models.Expense) bool) []models.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Expense{}
	for _, e := range s.expenses {
		if e.Status == models.ExpenseStatusPending && match(e) {
			out = append(out, cloneExpense(e))
		}
	}
	slices.SortFunc(out, func(a, b models.Expense) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// InTx implements approval.Store.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx approval.Tx) error) error {
	t := &tx{store: s, staged: make(map[int64]models.Expense)}
	defer t.release()

	if err := fn(ctx, t); err != nil {
		return err
	}
	return t.commit()
}

func (s *Store) rowLock(id int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.rowLocks[id] = l
	}
	return l
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneUser(u models.User) models.User {
	u.ManagerID = cloneInt64(u.ManagerID)
	u.TelegramChatID = cloneInt64(u.TelegramChatID)
	return u
}

func cloneExpense(e models.Expense) models.Expense {
	e.CurrentApproverID = cloneInt64(e.CurrentApproverID)
	return e
}

func cloneRuleConfig(c models.RuleConfig) models.RuleConfig {
	c.Approvers = slices.Clone(c.Approvers)
	c.SpecificApproverID = cloneInt64(c.SpecificApproverID)
	if c.PercentageThreshold != nil {
		v := *c.PercentageThreshold
		c.PercentageThreshold = &v
	}
	return c
}
