package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/expense-approval/internal/database"
	"gitlab.com/yelinaung/expense-approval/internal/models"
)

type seeded struct {
	company   *models.Company
	admin     *models.User
	manager   *models.User
	submitter *models.User
	approvers []*models.User
}

func seedCompany(t *testing.T, db database.PGXDB) *seeded {
	t.Helper()
	ctx := context.Background()

	s := &seeded{company: &models.Company{Name: "Acme"}}
	require.NoError(t, NewCompanyRepository(db).Create(ctx, s.company))

	users := NewUserRepository(db)
	add := func(name string, role models.Role, managerID *int64) *models.User {
		u := &models.User{CompanyID: s.company.ID, Name: name, Email: name + "@acme.test", Role: role, ManagerID: managerID}
		require.NoError(t, users.Create(ctx, u))
		return u
	}
	s.admin = add("admin", models.RoleAdmin, nil)
	s.manager = add("manager", models.RoleManager, nil)
	for _, name := range []string{"alice", "bob", "carol"} {
		s.approvers = append(s.approvers, add(name, models.RoleManager, nil))
	}
	s.submitter = add("sam", models.RoleEmployee, &s.manager.ID)
	return s
}

func (s *seeded) draft(t *testing.T, db database.PGXDB) *models.Expense {
	t.Helper()
	e := &models.Expense{
		CompanyID:   s.company.ID,
		SubmitterID: s.submitter.ID,
		Amount:      decimal.RequireFromString("88.40"),
		Category:    "Meals",
		Description: "Team lunch",
	}
	require.NoError(t, NewExpenseRepository(db).Create(context.Background(), e))
	return e
}

func (s *seeded) sequence() []models.RuleApprover {
	out := make([]models.RuleApprover, len(s.approvers))
	for i, u := range s.approvers {
		out[i] = models.RuleApprover{ApproverID: u.ID, SequenceOrder: i + 1}
	}
	return out
}
