package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/expense-approval/internal/database"
	"gitlab.com/yelinaung/expense-approval/internal/models"
)

func TestApprovalRepository(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()
	s := seedCompany(t, tx)
	repo := NewApprovalRepository(tx)
	e := s.draft(t, tx)

	at := time.Date(2026, 9, 30, 8, 0, 0, 0, time.UTC)
	second := &models.Approval{ExpenseID: e.ID, ApproverID: s.approvers[1].ID, StepNumber: 2,
		Status: models.ApprovalStatusRejected, Comments: "over budget", ApprovedAt: at}
	first := &models.Approval{ExpenseID: e.ID, ApproverID: s.approvers[0].ID, StepNumber: 1,
		Status: models.ApprovalStatusApproved}
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, first))
	require.False(t, first.ApprovedAt.IsZero())
	require.True(t, second.ApprovedAt.Equal(at))

	got, err := repo.ListByExpense(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 1, got[0].StepNumber)
	require.Equal(t, 2, got[1].StepNumber)
	require.Equal(t, "over budget", got[1].Comments)
	require.Equal(t, models.ApprovalStatusRejected, got[1].Status)

	empty, err := repo.ListByExpense(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, empty)
}
