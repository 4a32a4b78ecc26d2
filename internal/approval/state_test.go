package approval

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/expense-approval/internal/models"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to models.ExpenseStatus
		want     bool
	}{
		{models.ExpenseStatusDraft, models.ExpenseStatusPending, true},
		{models.ExpenseStatusDraft, models.ExpenseStatusApproved, true},
		{models.ExpenseStatusDraft, models.ExpenseStatusRejected, false},
		{models.ExpenseStatusPending, models.ExpenseStatusPending, true},
		{models.ExpenseStatusPending, models.ExpenseStatusApproved, true},
		{models.ExpenseStatusPending, models.ExpenseStatusRejected, true},
		{models.ExpenseStatusPending, models.ExpenseStatusDraft, false},
		{models.ExpenseStatusApproved, models.ExpenseStatusPending, false},
		{models.ExpenseStatusApproved, models.ExpenseStatusRejected, false},
		{models.ExpenseStatusRejected, models.ExpenseStatusApproved, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("advance sets approver and step", func(t *testing.T) {
		exp := &models.Expense{ID: 1, Status: models.ExpenseStatusDraft}
		from, err := Apply(exp, Advance(5, 1))
		require.NoError(t, err)
		require.Equal(t, models.ExpenseStatusDraft, from)
		require.Equal(t, models.ExpenseStatusPending, exp.Status)
		require.Equal(t, int64(5), *exp.CurrentApproverID)
		require.Equal(t, 1, exp.CurrentApprovalStep)
	})

	t.Run("hold keeps approver", func(t *testing.T) {
		exp := &models.Expense{ID: 1, Status: models.ExpenseStatusPending, CurrentApproverID: idPtr(5), CurrentApprovalStep: 1}
		_, err := Apply(exp, Hold())
		require.NoError(t, err)
		require.Equal(t, models.ExpenseStatusPending, exp.Status)
		require.Equal(t, int64(5), *exp.CurrentApproverID)
	})

	t.Run("hold without approver is illegal", func(t *testing.T) {
		exp := &models.Expense{ID: 1, Status: models.ExpenseStatusPending}
		_, err := Apply(exp, Hold())
		require.ErrorIs(t, err, ErrIllegalState)
	})

	t.Run("finalize clears approver", func(t *testing.T) {
		exp := &models.Expense{ID: 1, Status: models.ExpenseStatusPending, CurrentApproverID: idPtr(5), CurrentApprovalStep: 2}
		_, err := Apply(exp, Finalize(models.ApprovalStatusRejected))
		require.NoError(t, err)
		require.Equal(t, models.ExpenseStatusRejected, exp.Status)
		require.Nil(t, exp.CurrentApproverID)
		require.Equal(t, 2, exp.CurrentApprovalStep)
	})

	t.Run("terminal expenses do not move", func(t *testing.T) {
		exp := &models.Expense{ID: 1, Status: models.ExpenseStatusApproved}
		_, err := Apply(exp, Finalize(models.ApprovalStatusRejected))
		require.ErrorIs(t, err, ErrIllegalState)
		require.Equal(t, models.ExpenseStatusApproved, exp.Status)
	})
}

func TestOutcome(t *testing.T) {
	t.Parallel()

	require.Equal(t, models.ExpenseStatusPending, Hold().Status())
	require.Equal(t, models.ExpenseStatusPending, Advance(1, 2).Status())
	require.Equal(t, models.ExpenseStatusApproved, Finalize(models.ApprovalStatusApproved).Status())
	require.Equal(t, models.ExpenseStatusRejected, Finalize(models.ApprovalStatusRejected).Status())

	require.True(t, Finalize(models.ApprovalStatusApproved).IsFinal())
	require.False(t, Hold().IsFinal())

	require.Equal(t, "hold", Hold().String())
	require.Equal(t, "advance(approver=3, step=2)", Advance(3, 2).String())
	require.Equal(t, "finalize(rejected)", Finalize(models.ApprovalStatusRejected).String())
	require.Equal(t, "OutcomeKind(9)", OutcomeKind(9).String())
}
