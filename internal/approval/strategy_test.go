package approval

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/expense-approval/internal/models"
)

func approved(ids ...int64) []models.Approval {
	out := make([]models.Approval, len(ids))
	for i, id := range ids {
		out[i] = models.Approval{ApproverID: id, Status: models.ApprovalStatusApproved}
	}
	return out
}

func rejected(id int64) models.Approval {
	return models.Approval{ApproverID: id, Status: models.ApprovalStatusRejected}
}

func TestStrategyFor(t *testing.T) {
	t.Parallel()

	for _, typ := range []models.ApprovalType{
		models.ApprovalTypeSequential,
		models.ApprovalTypePercentage,
		models.ApprovalTypeSpecificApprover,
		models.ApprovalTypeHybrid,
	} {
		s, err := StrategyFor(typ)
		require.NoError(t, err)
		require.NotNil(t, s)
	}

	_, err := StrategyFor("QUORUM")
	require.ErrorIs(t, err, ErrValidation)
}

func TestSequential_Evaluate(t *testing.T) {
	t.Parallel()

	rule := &Rule{Type: models.ApprovalTypeSequential, Approvers: approvers(10, 20, 30)}

	t.Run("approval advances to next sequence", func(t *testing.T) {
		got := Sequential{}.Evaluate(rule, nil, Decision{ApproverID: 10, Status: models.ApprovalStatusApproved, Step: 1})
		require.Equal(t, Advance(20, 2), got)
	})

	t.Run("manager step advances to first sequence", func(t *testing.T) {
		got := Sequential{}.Evaluate(rule, nil, Decision{ApproverID: 99, Status: models.ApprovalStatusApproved, Step: 0})
		require.Equal(t, Advance(10, 1), got)
	})

	t.Run("last approval finalizes", func(t *testing.T) {
		got := Sequential{}.Evaluate(rule, nil, Decision{ApproverID: 30, Status: models.ApprovalStatusApproved, Step: 3})
		require.Equal(t, Finalize(models.ApprovalStatusApproved), got)
	})

	t.Run("rejection short-circuits at any step", func(t *testing.T) {
		for step := 0; step <= 3; step++ {
			got := Sequential{}.Evaluate(rule, nil, Decision{Status: models.ApprovalStatusRejected, Step: step})
			require.Equal(t, Finalize(models.ApprovalStatusRejected), got)
		}
	})

	t.Run("no approvers approves on first approval", func(t *testing.T) {
		empty := &Rule{Type: models.ApprovalTypeSequential}
		got := Sequential{}.Evaluate(empty, nil, Decision{Status: models.ApprovalStatusApproved, Step: 0})
		require.Equal(t, Finalize(models.ApprovalStatusApproved), got)
	})

	t.Run("required flag does not change routing", func(t *testing.T) {
		flagged := &Rule{Type: models.ApprovalTypeSequential, Approvers: []models.RuleApprover{
			{ApproverID: 10, SequenceOrder: 1, IsRequired: true},
			{ApproverID: 20, SequenceOrder: 2, IsRequired: false},
		}}
		got := Sequential{}.Evaluate(flagged, nil, Decision{ApproverID: 10, Status: models.ApprovalStatusApproved, Step: 1})
		require.Equal(t, Advance(20, 2), got)
	})
}

func TestPercentage_Evaluate(t *testing.T) {
	t.Parallel()

	rule := &Rule{Type: models.ApprovalTypePercentage, PercentageThreshold: 60, Approvers: approvers(1, 2, 3)}

	t.Run("below threshold holds", func(t *testing.T) {
		got := Percentage{}.Evaluate(rule, approved(1), Decision{ApproverID: 1, Status: models.ApprovalStatusApproved})
		require.Equal(t, Hold(), got)
	})

	t.Run("threshold met approves", func(t *testing.T) {
		got := Percentage{}.Evaluate(rule, approved(1, 2), Decision{ApproverID: 2, Status: models.ApprovalStatusApproved})
		require.Equal(t, Finalize(models.ApprovalStatusApproved), got)
	})

	t.Run("repeat approvals from one approver count once", func(t *testing.T) {
		got := Percentage{}.Evaluate(rule, approved(1, 1), Decision{ApproverID: 1, Status: models.ApprovalStatusApproved})
		require.Equal(t, Hold(), got)
	})

	t.Run("single rejection holds", func(t *testing.T) {
		history := []models.Approval{rejected(1)}
		got := Percentage{}.Evaluate(rule, history, Decision{ApproverID: 1, Status: models.ApprovalStatusRejected})
		require.Equal(t, Hold(), got)
	})

	t.Run("every approver deciding below threshold holds", func(t *testing.T) {
		history := append(approved(1), rejected(2), rejected(3))
		got := Percentage{}.Evaluate(rule, history, Decision{ApproverID: 3, Status: models.ApprovalStatusRejected})
		require.Equal(t, Hold(), got)
	})

	t.Run("unanimous rejection holds", func(t *testing.T) {
		history := []models.Approval{rejected(1), rejected(2), rejected(3)}
		got := Percentage{}.Evaluate(rule, history, Decision{ApproverID: 3, Status: models.ApprovalStatusRejected})
		require.Equal(t, Hold(), got)
	})

	t.Run("zero approvers approves", func(t *testing.T) {
		empty := &Rule{Type: models.ApprovalTypePercentage, PercentageThreshold: 50}
		got := Percentage{}.Evaluate(empty, nil, Decision{Status: models.ApprovalStatusRejected})
		require.Equal(t, Finalize(models.ApprovalStatusApproved), got)
	})
}

func TestSpecificApprover_Evaluate(t *testing.T) {
	t.Parallel()

	rule := &Rule{Type: models.ApprovalTypeSpecificApprover, SpecificApproverID: idPtr(7), Approvers: approvers(1, 2)}

	t.Run("designated rejection finalizes", func(t *testing.T) {
		got := SpecificApprover{}.Evaluate(rule, nil, Decision{ApproverID: 7, Status: models.ApprovalStatusRejected})
		require.Equal(t, Finalize(models.ApprovalStatusRejected), got)
	})

	t.Run("designated approval finalizes", func(t *testing.T) {
		got := SpecificApprover{}.Evaluate(rule, nil, Decision{ApproverID: 7, Status: models.ApprovalStatusApproved})
		require.Equal(t, Finalize(models.ApprovalStatusApproved), got)
	})

	t.Run("other approvers hold", func(t *testing.T) {
		got := SpecificApprover{}.Evaluate(rule, approved(1, 2), Decision{ApproverID: 2, Status: models.ApprovalStatusApproved})
		require.Equal(t, Hold(), got)
	})

	t.Run("admin override finalizes", func(t *testing.T) {
		got := SpecificApprover{}.Evaluate(rule, nil, Decision{ApproverID: 100, Status: models.ApprovalStatusApproved, Override: true})
		require.Equal(t, Finalize(models.ApprovalStatusApproved), got)
	})
}

func TestHybrid_Evaluate(t *testing.T) {
	t.Parallel()

	rule := &Rule{
		Type:                models.ApprovalTypeHybrid,
		PercentageThreshold: 50,
		SpecificApproverID:  idPtr(7),
		Approvers:           approvers(1, 2, 3, 4),
	}

	t.Run("one ordinary approval holds", func(t *testing.T) {
		got := Hybrid{}.Evaluate(rule, approved(1), Decision{ApproverID: 1, Status: models.ApprovalStatusApproved})
		require.Equal(t, Hold(), got)
	})

	t.Run("designated approval alone approves", func(t *testing.T) {
		got := Hybrid{}.Evaluate(rule, approved(7), Decision{ApproverID: 7, Status: models.ApprovalStatusApproved})
		require.Equal(t, Finalize(models.ApprovalStatusApproved), got)
	})

	t.Run("threshold approves", func(t *testing.T) {
		got := Hybrid{}.Evaluate(rule, approved(1, 2), Decision{ApproverID: 2, Status: models.ApprovalStatusApproved})
		require.Equal(t, Finalize(models.ApprovalStatusApproved), got)
	})

	t.Run("designated rejection rejects", func(t *testing.T) {
		history := append(approved(1), rejected(7))
		got := Hybrid{}.Evaluate(rule, history, Decision{ApproverID: 7, Status: models.ApprovalStatusRejected})
		require.Equal(t, Finalize(models.ApprovalStatusRejected), got)
	})

	t.Run("ordinary rejections hold", func(t *testing.T) {
		history := []models.Approval{rejected(1), rejected(2), rejected(3), rejected(4)}
		got := Hybrid{}.Evaluate(rule, history, Decision{ApproverID: 4, Status: models.ApprovalStatusRejected})
		require.Equal(t, Hold(), got)
	})
}

func TestApprovedCount(t *testing.T) {
	t.Parallel()

	history := append(approved(1, 2, 1), rejected(3))
	require.Equal(t, 2, ApprovedCount(history))
	require.Equal(t, 0, ApprovedCount(nil))
}

func TestEligible(t *testing.T) {
	t.Parallel()

	current := idPtr(20)
	pending := &models.Expense{ID: 1, Status: models.ExpenseStatusPending, CurrentApproverID: current}

	t.Run("not pending has nobody", func(t *testing.T) {
		done := &models.Expense{Status: models.ExpenseStatusApproved}
		require.Nil(t, Eligible(nil, done, nil))
	})

	t.Run("no rule is current approver", func(t *testing.T) {
		require.Equal(t, []int64{20}, Eligible(nil, pending, nil))
	})

	t.Run("sequential is current approver", func(t *testing.T) {
		rule := &Rule{Type: models.ApprovalTypeSequential, Approvers: approvers(10, 20, 30)}
		require.Equal(t, []int64{20}, Eligible(rule, pending, nil))
	})

	t.Run("percentage excludes decided approvers", func(t *testing.T) {
		rule := &Rule{Type: models.ApprovalTypePercentage, PercentageThreshold: 60, Approvers: approvers(10, 20, 30)}
		require.Equal(t, []int64{20, 30}, Eligible(rule, pending, approved(10)))
	})

	t.Run("hybrid lists designated approver first without duplicates", func(t *testing.T) {
		rule := &Rule{
			Type:                models.ApprovalTypeHybrid,
			PercentageThreshold: 50,
			SpecificApproverID:  idPtr(20),
			Approvers:           approvers(10, 20, 30),
		}
		require.Equal(t, []int64{20, 10, 30}, Eligible(rule, pending, nil))
	})
}
