package approval

import "gitlab.com/yelinaung/expense-approval/internal/models"

// transitions lists the legal status changes of an expense.
// Approved and rejected are absorbing.
var transitions = map[models.ExpenseStatus][]models.ExpenseStatus{
	models.ExpenseStatusDraft:   {models.ExpenseStatusPending, models.ExpenseStatusApproved},
	models.ExpenseStatusPending: {models.ExpenseStatusPending, models.ExpenseStatusApproved, models.ExpenseStatusRejected},
}

// CanTransition reports whether an expense may move from one status to another.
// Pending to pending is the routing step between two approvers.
func CanTransition(from, to models.ExpenseStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanDecide reports whether decisions may be recorded against an expense in status s.
func CanDecide(s models.ExpenseStatus) bool {
	return s == models.ExpenseStatusPending
}

// CanSubmit reports whether an expense in status s may be submitted for approval.
func CanSubmit(s models.ExpenseStatus) bool {
	return s == models.ExpenseStatusDraft
}

// Apply moves exp according to outcome and returns the status it left.
// It enforces the pending/current-approver invariant: pending expenses always
// carry an approver and finalized ones never do.
func Apply(exp *models.Expense, outcome Outcome) (models.ExpenseStatus, error) {
	from := exp.Status
	to := outcome.Status()
	if !CanTransition(from, to) {
		return from, IllegalStatef("expense %d cannot move from %s to %s", exp.ID, from, to)
	}

	switch outcome.Kind {
	case OutcomeAdvance:
		approver := outcome.NextApproverID
		exp.CurrentApproverID = &approver
		exp.CurrentApprovalStep = outcome.NextStep
	case OutcomeHold:
		if exp.CurrentApproverID == nil {
			return from, IllegalStatef("expense %d is pending without an approver", exp.ID)
		}
	case OutcomeFinalize:
		exp.CurrentApproverID = nil
	}
	exp.Status = to
	return from, nil
}
