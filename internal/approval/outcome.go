package approval

import (
	"fmt"

	"gitlab.com/yelinaung/expense-approval/internal/models"
)

// OutcomeKind is the category of an evaluation result.
type OutcomeKind int

// Outcome kinds.
const (
	// OutcomeHold keeps the expense pending without moving the approver pointer.
	OutcomeHold OutcomeKind = iota
	// OutcomeAdvance routes the expense to the next approver.
	OutcomeAdvance
	// OutcomeFinalize closes the workflow as approved or rejected.
	OutcomeFinalize
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeHold:
		return "hold"
	case OutcomeAdvance:
		return "advance"
	case OutcomeFinalize:
		return "finalize"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// Outcome is what a strategy decides should happen to the expense next.
type Outcome struct {
	Kind           OutcomeKind
	NextApproverID int64
	NextStep       int
	Final          models.ApprovalStatus
}

// Advance routes the expense to approverID at step.
func Advance(approverID int64, step int) Outcome {
	return Outcome{Kind: OutcomeAdvance, NextApproverID: approverID, NextStep: step}
}

// Finalize closes the workflow with the given decision.
func Finalize(status models.ApprovalStatus) Outcome {
	return Outcome{Kind: OutcomeFinalize, Final: status}
}

// Hold leaves the expense pending for further decisions.
func Hold() Outcome {
	return Outcome{Kind: OutcomeHold}
}

// Status is the expense status the outcome leads to.
func (o Outcome) Status() models.ExpenseStatus {
	if o.Kind != OutcomeFinalize {
		return models.ExpenseStatusPending
	}
	if o.Final == models.ApprovalStatusApproved {
		return models.ExpenseStatusApproved
	}
	return models.ExpenseStatusRejected
}

// IsFinal reports whether the outcome closes the workflow.
func (o Outcome) IsFinal() bool {
	return o.Kind == OutcomeFinalize
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeAdvance:
		return fmt.Sprintf("advance(approver=%d, step=%d)", o.NextApproverID, o.NextStep)
	case OutcomeFinalize:
		return fmt.Sprintf("finalize(%s)", o.Final)
	}
	return o.Kind.String()
}
