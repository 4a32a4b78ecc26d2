package approval

import (
	"gitlab.com/yelinaung/expense-approval/internal/models"
)

// Decision is the decision being evaluated. It has already been appended to
// the history passed alongside it.
type Decision struct {
	ApproverID int64
	Status     models.ApprovalStatus
	// Step is the expense's current approval step when the decision was made.
	Step int
	// Override is set when an admin decides on behalf of the current approver.
	Override bool
}

// Strategy computes the next action for an expense governed by a rule.
type Strategy interface {
	Evaluate(rule *Rule, history []models.Approval, latest Decision) Outcome
}

// StrategyFor returns the strategy implementing t.
func StrategyFor(t models.ApprovalType) (Strategy, error) {
	switch t {
	case models.ApprovalTypeSequential:
		return Sequential{}, nil
	case models.ApprovalTypePercentage:
		return Percentage{}, nil
	case models.ApprovalTypeSpecificApprover:
		return SpecificApprover{}, nil
	case models.ApprovalTypeHybrid:
		return Hybrid{}, nil
	}
	return nil, Validationf("unknown approval type %q", t)
}

// Sequential routes through approvers in sequence order. Any rejection ends the workflow.
type Sequential struct{}

// Evaluate implements Strategy.
func (Sequential) Evaluate(rule *Rule, _ []models.Approval, latest Decision) Outcome {
	if latest.Status == models.ApprovalStatusRejected {
		return Finalize(models.ApprovalStatusRejected)
	}
	next := latest.Step + 1
	if a, ok := rule.ApproverAt(next); ok {
		return Advance(a.ApproverID, next)
	}
	return Finalize(models.ApprovalStatusApproved)
}

// Percentage approves once enough distinct approvers have approved.
// Rejections never finalize; below the threshold the expense stays pending.
type Percentage struct{}

// Evaluate implements Strategy.
func (Percentage) Evaluate(rule *Rule, history []models.Approval, _ Decision) Outcome {
	if thresholdMet(rule, history) {
		return Finalize(models.ApprovalStatusApproved)
	}
	return Hold()
}

// SpecificApprover finalizes with the designated approver's decision and
// ignores everyone else's.
type SpecificApprover struct{}

// Evaluate implements Strategy.
func (SpecificApprover) Evaluate(rule *Rule, _ []models.Approval, latest Decision) Outcome {
	if latest.Override || rule.IsSpecificApprover(latest.ApproverID) {
		return Finalize(latest.Status)
	}
	return Hold()
}

// Hybrid approves when either the designated approver approves or the
// percentage threshold is met. Only the designated approver's rejection ends it.
type Hybrid struct{}

// Evaluate implements Strategy.
func (Hybrid) Evaluate(rule *Rule, history []models.Approval, latest Decision) Outcome {
	if latest.Override || rule.IsSpecificApprover(latest.ApproverID) {
		return Finalize(latest.Status)
	}
	if thresholdMet(rule, history) {
		return Finalize(models.ApprovalStatusApproved)
	}
	return Hold()
}

// ApprovedCount returns the number of distinct approvers with an approval in history.
func ApprovedCount(history []models.Approval) int {
	seen := make(map[int64]struct{}, len(history))
	for _, a := range history {
		if a.Status == models.ApprovalStatusApproved {
			seen[a.ApproverID] = struct{}{}
		}
	}
	return len(seen)
}

func thresholdMet(rule *Rule, history []models.Approval) bool {
	return ApprovedCount(history) >= RequiredApprovals(rule.PercentageThreshold, len(rule.Approvers))
}

func decidedSet(history []models.Approval) map[int64]struct{} {
	decided := make(map[int64]struct{}, len(history))
	for _, a := range history {
		decided[a.ApproverID] = struct{}{}
	}
	return decided
}

// Eligible returns the users, other than admins, who may decide on exp right now.
// Sequential and ungoverned expenses are decided only by the current approver.
// Parallel strategies accept any configured approver who has not decided yet,
// plus the designated approver where the rule has one.
func Eligible(rule *Rule, exp *models.Expense, history []models.Approval) []int64 {
	if !CanDecide(exp.Status) {
		return nil
	}

	if rule == nil || rule.Type == models.ApprovalTypeSequential {
		if exp.CurrentApproverID == nil {
			return nil
		}
		return []int64{*exp.CurrentApproverID}
	}

	decided := decidedSet(history)
	var out []int64
	seen := make(map[int64]struct{})
	add := func(id int64) {
		if _, ok := decided[id]; ok {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	if rule.SpecificApproverID != nil {
		add(*rule.SpecificApproverID)
	}
	for _, a := range rule.Approvers {
		add(a.ApproverID)
	}
	return out
}
