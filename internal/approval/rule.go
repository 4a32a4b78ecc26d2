package approval

import (
	"slices"

	"gitlab.com/yelinaung/expense-approval/internal/models"
)

// RuleKind records which table a resolved rule came from.
type RuleKind string

// Rule kinds.
const (
	RuleKindUser    RuleKind = "user"
	RuleKindCompany RuleKind = "company"
)

// Rule is the normalized view of either a company-wide or a per-user rule.
// Approvers are sorted by SequenceOrder.
type Rule struct {
	Kind                RuleKind
	ID                  int64
	Name                string
	Type                models.ApprovalType
	UseSequence         bool
	IsManagerApprover   bool
	PercentageThreshold int
	SpecificApproverID  *int64
	Approvers           []models.RuleApprover
}

// RuleFromCompany normalizes a company-wide rule.
func RuleFromCompany(r *models.ApprovalRule) *Rule {
	return newRule(RuleKindCompany, r.ID, r.RuleConfig)
}

// RuleFromUser normalizes a per-submitter rule.
func RuleFromUser(r *models.UserApprovalRule) *Rule {
	return newRule(RuleKindUser, r.ID, r.RuleConfig)
}

func newRule(kind RuleKind, id int64, cfg models.RuleConfig) *Rule {
	approvers := slices.Clone(cfg.Approvers)
	slices.SortStableFunc(approvers, func(a, b models.RuleApprover) int {
		return a.SequenceOrder - b.SequenceOrder
	})

	rule := &Rule{
		Kind:              kind,
		ID:                id,
		Name:              cfg.Name,
		Type:              cfg.ApprovalType,
		UseSequence:       cfg.UseSequence,
		IsManagerApprover: cfg.IsManagerApprover,
		Approvers:         approvers,
	}
	if cfg.PercentageThreshold != nil {
		rule.PercentageThreshold = *cfg.PercentageThreshold
	}
	if cfg.SpecificApproverID != nil {
		specific := *cfg.SpecificApproverID
		rule.SpecificApproverID = &specific
	}
	return rule
}

// Validate checks the configuration a strategy relies on.
func (r *Rule) Validate() error {
	if !r.Type.IsValid() {
		return Validationf("rule %d has unknown approval type %q", r.ID, r.Type)
	}

	switch r.Type {
	case models.ApprovalTypePercentage, models.ApprovalTypeHybrid:
		if r.PercentageThreshold < 1 || r.PercentageThreshold > 100 {
			return Validationf("rule %d needs a percentage threshold between 1 and 100, got %d",
				r.ID, r.PercentageThreshold)
		}
	}

	switch r.Type {
	case models.ApprovalTypeSpecificApprover, models.ApprovalTypeHybrid:
		if r.SpecificApproverID == nil {
			return Validationf("rule %d of type %s needs a specific approver", r.ID, r.Type)
		}
	}

	if len(r.Approvers) > 0 && r.Approvers[0].SequenceOrder != 1 {
		return Validationf("rule %d sequence must start at 1, got %d", r.ID, r.Approvers[0].SequenceOrder)
	}
	prev := 0
	for _, a := range r.Approvers {
		if a.SequenceOrder <= prev {
			return Validationf("rule %d has non-increasing sequence order %d", r.ID, a.SequenceOrder)
		}
		prev = a.SequenceOrder
	}
	return nil
}

// ApproverAt returns the approver configured at sequence order seq.
func (r *Rule) ApproverAt(seq int) (models.RuleApprover, bool) {
	for _, a := range r.Approvers {
		if a.SequenceOrder == seq {
			return a, true
		}
	}
	return models.RuleApprover{}, false
}

// HasApprover reports whether userID is one of the configured approvers.
func (r *Rule) HasApprover(userID int64) bool {
	return slices.ContainsFunc(r.Approvers, func(a models.RuleApprover) bool {
		return a.ApproverID == userID
	})
}

// IsSpecificApprover reports whether userID is the designated approver.
func (r *Rule) IsSpecificApprover(userID int64) bool {
	return r.SpecificApproverID != nil && *r.SpecificApproverID == userID
}

// RequiredApprovals is ceil(threshold * total / 100).
func RequiredApprovals(threshold, total int) int {
	if threshold <= 0 || total <= 0 {
		return 0
	}
	return (threshold*total + 99) / 100
}
