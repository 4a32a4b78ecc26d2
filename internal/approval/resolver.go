package approval

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/expense-approval/internal/models"
)

// RuleSource is one step of the resolution order.
// It returns (nil, nil) when it has no rule for the submitter.
type RuleSource interface {
	Name() string
	Lookup(ctx context.Context, lookup RuleLookup, submitter *models.User) (*Rule, error)
}

// UserRuleSource finds an active per-submitter override.
type UserRuleSource struct{}

// Name implements RuleSource.
func (UserRuleSource) Name() string { return string(RuleKindUser) }

// Lookup implements RuleSource.
func (UserRuleSource) Lookup(ctx context.Context, lookup RuleLookup, submitter *models.User) (*Rule, error) {
	r, err := lookup.ActiveUserRule(ctx, submitter.ID)
	if err != nil || r == nil {
		return nil, err
	}
	return RuleFromUser(r), nil
}

// CompanyRuleSource finds the active company-wide rule of the submitter's company.
type CompanyRuleSource struct{}

// Name implements RuleSource.
func (CompanyRuleSource) Name() string { return string(RuleKindCompany) }

// Lookup implements RuleSource.
func (CompanyRuleSource) Lookup(ctx context.Context, lookup RuleLookup, submitter *models.User) (*Rule, error) {
	r, err := lookup.ActiveCompanyRule(ctx, submitter.CompanyID)
	if err != nil || r == nil {
		return nil, err
	}
	return RuleFromCompany(r), nil
}

// Resolver walks its sources in order and returns the first rule found.
type Resolver struct {
	sources []RuleSource
}

// NewResolver creates a Resolver. With no sources it uses the default order:
// user rule, then company rule.
func NewResolver(sources ...RuleSource) *Resolver {
	if len(sources) == 0 {
		sources = []RuleSource{UserRuleSource{}, CompanyRuleSource{}}
	}
	return &Resolver{sources: sources}
}

// Sources returns the resolution order.
func (r *Resolver) Sources() []RuleSource {
	return r.sources
}

// Resolve returns the rule governing expenses of submitterID, or nil when no
// governance is configured. The returned rule has been validated.
func (r *Resolver) Resolve(ctx context.Context, lookup RuleLookup, submitterID int64) (*Rule, error) {
	submitter, err := lookup.GetUser(ctx, submitterID)
	if err != nil {
		return nil, err
	}

	for _, src := range r.sources {
		rule, err := src.Lookup(ctx, lookup, submitter)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s rule: %w", src.Name(), err)
		}
		if rule == nil {
			continue
		}
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		return rule, nil
	}
	return nil, nil
}
