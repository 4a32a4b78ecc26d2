// Package models defines the domain entities for expense approval routing.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the default currency for new companies.
const DefaultCurrency = "SGD"

// MaxCommentLength is the maximum allowed length for a decision comment.
const MaxCommentLength = 1000

// Role is the role a user holds inside their company.
type Role string

// User roles.
const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Company groups users, expenses and company-wide approval rules.
type Company struct {
	ID              int64
	Name            string
	DefaultCurrency string
	CreatedAt       time.Time
}

// User represents an employee, manager or admin of a company.
type User struct {
	ID             int64
	CompanyID      int64
	Name           string
	Email          string
	Role           Role
	ManagerID      *int64
	TelegramChatID *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsAdmin reports whether the user holds the administrative override role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// ExpenseStatus represents the status of an expense.
type ExpenseStatus string

// Expense statuses.
const (
	ExpenseStatusDraft    ExpenseStatus = "draft"
	ExpenseStatusPending  ExpenseStatus = "pending"
	ExpenseStatusApproved ExpenseStatus = "approved"
	ExpenseStatusRejected ExpenseStatus = "rejected"
)

// IsTerminal returns true for statuses with no outgoing transitions.
func (s ExpenseStatus) IsTerminal() bool {
	return s == ExpenseStatusApproved || s == ExpenseStatusRejected
}

// Expense represents a submitted expense claim.
type Expense struct {
	ID                  int64
	CompanyID           int64
	SubmitterID         int64
	Amount              decimal.Decimal
	Currency            string
	Category            string
	Description         string
	ExpenseDate         time.Time
	Status              ExpenseStatus
	CurrentApproverID   *int64
	CurrentApprovalStep int
	Version             int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ApprovalType selects the strategy used to evaluate a rule.
type ApprovalType string

// Approval types.
const (
	ApprovalTypeSequential       ApprovalType = "SEQUENTIAL"
	ApprovalTypePercentage       ApprovalType = "PERCENTAGE"
	ApprovalTypeSpecificApprover ApprovalType = "SPECIFIC_APPROVER"
	ApprovalTypeHybrid           ApprovalType = "HYBRID"
)

// IsValid reports whether t is one of the known approval types.
func (t ApprovalType) IsValid() bool {
	switch t {
	case ApprovalTypeSequential, ApprovalTypePercentage, ApprovalTypeSpecificApprover, ApprovalTypeHybrid:
		return true
	}
	return false
}

// RuleApprover is one approver entry of a rule.
// IsRequired is stored and displayed but not consulted when evaluating outcomes.
type RuleApprover struct {
	ApproverID    int64
	IsRequired    bool
	SequenceOrder int
}

// RuleConfig holds the fields shared by company-wide and per-user rules.
type RuleConfig struct {
	Name                string
	ApprovalType        ApprovalType
	UseSequence         bool
	IsManagerApprover   bool
	PercentageThreshold *int
	SpecificApproverID  *int64
	IsActive            bool
	Approvers           []RuleApprover
}

// ApprovalRule is a company-wide approval rule.
type ApprovalRule struct {
	ID        int64
	CompanyID int64
	RuleConfig
	CreatedAt time.Time
}

// UserApprovalRule overrides the company rule for a single submitter.
type UserApprovalRule struct {
	ID     int64
	UserID int64
	RuleConfig
	CreatedAt time.Time
}

// ApprovalStatus is the decision recorded on an approval.
type ApprovalStatus string

// Approval decisions.
const (
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// ParseDecision converts user input such as "approve" or "Rejected" into an ApprovalStatus.
func ParseDecision(s string) (ApprovalStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved":
		return ApprovalStatusApproved, nil
	case "reject", "rejected":
		return ApprovalStatusRejected, nil
	}
	return "", fmt.Errorf("unknown decision %q", s)
}

// Approval is an append-only audit record of one decision.
type Approval struct {
	ID         int64
	ExpenseID  int64
	ApproverID int64
	StepNumber int
	Status     ApprovalStatus
	Comments   string
	ApprovedAt time.Time
}
