package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gitlab.com/yelinaung/expense-approval/internal/approval"
	"gitlab.com/yelinaung/expense-approval/internal/logger"
	"gitlab.com/yelinaung/expense-approval/internal/models"
)

// Codes that exist only at the HTTP boundary.
const (
	codeUnauthenticated = "UNAUTHENTICATED"
	codeInternal        = "INTERNAL"
)

type expenseJSON struct {
	ID                  int64     `json:"id"`
	CompanyID           int64     `json:"company_id"`
	SubmitterID         int64     `json:"submitter_id"`
	Amount              string    `json:"amount"`
	Currency            string    `json:"currency"`
	Category            string    `json:"category,omitempty"`
	Description         string    `json:"description,omitempty"`
	ExpenseDate         string    `json:"expense_date"`
	Status              string    `json:"status"`
	CurrentApproverID   *int64    `json:"current_approver_id"`
	CurrentApprovalStep int       `json:"current_approval_step"`
	Version             int       `json:"version"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type approvalJSON struct {
	ID         int64     `json:"id"`
	ExpenseID  int64     `json:"expense_id"`
	ApproverID int64     `json:"approver_id"`
	StepNumber int       `json:"step_number"`
	Status     string    `json:"status"`
	Comments   string    `json:"comments,omitempty"`
	ApprovedAt time.Time `json:"approved_at"`
}

type decisionResponse struct {
	Status   string       `json:"status"`
	Outcome  string       `json:"outcome"`
	Approval approvalJSON `json:"approval"`
	Expense  expenseJSON  `json:"expense"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func toExpense(e *models.Expense) expenseJSON {
	return expenseJSON{
		ID:                  e.ID,
		CompanyID:           e.CompanyID,
		SubmitterID:         e.SubmitterID,
		Amount:              e.Amount.StringFixed(2),
		Currency:            e.Currency,
		Category:            e.Category,
		Description:         e.Description,
		ExpenseDate:         e.ExpenseDate.Format(time.DateOnly),
		Status:              string(e.Status),
		CurrentApproverID:   e.CurrentApproverID,
		CurrentApprovalStep: e.CurrentApprovalStep,
		Version:             e.Version,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}

func toApproval(a models.Approval) approvalJSON {
	return approvalJSON{
		ID:         a.ID,
		ExpenseID:  a.ExpenseID,
		ApproverID: a.ApproverID,
		StepNumber: a.StepNumber,
		Status:     string(a.Status),
		Comments:   a.Comments,
		ApprovedAt: a.ApprovedAt,
	}
}

// statusFor maps an engine error code to its HTTP status.
func statusFor(code approval.Code) int {
	switch code {
	case approval.CodeValidation:
		return http.StatusBadRequest
	case approval.CodeNotFound:
		return http.StatusNotFound
	case approval.CodeAuthorizationDenied:
		return http.StatusForbidden
	case approval.CodeConflict:
		return http.StatusConflict
	case approval.CodeIllegalState:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	var engErr *approval.Error
	if !errors.As(err, &engErr) {
		logger.Log.Error().Err(err).Msg("Unclassified API error")
		writeProblem(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	writeJSON(w, statusFor(engErr.Code), errorBody{Error: errorDetail{
		Code:      string(engErr.Code),
		Message:   engErr.Error(),
		Retryable: engErr.Retryable(),
	}})
}

func writeProblem(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to encode response")
	}
}
