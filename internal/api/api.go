// Package api exposes the approval engine over HTTP as JSON.
//
// Callers are identified by the X-User-ID header, which the authentication
// layer in front of this service is expected to set.
package api

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gitlab.com/yelinaung/expense-approval/internal/approval"
	"gitlab.com/yelinaung/expense-approval/internal/models"
)

// CallerHeader carries the authenticated user id.
const CallerHeader = "X-User-ID"

const maxBodyBytes = 64 << 10

// Service is the subset of the engine the handlers call.
type Service interface {
	Submit(ctx context.Context, expenseID, callerID int64) (*models.Expense, error)
	Decide(ctx context.Context, req approval.DecideRequest) (*approval.DecideResult, error)
	ListPending(ctx context.Context, approverID int64) ([]models.Expense, error)
	History(ctx context.Context, expenseID int64) ([]models.Approval, error)
	EligibleApprovers(ctx context.Context, expenseID int64) ([]int64, error)
}

var _ Service = (*approval.Engine)(nil)

// Handler serves the approval API.
type Handler struct {
	svc Service
	mux *http.ServeMux
	now func() time.Time
}

// NewHandler creates a Handler with every route registered.
func NewHandler(svc Service) *Handler {
	h := &Handler{svc: svc, mux: http.NewServeMux(), now: time.Now}
	h.mux.HandleFunc("POST /expenses/{id}/submit", h.handleSubmit)
	h.mux.HandleFunc("POST /expenses/{id}/decision", h.handleDecision)
	h.mux.HandleFunc("GET /expenses/{id}/approvals", h.handleHistory)
	h.mux.HandleFunc("GET /expenses/{id}/eligible-approvers", h.handleEligible)
	h.mux.HandleFunc("GET /approvals/pending", h.handlePending)
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Instrumented wraps h with request logging, panic recovery and OpenTelemetry spans.
func Instrumented(h http.Handler) http.Handler {
	return otelhttp.NewHandler(recoverPanics(logRequests(h)), "expense-approval")
}
