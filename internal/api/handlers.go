package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gitlab.com/yelinaung/expense-approval/internal/approval"
)

type decisionRequest struct {
	Decision string `json:"decision"`
	Comment  string `json:"comment"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	exp, err := h.svc.Submit(r.Context(), id, caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpense(exp))
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body decisionRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, approval.Wrap(approval.CodeValidation, err, "invalid request body"))
		return
	}

	res, err := h.svc.Decide(r.Context(), approval.DecideRequest{
		ExpenseID:  id,
		ApproverID: caller,
		Decision:   body.Decision,
		Comment:    body.Comment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decisionResponse{
		Status:   string(res.Status),
		Outcome:  res.Outcome.Kind.String(),
		Approval: toApproval(res.Approval),
		Expense:  toExpense(&res.Expense),
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.caller(w, r); !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	history, err := h.svc.History(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]approvalJSON, len(history))
	for i, a := range history {
		out[i] = toApproval(a)
	}
	writeJSON(w, http.StatusOK, map[string]any{"approvals": out})
}

func (h *Handler) handleEligible(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.caller(w, r); !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	eligible, err := h.svc.EligibleApprovers(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if eligible == nil {
		eligible = []int64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"approver_ids": eligible})
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	pending, err := h.svc.ListPending(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]expenseJSON, len(pending))
	for i := range pending {
		out[i] = toExpense(&pending[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": out})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": h.now().UTC(),
	})
}

// caller reads the authenticated user id, writing a 401 when it is missing or malformed.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.Header.Get(CallerHeader))
	if raw == "" {
		writeProblem(w, http.StatusUnauthorized, codeUnauthenticated, CallerHeader+" header is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusUnauthorized, codeUnauthenticated, CallerHeader+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, approval.Validationf("expense id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("body is empty")
		}
		return fmt.Errorf("failed to decode body: %w", err)
	}
	return nil
}
