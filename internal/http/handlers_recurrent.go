package http

import (
	"net/http"

	"budgetapp/internal/core"
)

type recurringRequest struct {
	Type      core.TransactionType `json:"type"`
	Amount    core.Money           `json:"amount"`
	Category  string               `json:"category"`
	Notes     string               `json:"notes"`
	Frequency core.Frequency       `json:"frequency"`
	NextDue   core.Date            `json:"next_due"`
}

type processResponse struct {
	Processed int `json:"processed"`
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	rules, err := s.svc.Recurring.ListRules(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rules == nil {
		rules = []core.RecurringRule{}
	}
	writeJSON(w, rules)
}

// handleCreateRecurring stores a rule without an immediate instance. The
// first occurrence is materialized when next_due is reached.
func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Type == "" {
		req.Type = core.Expense
	}
	if req.NextDue.IsEmpty() {
		req.NextDue = s.today()
	}

	rule, err := s.svc.Recurring.CreateRule(r.Context(), userFrom(r.Context()).ID, core.RecurringRule{
		Type:      req.Type,
		Amount:    req.Amount,
		Category:  sanitizeInput(req.Category),
		Notes:     sanitizeInput(req.Notes),
		Frequency: req.Frequency,
		NextDue:   req.NextDue,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(rule).Write(w)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Recurring.DeleteRule(r.Context(), userFrom(r.Context()).ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("Deleted successfully.").Write(w)
}

// handleProcessRecurring runs the catch-up on demand. Unlike the implicit
// run of /api/auth/me, failures are reported.
func (s *Server) handleProcessRecurring(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Recurring.Process(r.Context(), userFrom(r.Context()).ID, s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, processResponse{Processed: n})
}
