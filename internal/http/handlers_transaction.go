package http

import (
	"net/http"

	"budgetapp/internal/core"
	applog "budgetapp/internal/log"
	"budgetapp/internal/services"
)

type transactionRequest struct {
	Type        core.TransactionType `json:"type"`
	Amount      core.Money           `json:"amount"`
	Category    string               `json:"category"`
	Date        core.Date            `json:"date"`
	Notes       string               `json:"notes"`
	IsRecurring bool                 `json:"is_recurring"`
	Frequency   core.Frequency       `json:"frequency"`
}

// transactionResponse is the stored transaction, plus the rule it started
// and the goals it advanced.
type transactionResponse struct {
	core.Transaction
	RecurringRule *core.RecurringRule `json:"recurring_rule,omitempty"`
	GoalsUpdated  []core.Goal         `json:"goals_updated,omitempty"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	txs, err := s.svc.Transactions.List(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Type == "" {
		req.Type = core.Expense
	}
	if req.Date.IsEmpty() {
		req.Date = s.today()
	}

	user := userFrom(r.Context())
	created, err := s.svc.Transactions.Create(r.Context(), user.ID, services.NewTransaction{
		Transaction: core.Transaction{
			Type:     req.Type,
			Amount:   req.Amount,
			Category: sanitizeInput(req.Category),
			Date:     req.Date,
			Notes:    sanitizeInput(req.Notes),
		},
		Recurring: req.IsRecurring,
		Frequency: req.Frequency,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx := created.Transaction
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogTransactionCreated(r.Context(), user.ID, tx.ID, string(tx.Type), tx.Amount.Cents, tx.Category, tx.Date.String())

	resp := transactionResponse{Transaction: tx, RecurringRule: created.Rule}
	for _, u := range created.Goals {
		resp.GoalsUpdated = append(resp.GoalsUpdated, u.Goal)
	}
	NewJSONResponse().Status(http.StatusCreated).Body(resp).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Transactions.Delete(r.Context(), userFrom(r.Context()).ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("Deleted successfully.").Write(w)
}
