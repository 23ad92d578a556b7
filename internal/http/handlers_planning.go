package http

import (
	"net/http"

	"budgetapp/internal/core"
)

type categoryRequest struct {
	Name          string               `json:"name"`
	Type          core.TransactionType `json:"type"`
	Icon          string               `json:"icon"`
	DefaultBudget core.Money           `json:"default"`
}

type budgetRequest struct {
	Category string     `json:"category"`
	Limit    core.Money `json:"limit_amount"`
	Period   string     `json:"period"`
}

type goalRequest struct {
	Name           string     `json:"name"`
	Target         core.Money `json:"target_amount"`
	Current        core.Money `json:"current_amount"`
	Deadline       core.Date  `json:"deadline"`
	LinkedCategory string     `json:"linked_category"`
	Icon           string     `json:"icon"`
	Color          string     `json:"color"`
}

type depositRequest struct {
	Amount core.Money `json:"amount"`
}

type depositResponse struct {
	Goal          core.Goal  `json:"goal"`
	Added         core.Money `json:"added"`
	JustCompleted bool       `json:"just_completed"`
}

type settingsResponse struct {
	Message  string        `json:"message"`
	Settings core.Settings `json:"settings"`
}

// Categories

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.svc.Categories.List(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if categories == nil {
		categories = []core.Category{}
	}
	writeJSON(w, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Categories.Create(r.Context(), userFrom(r.Context()).ID, core.Category{
		Name:          sanitizeInput(req.Name),
		Type:          req.Type,
		Icon:          sanitizeInput(req.Icon),
		DefaultBudget: req.DefaultBudget,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(c).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Categories.Delete(r.Context(), userFrom(r.Context()).ID, r.PathValue("key")); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("Category deleted.").Write(w)
}

// Budgets

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.svc.Planning.ListBudgets(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	writeJSON(w, budgets)
}

func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.svc.Planning.SaveBudget(r.Context(), userFrom(r.Context()).ID, core.Budget{
		Category: sanitizeInput(req.Category),
		Limit:    req.Limit,
		Period:   req.Period,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Planning.DeleteBudget(r.Context(), userFrom(r.Context()).ID, r.PathValue("category")); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("Budget deleted.").Write(w)
}

// Goals

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.svc.Planning.ListGoals(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if goals == nil {
		goals = []core.Goal{}
	}
	writeJSON(w, goals)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.svc.Planning.CreateGoal(r.Context(), userFrom(r.Context()).ID, core.Goal{
		Name:           sanitizeInput(req.Name),
		Target:         req.Target,
		Current:        req.Current,
		Deadline:       req.Deadline,
		LinkedCategory: sanitizeInput(req.LinkedCategory),
		Icon:           sanitizeInput(req.Icon),
		Color:          sanitizeInput(req.Color),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(g).Write(w)
}

func (s *Server) handleDepositGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req depositRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	update, err := s.svc.Planning.Deposit(r.Context(), userFrom(r.Context()).ID, id, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, depositResponse{Goal: update.Goal, Added: update.Added, JustCompleted: update.JustCompleted})
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Planning.DeleteGoal(r.Context(), userFrom(r.Context()).ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("Goal deleted.").Write(w)
}

// Settings

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.Planning.Settings(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req core.Settings
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Theme = sanitizeInput(req.Theme)
	req.Currency = sanitizeInput(req.Currency)
	req.Language = sanitizeInput(req.Language)

	settings, err := s.svc.Planning.SaveSettings(r.Context(), userFrom(r.Context()).ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, settingsResponse{Message: "Settings saved.", Settings: settings})
}
