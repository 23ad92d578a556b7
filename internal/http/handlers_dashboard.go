package http

import (
	"net/http"
	"time"
)

// handleSummaryReport serves the period report the dashboard renders.
func (s *Server) handleSummaryReport(w http.ResponseWriter, r *http.Request) {
	today := s.today()
	start, end, err := ParseReportRange(r.URL.Query(), today)
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := s.svc.Reports.Summary(r.Context(), userFrom(r.Context()).ID, start, end, today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, report)
}

// handleCalendarReport serves a month of actual and projected transactions.
func (s *Server) handleCalendarReport(w http.ResponseWriter, r *http.Request) {
	mp, err := ParseMonthParams(r.URL.Query(), s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}

	cal, err := s.svc.Reports.Calendar(r.Context(), userFrom(r.Context()).ID, mp.Year, time.Month(mp.Month))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, cal)
}
