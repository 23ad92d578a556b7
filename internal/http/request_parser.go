// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"budgetapp/internal/core"
	"budgetapp/internal/services"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using
// today as the default. Out of range months are rejected.
func ParseMonthParams(query url.Values, today core.Date) (MonthParams, error) {
	params := MonthParams{Year: today.Year(), Month: today.Month()}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return MonthParams{}, core.NewValidationError("year", "invalid year")
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, core.NewValidationError("month", "month must be between 1 and 12")
		}
		params.Month = m
	}
	return params, nil
}

// ParseReportRange resolves the period of a report request. In order of
// precedence it accepts start and end dates, a named period, or a year and
// month. With none of them the current month is used.
func ParseReportRange(query url.Values, today core.Date) (core.Date, core.Date, error) {
	startStr := strings.TrimSpace(query.Get("start"))
	endStr := strings.TrimSpace(query.Get("end"))
	if startStr != "" || endStr != "" {
		if startStr == "" || endStr == "" {
			return core.Date{}, core.Date{}, core.NewValidationError("", "start and end must be given together")
		}
		start, err := core.ParseDate(startStr)
		if err != nil {
			return core.Date{}, core.Date{}, core.NewValidationError("start", "invalid start date")
		}
		end, err := core.ParseDate(endStr)
		if err != nil {
			return core.Date{}, core.Date{}, core.NewValidationError("end", "invalid end date")
		}
		return start, end, nil
	}

	if period := strings.TrimSpace(query.Get("period")); period != "" {
		return services.PeriodRange(period, today)
	}

	mp, err := ParseMonthParams(query, today)
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	start, end := services.MonthRange(mp.Year, time.Month(mp.Month))
	return start, end, nil
}

// decodeJSON reads a JSON body into v. Malformed bodies become validation
// errors; amount and date errors raised while decoding keep their field.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if core.IsValidation(err) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return core.NewValidationError("", "request body is required")
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return core.NewValidationError(typeErr.Field, fmt.Sprintf("must be a %s", typeErr.Type))
		}
		return core.NewValidationError("", "invalid JSON body")
	}
	return nil
}

// pathID parses a positive integer path wildcard.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		// Unparseable ids cannot match any row.
		return 0, core.ErrNotFound
	}
	return id, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
