package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the request logger, or one wrapping slog.Default
// when none was stored.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

func enrich(next http.Handler, derive func(*http.Request) *Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), derive(r))))
	})
}

// Middleware stores logger in every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return enrich(next, func(*http.Request) *Logger { return logger })
	}
}

// ComponentMiddleware switches the request logger to component.
func ComponentMiddleware(component string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return enrich(next, func(r *http.Request) *Logger {
			return FromContext(r.Context()).WithComponent(component)
		})
	}
}

// RequestIDMiddleware tags the request logger with the ID extracted from r.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return enrich(next, func(r *http.Request) *Logger {
			return FromContext(r.Context()).With(FieldRequestID, extractRequestID(r))
		})
	}
}

// StructuredLogger writes domain events with a fixed field layout.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogTransactionCreated(ctx context.Context, userID, id int64, txType string, amountCents int64, category, date string) {
	fields := NewFields().
		WithUser(userID).
		WithTransaction(id, txType, amountCents, category, date).
		WithOperation(OpCreate)
	sl.logger.WithComponent(ComponentTransaction).InfoContext(ctx, "Transaction created", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogRecurringProcessed(ctx context.Context, userID int64, processed int, err error) {
	fields := NewFields().
		WithUser(userID).
		WithOperation(OpProcess).
		WithError(err)
	fields[FieldProcessed] = processed
	logger := sl.logger.WithComponent(ComponentRecurring)
	if err != nil {
		logger.WarnContext(ctx, "Recurring catch-up failed", fields.ToSlice()...)
		return
	}
	if processed > 0 {
		logger.InfoContext(ctx, "Recurring catch-up materialized transactions", fields.ToSlice()...)
	}
}
