package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"budgetapp/internal/auth"
	"budgetapp/internal/cache"
	"budgetapp/internal/core"
	"budgetapp/internal/services"
	"budgetapp/internal/storage"
)

// testNow is the wall clock the server evaluates "today" against.
var testNow = time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)

type fakeGoogle struct {
	profile auth.GoogleProfile
	err     error
}

func (f fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (f fakeGoogle) Exchange(ctx context.Context, code string) (auth.GoogleProfile, error) {
	if code != "good-code" {
		return auth.GoogleProfile{}, errors.New("bad code")
	}
	return f.profile, f.err
}

func newTestServer(t *testing.T, opts Options) (*Server, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	sessions := cache.NewLRUCache[core.Session](100, time.Hour)
	svc := Services{
		Auth:         services.NewAuthService(repo, sessions, 24*time.Hour),
		Transactions: services.NewTransactionService(repo, nil),
		Recurring:    services.NewRecurringProcessor(repo, nil),
		Reports:      services.NewReportService(repo),
		Categories:   services.NewCategoryService(repo),
		Planning:     services.NewPlanningService(repo, nil),
	}
	if opts.AuthRateLimit == 0 {
		opts.AuthRateLimit = 100
	}
	opts.Ready = repo

	srv := NewServer(":0", svc, opts)
	srv.now = func() time.Time { return testNow }
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, repo
}

type client struct {
	t       *testing.T
	srv     *Server
	cookies []*http.Cookie
}

func (c *client) do(method, target, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.srv.Handler.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		c.setCookie(ck)
	}
	return rec
}

func (c *client) setCookie(ck *http.Cookie) {
	kept := c.cookies[:0]
	for _, old := range c.cookies {
		if old.Name != ck.Name {
			kept = append(kept, old)
		}
	}
	c.cookies = kept
	if ck.MaxAge >= 0 && ck.Value != "" {
		c.cookies = append(c.cookies, &http.Cookie{Name: ck.Name, Value: ck.Value})
	}
}

func (c *client) expect(rec *httptest.ResponseRecorder, status int) {
	c.t.Helper()
	if rec.Code != status {
		c.t.Fatalf("status = %d, want %d, body = %s", rec.Code, status, rec.Body.String())
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

// signup creates an account and returns a client holding its session.
func signup(t *testing.T, srv *Server, email string) *client {
	t.Helper()
	c := &client{t: t, srv: srv}
	rec := c.do(http.MethodPost, "/api/auth/signup", `{"name":"Test User","email":"`+email+`","password":"s3cret-pass"}`)
	c.expect(rec, http.StatusOK)
	return c
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	c := &client{t: t, srv: srv}

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := c.do(http.MethodGet, path, "")
		c.expect(rec, http.StatusOK)
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing X-Request-ID", path)
		}
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s: missing security headers", path)
		}
	}

	rec := c.do(http.MethodGet, "/api/nope", "")
	c.expect(rec, http.StatusNotFound)
	if got := decode[errorBody](t, rec); got.Error == "" {
		t.Error("unknown endpoint should answer with a JSON error")
	}
}

func TestAuthFlow(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	anon := &client{t: t, srv: srv}

	rec := anon.do(http.MethodGet, "/api/auth/me", "")
	anon.expect(rec, http.StatusOK)
	if me := decode[meResponse](t, rec); me.Authenticated {
		t.Fatal("anonymous request reported authenticated")
	}
	anon.expect(anon.do(http.MethodGet, "/api/data/transactions", ""), http.StatusUnauthorized)

	c := signup(t, srv, "alice@example.com")
	if len(c.cookies) != 1 || c.cookies[0].Name != sessionCookieName {
		t.Fatalf("cookies after signup = %v", c.cookies)
	}

	rec = c.do(http.MethodGet, "/api/auth/me", "")
	me := decode[meResponse](t, rec)
	if !me.Authenticated || me.User == nil || me.User.Email != "alice@example.com" {
		t.Fatalf("me = %+v", me)
	}

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"duplicate email", "/api/auth/signup", `{"name":"A","email":"alice@example.com","password":"x"}`, http.StatusBadRequest},
		{"signup missing fields", "/api/auth/signup", `{"email":"bob@example.com"}`, http.StatusBadRequest},
		{"login missing fields", "/api/auth/login", `{"email":"alice@example.com"}`, http.StatusBadRequest},
		{"wrong password", "/api/auth/login", `{"email":"alice@example.com","password":"nope"}`, http.StatusUnauthorized},
		{"unknown user", "/api/auth/login", `{"email":"who@example.com","password":"nope"}`, http.StatusUnauthorized},
		{"malformed body", "/api/auth/login", `{"email":`, http.StatusBadRequest},
		{"login", "/api/auth/login", `{"email":"ALICE@example.com","password":"s3cret-pass"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fresh := &client{t: t, srv: srv}
			fresh.expect(fresh.do(http.MethodPost, tt.path, tt.body), tt.status)
		})
	}

	rec = c.do(http.MethodPost, "/api/auth/logout", "")
	c.expect(rec, http.StatusOK)
	if len(c.cookies) != 0 {
		t.Errorf("session cookie not cleared: %v", c.cookies)
	}
	if me := decode[meResponse](t, c.do(http.MethodGet, "/api/auth/me", "")); me.Authenticated {
		t.Error("session still valid after logout")
	}
}

func TestAuthRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Options{AuthRateLimit: 2})
	c := &client{t: t, srv: srv}

	for i := 0; i < 2; i++ {
		c.expect(c.do(http.MethodPost, "/api/auth/login", `{"email":"a@example.com","password":"x"}`), http.StatusUnauthorized)
	}
	rec := c.do(http.MethodPost, "/api/auth/login", `{"email":"a@example.com","password":"x"}`)
	c.expect(rec, http.StatusTooManyRequests)
	if srv.Metrics().RateLimited != 1 {
		t.Errorf("Metrics().RateLimited = %d, want 1", srv.Metrics().RateLimited)
	}
}

func TestTransactionsAndMonthlyReport(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	c := signup(t, srv, "alice@example.com")

	c.expect(c.do(http.MethodPost, "/api/data/budgets", `{"category":"groceries","limit_amount":100}`), http.StatusOK)

	rec := c.do(http.MethodPost, "/api/data/transactions", `{"type":"expense","amount":"50","category":"groceries","date":"2024-01-10"}`)
	c.expect(rec, http.StatusCreated)
	created := decode[transactionResponse](t, rec)
	if created.ID == 0 || created.Amount.Cents != 5000 || created.Notes != "Expense" {
		t.Errorf("created = %+v", created)
	}
	// Outside the reported month.
	c.expect(c.do(http.MethodPost, "/api/data/transactions", `{"amount":20,"category":"groceries","date":"2023-12-31"}`), http.StatusCreated)

	rec = c.do(http.MethodGet, "/api/reports/summary?year=2024&month=1", "")
	c.expect(rec, http.StatusOK)
	report := decode[services.Report](t, rec)

	if len(report.CategoryTotals) != 1 || report.CategoryTotals[0].Category != "groceries" || report.CategoryTotals[0].Amount.Cents != 5000 {
		t.Errorf("CategoryTotals = %+v, want groceries 50", report.CategoryTotals)
	}
	if report.Budgets.OnTrack != 1 || report.Budgets.Over != 0 {
		t.Errorf("Budgets = %+v, want 1 on track, 0 over", report.Budgets)
	}
	if report.Summary.Expense.Cents != 5000 || report.Transactions != 1 {
		t.Errorf("Summary = %+v, count = %d", report.Summary, report.Transactions)
	}

	invalid := []struct {
		name string
		body string
	}{
		{"negative amount", `{"amount":-5,"category":"groceries","date":"2024-01-10"}`},
		{"zero amount", `{"amount":0,"category":"groceries","date":"2024-01-10"}`},
		{"bad date", `{"amount":5,"category":"groceries","date":"10/01/2024"}`},
		{"unknown category", `{"amount":5,"category":"yachts","date":"2024-01-10"}`},
		{"bad type", `{"type":"gift","amount":5,"category":"groceries"}`},
		{"bad frequency", `{"amount":5,"category":"groceries","is_recurring":true,"frequency":"hourly"}`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			c.t = t
			c.expect(c.do(http.MethodPost, "/api/data/transactions", tt.body), http.StatusBadRequest)
		})
	}
	c.t = t

	txs := decode[[]core.Transaction](t, c.do(http.MethodGet, "/api/data/transactions", ""))
	if len(txs) != 2 {
		t.Fatalf("listed %d transactions, want 2", len(txs))
	}

	// Another user cannot see or delete them.
	bob := signup(t, srv, "bob@example.com")
	if got := decode[[]core.Transaction](t, bob.do(http.MethodGet, "/api/data/transactions", "")); len(got) != 0 {
		t.Errorf("bob sees %d transactions", len(got))
	}
	bob.expect(bob.do(http.MethodDelete, "/api/data/transactions/"+itoa(created.ID), ""), http.StatusNotFound)

	c.expect(c.do(http.MethodDelete, "/api/data/transactions/"+itoa(created.ID), ""), http.StatusOK)
	c.expect(c.do(http.MethodDelete, "/api/data/transactions/"+itoa(created.ID), ""), http.StatusNotFound)
	c.expect(c.do(http.MethodDelete, "/api/data/transactions/abc", ""), http.StatusNotFound)
}

func TestRecurringCatchUpOnMe(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	c := signup(t, srv, "alice@example.com")

	rec := c.do(http.MethodPost, "/api/data/transactions",
		`{"type":"expense","amount":1200,"category":"rent","date":"2023-11-20","notes":"Rent","is_recurring":true,"frequency":"monthly"}`)
	c.expect(rec, http.StatusCreated)
	created := decode[transactionResponse](t, rec)
	if created.RecurringRule == nil || created.RecurringRule.NextDue.String() != "2023-12-20" || !created.IsRecurring {
		t.Fatalf("created = %+v, rule = %+v", created, created.RecurringRule)
	}

	me := decode[meResponse](t, c.do(http.MethodGet, "/api/auth/me", ""))
	if me.RecurringProcessed != 2 {
		t.Errorf("recurring_processed = %d, want 2", me.RecurringProcessed)
	}
	// Caught up: nothing more to do today.
	if again := decode[meResponse](t, c.do(http.MethodGet, "/api/auth/me", "")); again.RecurringProcessed != 0 {
		t.Errorf("second catch-up processed %d", again.RecurringProcessed)
	}

	txs := decode[[]core.Transaction](t, c.do(http.MethodGet, "/api/data/transactions", ""))
	if len(txs) != 3 {
		t.Fatalf("have %d transactions, want 3", len(txs))
	}
	auto := 0
	for _, tx := range txs {
		if strings.HasSuffix(tx.Notes, core.AutoNoteSuffix) {
			auto++
		}
	}
	if auto != 2 {
		t.Errorf("%d auto transactions, want 2", auto)
	}

	rules := decode[[]core.RecurringRule](t, c.do(http.MethodGet, "/api/data/recurring", ""))
	if len(rules) != 1 || rules[0].NextDue.String() != "2024-02-20" {
		t.Fatalf("rules = %+v", rules)
	}

	cal := decode[services.Calendar](t, c.do(http.MethodGet, "/api/reports/calendar?year=2024&month=2", ""))
	if len(cal.Days) != 29 {
		t.Fatalf("February 2024 has %d days", len(cal.Days))
	}
	if p := cal.Days[19].Projected; len(p) != 1 || p[0].Amount.Cents != 120000 {
		t.Errorf("Feb 20 projected = %+v", p)
	}

	// A standalone rule fires from its next_due.
	rec = c.do(http.MethodPost, "/api/data/recurring", `{"amount":"9.99","category":"entertainment","frequency":"weekly","next_due":"2024-01-18"}`)
	c.expect(rec, http.StatusCreated)
	rule := decode[core.RecurringRule](t, rec)
	if got := decode[processResponse](t, c.do(http.MethodPost, "/api/data/recurring/process", "")); got.Processed != 1 {
		t.Errorf("processed = %d, want 1", got.Processed)
	}
	c.expect(c.do(http.MethodDelete, "/api/data/recurring/"+itoa(rule.ID), ""), http.StatusOK)
	c.expect(c.do(http.MethodPost, "/api/data/recurring", `{"amount":5,"category":"rent","frequency":"fortnightly"}`), http.StatusBadRequest)
}

func TestGoalsAutoTrackAndDeposit(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	c := signup(t, srv, "alice@example.com")

	rec := c.do(http.MethodPost, "/api/data/goals", `{"name":"Dinner fund","target_amount":100,"current_amount":90,"linked_category":"dining"}`)
	c.expect(rec, http.StatusCreated)
	goal := decode[core.Goal](t, rec)

	rec = c.do(http.MethodPost, "/api/data/transactions", `{"amount":20,"category":"dining","date":"2024-01-15"}`)
	c.expect(rec, http.StatusCreated)
	created := decode[transactionResponse](t, rec)
	if len(created.GoalsUpdated) != 1 || created.GoalsUpdated[0].Current.Cents != 10000 || !created.GoalsUpdated[0].Completed {
		t.Fatalf("goals updated = %+v", created.GoalsUpdated)
	}

	c.expect(c.do(http.MethodPost, "/api/data/goals/"+itoa(goal.ID)+"/deposit", `{"amount":5}`), http.StatusBadRequest)

	rec = c.do(http.MethodPost, "/api/data/goals", `{"name":"Bike","target_amount":"300"}`)
	c.expect(rec, http.StatusCreated)
	bike := decode[core.Goal](t, rec)
	rec = c.do(http.MethodPost, "/api/data/goals/"+itoa(bike.ID)+"/deposit", `{"amount":"120.50"}`)
	c.expect(rec, http.StatusOK)
	dep := decode[depositResponse](t, rec)
	if dep.Goal.Current.Cents != 12050 || dep.JustCompleted {
		t.Errorf("deposit = %+v", dep)
	}

	c.expect(c.do(http.MethodPost, "/api/data/goals", `{"name":"","target_amount":10}`), http.StatusBadRequest)
	c.expect(c.do(http.MethodPost, "/api/data/goals/999/deposit", `{"amount":1}`), http.StatusNotFound)
	c.expect(c.do(http.MethodDelete, "/api/data/goals/"+itoa(bike.ID), ""), http.StatusOK)

	goals := decode[[]core.Goal](t, c.do(http.MethodGet, "/api/data/goals", ""))
	if len(goals) != 1 || !goals[0].Completed {
		t.Errorf("goals = %+v", goals)
	}
}

func TestCategoriesBudgetsSettings(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	c := signup(t, srv, "alice@example.com")

	rec := c.do(http.MethodPost, "/api/data/categories", `{"name":"Pet Care","icon":"🐶"}`)
	c.expect(rec, http.StatusCreated)
	if cat := decode[core.Category](t, rec); cat.Key != "pet-care" || cat.Type != core.Expense {
		t.Errorf("category = %+v", cat)
	}
	c.expect(c.do(http.MethodPost, "/api/data/categories", `{"name":"pet care"}`), http.StatusBadRequest)

	c.expect(c.do(http.MethodPost, "/api/data/transactions", `{"amount":30,"category":"pet-care","date":"2024-01-05"}`), http.StatusCreated)
	c.expect(c.do(http.MethodPost, "/api/data/budgets", `{"category":"pet-care","limit_amount":50}`), http.StatusOK)
	// Upsert keeps one row per category.
	c.expect(c.do(http.MethodPost, "/api/data/budgets", `{"category":"pet-care","limit_amount":60}`), http.StatusOK)
	budgets := decode[[]core.Budget](t, c.do(http.MethodGet, "/api/data/budgets", ""))
	if len(budgets) != 1 || budgets[0].Limit.Cents != 6000 {
		t.Errorf("budgets = %+v", budgets)
	}

	c.expect(c.do(http.MethodDelete, "/api/data/categories/pet-care", ""), http.StatusOK)
	c.expect(c.do(http.MethodDelete, "/api/data/categories/uncategorized", ""), http.StatusBadRequest)

	txs := decode[[]core.Transaction](t, c.do(http.MethodGet, "/api/data/transactions", ""))
	if len(txs) != 1 || txs[0].Category != core.CategoryUncategorized {
		t.Errorf("transactions after category delete = %+v", txs)
	}
	if budgets := decode[[]core.Budget](t, c.do(http.MethodGet, "/api/data/budgets", "")); len(budgets) != 0 {
		t.Errorf("budgets after category delete = %+v", budgets)
	}

	settings := decode[core.Settings](t, c.do(http.MethodGet, "/api/data/settings", ""))
	if settings.Currency != "USD" || settings.BudgetStartDay != 1 {
		t.Errorf("default settings = %+v", settings)
	}
	rec = c.do(http.MethodPost, "/api/data/settings", `{"theme":"dark","currency":"eur","language":"it","budget_start_day":5}`)
	c.expect(rec, http.StatusOK)
	if saved := decode[settingsResponse](t, rec); saved.Settings.Currency != "EUR" || saved.Message == "" {
		t.Errorf("saved = %+v", saved)
	}
	c.expect(c.do(http.MethodPost, "/api/data/settings", `{"theme":"neon"}`), http.StatusBadRequest)
	if got := decode[core.Settings](t, c.do(http.MethodGet, "/api/data/settings", "")); got.Theme != "dark" || got.BudgetStartDay != 5 {
		t.Errorf("settings = %+v", got)
	}
}

func TestReportRangeErrors(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	c := signup(t, srv, "alice@example.com")

	for _, q := range []string{"?start=2024-02-01&end=2024-01-01", "?period=decade", "?month=13", "?start=2024-01-01"} {
		c.expect(c.do(http.MethodGet, "/api/reports/summary"+q, ""), http.StatusBadRequest)
	}
	c.expect(c.do(http.MethodGet, "/api/reports/summary?period=last-month", ""), http.StatusOK)
	c.expect(c.do(http.MethodGet, "/api/reports/calendar?month=0", ""), http.StatusBadRequest)
}

func TestGoogleSignIn(t *testing.T) {
	states := auth.NewStateSigner(strings.Repeat("k", 32), time.Minute)
	google := fakeGoogle{profile: auth.GoogleProfile{ID: "g-123", Email: "gina@example.com", Name: "Gina"}}
	srv, repo := newTestServer(t, Options{Google: google, States: states})
	c := &client{t: t, srv: srv}

	rec := c.do(http.MethodGet, "/api/auth/google", "")
	c.expect(rec, http.StatusFound)
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	state := loc.Query().Get("state")
	if state == "" || len(c.cookies) != 1 || c.cookies[0].Value != state {
		t.Fatalf("state = %q, cookies = %v", state, c.cookies)
	}

	// Mismatched state is rejected before the code exchange.
	rec = c.do(http.MethodGet, "/api/auth/google/callback?state=forged&code=good-code", "")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != googleFailureRedirect {
		t.Fatalf("forged state: %d %s", rec.Code, rec.Header().Get("Location"))
	}

	c.cookies = []*http.Cookie{{Name: stateCookieName, Value: state}}
	rec = c.do(http.MethodGet, "/api/auth/google/callback?state="+url.QueryEscape(state)+"&code=good-code", "")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != googleSuccessRedirect {
		t.Fatalf("callback: %d %s", rec.Code, rec.Header().Get("Location"))
	}

	me := decode[meResponse](t, c.do(http.MethodGet, "/api/auth/me", ""))
	if !me.Authenticated || me.User.Email != "gina@example.com" || me.User.SocialProvider != auth.ProviderGoogle {
		t.Fatalf("me = %+v", me)
	}
	if cats, err := repo.ListCategories(context.Background(), me.User.ID); err != nil || len(cats) != len(core.DefaultCategories) {
		t.Errorf("google user categories = %d, %v", len(cats), err)
	}
}

func TestGoogleSignInDisabled(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	c := &client{t: t, srv: srv}
	c.expect(c.do(http.MethodGet, "/api/auth/google", ""), http.StatusNotFound)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
