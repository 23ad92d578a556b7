package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"budgetapp/internal/amqp"
	"budgetapp/internal/core"
	"budgetapp/internal/storage"
)

// fakeStore is an in-memory stand-in for storage.SQLiteRepository.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]core.User
	sessions map[string]core.Session
	cats     map[int64][]core.Category
	txs      []core.Transaction
	rules    []core.RecurringRule
	budgets  []core.Budget
	goals    []core.Goal
	settings map[int64]core.Settings

	saveErr         error
	getSessionCalls int
	runs            []storage.RecurringRun
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[int64]core.User),
		sessions: make(map[string]core.Session),
		cats:     make(map[int64][]core.Category),
		settings: make(map[int64]core.Settings),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

// addUser registers a user with the default categories.
func (f *fakeStore) addUser(email string) core.User {
	u, _ := f.RegisterUser(context.Background(), core.User{Email: email, Name: "Test"})
	return u
}

func (f *fakeStore) RegisterUser(_ context.Context, u core.User) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return core.User{}, core.ErrDuplicateEmail
		}
	}
	u.ID = f.id()
	f.users[u.ID] = u
	f.cats[u.ID] = append([]core.Category(nil), core.DefaultCategories...)
	return u, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (f *fakeStore) LinkSocialAccount(_ context.Context, userID int64, provider, socialID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[userID]
	if u.SocialID == "" {
		u.SocialProvider, u.SocialID = provider, socialID
		f.users[userID] = u
	}
	return nil
}

func (f *fakeStore) CreateSession(_ context.Context, s core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.Token] = s
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, token string) (core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getSessionCalls++
	s, ok := f.sessions[token]
	if !ok {
		return core.Session{}, core.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) DeleteSession(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
	return nil
}

func (f *fakeStore) CategoryExists(_ context.Context, userID int64, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cats[userID] {
		if c.Key == key {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListCategories(_ context.Context, userID int64) ([]core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Category(nil), f.cats[userID]...), nil
}

func (f *fakeStore) CreateCategory(_ context.Context, userID int64, c core.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.cats[userID] {
		if existing.Key == c.Key {
			return core.ErrDuplicateCategory
		}
	}
	f.cats[userID] = append(f.cats[userID], c)
	return nil
}

func (f *fakeStore) RemoveCategory(_ context.Context, userID int64, key string) error {
	if core.IsProtectedCategory(key) {
		return core.ErrProtectedCategory
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cats := f.cats[userID][:0]
	found := false
	for _, c := range f.cats[userID] {
		if c.Key == key {
			found = true
			continue
		}
		cats = append(cats, c)
	}
	if !found {
		return core.ErrNotFound
	}
	f.cats[userID] = cats
	for i := range f.txs {
		if f.txs[i].OwnerID == userID && f.txs[i].Category == key {
			f.txs[i].Category = core.CategoryUncategorized
		}
	}
	return nil
}

func (f *fakeStore) ListTransactions(_ context.Context, userID int64) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Transaction
	for _, tx := range f.txs {
		if tx.OwnerID == userID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (f *fakeStore) ListTransactionsBetween(ctx context.Context, userID int64, start, end core.Date) ([]core.Transaction, error) {
	all, _ := f.ListTransactions(ctx, userID)
	return FilterByPeriod(all, start, end), nil
}

func (f *fakeStore) LatestTransactionDate(ctx context.Context, userID int64) (core.Date, error) {
	all, _ := f.ListTransactions(ctx, userID)
	if len(all) == 0 {
		return core.Date{}, nil
	}
	return all[0].Date, nil
}

func (f *fakeStore) insertTx(tx core.Transaction) core.Transaction {
	tx.ID = f.id()
	f.txs = append(f.txs, tx)
	return tx
}

func (f *fakeStore) storeGoals(goals []core.Goal) {
	for _, g := range goals {
		for i := range f.goals {
			if f.goals[i].ID == g.ID {
				f.goals[i] = g
			}
		}
	}
}

func (f *fakeStore) RecordTransaction(_ context.Context, tx core.Transaction, goals []core.Goal) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return core.Transaction{}, f.saveErr
	}
	created := f.insertTx(tx)
	f.storeGoals(goals)
	return created, nil
}

func (f *fakeStore) CreateRecurringTransaction(_ context.Context, rule core.RecurringRule, first core.Transaction, goals []core.Goal) (core.RecurringRule, core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return core.RecurringRule{}, core.Transaction{}, f.saveErr
	}
	rule.ID = f.id()
	f.rules = append(f.rules, rule)
	first.RecurringRuleID = rule.ID
	first.IsRecurring = true
	created := f.insertTx(first)
	f.storeGoals(goals)
	return rule, created, nil
}

func (f *fakeStore) DeleteTransaction(_ context.Context, userID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, tx := range f.txs {
		if tx.ID == id && tx.OwnerID == userID {
			f.txs = append(f.txs[:i], f.txs[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) ListRecurringRules(_ context.Context, userID int64) ([]core.RecurringRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.RecurringRule
	for _, r := range f.rules {
		if r.OwnerID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListDueRecurringRules(_ context.Context, userID int64, today core.Date) ([]core.RecurringRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.RecurringRule
	for _, r := range f.rules {
		if r.OwnerID == userID && r.Active && !r.NextDue.After(today) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateRecurringRule(_ context.Context, r core.RecurringRule) (core.RecurringRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = f.id()
	f.rules = append(f.rules, r)
	return r, nil
}

func (f *fakeStore) DeleteRecurringRule(_ context.Context, userID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rules {
		if r.ID == id && r.OwnerID == userID {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) SaveRecurringRun(_ context.Context, run storage.RecurringRun) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.runs = append(f.runs, run)
	var created []core.Transaction
	for _, tx := range run.Transactions {
		created = append(created, f.insertTx(tx))
	}
	for _, r := range run.Rules {
		for i := range f.rules {
			if f.rules[i].ID == r.ID {
				f.rules[i].NextDue = r.NextDue
			}
		}
	}
	f.storeGoals(run.Goals)
	return created, nil
}

func (f *fakeStore) ListBudgets(_ context.Context, userID int64) ([]core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Budget
	for _, b := range f.budgets {
		if b.OwnerID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.budgets {
		if f.budgets[i].OwnerID == b.OwnerID && f.budgets[i].Category == b.Category {
			b.ID = f.budgets[i].ID
			f.budgets[i] = b
			return b, nil
		}
	}
	b.ID = f.id()
	f.budgets = append(f.budgets, b)
	return b, nil
}

func (f *fakeStore) DeleteBudget(_ context.Context, userID int64, category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.budgets {
		if b.OwnerID == userID && b.Category == category {
			f.budgets = append(f.budgets[:i], f.budgets[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) ListGoals(_ context.Context, userID int64) ([]core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Goal
	for _, g := range f.goals {
		if g.OwnerID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) GetGoal(_ context.Context, userID, id int64) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.goals {
		if g.ID == id && g.OwnerID == userID {
			return g, nil
		}
	}
	return core.Goal{}, core.ErrNotFound
}

func (f *fakeStore) CreateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g.ID = f.id()
	f.goals = append(f.goals, g)
	return g, nil
}

func (f *fakeStore) DepositToGoal(_ context.Context, g core.Goal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storeGoals([]core.Goal{g})
	return nil
}

func (f *fakeStore) DeleteGoal(_ context.Context, userID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, g := range f.goals {
		if g.ID == id && g.OwnerID == userID {
			f.goals = append(f.goals[:i], f.goals[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) GetSettings(_ context.Context, userID int64) (core.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.settings[userID]; ok {
		return s, nil
	}
	return core.DefaultSettings(userID), nil
}

func (f *fakeStore) UpsertSettings(_ context.Context, s core.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[s.OwnerID] = s
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, evt *amqp.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func cents(c int64) core.Money { return core.Money{Cents: c} }
