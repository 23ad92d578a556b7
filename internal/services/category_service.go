package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"budgetapp/internal/core"
)

// CategoryService manages a user's category table.
type CategoryService struct {
	store CategoryStore
}

func NewCategoryService(store CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) List(ctx context.Context, userID int64) ([]core.Category, error) {
	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Create adds a category whose key is derived from its name.
func (s *CategoryService) Create(ctx context.Context, userID int64, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Key = core.CategoryKey(c.Name)
	if c.Type == "" {
		c.Type = core.Expense
	}
	if c.Icon == "" {
		c.Icon = "📁"
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.store.CreateCategory(ctx, userID, c); err != nil {
		return core.Category{}, err
	}
	slog.InfoContext(ctx, "Category created", "user_id", userID, "category", c.Key)
	return c, nil
}

// Delete moves everything filed under key to uncategorized and removes the
// category.
func (s *CategoryService) Delete(ctx context.Context, userID int64, key string) error {
	return s.store.RemoveCategory(ctx, userID, key)
}
