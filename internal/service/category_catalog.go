package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"strata-violations/internal/model"
	"strata-violations/internal/repository"
)

const activeCategoriesKey = "categories:active"

// CategoryCatalog serves violation categories from a short-lived cache.
type CategoryCatalog struct {
	repo  *repository.CategoryRepository
	cache *cache.Cache
}

func NewCategoryCatalog(repo *repository.CategoryRepository, ttl time.Duration) *CategoryCatalog {
	return &CategoryCatalog{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CategoryCatalog) Active(ctx context.Context) ([]model.ViolationCategory, error) {
	if cached, ok := c.cache.Get(activeCategoriesKey); ok {
		return cached.([]model.ViolationCategory), nil
	}

	categories, err := c.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(activeCategoriesKey, categories)
	return categories, nil
}

func (c *CategoryCatalog) Get(ctx context.Context, id int64) (*model.ViolationCategory, error) {
	key := "category:" + strconv.FormatInt(id, 10)
	if cached, ok := c.cache.Get(key); ok {
		category := cached.(model.ViolationCategory)
		return &category, nil
	}

	category, err := c.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %d", ErrNotFound, id)
		}
		return nil, err
	}
	c.cache.SetDefault(key, *category)
	return category, nil
}

// Flush drops every cached entry.
func (c *CategoryCatalog) Flush() {
	c.cache.Flush()
}
