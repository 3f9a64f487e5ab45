package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/25x8/uc-store/internal/ucstore/logger"
	"github.com/25x8/uc-store/internal/ucstore/models"
	"github.com/25x8/uc-store/internal/ucstore/repository"
	"github.com/25x8/uc-store/internal/ucstore/utils"
)

// CatalogService manages the UC bundle catalog
type CatalogService struct {
	repo  repository.Repository
	audit *Auditor
	now   func() time.Time
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo repository.Repository) *CatalogService {
	return &CatalogService{repo: repo, audit: NewAuditor(repo), now: time.Now}
}

// ListActive returns the products currently on sale
func (s *CatalogService) ListActive(ctx context.Context) ([]models.Product, error) {
	return s.repo.ListProducts(ctx, true)
}

// ListAll returns every product, including soft-deleted ones
func (s *CatalogService) ListAll(ctx context.Context) ([]models.Product, error) {
	return s.repo.ListProducts(ctx, false)
}

// Get returns a single product
func (s *CatalogService) Get(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}
	return p, nil
}

// Update applies a partial update and recomputes the discount percentage
func (s *CatalogService) Update(ctx context.Context, id string, upd models.ProductUpdate) (*models.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" || len(title) > 100 {
			return nil, fmt.Errorf("title must be 1-100 characters: %w", models.ErrValidation)
		}
		p.Title = title
	}
	if upd.UCAmount != nil {
		if *upd.UCAmount < 1 {
			return nil, fmt.Errorf("ucAmount must be positive: %w", models.ErrValidation)
		}
		p.UCAmount = *upd.UCAmount
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.DiscountPrice != nil {
		p.DiscountPrice = *upd.DiscountPrice
	}
	if upd.Active != nil {
		p.Active = *upd.Active
	}
	if upd.SortOrder != nil {
		if *upd.SortOrder < 0 {
			return nil, fmt.Errorf("sortOrder must not be negative: %w", models.ErrValidation)
		}
		p.SortOrder = *upd.SortOrder
	}

	if p.Price <= 0 {
		return nil, fmt.Errorf("price must be positive: %w", models.ErrValidation)
	}
	if p.DiscountPrice < 0 || p.DiscountPrice > p.Price {
		return nil, fmt.Errorf("discountPrice must be between 0 and price: %w", models.ErrValidation)
	}
	if upd.DiscountPercent != nil && !utils.DiscountConsistent(p.Price, p.DiscountPrice, *upd.DiscountPercent) {
		return nil, fmt.Errorf("discountPercent %.2f does not match price and discountPrice: %w",
			*upd.DiscountPercent, models.ErrValidation)
	}

	p.DiscountPercent = utils.DiscountPercent(p.Price, p.DiscountPrice)
	p.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, logger.ActionProductUpdate, "product", p.ID,
		"price", p.Price, "discount_price", p.DiscountPrice, "active", p.Active, "sort_order", p.SortOrder)
	return p, nil
}

// SoftDelete marks a product inactive. Deleting an inactive product succeeds.
func (s *CatalogService) SoftDelete(ctx context.Context, id string) error {
	if err := s.repo.DeactivateProduct(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, logger.ActionProductDelete, "product", id)
	return nil
}
