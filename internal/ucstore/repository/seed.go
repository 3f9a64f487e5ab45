package repository

import (
	"fmt"
	"time"

	"github.com/25x8/uc-store/internal/ucstore/models"
	"github.com/25x8/uc-store/internal/ucstore/utils"
	"github.com/google/uuid"
)

type seedBundle struct {
	ucAmount      int
	price         float64
	discountPrice float64
}

// seedBundles is the fixed catalog every fresh store starts with
var seedBundles = []seedBundle{
	{60, 25.00, 19.99},
	{325, 100.00, 89.99},
	{660, 200.00, 179.99},
	{1800, 500.00, 449.99},
	{3850, 1000.00, 899.99},
}

// SeedProducts builds the initial catalog with fresh ids
func SeedProducts(now time.Time) []models.Product {
	products := make([]models.Product, 0, len(seedBundles))
	for i, b := range seedBundles {
		products = append(products, models.Product{
			ID:              uuid.New().String(),
			Title:           fmt.Sprintf("%d UC", b.ucAmount),
			UCAmount:        b.ucAmount,
			Price:           b.price,
			DiscountPrice:   b.discountPrice,
			DiscountPercent: utils.DiscountPercent(b.price, b.discountPrice),
			Active:          true,
			SortOrder:       i + 1,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return products
}
