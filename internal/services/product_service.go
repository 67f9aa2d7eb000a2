package services

import (
	"context"

	"tbarimtBack/internal/models"
)

type ProductCatalog interface {
	GetByID(ctx context.Context, id int) (models.Product, error)
	GetByUser(ctx context.Context, userID int) ([]models.Product, error)
}

type ProductService struct {
	Products ProductCatalog
}

func (s *ProductService) GetByID(ctx context.Context, id int) (models.Product, error) {
	return s.Products.GetByID(ctx, id)
}

func (s *ProductService) GetByUser(ctx context.Context, userID int) ([]models.Product, error) {
	return s.Products.GetByUser(ctx, userID)
}
