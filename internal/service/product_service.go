package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateProductRequest struct {
	SKU         string  `json:"sku" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Upcyclable  bool    `json:"upcyclable"`
	CO2ePerUnit float64 `json:"co2e_per_unit" binding:"gte=0"`
	CostPerUnit float64 `json:"cost_per_unit" binding:"gte=0"`
}

type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Upcyclable  *bool    `json:"upcyclable"`
	CO2ePerUnit *float64 `json:"co2e_per_unit"`
	CostPerUnit *float64 `json:"cost_per_unit"`
}

type ProductResponse struct {
	ID          string  `json:"id"`
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Upcyclable  bool    `json:"upcyclable"`
	CO2ePerUnit float64 `json:"co2e_per_unit"`
	CostPerUnit float64 `json:"cost_per_unit"`
	CreatedAt   string  `json:"created_at"`
}

// --- Interface ---

// ProductService manages the upcyclable catalog. Editing a product's
// factors only affects future snapshots; existing requests keep theirs.
type ProductService interface {
	CreateProduct(ctx context.Context, actorID string, req CreateProductRequest) (*ProductResponse, error)
	GetProduct(ctx context.Context, id string) (*ProductResponse, error)
	GetProductStats(ctx context.Context, id string) (*model.ProductRequestStats, error)
	ListProducts(ctx context.Context, upcyclableOnly bool, page, limit int) ([]ProductResponse, int64, error)
	UpdateProduct(ctx context.Context, actorID string, id string, req UpdateProductRequest) (*ProductResponse, error)
	DeleteProduct(ctx context.Context, actorID string, id string) error
}

type productService struct {
	repo repository.ProductRepository
	db   *gorm.DB
}

func NewProductService(repo repository.ProductRepository, db *gorm.DB) ProductService {
	return &productService{repo: repo, db: db}
}

// --- Implementation ---

func (s *productService) CreateProduct(ctx context.Context, actorID string, req CreateProductRequest) (*ProductResponse, error) {
	product := &model.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Upcyclable:  req.Upcyclable,
		CO2ePerUnit: req.CO2ePerUnit,
		CostPerUnit: req.CostPerUnit,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.audit(ctx, actorID, model.ActionCreateProduct, product)

	resp := toProductResponse(product)
	return &resp, nil
}

func (s *productService) GetProduct(ctx context.Context, id string) (*ProductResponse, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.New("product not found")
	}
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *productService) GetProductStats(ctx context.Context, id string) (*model.ProductRequestStats, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, errors.New("product not found")
	}
	stats, err := s.repo.RequestStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load product stats: %w", err)
	}
	return &stats, nil
}

func (s *productService) ListProducts(ctx context.Context, upcyclableOnly bool, page, limit int) ([]ProductResponse, int64, error) {
	products, total, err := s.repo.List(ctx, upcyclableOnly, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	responses := make([]ProductResponse, 0, len(products))
	for i := range products {
		responses = append(responses, toProductResponse(&products[i]))
	}
	return responses, total, nil
}

func (s *productService) UpdateProduct(ctx context.Context, actorID string, id string, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.New("product not found")
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Upcyclable != nil {
		product.Upcyclable = *req.Upcyclable
	}
	if req.CO2ePerUnit != nil {
		product.CO2ePerUnit = *req.CO2ePerUnit
	}
	if req.CostPerUnit != nil {
		product.CostPerUnit = *req.CostPerUnit
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	s.audit(ctx, actorID, model.ActionUpdateProduct, product)

	resp := toProductResponse(product)
	return &resp, nil
}

func (s *productService) DeleteProduct(ctx context.Context, actorID string, id string) error {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return errors.New("product not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if isForeignKeyViolation(err) {
			return &ValidationError{Message: "Product is still referenced by upcycle requests and cannot be deleted"}
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.audit(ctx, actorID, model.ActionDeleteProduct, product)
	return nil
}

func (s *productService) audit(ctx context.Context, actorID string, action string, product *model.Product) {
	var userID *uuid.UUID
	if parsed, err := uuid.Parse(actorID); err == nil {
		userID = &parsed
	}
	details, _ := json.Marshal(map[string]interface{}{
		"sku":           product.SKU,
		"co2e_per_unit": product.CO2ePerUnit,
		"cost_per_unit": product.CostPerUnit,
	})
	s.db.WithContext(ctx).Create(&model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   product.ID.String(),
		EntityName: product.Name,
		Details:    string(details),
	})
}

func toProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID.String(),
		SKU:         p.SKU,
		Name:        p.Name,
		Upcyclable:  p.Upcyclable,
		CO2ePerUnit: p.CO2ePerUnit,
		CostPerUnit: p.CostPerUnit,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

// isForeignKeyViolation detects a restrict-on-delete rejection from the
// database without depending on driver-specific error types.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key") || strings.Contains(msg, "violates")
}
