package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"gorm.io/gorm"
)

// ProductRepository is the catalog collaborator: it serves the live per-unit
// impact factors requests snapshot from, and per-product request stats.
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context, upcyclableOnly bool, page, limit int) ([]model.Product, int64, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id string) error
	RequestStats(ctx context.Context, id string) (model.ProductRequestStats, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, upcyclableOnly bool, page, limit int) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Product{})
	if upcyclableOnly {
		query = query.Where("upcyclable = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// Delete removes a catalog product. Deletion is restricted by the database
// while any upcycle request still references the product.
func (r *productRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Product{}).Error
}

// RequestStats returns how many upcycle requests reference the product and
// the date of the most recent one, across all lifecycle states.
func (r *productRepository) RequestStats(ctx context.Context, id string) (model.ProductRequestStats, error) {
	var row struct {
		RequestCount    int64
		LastRequestDate *time.Time
	}
	err := r.db.WithContext(ctx).Model(&model.UpcycleRequest{}).
		Select("COUNT(*) as request_count, MAX(request_date) as last_request_date").
		Where("product_id = ?", id).
		Scan(&row).Error
	if err != nil {
		return model.ProductRequestStats{}, err
	}
	return model.ProductRequestStats{
		RequestCount:    row.RequestCount,
		LastRequestDate: row.LastRequestDate,
	}, nil
}
