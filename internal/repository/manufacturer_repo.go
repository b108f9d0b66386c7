package repository

import (
	"context"
	"errors"

	"github.com/krai/engine/internal/models"
	"gorm.io/gorm"
)

type gormManufacturerRepository struct {
	db *gorm.DB
}

// NewManufacturerRepository creates a ManufacturerRepository backed by db.
func NewManufacturerRepository(db *gorm.DB) ManufacturerRepository {
	return &gormManufacturerRepository{db: db}
}

func (r *gormManufacturerRepository) Get(ctx context.Context, id models.ULID) (*models.Manufacturer, error) {
	var m models.Manufacturer
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormManufacturerRepository) GetByName(ctx context.Context, name string) (*models.Manufacturer, error) {
	var m models.Manufacturer
	normalized := models.NormalizeManufacturerName(name)
	if err := r.db.WithContext(ctx).Where("lower(name) = ?", normalized).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// GetOrCreate resolves a manufacturer by its case-insensitive name,
// creating it with the given pattern key on first sight. Concurrent
// creates racing on the same name are resolved by retrying the lookup
// after a unique-constraint failure rather than locking.
func (r *gormManufacturerRepository) GetOrCreate(ctx context.Context, name, patternKey string) (*models.Manufacturer, error) {
	if m, err := r.GetByName(ctx, name); err == nil {
		return m, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	m := &models.Manufacturer{Name: name, PatternKey: patternKey}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueConstraintErr(err) {
			return r.GetByName(ctx, name)
		}
		return nil, err
	}
	return m, nil
}

func (r *gormManufacturerRepository) List(ctx context.Context) ([]*models.Manufacturer, error) {
	var ms []*models.Manufacturer
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	return ms, nil
}

type gormProductSeriesRepository struct {
	db *gorm.DB
}

// NewProductSeriesRepository creates a ProductSeriesRepository backed by db.
func NewProductSeriesRepository(db *gorm.DB) ProductSeriesRepository {
	return &gormProductSeriesRepository{db: db}
}

func (r *gormProductSeriesRepository) GetOrCreate(ctx context.Context, manufacturerID models.ULID, name string) (*models.ProductSeries, error) {
	var s models.ProductSeries
	err := r.db.WithContext(ctx).Where("manufacturer_id = ? AND name = ?", manufacturerID, name).First(&s).Error
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	s = models.ProductSeries{ManufacturerID: manufacturerID, Name: name}
	if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
		if isUniqueConstraintErr(err) {
			return r.GetOrCreate(ctx, manufacturerID, name)
		}
		return nil, err
	}
	return &s, nil
}

type gormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a ProductRepository backed by db.
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &gormProductRepository{db: db}
}

func (r *gormProductRepository) Get(ctx context.Context, id models.ULID) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormProductRepository) GetByModelNumber(ctx context.Context, manufacturerID models.ULID, modelNumber string) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).
		Where("manufacturer_id = ? AND model_number = ?", manufacturerID, modelNumber).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormProductRepository) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}
