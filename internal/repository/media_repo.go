package repository

import (
	"context"

	"github.com/krai/engine/internal/models"
	"gorm.io/gorm"
)

type gormImageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates an ImageRepository backed by db.
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &gormImageRepository{db: db}
}

func (r *gormImageRepository) InsertBatch(ctx context.Context, images []*models.Image) error {
	if len(images) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(images, 100).Error
}

func (r *gormImageRepository) ListByDocument(ctx context.Context, documentID models.ULID) ([]*models.Image, error) {
	var images []*models.Image
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("page_number ASC").
		Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

type gormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates a LinkRepository backed by db.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &gormLinkRepository{db: db}
}

func (r *gormLinkRepository) InsertBatch(ctx context.Context, links []*models.Link) error {
	if len(links) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(links, 100).Error
}

func (r *gormLinkRepository) ListByDocument(ctx context.Context, documentID models.ULID) ([]*models.Link, error) {
	var links []*models.Link
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("page_number ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (r *gormLinkRepository) UpdateValidation(ctx context.Context, id models.ULID, status models.ValidationStatus, resolvedURL *string) error {
	return r.db.WithContext(ctx).Model(&models.Link{}).Where("id = ?", id).Updates(map[string]any{
		"validation_status": status,
		"resolved_url":      resolvedURL,
		"last_checked_at":   models.Now(),
	}).Error
}

type gormVideoRepository struct {
	db *gorm.DB
}

// NewVideoRepository creates a VideoRepository backed by db.
func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &gormVideoRepository{db: db}
}

func (r *gormVideoRepository) InsertBatch(ctx context.Context, videos []*models.Video) error {
	if len(videos) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(videos, 100).Error
}

func (r *gormVideoRepository) ListByDocument(ctx context.Context, documentID models.ULID) ([]*models.Video, error) {
	var videos []*models.Video
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("page_number ASC").
		Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

func (r *gormVideoRepository) UpdateValidation(ctx context.Context, id models.ULID, status models.ValidationStatus) error {
	return r.db.WithContext(ctx).Model(&models.Video{}).Where("id = ?", id).Updates(map[string]any{
		"validation_status": status,
		"last_checked_at":   models.Now(),
	}).Error
}
