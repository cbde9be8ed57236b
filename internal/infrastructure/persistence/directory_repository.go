package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/supportdesk/backend/internal/domain/shared"
	"github.com/supportdesk/backend/internal/infrastructure/persistence/models"
)

// GormDirectoryRepository serves the order and product directory lookups
// the sync handlers resolve against. It implements both the order profile
// resolver and the product title resolver ports.
type GormDirectoryRepository struct {
	db *gorm.DB
}

// NewGormDirectoryRepository creates a new GormDirectoryRepository
func NewGormDirectoryRepository(db *gorm.DB) *GormDirectoryRepository {
	return &GormDirectoryRepository{db: db}
}

// ResolveByOrder returns the profile owning the order number, or
// shared.ErrNotFound when the order is unknown locally
func (r *GormDirectoryRepository) ResolveByOrder(ctx context.Context, orderNumber string) (uuid.UUID, error) {
	var model models.OrderRefModel
	if err := r.db.WithContext(ctx).First(&model, "order_number = ?", orderNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, shared.ErrNotFound
		}
		return uuid.Nil, err
	}
	return model.ProfileID, nil
}

// TitleByArticle returns the catalog title for an article, or
// shared.ErrNotFound when the article is unknown
func (r *GormDirectoryRepository) TitleByArticle(ctx context.Context, article string) (string, error) {
	var model models.ProductRefModel
	if err := r.db.WithContext(ctx).First(&model, "article = ?", article).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return model.Title, nil
}

// SaveOrderRef upserts one order directory entry keyed by order number.
// The row identity and timestamps are filled in on create.
func (r *GormDirectoryRepository) SaveOrderRef(ctx context.Context, orderNumber string, profileID uuid.UUID) error {
	model := models.OrderRefModel{
		OrderNumber: orderNumber,
		ProfileID:   profileID,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"profile_id", "updated_at"}),
	}).Create(&model).Error
}

// SaveProductRef upserts one product directory entry keyed by article
func (r *GormDirectoryRepository) SaveProductRef(ctx context.Context, article, title string) error {
	model := models.ProductRefModel{
		Article: article,
		Title:   title,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "article"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "updated_at"}),
	}).Create(&model).Error
}
