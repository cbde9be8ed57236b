package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/supportdesk/backend/internal/domain/shared"
	"github.com/supportdesk/backend/internal/domain/support"
	"github.com/supportdesk/backend/internal/infrastructure/persistence/models"
)

// GormTicketRepository implements support.TicketRepository using GORM
type GormTicketRepository struct {
	db *gorm.DB
}

// NewGormTicketRepository creates a new GormTicketRepository
func NewGormTicketRepository(db *gorm.DB) *GormTicketRepository {
	return &GormTicketRepository{db: db}
}

// FindByID finds a ticket by its local identifier
func (r *GormTicketRepository) FindByID(ctx context.Context, id uuid.UUID) (*support.Ticket, error) {
	var model models.TicketModel
	if err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalID finds the ticket mirroring an external entity
func (r *GormTicketRepository) FindByExternalID(ctx context.Context, channel support.Channel, externalID string) (*support.Ticket, error) {
	var model models.TicketModel
	if err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		Where("channel = ? AND external_id = ?", channel.String(), externalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsByExternalID reports whether a ticket for the external entity exists
func (r *GormTicketRepository) ExistsByExternalID(ctx context.Context, channel support.Channel, externalID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TicketModel{}).
		Where("channel = ? AND external_id = ?", channel.String(), externalID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsByExternalMessageID reports whether any ticket holds a message with
// the given external ID
func (r *GormTicketRepository) ExistsByExternalMessageID(ctx context.Context, externalID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Where("external_id = ?", externalID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Upsert persists the ticket row (last-write-wins) and appends its new
// messages. Message rows are insert-only: conflicts on an existing message
// are ignored so a concurrent writer can never shrink or rewrite history.
func (r *GormTicketRepository) Upsert(ctx context.Context, ticket *support.Ticket) error {
	var model models.TicketModel
	model.FromDomain(ticket)

	messages := model.Messages
	model.Messages = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"title", "status", "priority", "updated_at",
				}),
			}).
			Create(&model).Error; err != nil {
			return err
		}

		if len(messages) == 0 {
			return nil
		}

		return tx.
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&messages).Error
	})
}

// Ensure GormTicketRepository implements TicketRepository
var _ support.TicketRepository = (*GormTicketRepository)(nil)
