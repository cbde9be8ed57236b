package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/supportdesk/backend/internal/domain/marketplace"
	"github.com/supportdesk/backend/internal/domain/shared"
	"github.com/supportdesk/backend/internal/infrastructure/persistence/models"
)

// GormCredentialRepository implements marketplace.CredentialRepository using GORM
type GormCredentialRepository struct {
	db *gorm.DB
}

// NewGormCredentialRepository creates a new GormCredentialRepository
func NewGormCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

// ActiveProfileIDs returns the distinct profiles with at least one active credential
func (r *GormCredentialRepository) ActiveProfileIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.CredentialModel{}).
		Where("active = ?", true).
		Distinct("profile_id").
		Order("profile_id").
		Pluck("profile_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// FindActiveByProfile returns all active credentials of one profile
func (r *GormCredentialRepository) FindActiveByProfile(ctx context.Context, profileID uuid.UUID) ([]marketplace.Credential, error) {
	var credentialModels []models.CredentialModel
	if err := r.db.WithContext(ctx).
		Where("profile_id = ? AND active = ?", profileID, true).
		Order("created_at").
		Find(&credentialModels).Error; err != nil {
		return nil, err
	}

	credentials := make([]marketplace.Credential, len(credentialModels))
	for i, model := range credentialModels {
		credentials[i] = model.ToDomain()
	}
	return credentials, nil
}

// FindByID finds a credential by its identifier
func (r *GormCredentialRepository) FindByID(ctx context.Context, id uuid.UUID) (marketplace.Credential, error) {
	var model models.CredentialModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return marketplace.Credential{}, shared.ErrNotFound
		}
		return marketplace.Credential{}, err
	}
	return model.ToDomain(), nil
}

// Save persists a credential
func (r *GormCredentialRepository) Save(ctx context.Context, cred marketplace.Credential) error {
	var model models.CredentialModel
	model.FromDomain(cred)
	return r.db.WithContext(ctx).Save(&model).Error
}

// Ensure GormCredentialRepository implements CredentialRepository
var _ marketplace.CredentialRepository = (*GormCredentialRepository)(nil)
