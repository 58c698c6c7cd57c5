package repository

import (
	"time"

	"perks/internal/models"

	"gorm.io/gorm"
)

type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Create(c *models.APICredential) error {
	return r.db.Create(c).Error
}

func (r *CredentialRepository) GetByPrefix(prefix string) (*models.APICredential, error) {
	var c models.APICredential
	err := r.db.Where("key_prefix = ?", prefix).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CredentialRepository) ListByMerchant(merchantID uint) ([]models.APICredential, error) {
	var creds []models.APICredential
	err := r.db.Where("merchant_id = ?", merchantID).Order("id DESC").Find(&creds).Error
	return creds, err
}

func (r *CredentialRepository) TouchLastUsed(id uint) error {
	return r.db.Model(&models.APICredential{}).
		Where("id = ?", id).
		Update("last_used_at", time.Now()).Error
}

func (r *CredentialRepository) Revoke(id uint) error {
	res := r.db.Model(&models.APICredential{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
