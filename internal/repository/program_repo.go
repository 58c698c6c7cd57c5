package repository

import (
	"errors"

	"perks/internal/domain"
	"perks/internal/models"

	"gorm.io/gorm"
)

type ProgramRepository struct {
	db *gorm.DB
}

func NewProgramRepository(db *gorm.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

// Create inserts a merchant's program. A merchant has at most one program;
// the unique index on merchant_id backs this check.
func (r *ProgramRepository) Create(p *models.LoyaltyProgram) error {
	var existing models.LoyaltyProgram
	err := r.db.Where("merchant_id = ?", p.MerchantID).First(&existing).Error
	if err == nil {
		return domain.ErrProgramExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.Create(p).Error
}

func (r *ProgramRepository) GetByMerchant(merchantID uint) (*models.LoyaltyProgram, error) {
	var p models.LoyaltyProgram
	err := r.db.Where("merchant_id = ?", merchantID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProgramNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetActiveByMerchant resolves the program that earn/redeem operations run
// against. A deactivated program is treated the same as a missing one.
func (r *ProgramRepository) GetActiveByMerchant(merchantID uint) (*models.LoyaltyProgram, error) {
	var p models.LoyaltyProgram
	err := r.db.Where("merchant_id = ? AND is_active = ?", merchantID, true).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProgramNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProgramRepository) Update(p *models.LoyaltyProgram) error {
	return r.db.Save(p).Error
}

func (r *ProgramRepository) SetActive(merchantID uint, active bool) error {
	res := r.db.Model(&models.LoyaltyProgram{}).
		Where("merchant_id = ?", merchantID).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrProgramNotFound
	}
	return nil
}
