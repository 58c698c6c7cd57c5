package repository

import (
	"errors"

	"perks/internal/domain"
	"perks/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VenueRewardRepository struct {
	db *gorm.DB
}

func NewVenueRewardRepository(db *gorm.DB) *VenueRewardRepository {
	return &VenueRewardRepository{db: db}
}

func (r *VenueRewardRepository) Create(vr *models.VenueReward) error {
	return r.db.Create(vr).Error
}

func (r *VenueRewardRepository) GetByID(id uint) (*models.VenueReward, error) {
	var vr models.VenueReward
	err := r.db.First(&vr, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRewardNotFound
	}
	if err != nil {
		return nil, err
	}
	return &vr, nil
}

func (r *VenueRewardRepository) Update(vr *models.VenueReward) error {
	return r.db.Save(vr).Error
}

func (r *VenueRewardRepository) ListByMerchant(merchantID uint, limit, offset int) ([]models.VenueReward, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rewards []models.VenueReward
	err := r.db.Where("merchant_id = ?", merchantID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rewards).Error
	return rewards, err
}

func (r *VenueRewardRepository) ListActive() ([]models.VenueReward, error) {
	var rewards []models.VenueReward
	err := r.db.Where("is_active = ?", true).Order("id DESC").Find(&rewards).Error
	return rewards, err
}

// InsertClaim records a claim after re-checking both claim limits under a
// lock on the reward row, so two users claiming the last remaining slot
// cannot both get it. The limits are read from the locked row, not from
// whatever the caller fetched earlier.
func (r *VenueRewardRepository) InsertClaim(rewardID, userID uint, code string, lat, lng float64) (*models.VenueRewardClaim, error) {
	var claim models.VenueRewardClaim
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var reward models.VenueReward
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&reward, rewardID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRewardNotFound
			}
			return err
		}
		if reward.MaxClaimsPerUser > 0 {
			var userClaims int64
			if err := tx.Model(&models.VenueRewardClaim{}).
				Where("venue_reward_id = ? AND user_id = ?", rewardID, userID).
				Count(&userClaims).Error; err != nil {
				return err
			}
			if userClaims >= int64(reward.MaxClaimsPerUser) {
				return domain.ErrClaimLimitReached
			}
		}
		if reward.TotalClaimLimit > 0 {
			var total int64
			if err := tx.Model(&models.VenueRewardClaim{}).
				Where("venue_reward_id = ?", rewardID).
				Count(&total).Error; err != nil {
				return err
			}
			if total >= int64(reward.TotalClaimLimit) {
				return domain.ErrRewardExhausted
			}
		}
		claim = models.VenueRewardClaim{
			VenueRewardID: rewardID,
			UserID:        userID,
			Code:          code,
			Latitude:      lat,
			Longitude:     lng,
		}
		return tx.Create(&claim).Error
	})
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *VenueRewardRepository) CountUserClaims(rewardID, userID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.VenueRewardClaim{}).
		Where("venue_reward_id = ? AND user_id = ?", rewardID, userID).
		Count(&n).Error
	return n, err
}

func (r *VenueRewardRepository) CountClaims(rewardID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.VenueRewardClaim{}).
		Where("venue_reward_id = ?", rewardID).
		Count(&n).Error
	return n, err
}

func (r *VenueRewardRepository) UserClaims(userID uint, limit, offset int) ([]models.VenueRewardClaim, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var claims []models.VenueRewardClaim
	err := r.db.Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&claims).Error
	return claims, err
}
