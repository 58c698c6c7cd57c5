package models

import "time"

// LoyaltyProgram is a merchant's points configuration. One row per merchant;
// programs are deactivated, never deleted.
type LoyaltyProgram struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	MerchantID            uint      `gorm:"uniqueIndex;not null" json:"merchant_id"`
	PointsPerDollar       float64   `gorm:"not null" json:"points_per_dollar"`
	MinimumPurchase       float64   `gorm:"not null;default:0" json:"minimum_purchase"`
	MinimumRedemption     int       `gorm:"not null" json:"minimum_redemption"`
	RedemptionValue       float64   `gorm:"not null" json:"redemption_value"` // dollars per MinimumRedemption points
	PointExpirationDays   *int      `json:"point_expiration_days,omitempty"`
	AllowCombineWithDeals bool      `gorm:"default:true" json:"allow_combine_with_deals"`
	EarnOnDiscounted      bool      `gorm:"default:true" json:"earn_on_discounted"`
	IsActive              bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (LoyaltyProgram) TableName() string {
	return "loyalty_programs"
}
