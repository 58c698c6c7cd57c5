package models

import (
	"time"

	"gorm.io/gorm"
)

// VenueReward is a claim-at-the-venue perk: users inside the geofence may
// claim it, then wait out the cooldown before claiming again.
type VenueReward struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	MerchantID       uint           `gorm:"not null;index" json:"merchant_id"`
	Title            string         `gorm:"size:120;not null" json:"title"`
	Description      string         `gorm:"size:500" json:"description"`
	ImageURL         string         `gorm:"size:500" json:"image_url"`
	Latitude         float64        `gorm:"not null" json:"latitude"`
	Longitude        float64        `gorm:"not null" json:"longitude"`
	RadiusMeters     float64        `gorm:"not null;default:100" json:"radius_meters"`
	CooldownHours    int            `gorm:"not null;default:24" json:"cooldown_hours"`
	MaxClaimsPerUser int            `gorm:"not null;default:0" json:"max_claims_per_user"` // 0 = unlimited
	TotalClaimLimit  int            `gorm:"not null;default:0" json:"total_claim_limit"`   // 0 = unlimited
	StartsAt         *time.Time     `json:"starts_at,omitempty"`
	EndsAt           *time.Time     `json:"ends_at,omitempty"`
	IsActive         bool           `gorm:"default:true;index" json:"is_active"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (VenueReward) TableName() string {
	return "venue_rewards"
}
