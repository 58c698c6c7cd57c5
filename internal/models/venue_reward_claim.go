package models

import "time"

// VenueRewardClaim is the durable record of a successful claim. Claim counts
// per user and per reward are derived from these rows; the code is shown to
// staff at the venue.
type VenueRewardClaim struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	VenueRewardID uint      `gorm:"not null;index:idx_claim_reward_user" json:"venue_reward_id"`
	UserID        uint      `gorm:"not null;index:idx_claim_reward_user" json:"user_id"`
	Code          string    `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	CreatedAt     time.Time `json:"created_at"`

	VenueReward VenueReward `gorm:"foreignKey:VenueRewardID" json:"-"`
}

func (VenueRewardClaim) TableName() string {
	return "venue_reward_claims"
}
