package models

import "time"

// APICredential authenticates a merchant's POS integration. The secret is
// returned once at issue time; only its bcrypt hash is stored. KeyPrefix is
// the public identifier embedded in presented keys.
type APICredential struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	MerchantID uint       `gorm:"not null;index" json:"merchant_id"`
	Label      string     `gorm:"size:120" json:"label"`
	KeyPrefix  string     `gorm:"size:32;uniqueIndex;not null" json:"key_prefix"`
	KeyHash    string     `gorm:"size:128;not null" json:"-"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (APICredential) TableName() string {
	return "api_credentials"
}
