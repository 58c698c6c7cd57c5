package models

import "time"

// UserMerchantBalance is a user's points balance at one merchant. Created
// lazily on first earn or lookup; mutated only inside ledger transactions.
type UserMerchantBalance struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"not null;uniqueIndex:idx_user_merchant" json:"user_id"`
	MerchantID       uint       `gorm:"not null;uniqueIndex:idx_user_merchant" json:"merchant_id"`
	CurrentBalance   int        `gorm:"not null;default:0" json:"current_balance"`
	LifetimeEarned   int        `gorm:"not null;default:0" json:"lifetime_earned"`
	LifetimeRedeemed int        `gorm:"not null;default:0" json:"lifetime_redeemed"`
	Tier             string     `gorm:"size:20;default:'STANDARD'" json:"tier"`
	LastEarnedAt     *time.Time `json:"last_earned_at,omitempty"`
	LastRedeemedAt   *time.Time `json:"last_redeemed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (UserMerchantBalance) TableName() string {
	return "user_merchant_balances"
}
