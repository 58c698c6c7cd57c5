package models

import "time"

// PointTransaction is one append-only ledger entry. Points is signed:
// positive for EARNED and REFUNDED, negative for REDEEMED. Replaying a
// user's rows at a merchant in insertion order reconstructs the balance.
type PointTransaction struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index:idx_txn_user_merchant" json:"user_id"`
	MerchantID    uint      `gorm:"not null;index:idx_txn_user_merchant" json:"merchant_id"`
	Type          string    `gorm:"size:20;not null;index" json:"type"` // EARNED, REDEEMED, REFUNDED
	Points        int       `gorm:"not null" json:"points"`
	BalanceBefore int       `gorm:"not null" json:"balance_before"`
	BalanceAfter  int       `gorm:"not null" json:"balance_after"`
	OrderID       *uint     `gorm:"index" json:"order_id,omitempty"`
	RedemptionID  *uint     `gorm:"index" json:"redemption_id,omitempty"`
	Description   string    `gorm:"size:255" json:"description"`
	Calculation   string    `gorm:"size:255" json:"calculation"`
	CreatedAt     time.Time `json:"created_at"`

	Redemption *Redemption `gorm:"foreignKey:RedemptionID" json:"-"`
}

func (PointTransaction) TableName() string {
	return "point_transactions"
}
