package models

import "time"

// Redemption tracks points exchanged for an order discount. PENDING until
// attached to an order, APPLIED once attached, CANCELLED after a compensating
// refund restores the points.
type Redemption struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UserID             uint       `gorm:"not null;index:idx_redemption_user_merchant" json:"user_id"`
	MerchantID         uint       `gorm:"not null;index:idx_redemption_user_merchant" json:"merchant_id"`
	PointsUsed         int        `gorm:"not null" json:"points_used"`
	DiscountValue      float64    `gorm:"not null" json:"discount_value"`
	Status             string     `gorm:"size:20;not null;index" json:"status"` // PENDING, APPLIED, CANCELLED
	OrderID            *uint      `gorm:"index" json:"order_id,omitempty"`
	AppliedAt          *time.Time `json:"applied_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `gorm:"size:255" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (Redemption) TableName() string {
	return "redemptions"
}
