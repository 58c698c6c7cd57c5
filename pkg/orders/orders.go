// Package orders checks purchase orders against the platform order service
// before points are awarded or redeemed against them.
package orders

import (
	"context"
	"errors"
)

// ErrNotFound means the order does not exist or does not belong to the
// merchant it was presented for.
var ErrNotFound = errors.New("orders: order not found for merchant")

// Verifier confirms an order exists under a merchant.
type Verifier interface {
	Verify(ctx context.Context, merchantID, orderID uint) error
}
