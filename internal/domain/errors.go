package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain-validation errors: expected business outcomes, surfaced to callers
// with a precise reason, never treated as system failures.
var (
	ErrProgramNotFound      = errors.New("loyalty: no active program for merchant")
	ErrProgramExists        = errors.New("loyalty: program already exists for merchant")
	ErrOrderNotFound        = errors.New("loyalty: order not found")
	ErrInsufficientPoints   = errors.New("loyalty: insufficient points")
	ErrBelowMinimumPoints   = errors.New("loyalty: below minimum redemption")
	ErrDiscountExceedsOrder = errors.New("loyalty: discount exceeds order amount")
	ErrMinimumPurchase      = errors.New("loyalty: purchase below program minimum")
	ErrRedemptionNotFound   = errors.New("loyalty: redemption not found")
	ErrRedemptionCancelled  = errors.New("loyalty: redemption already cancelled")
	ErrRedemptionApplied    = errors.New("loyalty: redemption already applied to an order")

	ErrRewardNotFound    = errors.New("claims: venue reward not found")
	ErrRewardInactive    = errors.New("claims: venue reward not active")
	ErrOutsideGeofence   = errors.New("claims: outside reward geofence")
	ErrClaimLimitReached = errors.New("claims: per-user claim limit reached")
	ErrRewardExhausted   = errors.New("claims: reward claim limit exhausted")
)

// Contention errors: expected, high-frequency outcomes on the claim path.
// They map to HTTP 429 at the handler layer and always carry a retry hint.
var (
	ErrClaimInProgress = errors.New("claims: claim already in progress")
	ErrCooldownActive  = errors.New("claims: cooldown active")
)

// ErrLockStoreUnavailable marks claim-path failures caused by the lock store
// itself. The claim fails closed and handlers answer 503.
var ErrLockStoreUnavailable = errors.New("claims: lock store unavailable")

// InsufficientPointsError reports a redemption attempt against a balance that
// cannot cover it. errors.Is(err, ErrInsufficientPoints) holds.
type InsufficientPointsError struct {
	Current   int
	Requested int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("loyalty: insufficient points: have %d, requested %d", e.Current, e.Requested)
}

func (e *InsufficientPointsError) Is(target error) bool { return target == ErrInsufficientPoints }

// MinimumRedemptionError reports a redemption below the program minimum.
type MinimumRedemptionError struct {
	Minimum   int
	Requested int
}

func (e *MinimumRedemptionError) Error() string {
	return fmt.Sprintf("loyalty: minimum redemption is %d points, requested %d", e.Minimum, e.Requested)
}

func (e *MinimumRedemptionError) Is(target error) bool { return target == ErrBelowMinimumPoints }

// MinimumPurchaseError reports an award attempt below the program's minimum
// qualifying purchase.
type MinimumPurchaseError struct {
	Minimum float64
	Amount  float64
}

func (e *MinimumPurchaseError) Error() string {
	return fmt.Sprintf("loyalty: minimum purchase is %.2f, got %.2f", e.Minimum, e.Amount)
}

func (e *MinimumPurchaseError) Is(target error) bool { return target == ErrMinimumPurchase }

// DiscountExceedsOrderError reports a redemption whose computed discount is
// larger than the order it would apply to.
type DiscountExceedsOrderError struct {
	Discount    float64
	OrderAmount float64
}

func (e *DiscountExceedsOrderError) Error() string {
	return fmt.Sprintf("loyalty: discount %.2f exceeds order amount %.2f", e.Discount, e.OrderAmount)
}

func (e *DiscountExceedsOrderError) Is(target error) bool { return target == ErrDiscountExceedsOrder }

// OutsideGeofenceError reports a claim attempt from outside the reward's
// venue radius.
type OutsideGeofenceError struct {
	DistanceMeters float64
	RadiusMeters   float64
}

func (e *OutsideGeofenceError) Error() string {
	return fmt.Sprintf("claims: %.0fm from venue, reward radius is %.0fm", e.DistanceMeters, e.RadiusMeters)
}

func (e *OutsideGeofenceError) Is(target error) bool { return target == ErrOutsideGeofence }

// CooldownError reports a claim rejected because a cooldown from a previous
// successful claim has not elapsed. Remaining is always positive.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("claims: cooldown active for another %s", e.Remaining.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool { return target == ErrCooldownActive }
