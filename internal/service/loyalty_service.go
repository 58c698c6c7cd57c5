package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"perks/internal/domain"
	"perks/internal/models"
	"perks/internal/repository"
	"perks/internal/ws"
	"perks/pkg/orders"
	"perks/pkg/points"
)

// AwardResult reports an earn. A purchase that earns nothing (invalid or
// too small after flooring) is a success with PointsEarned 0 and no
// Transaction.
type AwardResult struct {
	PointsEarned  int                      `json:"points_earned"`
	BalanceBefore int                      `json:"balance_before"`
	BalanceAfter  int                      `json:"balance_after"`
	Calculation   string                   `json:"calculation"`
	Transaction   *models.PointTransaction `json:"transaction,omitempty"`
}

// RedeemResult reports a redemption. RemainingPoints is the slice of the
// request that whole-unit flooring left unconsumed, not the balance.
type RedeemResult struct {
	PointsRedeemed  int                      `json:"points_redeemed"`
	DiscountValue   float64                  `json:"discount_value"`
	BalanceBefore   int                      `json:"balance_before"`
	BalanceAfter    int                      `json:"balance_after"`
	RemainingPoints int                      `json:"remaining_points"`
	Redemption      *models.Redemption       `json:"redemption"`
	Transaction     *models.PointTransaction `json:"transaction"`
}

type CancelResult struct {
	PointsRefunded int                `json:"points_refunded"`
	BalanceBefore  int                `json:"balance_before"`
	BalanceAfter   int                `json:"balance_after"`
	Redemption     *models.Redemption `json:"redemption"`
}

// RedemptionCheck is the advisory pre-check result. It can go stale the
// moment it is returned; the redeem path re-verifies everything atomically.
type RedemptionCheck struct {
	Valid   bool   `json:"valid"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// Reason codes for RedemptionCheck.
const (
	ReasonInsufficientPoints     = "INSUFFICIENT_POINTS"
	ReasonBelowMinimumRedemption = "BELOW_MINIMUM_REDEMPTION"
	ReasonDiscountExceedsOrder   = "DISCOUNT_EXCEEDS_ORDER"
)

// LoyaltyBalance is the read projection of a balance row joined with the
// merchant's program configuration.
type LoyaltyBalance struct {
	UserID              uint       `json:"user_id"`
	MerchantID          uint       `json:"merchant_id"`
	CurrentBalance      int        `json:"current_balance"`
	LifetimeEarned      int        `json:"lifetime_earned"`
	LifetimeRedeemed    int        `json:"lifetime_redeemed"`
	Tier                string     `json:"tier"`
	LastEarnedAt        *time.Time `json:"last_earned_at,omitempty"`
	LastRedeemedAt      *time.Time `json:"last_redeemed_at,omitempty"`
	PointsPerDollar     float64    `json:"points_per_dollar"`
	MinimumRedemption   int        `json:"minimum_redemption"`
	RedemptionValue     float64    `json:"redemption_value"`
	PointExpirationDays *int       `json:"point_expiration_days,omitempty"`
	RedeemableValue     float64    `json:"redeemable_value"`
	ProgramActive       bool       `json:"program_active"`
}

// LoyaltyService coordinates program config, the order service and the
// ledger. Balance arithmetic itself lives in the ledger repository's
// transactions; this layer decides what to write.
type LoyaltyService struct {
	programs *repository.ProgramRepository
	ledger   *repository.LedgerRepository
	orders   orders.Verifier
	hub      *ws.Hub
}

func NewLoyaltyService(
	programs *repository.ProgramRepository,
	ledger *repository.LedgerRepository,
	verifier orders.Verifier,
	hub *ws.Hub,
) *LoyaltyService {
	return &LoyaltyService{
		programs: programs,
		ledger:   ledger,
		orders:   verifier,
		hub:      hub,
	}
}

// Award credits points for a purchase under the merchant's active program.
func (s *LoyaltyService) Award(ctx context.Context, userID, merchantID uint, orderID *uint, amount float64, description string) (*AwardResult, error) {
	program, err := s.programs.GetActiveByMerchant(merchantID)
	if err != nil {
		return nil, err
	}
	if amount < program.MinimumPurchase {
		return nil, &domain.MinimumPurchaseError{Minimum: program.MinimumPurchase, Amount: amount}
	}
	if orderID != nil && s.orders != nil {
		if err := s.orders.Verify(ctx, merchantID, *orderID); err != nil {
			if errors.Is(err, orders.ErrNotFound) {
				return nil, domain.ErrOrderNotFound
			}
			return nil, err
		}
	}

	calc := points.CalculateEarnedPoints(amount, program.PointsPerDollar)
	if calc.Points == 0 {
		bal, err := s.ledger.GetOrCreateBalance(userID, merchantID)
		if err != nil {
			return nil, err
		}
		return &AwardResult{
			PointsEarned:  0,
			BalanceBefore: bal.CurrentBalance,
			BalanceAfter:  bal.CurrentBalance,
			Calculation:   calc.Calculation,
		}, nil
	}

	if description == "" {
		description = fmt.Sprintf("purchase of %.2f", amount)
	}
	txn, err := s.ledger.ApplyEarn(userID, merchantID, orderID, calc.Points, description, calc.Calculation)
	if err != nil {
		return nil, err
	}
	s.broadcast(merchantID, map[string]interface{}{
		"type":        "points.earned",
		"user_id":     userID,
		"merchant_id": merchantID,
		"points":      txn.Points,
		"balance":     txn.BalanceAfter,
		"at":          txn.CreatedAt,
	})
	return &AwardResult{
		PointsEarned:  txn.Points,
		BalanceBefore: txn.BalanceBefore,
		BalanceAfter:  txn.BalanceAfter,
		Calculation:   txn.Calculation,
		Transaction:   txn,
	}, nil
}

// ValidateRedemption is the advisory pre-check merchants call before
// committing a basket. Read-only; the checks run again inside Redeem.
func (s *LoyaltyService) ValidateRedemption(userID, merchantID uint, pointsToRedeem int, orderAmount *float64) (*RedemptionCheck, error) {
	program, err := s.programs.GetActiveByMerchant(merchantID)
	if err != nil {
		return nil, err
	}
	bal, err := s.ledger.GetOrCreateBalance(userID, merchantID)
	if err != nil {
		return nil, err
	}
	if bal.CurrentBalance < pointsToRedeem {
		return &RedemptionCheck{
			Valid:   false,
			Reason:  ReasonInsufficientPoints,
			Message: fmt.Sprintf("balance %d cannot cover %d points", bal.CurrentBalance, pointsToRedeem),
		}, nil
	}
	if pointsToRedeem < program.MinimumRedemption {
		return &RedemptionCheck{
			Valid:   false,
			Reason:  ReasonBelowMinimumRedemption,
			Message: fmt.Sprintf("minimum redemption is %d points", program.MinimumRedemption),
		}, nil
	}
	if orderAmount != nil {
		calc := points.CalculateRedemptionValue(pointsToRedeem, program.MinimumRedemption, program.RedemptionValue)
		if calc.DiscountValue > *orderAmount {
			return &RedemptionCheck{
				Valid:   false,
				Reason:  ReasonDiscountExceedsOrder,
				Message: fmt.Sprintf("discount %.2f exceeds order amount %.2f", calc.DiscountValue, *orderAmount),
			}, nil
		}
	}
	return &RedemptionCheck{Valid: true}, nil
}

// Redeem converts points into an order discount. Validation runs here for a
// precise error, then again inside the ledger transaction under the row
// lock, so a concurrent spend between the two cannot overdraw the balance.
func (s *LoyaltyService) Redeem(userID, merchantID uint, pointsToRedeem int, orderID *uint, orderAmount *float64) (*RedeemResult, error) {
	program, err := s.programs.GetActiveByMerchant(merchantID)
	if err != nil {
		return nil, err
	}
	bal, err := s.ledger.GetOrCreateBalance(userID, merchantID)
	if err != nil {
		return nil, err
	}
	if bal.CurrentBalance < pointsToRedeem {
		return nil, &domain.InsufficientPointsError{Current: bal.CurrentBalance, Requested: pointsToRedeem}
	}
	if pointsToRedeem < program.MinimumRedemption {
		return nil, &domain.MinimumRedemptionError{Minimum: program.MinimumRedemption, Requested: pointsToRedeem}
	}
	calc := points.CalculateRedemptionValue(pointsToRedeem, program.MinimumRedemption, program.RedemptionValue)
	if orderAmount != nil && calc.DiscountValue > *orderAmount {
		return nil, &domain.DiscountExceedsOrderError{Discount: calc.DiscountValue, OrderAmount: *orderAmount}
	}

	description := fmt.Sprintf("redeemed %d points for %.2f off", calc.PointsConsumed, calc.DiscountValue)
	red, txn, err := s.ledger.ApplyRedeem(userID, merchantID, calc.PointsConsumed, calc.DiscountValue, orderID, description, calc.Calculation)
	if err != nil {
		return nil, err
	}
	s.broadcast(merchantID, map[string]interface{}{
		"type":        "points.redeemed",
		"user_id":     userID,
		"merchant_id": merchantID,
		"points":      txn.Points,
		"discount":    red.DiscountValue,
		"balance":     txn.BalanceAfter,
		"at":          txn.CreatedAt,
	})
	return &RedeemResult{
		PointsRedeemed:  calc.PointsConsumed,
		DiscountValue:   calc.DiscountValue,
		BalanceBefore:   txn.BalanceBefore,
		BalanceAfter:    txn.BalanceAfter,
		RemainingPoints: calc.Remainder,
		Redemption:      red,
		Transaction:     txn,
	}, nil
}

// CancelRedemption restores a redemption's points through the compensating
// refund path.
func (s *LoyaltyService) CancelRedemption(redemptionID uint, reason string) (*CancelResult, error) {
	if reason == "" {
		reason = "cancelled by merchant"
	}
	red, txn, err := s.ledger.CancelRedemption(redemptionID, reason)
	if err != nil {
		return nil, err
	}
	s.broadcast(red.MerchantID, map[string]interface{}{
		"type":        "points.refunded",
		"user_id":     red.UserID,
		"merchant_id": red.MerchantID,
		"points":      txn.Points,
		"balance":     txn.BalanceAfter,
		"at":          txn.CreatedAt,
	})
	return &CancelResult{
		PointsRefunded: txn.Points,
		BalanceBefore:  txn.BalanceBefore,
		BalanceAfter:   txn.BalanceAfter,
		Redemption:     red,
	}, nil
}

// ApplyToOrder attaches an order to a PENDING redemption once the basket
// commits, moving it to APPLIED.
func (s *LoyaltyService) ApplyToOrder(ctx context.Context, redemptionID, orderID uint) (*models.Redemption, error) {
	red, err := s.ledger.Redemption(redemptionID)
	if err != nil {
		return nil, err
	}
	if s.orders != nil {
		if err := s.orders.Verify(ctx, red.MerchantID, orderID); err != nil {
			if errors.Is(err, orders.ErrNotFound) {
				return nil, domain.ErrOrderNotFound
			}
			return nil, err
		}
	}
	return s.ledger.ApplyRedemptionToOrder(redemptionID, orderID)
}

// GetBalance returns the balance projection, creating the zero row on first
// lookup. The program row is included even when deactivated so dashboards
// can still render history.
func (s *LoyaltyService) GetBalance(userID, merchantID uint) (*LoyaltyBalance, error) {
	program, err := s.programs.GetByMerchant(merchantID)
	if err != nil {
		return nil, err
	}
	bal, err := s.ledger.GetOrCreateBalance(userID, merchantID)
	if err != nil {
		return nil, err
	}
	redeemable := points.CalculateRedemptionValue(bal.CurrentBalance, program.MinimumRedemption, program.RedemptionValue)
	return &LoyaltyBalance{
		UserID:              bal.UserID,
		MerchantID:          bal.MerchantID,
		CurrentBalance:      bal.CurrentBalance,
		LifetimeEarned:      bal.LifetimeEarned,
		LifetimeRedeemed:    bal.LifetimeRedeemed,
		Tier:                bal.Tier,
		LastEarnedAt:        bal.LastEarnedAt,
		LastRedeemedAt:      bal.LastRedeemedAt,
		PointsPerDollar:     program.PointsPerDollar,
		MinimumRedemption:   program.MinimumRedemption,
		RedemptionValue:     program.RedemptionValue,
		PointExpirationDays: program.PointExpirationDays,
		RedeemableValue:     redeemable.DiscountValue,
		ProgramActive:       program.IsActive,
	}, nil
}

func (s *LoyaltyService) Transactions(userID, merchantID uint, limit, offset int) ([]models.PointTransaction, error) {
	return s.ledger.Transactions(userID, merchantID, limit, offset)
}

func (s *LoyaltyService) Redemption(id uint) (*models.Redemption, error) {
	return s.ledger.Redemption(id)
}

func (s *LoyaltyService) broadcast(merchantID uint, payload map[string]interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToMerchant(merchantID, payload)
}

// CancelStalePending cancels PENDING redemptions older than maxAge and
// returns how many were refunded. Called by the sweeper.
func (s *LoyaltyService) CancelStalePending(maxAge time.Duration) (int, error) {
	stale, err := s.ledger.StalePendingRedemptions(time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, red := range stale {
		if _, err := s.CancelRedemption(red.ID, "redemption expired"); err != nil {
			// a concurrent cancel is fine, anything else is worth a log line
			if !errors.Is(err, domain.ErrRedemptionCancelled) {
				log.Printf("[sweeper] failed to cancel redemption %d: %v", red.ID, err)
			}
			continue
		}
		cancelled++
	}
	return cancelled, nil
}
