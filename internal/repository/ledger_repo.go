package repository

import (
	"errors"
	"fmt"
	"time"

	"perks/internal/domain"
	"perks/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository owns every mutation of balance rows and the append-only
// transaction log. All writes run inside one database transaction with a
// row lock on the balance, so two concurrent operations for the same
// (user, merchant) can never read the same balance snapshot.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Balance(userID, merchantID uint) (*models.UserMerchantBalance, error) {
	var b models.UserMerchantBalance
	err := r.db.Where("user_id = ? AND merchant_id = ?", userID, merchantID).First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetOrCreateBalance returns the balance row, creating a zero row on first
// contact. A concurrent create may win the insert race; the loser reads the
// winner's row back.
func (r *LedgerRepository) GetOrCreateBalance(userID, merchantID uint) (*models.UserMerchantBalance, error) {
	b, err := r.Balance(userID, merchantID)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	created := models.UserMerchantBalance{UserID: userID, MerchantID: merchantID, Tier: domain.TierStandard}
	if createErr := r.db.Create(&created).Error; createErr != nil {
		if b, err := r.Balance(userID, merchantID); err == nil {
			return b, nil
		}
		return nil, createErr
	}
	return &created, nil
}

func (r *LedgerRepository) lockBalance(tx *gorm.DB, userID, merchantID uint) (*models.UserMerchantBalance, error) {
	var b models.UserMerchantBalance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND merchant_id = ?", userID, merchantID).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ApplyEarn credits points to the balance and appends the EARNED ledger
// entry in one transaction. points must be positive.
func (r *LedgerRepository) ApplyEarn(userID, merchantID uint, orderID *uint, points int, description, calculation string) (*models.PointTransaction, error) {
	if points <= 0 {
		return nil, fmt.Errorf("earn points must be positive, got %d", points)
	}
	if _, err := r.GetOrCreateBalance(userID, merchantID); err != nil {
		return nil, err
	}
	var txn models.PointTransaction
	err := r.db.Transaction(func(tx *gorm.DB) error {
		bal, err := r.lockBalance(tx, userID, merchantID)
		if err != nil {
			return err
		}
		now := time.Now()
		before := bal.CurrentBalance
		bal.CurrentBalance += points
		bal.LifetimeEarned += points
		bal.Tier = domain.TierFor(bal.LifetimeEarned)
		bal.LastEarnedAt = &now
		if err := tx.Save(bal).Error; err != nil {
			return err
		}
		txn = models.PointTransaction{
			UserID:        userID,
			MerchantID:    merchantID,
			Type:          domain.TransactionTypeEarned,
			Points:        points,
			BalanceBefore: before,
			BalanceAfter:  bal.CurrentBalance,
			OrderID:       orderID,
			Description:   description,
			Calculation:   calculation,
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// ApplyRedeem debits pointsConsumed, creates the redemption row and appends
// the REDEEMED ledger entry in one transaction. Balance sufficiency is
// verified under the row lock; any earlier validate call is advisory only.
func (r *LedgerRepository) ApplyRedeem(userID, merchantID uint, pointsConsumed int, discountValue float64, orderID *uint, description, calculation string) (*models.Redemption, *models.PointTransaction, error) {
	if pointsConsumed <= 0 {
		return nil, nil, fmt.Errorf("redeem points must be positive, got %d", pointsConsumed)
	}
	if _, err := r.GetOrCreateBalance(userID, merchantID); err != nil {
		return nil, nil, err
	}
	var (
		red models.Redemption
		txn models.PointTransaction
	)
	err := r.db.Transaction(func(tx *gorm.DB) error {
		bal, err := r.lockBalance(tx, userID, merchantID)
		if err != nil {
			return err
		}
		if bal.CurrentBalance < pointsConsumed {
			return &domain.InsufficientPointsError{Current: bal.CurrentBalance, Requested: pointsConsumed}
		}
		now := time.Now()
		before := bal.CurrentBalance
		bal.CurrentBalance -= pointsConsumed
		bal.LifetimeRedeemed += pointsConsumed
		bal.LastRedeemedAt = &now
		if err := tx.Save(bal).Error; err != nil {
			return err
		}
		red = models.Redemption{
			UserID:        userID,
			MerchantID:    merchantID,
			PointsUsed:    pointsConsumed,
			DiscountValue: discountValue,
			Status:        domain.RedemptionStatusPending,
			OrderID:       orderID,
		}
		if orderID != nil {
			red.Status = domain.RedemptionStatusApplied
			red.AppliedAt = &now
		}
		if err := tx.Create(&red).Error; err != nil {
			return err
		}
		txn = models.PointTransaction{
			UserID:        userID,
			MerchantID:    merchantID,
			Type:          domain.TransactionTypeRedeemed,
			Points:        -pointsConsumed,
			BalanceBefore: before,
			BalanceAfter:  bal.CurrentBalance,
			OrderID:       orderID,
			RedemptionID:  &red.ID,
			Description:   description,
			Calculation:   calculation,
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &red, &txn, nil
}

// ApplyRedemptionToOrder attaches an order to a PENDING redemption, moving
// it to APPLIED. Points were already consumed at creation time; no balance
// change happens here.
func (r *LedgerRepository) ApplyRedemptionToOrder(redemptionID, orderID uint) (*models.Redemption, error) {
	var red models.Redemption
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&red, redemptionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRedemptionNotFound
			}
			return err
		}
		switch red.Status {
		case domain.RedemptionStatusCancelled:
			return domain.ErrRedemptionCancelled
		case domain.RedemptionStatusApplied:
			return domain.ErrRedemptionApplied
		}
		now := time.Now()
		red.Status = domain.RedemptionStatusApplied
		red.OrderID = &orderID
		red.AppliedAt = &now
		return tx.Save(&red).Error
	})
	if err != nil {
		return nil, err
	}
	return &red, nil
}

// CancelRedemption restores the points consumed by a redemption and appends
// the compensating REFUNDED ledger entry. This is the only path that
// decrements LifetimeRedeemed.
func (r *LedgerRepository) CancelRedemption(redemptionID uint, reason string) (*models.Redemption, *models.PointTransaction, error) {
	var (
		red models.Redemption
		txn models.PointTransaction
	)
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&red, redemptionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRedemptionNotFound
			}
			return err
		}
		if red.Status == domain.RedemptionStatusCancelled {
			return domain.ErrRedemptionCancelled
		}
		bal, err := r.lockBalance(tx, red.UserID, red.MerchantID)
		if err != nil {
			return err
		}
		now := time.Now()
		before := bal.CurrentBalance
		bal.CurrentBalance += red.PointsUsed
		bal.LifetimeRedeemed -= red.PointsUsed
		if err := tx.Save(bal).Error; err != nil {
			return err
		}
		red.Status = domain.RedemptionStatusCancelled
		red.CancelledAt = &now
		red.CancellationReason = reason
		if err := tx.Save(&red).Error; err != nil {
			return err
		}
		txn = models.PointTransaction{
			UserID:        red.UserID,
			MerchantID:    red.MerchantID,
			Type:          domain.TransactionTypeRefunded,
			Points:        red.PointsUsed,
			BalanceBefore: before,
			BalanceAfter:  bal.CurrentBalance,
			RedemptionID:  &red.ID,
			Description:   "redemption cancelled: " + reason,
			Calculation:   fmt.Sprintf("refund %d points from redemption #%d", red.PointsUsed, red.ID),
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &red, &txn, nil
}

// Transactions returns a page of ledger entries, newest first.
func (r *LedgerRepository) Transactions(userID, merchantID uint, limit, offset int) ([]models.PointTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var txns []models.PointTransaction
	err := r.db.Where("user_id = ? AND merchant_id = ?", userID, merchantID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&txns).Error
	return txns, err
}

func (r *LedgerRepository) Redemption(id uint) (*models.Redemption, error) {
	var red models.Redemption
	err := r.db.First(&red, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRedemptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &red, nil
}

// StalePendingRedemptions lists PENDING redemptions created before the
// cutoff, oldest first. The sweeper cancels them through CancelRedemption.
func (r *LedgerRepository) StalePendingRedemptions(olderThan time.Time) ([]models.Redemption, error) {
	var reds []models.Redemption
	err := r.db.Where("status = ? AND created_at < ?", domain.RedemptionStatusPending, olderThan).
		Order("id ASC").
		Find(&reds).Error
	return reds, err
}
