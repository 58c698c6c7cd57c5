package domain

import "fmt"

const (
	RoleUser     = "USER"
	RoleMerchant = "MERCHANT"
	RoleAdmin    = "ADMIN"
)

const (
	TransactionTypeEarned   = "EARNED"
	TransactionTypeRedeemed = "REDEEMED"
	TransactionTypeRefunded = "REFUNDED"
)

const (
	RedemptionStatusPending   = "PENDING"
	RedemptionStatusApplied   = "APPLIED"
	RedemptionStatusCancelled = "CANCELLED"
)

const (
	TierStandard = "STANDARD"
	TierSilver   = "SILVER"
	TierGold     = "GOLD"
)

// Tier thresholds on lifetime earned points.
const (
	silverThreshold = 1000
	goldThreshold   = 5000
)

// TierFor maps lifetime earned points to a tier name.
func TierFor(lifetimeEarned int) string {
	switch {
	case lifetimeEarned >= goldThreshold:
		return TierGold
	case lifetimeEarned >= silverThreshold:
		return TierSilver
	default:
		return TierStandard
	}
}

// Lock-store key prefixes. One lock key and one cooldown key exist per
// (user, venue reward) pair; the lock serializes concurrent claim requests,
// the cooldown rate-limits successful repeat claims.
const (
	claimLockKeyPrefix     = "claim:lock"
	claimCooldownKeyPrefix = "claim:cooldown"
)

func ClaimLockKey(userID, rewardID uint) string {
	return fmt.Sprintf("%s:%d:%d", claimLockKeyPrefix, userID, rewardID)
}

func ClaimCooldownKey(userID, rewardID uint) string {
	return fmt.Sprintf("%s:%d:%d", claimCooldownKeyPrefix, userID, rewardID)
}
