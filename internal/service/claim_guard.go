package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"perks/internal/domain"
	"perks/pkg/lockstore"
)

// DefaultClaimLockTTL bounds how long a crashed claim request can block the
// (user, reward) pair. It must exceed the worst-case claim workflow latency.
const DefaultClaimLockTTL = 30 * time.Second

// ClaimGuard serializes claim attempts per (user, venue reward) with a
// TTL lock and rate-limits successful repeats with a cooldown marker. The
// two keys are independent: the lock exists only while a request runs, the
// cooldown only after one succeeds.
//
// Lock-store failures reject the claim rather than letting concurrent
// requests through; the ledger has no other double-claim defense.
type ClaimGuard struct {
	store   lockstore.Store
	lockTTL time.Duration
}

func NewClaimGuard(store lockstore.Store, lockTTL time.Duration) *ClaimGuard {
	if lockTTL <= 0 {
		lockTTL = DefaultClaimLockTTL
	}
	return &ClaimGuard{store: store, lockTTL: lockTTL}
}

// AcquireLock attempts the atomic acquire-if-absent. false means another
// request holds the pair right now; that is a terminal outcome for this
// request, not something to wait on.
func (g *ClaimGuard) AcquireLock(ctx context.Context, userID, rewardID uint) (bool, error) {
	return g.store.SetIfAbsent(ctx, domain.ClaimLockKey(userID, rewardID),
		time.Now().Format(time.RFC3339Nano), g.lockTTL)
}

// ReleaseLock drops the lock and, when withCooldown is set, arms the
// cooldown marker in the same call.
func (g *ClaimGuard) ReleaseLock(ctx context.Context, userID, rewardID uint, withCooldown bool, cooldown time.Duration) error {
	if withCooldown && cooldown > 0 {
		if err := g.store.Set(ctx, domain.ClaimCooldownKey(userID, rewardID),
			time.Now().Format(time.RFC3339Nano), cooldown); err != nil {
			// the claim already committed; the user just gets an earlier retry
			log.Printf("[claims] failed to arm cooldown for user %d reward %d: %v", userID, rewardID, err)
		}
	}
	return g.store.Delete(ctx, domain.ClaimLockKey(userID, rewardID))
}

// CheckCooldown reports whether the pair is cooling down and for how much
// longer.
func (g *ClaimGuard) CheckCooldown(ctx context.Context, userID, rewardID uint) (bool, time.Duration, error) {
	remaining, err := g.store.TTL(ctx, domain.ClaimCooldownKey(userID, rewardID))
	if err != nil {
		return false, 0, fmt.Errorf("%w: %w", domain.ErrLockStoreUnavailable, err)
	}
	return remaining > 0, remaining, nil
}

// Run executes workflow under the lock. The workflow returns the cooldown
// to arm on success; on any failure no cooldown is armed, so a failed
// attempt never blocks a legitimate retry. The lock is released on every
// exit path, panics included.
func (g *ClaimGuard) Run(ctx context.Context, userID, rewardID uint, workflow func(ctx context.Context) (time.Duration, error)) error {
	acquired, err := g.AcquireLock(ctx, userID, rewardID)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLockStoreUnavailable, err)
	}
	if !acquired {
		return domain.ErrClaimInProgress
	}

	armed := time.Duration(0)
	defer func() {
		if err := g.ReleaseLock(ctx, userID, rewardID, armed > 0, armed); err != nil {
			log.Printf("[claims] failed to release lock for user %d reward %d: %v (self-expires in %s)",
				userID, rewardID, err, g.lockTTL)
		}
	}()

	active, remaining, err := g.CheckCooldown(ctx, userID, rewardID)
	if err != nil {
		return err
	}
	if active {
		return &domain.CooldownError{Remaining: remaining}
	}

	cooldown, err := workflow(ctx)
	if err != nil {
		return err
	}
	armed = cooldown
	return nil
}
