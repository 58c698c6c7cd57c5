package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"perks/internal/domain"
	"perks/pkg/lockstore"
)

// failingStore simulates a lock store that is down.
type failingStore struct{ err error }

func (f *failingStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return false, f.err
}
func (f *failingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return f.err
}
func (f *failingStore) Delete(ctx context.Context, key string) error { return f.err }
func (f *failingStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return 0, f.err
}

func TestRunSingleWinnerUnderContention(t *testing.T) {
	guard := NewClaimGuard(lockstore.NewMemoryStore(), time.Minute)
	ctx := context.Background()

	const contenders = 10
	var ran int32
	release := make(chan struct{})
	results := make(chan error, contenders)

	for i := 0; i < contenders; i++ {
		go func() {
			results <- guard.Run(ctx, 1, 2, func(ctx context.Context) (time.Duration, error) {
				atomic.AddInt32(&ran, 1)
				<-release // hold the lock until every contender has tried
				return 0, nil
			})
		}()
	}

	// the winner blocks in the workflow, so the next results are losers
	for i := 0; i < contenders-1; i++ {
		select {
		case err := <-results:
			if !errors.Is(err, domain.ErrClaimInProgress) {
				t.Fatalf("loser %d: err = %v, want ErrClaimInProgress", i, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for rejected contenders")
		}
	}
	close(release)
	if err := <-results; err != nil {
		t.Fatalf("winner: %v", err)
	}
	if got := atomic.LoadInt32(&ran); got != 1 {
		t.Fatalf("workflow ran %d times, want 1", got)
	}
}

func TestRunArmsCooldownOnSuccess(t *testing.T) {
	guard := NewClaimGuard(lockstore.NewMemoryStore(), time.Minute)
	ctx := context.Background()

	err := guard.Run(ctx, 3, 4, func(ctx context.Context) (time.Duration, error) {
		return 2 * time.Hour, nil
	})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	active, remaining, err := guard.CheckCooldown(ctx, 3, 4)
	if err != nil {
		t.Fatalf("CheckCooldown: %v", err)
	}
	if !active || remaining <= 0 || remaining > 2*time.Hour {
		t.Fatalf("cooldown = %v/%v, want active within (0, 2h]", active, remaining)
	}

	err = guard.Run(ctx, 3, 4, func(ctx context.Context) (time.Duration, error) {
		t.Error("workflow must not run during cooldown")
		return 0, nil
	})
	if !errors.Is(err, domain.ErrCooldownActive) {
		t.Fatalf("err = %v, want ErrCooldownActive", err)
	}
	var ce *domain.CooldownError
	if !errors.As(err, &ce) || ce.Remaining <= 0 {
		t.Fatalf("err %T carries no remaining duration", err)
	}

	// the cooldown rejection must not have re-armed or extended anything,
	// and the lock must be free again
	if _, _, err := guard.CheckCooldown(ctx, 3, 4); err != nil {
		t.Fatalf("CheckCooldown after rejection: %v", err)
	}
	acquired, err := guard.AcquireLock(ctx, 3, 4)
	if err != nil || !acquired {
		t.Fatalf("lock not released after cooldown rejection: %v/%v", acquired, err)
	}
}

func TestRunFailureArmsNoCooldown(t *testing.T) {
	guard := NewClaimGuard(lockstore.NewMemoryStore(), time.Minute)
	ctx := context.Background()

	boom := errors.New("geofence miss")
	err := guard.Run(ctx, 5, 6, func(ctx context.Context) (time.Duration, error) {
		return 24 * time.Hour, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want workflow error surfaced", err)
	}

	active, _, err := guard.CheckCooldown(ctx, 5, 6)
	if err != nil {
		t.Fatalf("CheckCooldown: %v", err)
	}
	if active {
		t.Fatal("failed attempt armed a cooldown")
	}

	// an immediate retry must be allowed
	err = guard.Run(ctx, 5, 6, func(ctx context.Context) (time.Duration, error) {
		return 0, nil
	})
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestRunFailsClosedWhenStoreDown(t *testing.T) {
	down := errors.New("connection refused")
	guard := NewClaimGuard(&failingStore{err: down}, time.Minute)
	ctx := context.Background()

	err := guard.Run(ctx, 7, 8, func(ctx context.Context) (time.Duration, error) {
		t.Error("workflow must not run when the lock store is down")
		return 0, nil
	})
	if err == nil {
		t.Fatal("store outage was swallowed into success")
	}
	if errors.Is(err, domain.ErrClaimInProgress) || errors.Is(err, domain.ErrCooldownActive) {
		t.Fatalf("store outage misreported as contention: %v", err)
	}
	if !errors.Is(err, down) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
	if !errors.Is(err, domain.ErrLockStoreUnavailable) {
		t.Fatalf("err = %v, want ErrLockStoreUnavailable", err)
	}
}

func TestRunReleasesLockOnPanic(t *testing.T) {
	guard := NewClaimGuard(lockstore.NewMemoryStore(), time.Minute)
	ctx := context.Background()

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic did not propagate")
			}
		}()
		_ = guard.Run(ctx, 9, 10, func(ctx context.Context) (time.Duration, error) {
			panic("workflow blew up")
		})
	}()

	// lock must be free and no cooldown armed
	err := guard.Run(ctx, 9, 10, func(ctx context.Context) (time.Duration, error) {
		return 0, nil
	})
	if err != nil {
		t.Fatalf("run after panic: %v", err)
	}
}

func TestReleaseLockWithCooldown(t *testing.T) {
	guard := NewClaimGuard(lockstore.NewMemoryStore(), time.Minute)
	ctx := context.Background()

	acquired, err := guard.AcquireLock(ctx, 11, 12)
	if err != nil || !acquired {
		t.Fatalf("acquire: %v/%v", acquired, err)
	}
	if err := guard.ReleaseLock(ctx, 11, 12, true, time.Hour); err != nil {
		t.Fatalf("release: %v", err)
	}

	active, remaining, err := guard.CheckCooldown(ctx, 11, 12)
	if err != nil {
		t.Fatalf("CheckCooldown: %v", err)
	}
	if !active || remaining <= 0 {
		t.Fatal("cooldown not armed by release")
	}
	if acquired, _ := guard.AcquireLock(ctx, 11, 12); !acquired {
		t.Fatal("lock not freed by release")
	}
}
