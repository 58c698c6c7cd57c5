package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"perks/internal/domain"
	"perks/internal/models"
	"perks/internal/repository"
	"perks/pkg/lockstore"

	"gorm.io/gorm"
)

const (
	venueLat = -1.28333
	venueLng = 36.81667
)

func newClaimService(t *testing.T, db *gorm.DB) *ClaimService {
	t.Helper()
	guard := NewClaimGuard(lockstore.NewMemoryStore(), time.Minute)
	return NewClaimService(repository.NewVenueRewardRepository(db), guard, nil)
}

func seedVenueReward(t *testing.T, db *gorm.DB, mutate func(*models.VenueReward)) *models.VenueReward {
	t.Helper()
	vr := &models.VenueReward{
		MerchantID:    1,
		Title:         "Free dessert",
		Latitude:      venueLat,
		Longitude:     venueLng,
		RadiusMeters:  100,
		CooldownHours: 24,
		IsActive:      true,
	}
	if mutate != nil {
		mutate(vr)
	}
	if err := repository.NewVenueRewardRepository(db).Create(vr); err != nil {
		t.Fatalf("seed reward: %v", err)
	}
	return vr
}

func TestClaimInsideGeofence(t *testing.T) {
	db := newTestDB(t)
	svc := newClaimService(t, db)
	vr := seedVenueReward(t, db, nil)
	ctx := context.Background()

	res, err := svc.Claim(ctx, 1, vr.ID, venueLat+0.0003, venueLng)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if res.Claim.Code == "" {
		t.Error("claim code missing")
	}
	if res.DistanceMeters <= 0 || res.DistanceMeters > 100 {
		t.Errorf("distance = %.1f, want within radius", res.DistanceMeters)
	}
	if res.CooldownUntil == nil || time.Until(*res.CooldownUntil) > 24*time.Hour {
		t.Errorf("cooldown until = %v, want about 24h out", res.CooldownUntil)
	}

	active, remaining, err := svc.CooldownStatus(ctx, 1, vr.ID)
	if err != nil {
		t.Fatalf("CooldownStatus: %v", err)
	}
	if !active || remaining <= 23*time.Hour {
		t.Errorf("cooldown = %v/%v, want about 24h", active, remaining)
	}

	// claiming again during cooldown is rejected without running the workflow
	if _, err := svc.Claim(ctx, 1, vr.ID, venueLat, venueLng); !errors.Is(err, domain.ErrCooldownActive) {
		t.Fatalf("second claim = %v, want ErrCooldownActive", err)
	}

	// a different user has an independent cooldown
	if _, err := svc.Claim(ctx, 2, vr.ID, venueLat, venueLng); err != nil {
		t.Fatalf("other user claim: %v", err)
	}
}

func TestClaimOutsideGeofence(t *testing.T) {
	db := newTestDB(t)
	svc := newClaimService(t, db)
	vr := seedVenueReward(t, db, nil)
	ctx := context.Background()

	// ~1.1km north of the venue
	_, err := svc.Claim(ctx, 1, vr.ID, venueLat+0.01, venueLng)
	if !errors.Is(err, domain.ErrOutsideGeofence) {
		t.Fatalf("err = %v, want ErrOutsideGeofence", err)
	}
	var ge *domain.OutsideGeofenceError
	if !errors.As(err, &ge) || ge.DistanceMeters <= ge.RadiusMeters {
		t.Fatalf("geofence detail missing: %v", err)
	}

	// the failed attempt must not arm a cooldown; retrying from inside works
	if _, err := svc.Claim(ctx, 1, vr.ID, venueLat, venueLng); err != nil {
		t.Fatalf("retry inside geofence: %v", err)
	}
}

func TestClaimRewardAvailability(t *testing.T) {
	db := newTestDB(t)
	svc := newClaimService(t, db)
	ctx := context.Background()

	if _, err := svc.Claim(ctx, 1, 9999, venueLat, venueLng); !errors.Is(err, domain.ErrRewardNotFound) {
		t.Fatalf("unknown reward = %v, want ErrRewardNotFound", err)
	}

	inactive := seedVenueReward(t, db, func(vr *models.VenueReward) { vr.IsActive = false })
	if _, err := svc.Claim(ctx, 1, inactive.ID, venueLat, venueLng); !errors.Is(err, domain.ErrRewardInactive) {
		t.Fatalf("inactive reward = %v, want ErrRewardInactive", err)
	}

	future := time.Now().Add(time.Hour)
	notYet := seedVenueReward(t, db, func(vr *models.VenueReward) { vr.StartsAt = &future })
	if _, err := svc.Claim(ctx, 1, notYet.ID, venueLat, venueLng); !errors.Is(err, domain.ErrRewardInactive) {
		t.Fatalf("not-started reward = %v, want ErrRewardInactive", err)
	}

	past := time.Now().Add(-time.Hour)
	ended := seedVenueReward(t, db, func(vr *models.VenueReward) { vr.EndsAt = &past })
	if _, err := svc.Claim(ctx, 1, ended.ID, venueLat, venueLng); !errors.Is(err, domain.ErrRewardInactive) {
		t.Fatalf("ended reward = %v, want ErrRewardInactive", err)
	}
}

func TestClaimLimits(t *testing.T) {
	db := newTestDB(t)
	svc := newClaimService(t, db)
	ctx := context.Background()

	// cooldown of zero so the per-user limit is what stops the second claim
	limited := seedVenueReward(t, db, func(vr *models.VenueReward) {
		vr.CooldownHours = 0
		vr.MaxClaimsPerUser = 1
	})
	if _, err := svc.Claim(ctx, 1, limited.ID, venueLat, venueLng); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if _, err := svc.Claim(ctx, 1, limited.ID, venueLat, venueLng); !errors.Is(err, domain.ErrClaimLimitReached) {
		t.Fatalf("second claim = %v, want ErrClaimLimitReached", err)
	}

	scarce := seedVenueReward(t, db, func(vr *models.VenueReward) {
		vr.CooldownHours = 0
		vr.TotalClaimLimit = 2
	})
	for u := uint(1); u <= 2; u++ {
		if _, err := svc.Claim(ctx, u, scarce.ID, venueLat, venueLng); err != nil {
			t.Fatalf("user %d claim: %v", u, err)
		}
	}
	if _, err := svc.Claim(ctx, 3, scarce.ID, venueLat, venueLng); !errors.Is(err, domain.ErrRewardExhausted) {
		t.Fatalf("exhausted reward = %v, want ErrRewardExhausted", err)
	}
}

func TestClaimConcurrentSameUser(t *testing.T) {
	db := newTestDB(t)
	svc := newClaimService(t, db)
	vr := seedVenueReward(t, db, nil)
	ctx := context.Background()

	const attempts = 6
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Claim(ctx, 1, vr.ID, venueLat, venueLng)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !errors.Is(err, domain.ErrClaimInProgress) && !errors.Is(err, domain.ErrCooldownActive) {
				t.Errorf("unexpected claim error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
	count, err := repository.NewVenueRewardRepository(db).CountClaims(vr.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("claim rows = %d, want 1", count)
	}
}

func TestNearbyRewards(t *testing.T) {
	db := newTestDB(t)
	svc := newClaimService(t, db)
	near := seedVenueReward(t, db, func(vr *models.VenueReward) { vr.Title = "Near" })
	far := seedVenueReward(t, db, func(vr *models.VenueReward) {
		vr.Title = "Far"
		vr.Latitude = venueLat + 0.009 // about 1km north
	})
	seedVenueReward(t, db, func(vr *models.VenueReward) {
		vr.Title = "Hidden"
		vr.IsActive = false
	})

	list, err := svc.NearbyRewards(venueLat+0.0003, venueLng)
	if err != nil {
		t.Fatalf("NearbyRewards: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("listed %d rewards, want 2 active", len(list))
	}
	if list[0].Reward.ID != near.ID || list[1].Reward.ID != far.ID {
		t.Fatalf("order = [%s %s], want nearest first", list[0].Reward.Title, list[1].Reward.Title)
	}
	if !list[0].WithinRadius {
		t.Error("caller is 33m out, nearest reward should be claimable")
	}
	if list[0].Approach.Label != "Here" {
		t.Errorf("nearest label = %q, want Here", list[0].Approach.Label)
	}
	if list[1].WithinRadius {
		t.Error("1km away must not be within a 100m radius")
	}
	if list[1].Approach.Label == "" || list[1].Approach.Label == "Here" {
		t.Errorf("far label = %q, want an approach hint", list[1].Approach.Label)
	}
}
