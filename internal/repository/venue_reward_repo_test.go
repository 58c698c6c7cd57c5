package repository

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"perks/internal/domain"
	"perks/internal/models"
)

func seedReward(t *testing.T, repo *VenueRewardRepository, maxPerUser, totalLimit int) *models.VenueReward {
	t.Helper()
	vr := &models.VenueReward{
		MerchantID:       1,
		Title:            "Free espresso",
		Latitude:         -1.28333,
		Longitude:        36.81667,
		RadiusMeters:     100,
		CooldownHours:    24,
		MaxClaimsPerUser: maxPerUser,
		TotalClaimLimit:  totalLimit,
		IsActive:         true,
	}
	if err := repo.Create(vr); err != nil {
		t.Fatalf("create reward: %v", err)
	}
	return vr
}

func TestInsertClaimPerUserLimit(t *testing.T) {
	repo := NewVenueRewardRepository(setupTestDB(t))
	vr := seedReward(t, repo, 2, 0)

	for i := 0; i < 2; i++ {
		if _, err := repo.InsertClaim(vr.ID, 10, fmt.Sprintf("code-%d", i), -1.28333, 36.81667); err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
	}
	_, err := repo.InsertClaim(vr.ID, 10, "code-2", -1.28333, 36.81667)
	if !errors.Is(err, domain.ErrClaimLimitReached) {
		t.Fatalf("third claim = %v, want ErrClaimLimitReached", err)
	}

	// another user is unaffected
	if _, err := repo.InsertClaim(vr.ID, 11, "code-3", -1.28333, 36.81667); err != nil {
		t.Fatalf("other user claim: %v", err)
	}
}

func TestInsertClaimGlobalLimitConcurrent(t *testing.T) {
	repo := NewVenueRewardRepository(setupTestDB(t))
	vr := seedReward(t, repo, 0, 5)

	const users = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for u := 1; u <= users; u++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := repo.InsertClaim(vr.ID, userID, fmt.Sprintf("code-%d", userID), -1.28333, 36.81667)
			if err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
				return
			}
			if !errors.Is(err, domain.ErrRewardExhausted) {
				t.Errorf("user %d: %v", userID, err)
			}
		}(uint(u))
	}
	wg.Wait()

	if granted != 5 {
		t.Errorf("granted = %d, want exactly 5", granted)
	}
	total, err := repo.CountClaims(vr.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 5 {
		t.Errorf("claim rows = %d, want 5", total)
	}
}

func TestInsertClaimUnknownReward(t *testing.T) {
	repo := NewVenueRewardRepository(setupTestDB(t))
	if _, err := repo.InsertClaim(999, 1, "code", 0, 0); !errors.Is(err, domain.ErrRewardNotFound) {
		t.Fatalf("err = %v, want ErrRewardNotFound", err)
	}
	if _, err := repo.GetByID(999); !errors.Is(err, domain.ErrRewardNotFound) {
		t.Fatalf("GetByID = %v, want ErrRewardNotFound", err)
	}
}

func TestUserClaimsPage(t *testing.T) {
	repo := NewVenueRewardRepository(setupTestDB(t))
	vr := seedReward(t, repo, 0, 0)

	for i := 0; i < 4; i++ {
		if _, err := repo.InsertClaim(vr.ID, 20, fmt.Sprintf("page-code-%d", i), 0, 0); err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
	}
	claims, err := repo.UserClaims(20, 3, 0)
	if err != nil {
		t.Fatalf("UserClaims: %v", err)
	}
	if len(claims) != 3 {
		t.Fatalf("page size = %d, want 3", len(claims))
	}
	if claims[0].Code != "page-code-3" {
		t.Errorf("newest first: code = %s, want page-code-3", claims[0].Code)
	}
}
