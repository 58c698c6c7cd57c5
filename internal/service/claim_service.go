package service

import (
	"context"
	"math"
	"sort"
	"time"

	"perks/internal/domain"
	"perks/internal/models"
	"perks/internal/repository"
	"perks/internal/ws"
	"perks/pkg/location"
	"perks/pkg/proximity"

	"github.com/google/uuid"
)

// ClaimResult reports a successful claim. Code is what the user shows to
// venue staff.
type ClaimResult struct {
	Claim          *models.VenueRewardClaim `json:"claim"`
	Reward         *models.VenueReward      `json:"reward"`
	DistanceMeters float64                  `json:"distance_meters"`
	CooldownUntil  *time.Time               `json:"cooldown_until,omitempty"`
}

// ClaimService runs the venue reward claim workflow under the concurrency
// guard: reward lookup, activity window, geofence, claim limits, then the
// durable claim insert.
type ClaimService struct {
	rewards *repository.VenueRewardRepository
	guard   *ClaimGuard
	hub     *ws.Hub
}

func NewClaimService(rewards *repository.VenueRewardRepository, guard *ClaimGuard, hub *ws.Hub) *ClaimService {
	return &ClaimService{rewards: rewards, guard: guard, hub: hub}
}

func (s *ClaimService) Claim(ctx context.Context, userID, rewardID uint, lat, lng float64) (*ClaimResult, error) {
	var result *ClaimResult
	err := s.guard.Run(ctx, userID, rewardID, func(ctx context.Context) (time.Duration, error) {
		reward, err := s.rewards.GetByID(rewardID)
		if err != nil {
			return 0, err
		}
		now := time.Now()
		if !rewardLive(reward, now) {
			return 0, domain.ErrRewardInactive
		}
		inside, dist := location.WithinRadius(lat, lng, reward.Latitude, reward.Longitude, reward.RadiusMeters)
		if !inside {
			return 0, &domain.OutsideGeofenceError{DistanceMeters: dist, RadiusMeters: reward.RadiusMeters}
		}

		claim, err := s.rewards.InsertClaim(rewardID, userID, uuid.NewString(), lat, lng)
		if err != nil {
			return 0, err
		}

		cooldown := time.Duration(reward.CooldownHours) * time.Hour
		result = &ClaimResult{Claim: claim, Reward: reward, DistanceMeters: dist}
		if cooldown > 0 {
			until := now.Add(cooldown)
			result.CooldownUntil = &until
		}
		if s.hub != nil {
			s.hub.BroadcastToMerchant(reward.MerchantID, map[string]interface{}{
				"type":        "reward.claimed",
				"user_id":     userID,
				"merchant_id": reward.MerchantID,
				"reward_id":   reward.ID,
				"code":        claim.Code,
				"at":          claim.CreatedAt,
			})
		}
		return cooldown, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CooldownStatus reports whether the user must still wait before claiming
// the reward again.
func (s *ClaimService) CooldownStatus(ctx context.Context, userID, rewardID uint) (bool, time.Duration, error) {
	return s.guard.CheckCooldown(ctx, userID, rewardID)
}

func (s *ClaimService) Reward(id uint) (*models.VenueReward, error) {
	return s.rewards.GetByID(id)
}

func (s *ClaimService) ActiveRewards() ([]models.VenueReward, error) {
	return s.rewards.ListActive()
}

// NearbyReward annotates an active reward with the caller's approach to its
// geofence.
type NearbyReward struct {
	Reward         models.VenueReward `json:"reward"`
	DistanceMeters float64            `json:"distance_meters"`
	WithinRadius   bool               `json:"within_radius"`
	Approach       proximity.Hint     `json:"approach"`
}

// NearbyRewards lists active rewards nearest first for the reward feed.
func (s *ClaimService) NearbyRewards(lat, lng float64) ([]NearbyReward, error) {
	rewards, err := s.rewards.ListActive()
	if err != nil {
		return nil, err
	}
	out := make([]NearbyReward, 0, len(rewards))
	for _, r := range rewards {
		inside, dist := location.WithinRadius(lat, lng, r.Latitude, r.Longitude, r.RadiusMeters)
		out = append(out, NearbyReward{
			Reward:         r,
			DistanceMeters: math.Round(dist),
			WithinRadius:   inside,
			Approach:       proximity.Toward(dist, r.RadiusMeters, proximity.DefaultWindowMeters),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	return out, nil
}

func (s *ClaimService) UserClaims(userID uint, limit, offset int) ([]models.VenueRewardClaim, error) {
	return s.rewards.UserClaims(userID, limit, offset)
}

func rewardLive(r *models.VenueReward, now time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.StartsAt != nil && now.Before(*r.StartsAt) {
		return false
	}
	if r.EndsAt != nil && now.After(*r.EndsAt) {
		return false
	}
	return true
}
