package handler

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"perks/internal/domain"
	"perks/internal/middleware"
	"perks/internal/service"
)

type ClaimHandler struct {
	claims *service.ClaimService
}

func NewClaimHandler(claims *service.ClaimService) *ClaimHandler {
	return &ClaimHandler{claims: claims}
}

// Claim attempts a geofenced reward claim from the caller's reported
// location.
func (h *ClaimHandler) Claim(c *gin.Context) {
	userID := middleware.GetUserID(c)
	rewardID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	var req struct {
		Latitude  float64 `json:"latitude" binding:"required"`
		Longitude float64 `json:"longitude" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.claims.Claim(c.Request.Context(), userID, uint(rewardID), req.Latitude, req.Longitude)
	if err != nil {
		respondClaimError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// CooldownStatus tells the app whether the claim button should be live.
func (h *ClaimHandler) CooldownStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)
	rewardID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	active, remaining, err := h.claims.CooldownStatus(c.Request.Context(), userID, uint(rewardID))
	if err != nil {
		respondClaimError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cooldown_active":   active,
		"remaining_seconds": int(math.Ceil(remaining.Seconds())),
	})
}

// ListRewards returns currently claimable rewards. With lat/lng query
// params the list comes back nearest first with approach hints.
func (h *ClaimHandler) ListRewards(c *gin.Context) {
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr != "" && lngStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		if errLat != nil || errLng != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat/lng"})
			return
		}
		rewards, err := h.claims.NearbyRewards(lat, lng)
		if err != nil {
			respondClaimError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"rewards": rewards})
		return
	}
	rewards, err := h.claims.ActiveRewards()
	if err != nil {
		respondClaimError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

// GetReward returns one reward by id.
func (h *ClaimHandler) GetReward(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	reward, err := h.claims.Reward(uint(id))
	if err != nil {
		respondClaimError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reward": reward})
}

// MyClaims pages the caller's claim history.
func (h *ClaimHandler) MyClaims(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	claims, err := h.claims.UserClaims(userID, limit, offset)
	if err != nil {
		respondClaimError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claims": claims})
}

// respondClaimError translates claim domain errors into HTTP responses.
// Contention answers carry retry_after_seconds so clients can back off
// instead of hammering.
func respondClaimError(c *gin.Context, err error) {
	var outside *domain.OutsideGeofenceError
	var cooldown *domain.CooldownError
	switch {
	case errors.Is(err, domain.ErrRewardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "reward not found"})
	case errors.Is(err, domain.ErrRewardInactive):
		c.JSON(http.StatusConflict, gin.H{"error": "reward is not active"})
	case errors.As(err, &outside):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":           err.Error(),
			"distance_meters": math.Round(outside.DistanceMeters),
			"radius_meters":   outside.RadiusMeters,
		})
	case errors.Is(err, domain.ErrClaimLimitReached):
		c.JSON(http.StatusConflict, gin.H{"error": "claim limit reached for this reward"})
	case errors.Is(err, domain.ErrRewardExhausted):
		c.JSON(http.StatusConflict, gin.H{"error": "reward fully claimed"})
	case errors.Is(err, domain.ErrClaimInProgress):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "claim already in progress", "retry_after_seconds": 1})
	case errors.As(err, &cooldown):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":               err.Error(),
			"retry_after_seconds": int(math.Ceil(cooldown.Remaining.Seconds())),
		})
	case errors.Is(err, domain.ErrLockStoreUnavailable):
		log.Printf("[claims] %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "claim service temporarily unavailable"})
	default:
		log.Printf("[claims] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
