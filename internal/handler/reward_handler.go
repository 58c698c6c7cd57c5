package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"perks/internal/models"
	"perks/internal/repository"
	"perks/pkg/cloudinary"
)

type RewardHandler struct {
	rewards *repository.VenueRewardRepository
	cloud   cloudinary.Client
}

func NewRewardHandler(rewards *repository.VenueRewardRepository, cloud cloudinary.Client) *RewardHandler {
	return &RewardHandler{rewards: rewards, cloud: cloud}
}

// Create registers a venue reward at a geofenced location.
func (h *RewardHandler) Create(c *gin.Context) {
	var req struct {
		MerchantID       uint       `json:"merchant_id" binding:"required"`
		Title            string     `json:"title" binding:"required"`
		Description      string     `json:"description"`
		Latitude         float64    `json:"latitude" binding:"required"`
		Longitude        float64    `json:"longitude" binding:"required"`
		RadiusMeters     float64    `json:"radius_meters"`
		CooldownHours    *int       `json:"cooldown_hours"`
		MaxClaimsPerUser int        `json:"max_claims_per_user" binding:"gte=0"`
		TotalClaimLimit  int        `json:"total_claim_limit" binding:"gte=0"`
		StartsAt         *time.Time `json:"starts_at"`
		EndsAt           *time.Time `json:"ends_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RadiusMeters <= 0 {
		req.RadiusMeters = 100
	}
	cooldown := 24
	if req.CooldownHours != nil {
		if *req.CooldownHours < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cooldown_hours cannot be negative"})
			return
		}
		cooldown = *req.CooldownHours
	}
	if req.StartsAt != nil && req.EndsAt != nil && !req.EndsAt.After(*req.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ends_at must be after starts_at"})
		return
	}
	reward := &models.VenueReward{
		MerchantID:       req.MerchantID,
		Title:            req.Title,
		Description:      req.Description,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		RadiusMeters:     req.RadiusMeters,
		CooldownHours:    cooldown,
		MaxClaimsPerUser: req.MaxClaimsPerUser,
		TotalClaimLimit:  req.TotalClaimLimit,
		StartsAt:         req.StartsAt,
		EndsAt:           req.EndsAt,
		IsActive:         true,
	}
	if err := h.rewards.Create(reward); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create reward"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reward": reward})
}

// Update patches reward settings. Moving the geofence or shrinking limits
// only affects future claims.
func (h *RewardHandler) Update(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	reward, err := h.rewards.GetByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reward not found"})
		return
	}
	var req struct {
		Title            *string    `json:"title"`
		Description      *string    `json:"description"`
		Latitude         *float64   `json:"latitude"`
		Longitude        *float64   `json:"longitude"`
		RadiusMeters     *float64   `json:"radius_meters"`
		CooldownHours    *int       `json:"cooldown_hours"`
		MaxClaimsPerUser *int       `json:"max_claims_per_user"`
		TotalClaimLimit  *int       `json:"total_claim_limit"`
		StartsAt         *time.Time `json:"starts_at"`
		EndsAt           *time.Time `json:"ends_at"`
		IsActive         *bool      `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Title != nil {
		reward.Title = *req.Title
	}
	if req.Description != nil {
		reward.Description = *req.Description
	}
	if req.Latitude != nil {
		reward.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		reward.Longitude = *req.Longitude
	}
	if req.RadiusMeters != nil {
		if *req.RadiusMeters <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "radius_meters must be positive"})
			return
		}
		reward.RadiusMeters = *req.RadiusMeters
	}
	if req.CooldownHours != nil {
		if *req.CooldownHours < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cooldown_hours cannot be negative"})
			return
		}
		reward.CooldownHours = *req.CooldownHours
	}
	if req.MaxClaimsPerUser != nil {
		reward.MaxClaimsPerUser = *req.MaxClaimsPerUser
	}
	if req.TotalClaimLimit != nil {
		reward.TotalClaimLimit = *req.TotalClaimLimit
	}
	if req.StartsAt != nil {
		reward.StartsAt = req.StartsAt
	}
	if req.EndsAt != nil {
		reward.EndsAt = req.EndsAt
	}
	if req.IsActive != nil {
		reward.IsActive = *req.IsActive
	}
	if err := h.rewards.Update(reward); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reward": reward})
}

// List pages a merchant's rewards for the admin console.
func (h *RewardHandler) List(c *gin.Context) {
	merchantID, _ := strconv.ParseUint(c.Query("merchant_id"), 10, 64)
	if merchantID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "merchant_id query param required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	rewards, err := h.rewards.ListByMerchant(uint(merchantID), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

// UploadImage attaches artwork to a reward via Cloudinary.
func (h *RewardHandler) UploadImage(c *gin.Context) {
	if h.cloud == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image uploads not configured"})
		return
	}
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	reward, err := h.rewards.GetByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reward not found"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()

	folder := "perks/rewards/" + strconv.FormatUint(uint64(reward.ID), 10)
	publicID := "img_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	url, thumbURL, err := h.cloud.UploadImage(c.Request.Context(), f, folder, publicID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	reward.ImageURL = url
	if err := h.rewards.Update(reward); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save image url"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_url": url, "thumbnail_url": thumbURL})
}
