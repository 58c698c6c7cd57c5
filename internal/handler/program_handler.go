package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"perks/internal/domain"
	"perks/internal/middleware"
	"perks/internal/models"
	"perks/internal/repository"
)

type ProgramHandler struct {
	programs *repository.ProgramRepository
}

func NewProgramHandler(programs *repository.ProgramRepository) *ProgramHandler {
	return &ProgramHandler{programs: programs}
}

// Create sets up a merchant's loyalty program. One program per merchant.
func (h *ProgramHandler) Create(c *gin.Context) {
	merchantID, _ := strconv.ParseUint(c.Param("merchant_id"), 10, 64)
	var req struct {
		PointsPerDollar       float64 `json:"points_per_dollar" binding:"required,gt=0"`
		MinimumPurchase       float64 `json:"minimum_purchase" binding:"gte=0"`
		MinimumRedemption     int     `json:"minimum_redemption" binding:"required,min=1"`
		RedemptionValue       float64 `json:"redemption_value" binding:"required,gt=0"`
		PointExpirationDays   *int    `json:"point_expiration_days"`
		AllowCombineWithDeals bool    `json:"allow_combine_with_deals"`
		EarnOnDiscounted      bool    `json:"earn_on_discounted"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	program := &models.LoyaltyProgram{
		MerchantID:            uint(merchantID),
		PointsPerDollar:       req.PointsPerDollar,
		MinimumPurchase:       req.MinimumPurchase,
		MinimumRedemption:     req.MinimumRedemption,
		RedemptionValue:       req.RedemptionValue,
		PointExpirationDays:   req.PointExpirationDays,
		AllowCombineWithDeals: req.AllowCombineWithDeals,
		EarnOnDiscounted:      req.EarnOnDiscounted,
		IsActive:              true,
	}
	if err := h.programs.Create(program); err != nil {
		if errors.Is(err, domain.ErrProgramExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "program already exists for merchant"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create program"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"program": program})
}

// Get returns a merchant's program, active or not.
func (h *ProgramHandler) Get(c *gin.Context) {
	merchantID, _ := strconv.ParseUint(c.Param("merchant_id"), 10, 64)
	program, err := h.programs.GetByMerchant(uint(merchantID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "program not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"program": program})
}

// Update patches program settings. Changes only apply to future earns and
// redemptions; written ledger rows keep the rates they were computed with.
func (h *ProgramHandler) Update(c *gin.Context) {
	merchantID, _ := strconv.ParseUint(c.Param("merchant_id"), 10, 64)
	program, err := h.programs.GetByMerchant(uint(merchantID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "program not found"})
		return
	}
	var req struct {
		PointsPerDollar       *float64 `json:"points_per_dollar"`
		MinimumPurchase       *float64 `json:"minimum_purchase"`
		MinimumRedemption     *int     `json:"minimum_redemption"`
		RedemptionValue       *float64 `json:"redemption_value"`
		PointExpirationDays   *int     `json:"point_expiration_days"`
		AllowCombineWithDeals *bool    `json:"allow_combine_with_deals"`
		EarnOnDiscounted      *bool    `json:"earn_on_discounted"`
		IsActive              *bool    `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.PointsPerDollar != nil {
		if *req.PointsPerDollar <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "points_per_dollar must be positive"})
			return
		}
		program.PointsPerDollar = *req.PointsPerDollar
	}
	if req.MinimumPurchase != nil {
		if *req.MinimumPurchase < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "minimum_purchase cannot be negative"})
			return
		}
		program.MinimumPurchase = *req.MinimumPurchase
	}
	if req.MinimumRedemption != nil {
		if *req.MinimumRedemption < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "minimum_redemption must be at least 1"})
			return
		}
		program.MinimumRedemption = *req.MinimumRedemption
	}
	if req.RedemptionValue != nil {
		if *req.RedemptionValue <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "redemption_value must be positive"})
			return
		}
		program.RedemptionValue = *req.RedemptionValue
	}
	if req.PointExpirationDays != nil {
		program.PointExpirationDays = req.PointExpirationDays
	}
	if req.AllowCombineWithDeals != nil {
		program.AllowCombineWithDeals = *req.AllowCombineWithDeals
	}
	if req.EarnOnDiscounted != nil {
		program.EarnOnDiscounted = *req.EarnOnDiscounted
	}
	if req.IsActive != nil {
		program.IsActive = *req.IsActive
	}
	if err := h.programs.Update(program); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"program": program})
}

// Deactivate stops new earns and redemptions. Balances stay readable.
func (h *ProgramHandler) Deactivate(c *gin.Context) {
	merchantID, _ := strconv.ParseUint(c.Param("merchant_id"), 10, 64)
	if err := h.programs.SetActive(uint(merchantID), false); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "program not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

// GetMine returns the calling merchant's own program.
func (h *ProgramHandler) GetMine(c *gin.Context) {
	merchantID := middleware.GetMerchantID(c)
	program, err := h.programs.GetByMerchant(merchantID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "program not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"program": program})
}
