package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"perks/internal/domain"
	"perks/internal/middleware"
	"perks/internal/service"
)

type PointsHandler struct {
	loyalty *service.LoyaltyService
}

func NewPointsHandler(loyalty *service.LoyaltyService) *PointsHandler {
	return &PointsHandler{loyalty: loyalty}
}

// Award credits points for a purchase. The merchant scope comes from the API
// credential, never from the request body.
func (h *PointsHandler) Award(c *gin.Context) {
	merchantID := middleware.GetMerchantID(c)
	var req struct {
		UserID      uint    `json:"user_id" binding:"required"`
		Amount      float64 `json:"amount"`
		OrderID     *uint   `json:"order_id"`
		Description string  `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.loyalty.Award(c.Request.Context(), req.UserID, merchantID, req.OrderID, req.Amount, req.Description)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ValidateRedemption is the advisory pre-check for a till about to redeem.
// The answer can go stale immediately; Redeem re-verifies atomically.
func (h *PointsHandler) ValidateRedemption(c *gin.Context) {
	merchantID := middleware.GetMerchantID(c)
	var req struct {
		UserID      uint     `json:"user_id" binding:"required"`
		Points      int      `json:"points" binding:"required,min=1"`
		OrderAmount *float64 `json:"order_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	check, err := h.loyalty.ValidateRedemption(req.UserID, merchantID, req.Points, req.OrderAmount)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}

// Redeem converts points into an order discount.
func (h *PointsHandler) Redeem(c *gin.Context) {
	merchantID := middleware.GetMerchantID(c)
	var req struct {
		UserID      uint     `json:"user_id" binding:"required"`
		Points      int      `json:"points" binding:"required,min=1"`
		OrderID     *uint    `json:"order_id"`
		OrderAmount *float64 `json:"order_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.loyalty.Redeem(req.UserID, merchantID, req.Points, req.OrderID, req.OrderAmount)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CancelRedemption refunds a redemption's points. This is the only
// compensating path; the refund restores the balance and decrements
// lifetime redeemed.
func (h *PointsHandler) CancelRedemption(c *gin.Context) {
	merchantID := middleware.GetMerchantID(c)
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	red, err := h.loyalty.Redemption(uint(id))
	if err != nil || red.MerchantID != merchantID {
		c.JSON(http.StatusNotFound, gin.H{"error": "redemption not found"})
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	result, err := h.loyalty.CancelRedemption(uint(id), req.Reason)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ApplyToOrder attaches a PENDING redemption to an order at checkout.
func (h *PointsHandler) ApplyToOrder(c *gin.Context) {
	merchantID := middleware.GetMerchantID(c)
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	red, err := h.loyalty.Redemption(uint(id))
	if err != nil || red.MerchantID != merchantID {
		c.JSON(http.StatusNotFound, gin.H{"error": "redemption not found"})
		return
	}
	var req struct {
		OrderID uint `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	applied, err := h.loyalty.ApplyToOrder(c.Request.Context(), uint(id), req.OrderID)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redemption": applied})
}

// GetRedemption returns one redemption, scoped to the calling merchant.
func (h *PointsHandler) GetRedemption(c *gin.Context) {
	merchantID := middleware.GetMerchantID(c)
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	red, err := h.loyalty.Redemption(uint(id))
	if err != nil || red.MerchantID != merchantID {
		c.JSON(http.StatusNotFound, gin.H{"error": "redemption not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"redemption": red})
}

// UserBalance lets a merchant look up one customer's balance with them.
func (h *PointsHandler) UserBalance(c *gin.Context) {
	merchantID := middleware.GetMerchantID(c)
	userID, _ := strconv.ParseUint(c.Param("user_id"), 10, 64)
	balance, err := h.loyalty.GetBalance(uint(userID), merchantID)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

// UserTransactions pages one customer's history with the calling merchant.
func (h *PointsHandler) UserTransactions(c *gin.Context) {
	merchantID := middleware.GetMerchantID(c)
	userID, _ := strconv.ParseUint(c.Param("user_id"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	txns, err := h.loyalty.Transactions(uint(userID), merchantID, limit, offset)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

// MyLoyalty returns the caller's balance with one merchant.
func (h *PointsHandler) MyLoyalty(c *gin.Context) {
	userID := middleware.GetUserID(c)
	merchantID, _ := strconv.ParseUint(c.Param("merchant_id"), 10, 64)
	balance, err := h.loyalty.GetBalance(userID, uint(merchantID))
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

// MyTransactions pages the caller's history with one merchant.
func (h *PointsHandler) MyTransactions(c *gin.Context) {
	userID := middleware.GetUserID(c)
	merchantID, _ := strconv.ParseUint(c.Param("merchant_id"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	txns, err := h.loyalty.Transactions(userID, uint(merchantID), limit, offset)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

// RedeemMine converts the caller's points into a PENDING redemption voucher
// to present at the till. The merchant attaches it to an order later.
func (h *PointsHandler) RedeemMine(c *gin.Context) {
	userID := middleware.GetUserID(c)
	merchantID, _ := strconv.ParseUint(c.Param("merchant_id"), 10, 64)
	var req struct {
		Points int `json:"points" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.loyalty.Redeem(userID, uint(merchantID), req.Points, nil, nil)
	if err != nil {
		respondLoyaltyError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// respondLoyaltyError translates loyalty domain errors into HTTP responses.
// Anything unrecognized is a system error: logged, answered 500.
func respondLoyaltyError(c *gin.Context, err error) {
	var insufficient *domain.InsufficientPointsError
	var minRedeem *domain.MinimumRedemptionError
	var minPurchase *domain.MinimumPurchaseError
	var discount *domain.DiscountExceedsOrderError
	switch {
	case errors.Is(err, domain.ErrProgramNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no active loyalty program for merchant"})
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found for merchant"})
	case errors.Is(err, domain.ErrRedemptionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "redemption not found"})
	case errors.As(err, &minPurchase):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "minimum_purchase": minPurchase.Minimum})
	case errors.As(err, &minRedeem):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "minimum_redemption": minRedeem.Minimum})
	case errors.As(err, &discount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "discount_value": discount.Discount, "order_amount": discount.OrderAmount})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "current_balance": insufficient.Current, "requested": insufficient.Requested})
	case errors.Is(err, domain.ErrRedemptionCancelled), errors.Is(err, domain.ErrRedemptionApplied):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("[points] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
