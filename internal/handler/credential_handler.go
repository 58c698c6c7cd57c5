package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"perks/internal/auth"
	"perks/internal/models"
	"perks/internal/repository"
)

type CredentialHandler struct {
	creds *repository.CredentialRepository
}

func NewCredentialHandler(creds *repository.CredentialRepository) *CredentialHandler {
	return &CredentialHandler{creds: creds}
}

// Issue mints an API key for a merchant's POS integration. The full key
// appears in this response and nowhere else; only the hash is stored.
func (h *CredentialHandler) Issue(c *gin.Context) {
	merchantID, _ := strconv.ParseUint(c.Param("merchant_id"), 10, 64)
	if merchantID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid merchant id"})
		return
	}
	var req struct {
		Label string `json:"label"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	full, prefix, hash, err := auth.NewAPIKey()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "key generation failed"})
		return
	}
	cred := &models.APICredential{
		MerchantID: uint(merchantID),
		Label:      req.Label,
		KeyPrefix:  prefix,
		KeyHash:    hash,
	}
	if err := h.creds.Create(cred); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store credential"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":      cred.ID,
		"api_key": full,
		"prefix":  prefix,
		"label":   cred.Label,
		"message": "store this key now; it cannot be retrieved again",
	})
}

// List shows a merchant's credentials (prefixes and metadata only).
func (h *CredentialHandler) List(c *gin.Context) {
	merchantID, _ := strconv.ParseUint(c.Param("merchant_id"), 10, 64)
	creds, err := h.creds.ListByMerchant(uint(merchantID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"credentials": creds})
}

// Revoke disables a key. Revocation takes effect on the next request that
// presents it.
func (h *CredentialHandler) Revoke(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	if err := h.creds.Revoke(uint(id)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "credential not found or already revoked"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}
