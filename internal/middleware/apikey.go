package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"perks/internal/auth"
	"perks/internal/domain"
	"perks/internal/repository"
)

// APIKeyRequired authenticates server-to-server merchant calls with an
// X-API-Key header. On success the credential's merchant is placed in the
// context under the same keys AuthRequired uses.
func APIKeyRequired(creds *repository.CredentialRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-API-Key header"})
			return
		}

		prefix, secret, err := auth.SplitAPIKey(key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}

		cred, err := creds.GetByPrefix(prefix)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		if cred.RevokedAt != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "api key revoked"})
			return
		}
		if !auth.VerifyAPIKeySecret(cred.KeyHash, secret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}

		if err := creds.TouchLastUsed(cred.ID); err != nil {
			log.Printf("[auth] failed to record api key use for credential %d: %v", cred.ID, err)
		}

		c.Set("merchant_id", cred.MerchantID)
		c.Set("role", domain.RoleMerchant)
		c.Next()
	}
}
