package router

import (
	"time"

	"perks/config"
	"perks/internal/domain"
	"perks/internal/handler"
	"perks/internal/middleware"
	"perks/internal/repository"
	"perks/internal/service"
	"perks/internal/ws"
	"perks/pkg/cloudinary"
	"perks/pkg/lockstore"
	"perks/pkg/orders"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Setup wires repositories, services and handlers onto the engine. The
// returned Sweeper is not started; main owns its lifecycle.
func Setup(cfg *config.Config, db *gorm.DB, store lockstore.Store, verifier orders.Verifier, cloud cloudinary.Client) (*gin.Engine, *service.Sweeper) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Skip gin.Logger() to reduce log noise; use gin.Default() if you need request logging
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	programRepo := repository.NewProgramRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	rewardRepo := repository.NewVenueRewardRepository(db)
	credRepo := repository.NewCredentialRepository(db)

	hub := ws.NewHub()

	// Services
	loyaltySvc := service.NewLoyaltyService(programRepo, ledgerRepo, verifier, hub)
	guard := service.NewClaimGuard(store, cfg.Claims.LockTTL)
	claimSvc := service.NewClaimService(rewardRepo, guard, hub)
	sweeper := service.NewSweeper(loyaltySvc, cfg.Sweeper.Interval, cfg.Sweeper.PendingMaxAge)

	// Handlers
	pointsHandler := handler.NewPointsHandler(loyaltySvc)
	claimHandler := handler.NewClaimHandler(claimSvc)
	programHandler := handler.NewProgramHandler(programRepo)
	rewardHandler := handler.NewRewardHandler(rewardRepo, cloud)
	credHandler := handler.NewCredentialHandler(credRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)
	apiKeyMw := middleware.APIKeyRequired(credRepo)
	claimLimiter := middleware.NewInMemoryRateLimiter(30, time.Minute)

	api := r.Group("/api/v1")
	{
		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/loyalty/:merchant_id", pointsHandler.MyLoyalty)
			me.GET("/loyalty/:merchant_id/transactions", pointsHandler.MyTransactions)
			me.POST("/loyalty/:merchant_id/redeem", pointsHandler.RedeemMine)
			me.GET("/rewards", claimHandler.ListRewards)
			me.GET("/rewards/:id", claimHandler.GetReward)
			me.POST("/rewards/:id/claim", middleware.RateLimitByUser(claimLimiter), claimHandler.Claim)
			me.GET("/rewards/:id/cooldown", claimHandler.CooldownStatus)
			me.GET("/claims", claimHandler.MyClaims)
		}

		merchant := api.Group("/merchant")
		merchant.Use(apiKeyMw)
		{
			merchant.GET("/program", programHandler.GetMine)
			merchant.POST("/points/award", pointsHandler.Award)
			merchant.POST("/points/validate-redemption", pointsHandler.ValidateRedemption)
			merchant.POST("/points/redeem", pointsHandler.Redeem)
			merchant.GET("/redemptions/:id", pointsHandler.GetRedemption)
			merchant.POST("/redemptions/:id/cancel", pointsHandler.CancelRedemption)
			merchant.POST("/redemptions/:id/apply", pointsHandler.ApplyToOrder)
			merchant.GET("/users/:user_id/balance", pointsHandler.UserBalance)
			merchant.GET("/users/:user_id/transactions", pointsHandler.UserTransactions)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.RequireRole(domain.RoleAdmin))
		{
			admin.POST("/merchants/:merchant_id/program", programHandler.Create)
			admin.GET("/merchants/:merchant_id/program", programHandler.Get)
			admin.PATCH("/merchants/:merchant_id/program", programHandler.Update)
			admin.POST("/merchants/:merchant_id/program/deactivate", programHandler.Deactivate)
			admin.POST("/venue-rewards", rewardHandler.Create)
			admin.GET("/venue-rewards", rewardHandler.List)
			admin.PATCH("/venue-rewards/:id", rewardHandler.Update)
			admin.POST("/venue-rewards/:id/image", rewardHandler.UploadImage)
			admin.POST("/merchants/:merchant_id/api-keys", credHandler.Issue)
			admin.GET("/merchants/:merchant_id/api-keys", credHandler.List)
			admin.POST("/api-keys/:id/revoke", credHandler.Revoke)
		}
	}

	r.GET("/ws/activity", ws.UpgradeActivityWS(&cfg.JWT, hub))

	return r, sweeper
}
