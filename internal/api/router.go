package api

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"parking-backend/config"
	"parking-backend/internal/engine"
	"parking-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router. viewCache is the
// same instance the engine invalidates, so summary responses never
// outlive a successful claim, release or resize.
func NewRouter(h *Handler, viewCache *mw.ViewCache, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/parking-lots",
			mw.CacheView(viewCache, engine.ViewUserLots, cfg.Cache.UserTTL), h.GetLotSummaries)

		api.POST("/users", h.CreateUser)

		api.POST("/reservations", h.CreateReservation)
		api.PUT("/reservations/:reservation_id/release", h.ReleaseReservation)
		api.GET("/reservations/current", h.GetCurrentReservation)
		api.GET("/reservations/history", h.GetReservationHistory)

		api.POST("/exports", h.CreateExport)
		api.GET("/exports/:export_id", h.GetExport)

		api.GET("/subscriptions", h.GetSubscriptions)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

		admin := api.Group("/admin")
		{
			admin.GET("/parking-lots", h.ListLots)
			admin.GET("/parking-lots/summary",
				mw.CacheView(viewCache, engine.ViewAdminLots, cfg.Cache.AdminTTL), h.GetAdminLotSummaries)
			admin.POST("/parking-lots", h.CreateLot)
			admin.PUT("/parking-lots/:lot_id", h.UpdateLot)
			admin.DELETE("/parking-lots/:lot_id", h.DeleteLot)
			admin.GET("/parking-lots/:lot_id/spots", h.GetLotSpots)
			admin.GET("/dashboard-summary",
				mw.CacheView(viewCache, engine.ViewDashboard, cfg.Cache.AdminTTL), h.GetDashboard)
			admin.GET("/users", h.ListUsers)
		}
	}

	return r
}
