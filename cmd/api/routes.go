package main

import (
	"affiliate-platform/internal/auth"
	"affiliate-platform/internal/httpapi"
	"affiliate-platform/internal/postback"
	"affiliate-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, pb postback.Handlers, api httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Browser tracking link. Public by nature; the URL token is the credential.
	r.GET("/t/:token", pb.Redirect)

	// Advertiser S2S endpoints. Authenticated by the HMAC signature scheme,
	// rate limited per API key; no JWT involved.
	s2s := r.Group("/api/v1/postback")
	{
		s2s.POST("/conversion", pb.SubmitConversion)
		s2s.POST("/click", pb.SubmitClick)
	}

	// Token issuance.
	r.POST("/v1/auth/login", api.Login)

	// Promoter/admin API, JWT protected.
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/me", func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(200, gin.H{"user_id": uid, "role": role})
		})

		// Promoter surface.
		enroll := v1.Group("/enrollments")
		enroll.Use(httpapi.RequireAnyRole(rbac.RolePromoter))
		{
			enroll.POST("", api.JoinOffer)
			enroll.GET("", api.ListMyEnrollments)
			enroll.GET("/:enrollment_id/clicks", api.EnrollmentClickStats)
		}
		v1.GET("/earnings", httpapi.RequireAnyRole(rbac.RolePromoter), api.MyEarnings)

		// ADMIN routes.
		// Hidden network_operator is intentionally NOT included unless explicitly desired.
		admin := v1.Group("/admin")
		admin.Use(httpapi.RequireAnyRole(rbac.RoleSuperAdmin))
		{
			admin.POST("/networks", api.AdminCreateNetwork)
			admin.POST("/offers", api.AdminCreateOffer)
			admin.POST("/conversions/:conversion_id/approve", api.AdminReviewConversion("approve"))
			admin.POST("/conversions/:conversion_id/reject", api.AdminReviewConversion("reject"))
		}
	}
}
