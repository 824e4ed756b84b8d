package httpapi

import (
	"errors"
	"net/http"
	"time"

	"affiliate-platform/internal/audit"
	"affiliate-platform/internal/auth"
	"affiliate-platform/internal/conversion"
	"affiliate-platform/internal/network"
	"affiliate-platform/internal/offers"
	"affiliate-platform/internal/rbac"
	"affiliate-platform/internal/reporting"
	"affiliate-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth        *auth.Manager
	Offers      *offers.Service
	Conversions *conversion.Service
	Reporting   *reporting.Service
	Networks    network.Repository
	Audit       *audit.Service
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Offers / enrollments (promoter-facing) ---

type joinOfferRequest struct {
	OfferID string `json:"offer_id"`
}

// JoinOffer enrolls the authenticated promoter into an offer. Idempotent:
// joining twice returns the existing enrollment and its tracking token.
func (h Handlers) JoinOffer(c *gin.Context) {
	promoterID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	var req joinOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	enrollment, created, err := h.Offers.Join(c.Request.Context(), promoterID, req.OfferID)
	if err != nil {
		switch {
		case errors.Is(err, offers.ErrInvalidArgument):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "offer_id required"})
		case errors.Is(err, offers.ErrOfferNotFound), errors.Is(err, offers.ErrOfferInactive):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "offer not available"})
		default:
			logger.FromGin(c).Error("join offer failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "join failed"})
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, enrollment)
}

func (h Handlers) ListMyEnrollments(c *gin.Context) {
	promoterID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	out, err := h.Offers.ListEnrollments(c.Request.Context(), promoterID)
	if err != nil {
		logger.FromGin(c).Error("list enrollments failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrollments": out})
}

// --- Stats (promoter-facing) ---

// parseRange reads from/to query params (RFC3339), defaulting to the last 30 days.
func parseRange(c *gin.Context) (reporting.TimeRange, bool) {
	now := time.Now().UTC()
	r := reporting.TimeRange{From: now.AddDate(0, 0, -30), To: now}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return r, false
		}
		r.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return r, false
		}
		r.To = t
	}
	return r, true
}

func (h Handlers) EnrollmentClickStats(c *gin.Context) {
	rng, ok := parseRange(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid time range"})
		return
	}
	out, err := h.Reporting.ClickBreakdown(c.Request.Context(), reporting.ClickBreakdownRequest{
		EnrollmentID: c.Param("enrollment_id"),
		Range:        rng,
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		logger.FromGin(c).Error("click stats failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) MyEarnings(c *gin.Context) {
	promoterID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	rng, ok := parseRange(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid time range"})
		return
	}
	out, err := h.Reporting.EarningsSummary(c.Request.Context(), reporting.EarningsSummaryRequest{
		PromoterID: promoterID,
		OfferID:    c.Query("offer_id"),
		Range:      rng,
	})
	if err != nil {
		logger.FromGin(c).Error("earnings summary failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Admin: networks, offers, conversion review ---

type createNetworkRequest struct {
	Name        string `json:"name"`
	PostbackURL string `json:"postback_url"`
}

// AdminCreateNetwork registers an advertiser network and mints its API
// credentials. The secret is returned exactly once, in this response.
func (h Handlers) AdminCreateNetwork(c *gin.Context) {
	var req createNetworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Name == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}

	now := time.Now().UTC()
	n := network.Network{
		ID:              uuid.NewString(),
		Name:            req.Name,
		APIKey:          uuid.NewString(),
		Secret:          uuid.NewString(),
		SecretValidFrom: now,
		PostbackURL:     req.PostbackURL,
		Status:          network.StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.Networks.Create(c.Request.Context(), n); err != nil {
		logger.FromGin(c).Error("create network failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":      n.ID,
		"name":    n.Name,
		"api_key": n.APIKey,
		"secret":  n.Secret,
		"status":  n.Status,
	})
}

type createOfferRequest struct {
	NetworkID         string `json:"network_id"`
	Title             string `json:"title"`
	DestinationURL    string `json:"destination_url"`
	PayoutMinor       int64  `json:"payout_minor"`
	CommissionRateBps int64  `json:"commission_rate_bps"`
	Currency          string `json:"currency"`
}

func (h Handlers) AdminCreateOffer(c *gin.Context) {
	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := h.Offers.CreateOffer(c.Request.Context(), offers.Offer{
		NetworkID:         req.NetworkID,
		Title:             req.Title,
		DestinationURL:    req.DestinationURL,
		PayoutMinor:       req.PayoutMinor,
		CommissionRateBps: req.CommissionRateBps,
		Currency:          req.Currency,
	})
	if err != nil {
		if errors.Is(err, offers.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.FromGin(c).Error("create offer failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, o)
}

// AdminReviewConversion approves or rejects a pending conversion.
// RBAC: super_admin only (wired in routes).
func (h Handlers) AdminReviewConversion(decision string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("conversion_id")

		var (
			out conversion.Conversion
			err error
		)
		switch decision {
		case "approve":
			out, err = h.Conversions.Approve(c.Request.Context(), id)
		case "reject":
			out, err = h.Conversions.Reject(c.Request.Context(), id)
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown decision"})
			return
		}
		if err != nil {
			switch {
			case errors.Is(err, conversion.ErrConversionNotFound):
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "conversion not found"})
			case errors.Is(err, conversion.ErrAlreadyFinal):
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "conversion already finalized"})
			case errors.Is(err, conversion.ErrInvalidArgument):
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "conversion_id required"})
			default:
				logger.FromGin(c).Error("conversion review failed", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "review failed"})
			}
			return
		}

		if h.Audit != nil {
			actorID, _ := auth.UserID(c.Request.Context())
			actorRole, _ := auth.Role(c.Request.Context())
			if err := h.Audit.LogAdminReview(c.Request.Context(), actorID, actorRole, c.ClientIP(), out.ID, string(out.Status)); err != nil {
				logger.FromGin(c).Warn("audit append failed", "error", err)
			}
		}
		c.JSON(http.StatusOK, out)
	}
}

// Convenience middleware bundle.

func RequireAnyRole(roles ...string) gin.HandlerFunc {
	return rbac.RequireAnyRole(roles...)
}
