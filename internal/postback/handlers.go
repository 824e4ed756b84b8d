package postback

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"affiliate-platform/internal/audit"
	"affiliate-platform/internal/conversion"
	"affiliate-platform/internal/offers"
	"affiliate-platform/internal/ratelimit"
	"affiliate-platform/internal/signature"
	"affiliate-platform/internal/tracking"
	"affiliate-platform/pkg/logger"
)

// Machine-readable error codes of the S2S postback API. Part of the
// advertiser integration contract; never rename.
const (
	CodeInvalidSignature     = "INVALID_SIGNATURE"
	CodeExpiredRequest       = "EXPIRED_REQUEST"
	CodeDuplicateTransaction = "DUPLICATE_TRANSACTION"
	CodeInvalidOffer         = "INVALID_OFFER"
	CodeRateLimited          = "RATE_LIMITED"
	CodeInvalidAPIKey        = "INVALID_API_KEY"
	CodeInvalidRequest       = "INVALID_REQUEST"
)

// Handlers groups the inbound postback endpoints for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Verifier    *signature.Verifier
	Limiter     *ratelimit.Limiter
	Redirects   *ratelimit.RedirectLimiter
	Conversions *conversion.Service
	Tracking    *tracking.Service
	Audit       *audit.Service
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg, "code": code})
}

func respondData(c *gin.Context, data gin.H) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// signedRequest is the authentication envelope shared by both S2S endpoints.
type signedRequest struct {
	APIKey    string `json:"api_key"`
	NetworkID string `json:"network_id"`
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

// authenticate runs the rate limiter and the signature verifier in that
// order, so a throttled request touches no durable state (not even the
// nonce table). On failure the response has already been written; callers
// must return immediately.
func (h Handlers) authenticate(c *gin.Context, req signedRequest) bool {
	if err := h.Limiter.Allow(c.Request.Context(), req.APIKey); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			respondError(c, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
			return false
		}
		logger.FromGin(c).Error("rate limiter unavailable", "error", err)
		respondError(c, http.StatusServiceUnavailable, CodeRateLimited, "rate limiter unavailable")
		return false
	}

	_, err := h.Verifier.Verify(c.Request.Context(), signature.Request{
		APIKey:          req.APIKey,
		NetworkID:       req.NetworkID,
		TimestampMillis: req.Timestamp,
		Nonce:           req.Nonce,
		Signature:       req.Signature,
	})
	if err == nil {
		return true
	}

	switch {
	case errors.Is(err, signature.ErrInvalidAPIKey):
		respondError(c, http.StatusUnauthorized, CodeInvalidAPIKey, "unknown or inactive api key")
	case errors.Is(err, signature.ErrExpiredRequest):
		respondError(c, http.StatusUnauthorized, CodeExpiredRequest, "timestamp outside freshness window")
	case errors.Is(err, signature.ErrNonceReplayed):
		// The identical signed request was already accepted once. A real
		// advertiser retry re-signs with a fresh nonce and lands on the
		// idempotency guard instead.
		respondError(c, http.StatusConflict, CodeDuplicateTransaction, "request already processed")
	case errors.Is(err, signature.ErrInvalidRequest):
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, "missing signature fields")
	case errors.Is(err, signature.ErrInvalidSignature):
		respondError(c, http.StatusUnauthorized, CodeInvalidSignature, "signature mismatch")
	default:
		logger.FromGin(c).Error("signature verification failed", "error", err)
		respondError(c, http.StatusServiceUnavailable, CodeInvalidSignature, "verification unavailable")
	}
	return false
}

type conversionRequest struct {
	signedRequest

	OfferID       string `json:"offer_id"`
	TransactionID string `json:"transaction_id"`
	ClickID       string `json:"click_id"`
	TrackingToken string `json:"tracking_token"`

	// Amount is in minor units. Commission is accepted for wire
	// compatibility but deliberately ignored: commission is always derived
	// from the offer's configured rate.
	Amount     int64  `json:"amount"`
	Commission int64  `json:"commission,omitempty"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`

	CustomParams map[string]string `json:"custom_params"`
}

// SubmitConversion is POST /api/v1/postback/conversion.
func (h Handlers) SubmitConversion(c *gin.Context) {
	var req conversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, "invalid json")
		return
	}
	if !h.authenticate(c, req.signedRequest) {
		return
	}

	res, err := h.Conversions.Process(c.Request.Context(), conversion.PostbackRequest{
		NetworkID:     req.NetworkID,
		OfferID:       req.OfferID,
		TransactionID: req.TransactionID,
		ClickID:       req.ClickID,
		TrackingToken: req.TrackingToken,
		AmountMinor:   req.Amount,
		Currency:      req.Currency,
		Status:        conversion.Status(req.Status),
		CustomParams:  req.CustomParams,
	})
	if err != nil {
		code, status, msg := CodeInvalidRequest, http.StatusInternalServerError, "conversion processing failed"
		switch {
		case errors.Is(err, conversion.ErrInvalidArgument):
			status, msg = http.StatusBadRequest, "invalid postback payload"
		case errors.Is(err, conversion.ErrInvalidOffer):
			code, status, msg = CodeInvalidOffer, http.StatusNotFound, "offer not found for this network"
		case errors.Is(err, conversion.ErrUnattributable):
			code, status, msg = CodeInvalidOffer, http.StatusNotFound, "no enrollment matches click id or tracking token"
		default:
			logger.FromGin(c).Error("conversion pipeline failed", "error", err, "transaction_id", req.TransactionID)
		}
		respondError(c, status, code, msg)
		h.auditReject(c, req.NetworkID, req.OfferID, req.TransactionID, code)
		return
	}

	if h.Audit != nil {
		conv := res.Conversion
		if err := h.Audit.LogPostbackAccepted(c.Request.Context(), req.NetworkID, c.ClientIP(),
			req.OfferID, conv.EnrollmentID, conv.ID, req.TransactionID, res.Duplicate); err != nil {
			logger.FromGin(c).Warn("audit append failed", "error", err)
		}
	}

	// Replays answer with the original conversion id so advertiser retry
	// loops converge.
	respondData(c, gin.H{
		"conversion_id":  res.Conversion.ID,
		"offer_id":       req.OfferID,
		"transaction_id": req.TransactionID,
		"status":         res.Conversion.Status,
		"duplicate":      res.Duplicate,
	})
}

type clickRequest struct {
	signedRequest

	OfferID       string            `json:"offer_id"`
	TrackingToken string            `json:"tracking_token"`
	IPAddress     string            `json:"ip"`
	UserAgent     string            `json:"user_agent"`
	Country       string            `json:"country"`
	Referrer      string            `json:"referrer"`
	SubIDs        map[string]string `json:"sub_ids"`
}

// SubmitClick is POST /api/v1/postback/click, the server-side click report.
func (h Handlers) SubmitClick(c *gin.Context) {
	var req clickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, "invalid json")
		return
	}
	if !h.authenticate(c, req.signedRequest) {
		return
	}
	if req.TrackingToken == "" {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, "tracking_token required")
		return
	}

	enrollment, _, err := h.Tracking.ResolveRedirect(c.Request.Context(), req.TrackingToken)
	if err != nil {
		if errors.Is(err, offers.ErrEnrollmentNotFound) {
			respondError(c, http.StatusNotFound, CodeInvalidOffer, "tracking token does not match an enrollment of this offer")
			return
		}
		logger.FromGin(c).Error("tracking token resolution failed", "error", err)
		respondError(c, http.StatusInternalServerError, CodeInvalidRequest, "click recording failed")
		return
	}
	if req.OfferID != "" && enrollment.OfferID != req.OfferID {
		respondError(c, http.StatusNotFound, CodeInvalidOffer, "tracking token does not match an enrollment of this offer")
		return
	}

	click, err := h.Tracking.RecordClick(c.Request.Context(), enrollment.ID, tracking.Metadata{
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		Country:   req.Country,
		Referrer:  req.Referrer,
		SubIDs:    req.SubIDs,
	})
	if err != nil {
		if errors.Is(err, tracking.ErrEnrollmentNotFound) {
			respondError(c, http.StatusNotFound, CodeInvalidOffer, "enrollment not found or inactive")
			return
		}
		logger.FromGin(c).Error("click recording failed", "error", err)
		respondError(c, http.StatusInternalServerError, CodeInvalidRequest, "click recording failed")
		return
	}

	respondData(c, gin.H{
		"click_id":      click.ID,
		"enrollment_id": enrollment.ID,
		"offer_id":      enrollment.OfferID,
	})
}

// Redirect is GET /t/:token, the browser-facing tracking link.
//
// The user is always redirected to the offer destination when the token
// resolves; tracking failures and redirect rate limiting are logged and
// swallowed so they can never break the landing experience.
func (h Handlers) Redirect(c *gin.Context) {
	token := c.Param("token")

	enrollment, dest, err := h.Tracking.ResolveRedirect(c.Request.Context(), token)
	if err != nil {
		c.String(http.StatusNotFound, "unknown tracking link")
		return
	}

	switch {
	case !enrollment.IsActive():
		logger.FromGin(c).Info("click on inactive enrollment skipped", "enrollment_id", enrollment.ID)
	case h.Redirects != nil && !h.Redirects.Allow(c.ClientIP()):
		logger.FromGin(c).Warn("redirect click throttled", "ip", c.ClientIP())
	default:
		if _, err := h.Tracking.RecordClick(c.Request.Context(), enrollment.ID, tracking.Metadata{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Referrer:  c.Request.Referer(),
			SubIDs:    subIDsFromQuery(c),
		}); err != nil {
			logger.FromGin(c).Error("click recording failed", "error", err, "enrollment_id", enrollment.ID)
		}
	}

	c.Redirect(http.StatusFound, dest)
}

// subIDsFromQuery collects sub1..sub5 passthrough parameters.
func subIDsFromQuery(c *gin.Context) map[string]string {
	var out map[string]string
	for _, k := range [...]string{"sub1", "sub2", "sub3", "sub4", "sub5"} {
		if v := c.Query(k); v != "" {
			if out == nil {
				out = make(map[string]string)
			}
			out[k] = v
		}
	}
	return out
}

func (h Handlers) auditReject(c *gin.Context, networkID, offerID, transactionID, code string) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.LogPostbackRejected(c.Request.Context(), networkID, c.ClientIP(), offerID, transactionID, code); err != nil {
		logger.FromGin(c).Warn("audit append failed", "error", err)
	}
}
