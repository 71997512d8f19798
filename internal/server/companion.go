package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clipfuse/clipfuse/internal/logging"
	"github.com/clipfuse/clipfuse/internal/models"
	"github.com/clipfuse/clipfuse/internal/payment"
	"github.com/clipfuse/clipfuse/internal/profile"
	"github.com/clipfuse/clipfuse/internal/social"
)

// The companion surface predates the v1 error envelope; its consumers expect
// flat {"error": "..."} bodies, so the handlers here keep that shape.

func companionError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// handleCreateIntent starts funding a campaign: it returns the payment sheet
// material plus the subtotal/fee/total breakdown.
func (s *APIServer) handleCreateIntent(c *gin.Context) {
	var req payment.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		companionError(c, http.StatusBadRequest, "campaignId and userId are required")
		return
	}

	resp, err := s.paymentService.CreateIntent(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrCampaignNotFound):
			companionError(c, http.StatusNotFound, "campaign not found")
		case errors.Is(err, payment.ErrUserNotFound):
			companionError(c, http.StatusNotFound, "user not found")
		case errors.Is(err, payment.ErrNothingToFund):
			companionError(c, http.StatusConflict, "campaign budget is already fully funded")
		default:
			requestID, _ := c.Get("request_id")
			reqIDStr, _ := requestID.(string)
			logging.LogError(err, reqIDStr, "payment", "create_intent")
			companionError(c, http.StatusInternalServerError, "failed to create payment intent")
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleConfirmPayment settles a funding payment after the client-side sheet
// reports success. Settlement is idempotent with the stripe webhook.
func (s *APIServer) handleConfirmPayment(c *gin.Context) {
	var req payment.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		companionError(c, http.StatusBadRequest, "campaignId and paymentIntentId are required")
		return
	}

	err := s.paymentService.Confirm(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrPaymentNotFound):
			companionError(c, http.StatusNotFound, "payment not found")
		case errors.Is(err, payment.ErrIntentNotSucceeded):
			companionError(c, http.StatusConflict, "payment has not succeeded")
		case errors.Is(err, payment.ErrOverPayment):
			companionError(c, http.StatusConflict, "payment would exceed the campaign budget")
		default:
			requestID, _ := c.Get("request_id")
			reqIDStr, _ := requestID.(string)
			logging.LogError(err, reqIDStr, "payment", "confirm")
			companionError(c, http.StatusInternalServerError, "failed to confirm payment")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "succeeded"})
}

func (s *APIServer) handleCompanionPaymentHistory(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Query("campaignId"))
	if err != nil {
		companionError(c, http.StatusBadRequest, "campaignId is required")
		return
	}

	resp, err := s.paymentService.HistoryForCampaign(c.Request.Context(), campaignID, queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	if err != nil {
		companionError(c, http.StatusInternalServerError, "failed to load payment history")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleStripeWebhook receives payment events straight from Stripe
func (s *APIServer) handleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		companionError(c, http.StatusBadRequest, "failed to read payload")
		return
	}

	err = s.paymentService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidWebhookSig) {
			companionError(c, http.StatusBadRequest, "invalid signature")
			return
		}
		requestID, _ := c.Get("request_id")
		reqIDStr, _ := requestID.(string)
		logging.LogError(err, reqIDStr, "payment", "webhook")
		companionError(c, http.StatusInternalServerError, "webhook processing failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// --- Platform OAuth ---

func (s *APIServer) handleOAuthAuthorize(c *gin.Context, platform models.SocialPlatform) {
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		companionError(c, http.StatusBadRequest, "user_id is required")
		return
	}

	url, err := s.socialService.AuthorizeURL(c.Request.Context(), platform, userID)
	if err != nil {
		companionError(c, http.StatusInternalServerError, "failed to start authorization")
		return
	}
	c.JSON(http.StatusOK, gin.H{"authorize_url": url})
}

func (s *APIServer) handleOAuthCallback(c *gin.Context, platform models.SocialPlatform) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		companionError(c, http.StatusBadRequest, "code and state are required")
		return
	}

	link, err := s.socialService.HandleCallback(c.Request.Context(), platform, code, state)
	if err != nil {
		switch {
		case errors.Is(err, social.ErrInvalidState):
			companionError(c, http.StatusBadRequest, "invalid or expired state")
		case errors.Is(err, social.ErrTokenRejected):
			companionError(c, http.StatusBadGateway, "platform rejected the authorization")
		default:
			requestID, _ := c.Get("request_id")
			reqIDStr, _ := requestID.(string)
			logging.LogError(err, reqIDStr, "social", "oauth_callback")
			companionError(c, http.StatusInternalServerError, "failed to complete authorization")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "link": link})
}

func (s *APIServer) handleOAuthRevoke(c *gin.Context, platform models.SocialPlatform) {
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		companionError(c, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := s.socialService.Revoke(c.Request.Context(), platform, userID); err != nil {
		if errors.Is(err, social.ErrNotConnected) {
			companionError(c, http.StatusNotFound, "platform not connected")
			return
		}
		companionError(c, http.StatusInternalServerError, "failed to revoke connection")
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": true})
}

func (s *APIServer) handleVideoList(c *gin.Context) {
	platform := models.SocialPlatform(c.Param("platform"))
	if !models.ValidSocialPlatform(platform) {
		companionError(c, http.StatusBadRequest, "unsupported platform")
		return
	}
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		companionError(c, http.StatusBadRequest, "user_id is required")
		return
	}

	items, err := s.socialService.VideoList(c.Request.Context(), platform, userID)
	if err != nil {
		switch {
		case errors.Is(err, social.ErrNotConnected):
			companionError(c, http.StatusNotFound, "platform not connected")
		case errors.Is(err, social.ErrTokenRejected):
			companionError(c, http.StatusUnauthorized, "platform token expired, reconnect the account")
		case errors.Is(err, social.ErrCircuitOpen):
			companionError(c, http.StatusServiceUnavailable, "platform temporarily unavailable")
		default:
			companionError(c, http.StatusBadGateway, "failed to fetch videos")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": items})
}

// --- Account ---

type deleteAccountRequest struct {
	UserID uuid.UUID `json:"userId" binding:"required"`
}

func (s *APIServer) handleDeleteAccount(c *gin.Context) {
	var req deleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		companionError(c, http.StatusBadRequest, "userId is required")
		return
	}

	if err := s.profileService.DeleteAccount(c.Request.Context(), req.UserID); err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			companionError(c, http.StatusNotFound, "user not found")
			return
		}
		requestID, _ := c.Get("request_id")
		reqIDStr, _ := requestID.(string)
		logging.LogError(err, reqIDStr, "profile", "delete_account")
		companionError(c, http.StatusInternalServerError, "failed to delete account")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
