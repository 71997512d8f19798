package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clipfuse/clipfuse/internal/auth"
	"github.com/clipfuse/clipfuse/internal/campaign"
	apierrors "github.com/clipfuse/clipfuse/internal/errors"
	"github.com/clipfuse/clipfuse/internal/middleware"
	"github.com/clipfuse/clipfuse/internal/models"
	"github.com/clipfuse/clipfuse/internal/monitoring"
	"github.com/clipfuse/clipfuse/internal/payout"
	"github.com/clipfuse/clipfuse/internal/profile"
	"github.com/clipfuse/clipfuse/internal/storage"
	"github.com/clipfuse/clipfuse/internal/submission"
)

// --- Auth ---

// handleRegister handles user registration
func (s *APIServer) handleRegister(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	resp, err := s.authService.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailAlreadyExists):
			respondError(c, apierrors.NewInvalidRequestError("Email already registered"))
		case errors.Is(err, auth.ErrUsernameAlreadyExists):
			respondError(c, apierrors.NewInvalidRequestError("Username already taken"))
		default:
			s.respondServiceError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// handleLogin handles user login
func (s *APIServer) handleLogin(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	resp, err := s.authService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(c, apierrors.ErrInvalidCredentialsError)
		} else {
			s.respondServiceError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleLogout handles user logout
func (s *APIServer) handleLogout(c *gin.Context) {
	// Stateless JWT: the client drops its tokens
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// handleRefresh handles token refresh
func (s *APIServer) handleRefresh(c *gin.Context) {
	var req auth.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	tokens, err := s.authService.RefreshTokens(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			respondError(c, apierrors.ErrInvalidCredentialsError)
		case errors.Is(err, auth.ErrTokenExpired):
			respondError(c, apierrors.ErrTokenExpiredError)
		default:
			s.respondServiceError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// --- Campaigns ---

type quoteRequest struct {
	TotalBudget    decimal.Decimal `json:"total_budget" binding:"required"`
	CostPer1kViews decimal.Decimal `json:"cost_per_1k_views" binding:"required"`
}

// handleQuote previews campaign economics without persisting anything
func (s *APIServer) handleQuote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, campaign.Quote(req.TotalBudget, req.CostPer1kViews))
}

func (s *APIServer) handleCreateCampaign(c *gin.Context) {
	brandID, ok := currentUserID(c)
	if !ok {
		respondError(c, apierrors.ErrInvalidCredentialsError)
		return
	}

	var req campaign.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	created, err := s.campaignService.Create(c.Request.Context(), brandID, &req)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}

	monitoring.Get().CampaignsCreated.Inc()
	c.JSON(http.StatusCreated, created)
}

func (s *APIServer) handleListCampaigns(c *gin.Context) {
	filter := &campaign.ListFilter{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if v := c.Query("status"); v != "" {
		status := models.CampaignStatus(v)
		filter.Status = &status
	}
	if v := c.Query("niche"); v != "" {
		filter.Niche = &v
	}
	if v := c.Query("platform"); v != "" {
		filter.Platform = &v
	}
	if c.Query("mine") == "true" {
		if brandID, ok := currentUserID(c); ok {
			filter.BrandID = &brandID
		}
	}

	resp, err := s.campaignService.List(c.Request.Context(), filter)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *APIServer) handleGetCampaign(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	found, err := s.campaignService.Get(c.Request.Context(), id)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

func (s *APIServer) handleUpdateCampaign(c *gin.Context) {
	brandID, _ := currentUserID(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req campaign.UpdateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	updated, err := s.campaignService.Update(c.Request.Context(), brandID, id, &req)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type setStatusRequest struct {
	Status models.CampaignStatus `json:"status" binding:"required"`
}

func (s *APIServer) handleSetCampaignStatus(c *gin.Context) {
	brandID, _ := currentUserID(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	updated, err := s.campaignService.SetStatus(c.Request.Context(), brandID, id, req.Status)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *APIServer) handleCampaignProgress(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	progress, err := s.campaignService.GetProgress(c.Request.Context(), id)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (s *APIServer) handleListCampaignSubmissions(c *gin.Context) {
	brandID, _ := currentUserID(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	subs, err := s.submissionService.ListForCampaign(c.Request.Context(), brandID, id)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}

func (s *APIServer) handleCampaignPayments(c *gin.Context) {
	brandID, _ := currentUserID(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	// History is owner-only
	found, err := s.campaignService.Get(c.Request.Context(), id)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	if found.BrandID != brandID {
		respondError(c, apierrors.ErrForbiddenError)
		return
	}

	resp, err := s.paymentService.HistoryForCampaign(c.Request.Context(), id, queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleSubmissionLookup renders the caller's standing against a campaign:
// the submission if one exists, and what the primary action button should say.
func (s *APIServer) handleSubmissionLookup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apierrors.ErrInvalidCredentialsError)
		return
	}
	campaignID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	role := middleware.GetUserTypeFromContext(c)
	lookup, err := s.submissionService.Lookup(c.Request.Context(), userID, campaignID, role)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, lookup)
}

// --- Submissions ---

func (s *APIServer) handleApply(c *gin.Context) {
	influencerID, _ := currentUserID(c)

	var req submission.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	created, err := s.submissionService.Apply(c.Request.Context(), influencerID, &req)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}

	monitoring.Get().SubmissionsTotal.WithLabelValues(string(created.Status)).Inc()
	c.JSON(http.StatusCreated, created)
}

func (s *APIServer) handleMySubmissions(c *gin.Context) {
	influencerID, _ := currentUserID(c)
	subs, err := s.submissionService.ListForInfluencer(c.Request.Context(), influencerID)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}

func (s *APIServer) handleGetSubmission(c *gin.Context) {
	userID, _ := currentUserID(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	sub, err := s.submissionService.Get(c.Request.Context(), id)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}

	// Visible to the influencer who owns it and to the campaign's brand
	if sub.InfluencerID != userID {
		camp, err := s.campaignService.Get(c.Request.Context(), sub.CampaignID)
		if err != nil || camp.BrandID != userID {
			respondError(c, apierrors.ErrForbiddenError)
			return
		}
	}
	c.JSON(http.StatusOK, sub)
}

func (s *APIServer) handleApproveSubmission(c *gin.Context) {
	brandID, _ := currentUserID(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	sub, err := s.submissionService.Approve(c.Request.Context(), brandID, id)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	monitoring.Get().SubmissionsTotal.WithLabelValues(string(sub.Status)).Inc()
	c.JSON(http.StatusOK, sub)
}

func (s *APIServer) handleRequestRevision(c *gin.Context) {
	brandID, _ := currentUserID(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req submission.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	sub, err := s.submissionService.RequestRevision(c.Request.Context(), brandID, id, &req)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	monitoring.Get().SubmissionsTotal.WithLabelValues(string(sub.Status)).Inc()
	c.JSON(http.StatusOK, sub)
}

type resubmitRequest struct {
	ReviewVideoURL string `json:"review_video_url" binding:"required,url"`
}

func (s *APIServer) handleResubmit(c *gin.Context) {
	influencerID, _ := currentUserID(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req resubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	sub, err := s.submissionService.Resubmit(c.Request.Context(), influencerID, id, req.ReviewVideoURL)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	monitoring.Get().SubmissionsTotal.WithLabelValues(string(sub.Status)).Inc()
	c.JSON(http.StatusOK, sub)
}

type markPostedRequest struct {
	PublicPostURL string `json:"public_post_url" binding:"required,url"`
}

func (s *APIServer) handleMarkPosted(c *gin.Context) {
	influencerID, _ := currentUserID(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req markPostedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	sub, err := s.submissionService.MarkPosted(c.Request.Context(), influencerID, id, req.PublicPostURL)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	monitoring.Get().SubmissionsTotal.WithLabelValues(string(sub.Status)).Inc()
	c.JSON(http.StatusOK, sub)
}

func (s *APIServer) handleCompleteSubmission(c *gin.Context) {
	brandID, _ := currentUserID(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	// Completion settles earnings, so only the campaign's brand may call it
	sub, err := s.submissionService.Get(c.Request.Context(), id)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	camp, err := s.campaignService.Get(c.Request.Context(), sub.CampaignID)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	if camp.BrandID != brandID {
		respondError(c, apierrors.ErrForbiddenError)
		return
	}

	completed, err := s.submissionService.Complete(c.Request.Context(), id)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	monitoring.Get().SubmissionsTotal.WithLabelValues(string(completed.Status)).Inc()
	c.JSON(http.StatusOK, completed)
}

type rateRequest struct {
	Rating int `json:"rating" binding:"required,min=1,max=5"`
}

func (s *APIServer) handleRateSubmission(c *gin.Context) {
	brandID, _ := currentUserID(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	sub, err := s.submissionService.Rate(c.Request.Context(), brandID, id, req.Rating)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// --- Payout methods ---

func (s *APIServer) handleAddPayoutMethod(c *gin.Context) {
	userID, _ := currentUserID(c)

	var req payout.AddMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	method, err := s.payoutService.Add(c.Request.Context(), userID, &req)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, method)
}

func (s *APIServer) handleListPayoutMethods(c *gin.Context) {
	userID, _ := currentUserID(c)
	methods, err := s.payoutService.List(c.Request.Context(), userID)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payout_methods": methods})
}

func (s *APIServer) handleUpdatePayoutMethod(c *gin.Context) {
	userID, _ := currentUserID(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req payout.UpdateMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	method, err := s.payoutService.Update(c.Request.Context(), userID, id, &req)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, method)
}

func (s *APIServer) handleSetPrimaryPayoutMethod(c *gin.Context) {
	userID, _ := currentUserID(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	method, err := s.payoutService.SetPrimary(c.Request.Context(), userID, id)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, method)
}

func (s *APIServer) handleDeletePayoutMethod(c *gin.Context) {
	userID, _ := currentUserID(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := s.payoutService.Delete(c.Request.Context(), userID, id); err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payout method deleted"})
}

// --- Profile ---

func (s *APIServer) handleGetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apierrors.ErrInvalidCredentialsError)
		return
	}

	resp, err := s.profileService.Get(c.Request.Context(), userID)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *APIServer) handleUpdateProfile(c *gin.Context) {
	userID, _ := currentUserID(c)

	var req profile.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	resp, err := s.profileService.Update(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, profile.ErrUsernameTaken) {
			respondError(c, apierrors.NewInvalidRequestError("Username already taken"))
			return
		}
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

const maxAvatarBytes = 5 << 20

func (s *APIServer) handleUploadAvatar(c *gin.Context) {
	userID, _ := currentUserID(c)

	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		respondError(c, apierrors.NewValidationError("avatar file is required"))
		return
	}
	defer file.Close()

	if header.Size > maxAvatarBytes {
		respondError(c, apierrors.NewValidationError("avatar exceeds the 5MB limit"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxAvatarBytes))
	if err != nil {
		s.respondServiceError(c, err)
		return
	}

	key := storage.ObjectKey("avatars", userID, header.Filename)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := s.storageClient.Put(c.Request.Context(), key, data, contentType)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}

	if err := s.profileService.SetAvatar(c.Request.Context(), userID, url); err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar_url": url})
}

// --- Social ---

func (s *APIServer) handleSocialLinks(c *gin.Context) {
	userID, _ := currentUserID(c)
	links, err := s.socialService.Links(c.Request.Context(), userID)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

// --- Helpers ---

func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apierrors.NewValidationError(name+" must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}
