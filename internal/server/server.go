// Package server wires the HTTP surfaces: the JWT-protected /api/v1 routes
// used after login, and the companion /api routes the mobile app reaches
// with a static API key.
package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipfuse/clipfuse/internal/auth"
	"github.com/clipfuse/clipfuse/internal/cache"
	"github.com/clipfuse/clipfuse/internal/campaign"
	"github.com/clipfuse/clipfuse/internal/config"
	apierrors "github.com/clipfuse/clipfuse/internal/errors"
	"github.com/clipfuse/clipfuse/internal/logging"
	"github.com/clipfuse/clipfuse/internal/middleware"
	"github.com/clipfuse/clipfuse/internal/models"
	"github.com/clipfuse/clipfuse/internal/monitoring"
	"github.com/clipfuse/clipfuse/internal/payment"
	"github.com/clipfuse/clipfuse/internal/payout"
	"github.com/clipfuse/clipfuse/internal/profile"
	"github.com/clipfuse/clipfuse/internal/social"
	"github.com/clipfuse/clipfuse/internal/storage"
	"github.com/clipfuse/clipfuse/internal/submission"
)

// APIServer represents the main API server
type APIServer struct {
	config           *config.Config
	router           *gin.Engine
	db               *pgxpool.Pool
	redis            *cache.Redis
	jwtAuthenticator *middleware.JWTAuthenticator

	authService       *auth.Service
	campaignService   *campaign.Service
	submissionService *submission.Service
	paymentService    *payment.Service
	payoutService     *payout.Service
	profileService    *profile.Service
	socialService     *social.Service
	storageClient     *storage.Client
}

// NewAPIServer creates a new API server instance
func NewAPIServer(cfg *config.Config, db *pgxpool.Pool, redis *cache.Redis, storageClient *storage.Client) *APIServer {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware in order
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(monitoring.MetricsMiddleware())
	router.Use(logging.RequestLogger())

	srv := &APIServer{
		config:            cfg,
		router:            router,
		db:                db,
		redis:             redis,
		jwtAuthenticator:  middleware.NewJWTAuthenticator(&cfg.JWT),
		authService:       auth.NewService(db, &cfg.JWT),
		campaignService:   campaign.NewService(db),
		submissionService: submission.NewService(db),
		paymentService:    payment.NewService(db, &cfg.Stripe, &cfg.Payments),
		payoutService:     payout.NewService(db),
		profileService:    profile.NewService(db),
		socialService:     social.NewService(db, redis, social.NewClients(&cfg.Platforms)),
		storageClient:     storageClient,
	}

	srv.setupRoutes()
	return srv
}

// Router returns the gin router
func (s *APIServer) Router() http.Handler {
	return s.router
}

// SocialService exposes the social service so cmd/api can hang the metrics
// syncer off the same breaker and client set the handlers use.
func (s *APIServer) SocialService() *social.Service {
	return s.socialService
}

// SubmissionService exposes the submission service for the metrics syncer.
func (s *APIServer) SubmissionService() *submission.Service {
	return s.submissionService
}

// setupRoutes configures all API routes
func (s *APIServer) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	// Stripe calls this directly; it is authenticated by signature, not key
	s.router.POST("/api/webhooks/stripe", s.handleStripeWebhook)

	// OAuth providers redirect here; no API key on the way back
	for _, platform := range supportedPlatforms {
		s.router.GET("/api/"+string(platform)+"/callback", s.platformHandler(platform, s.handleOAuthCallback))
	}

	// Companion surface: static API key plus a per-caller rate limit
	rateLimiter := middleware.NewRateLimiter(s.redis, &s.config.RateLimit)
	api := s.router.Group("/api")
	api.Use(middleware.APIKeyAuth(&s.config.CompanionAPI))
	api.Use(rateLimiter.Limit())
	{
		api.POST("/payments/create-intent", s.handleCreateIntent)
		api.POST("/payments/confirm", s.handleConfirmPayment)
		api.GET("/payments/history", s.handleCompanionPaymentHistory)
		api.POST("/users/delete-account", s.handleDeleteAccount)

		for _, platform := range supportedPlatforms {
			group := api.Group("/" + string(platform))
			group.GET("/authorize", s.platformHandler(platform, s.handleOAuthAuthorize))
			group.POST("/revoke", s.platformHandler(platform, s.handleOAuthRevoke))
		}
		api.GET("/video-list/:platform", s.handleVideoList)
	}

	v1 := s.router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", s.handleRegister)
			authGroup.POST("/login", s.handleLogin)
			authGroup.POST("/logout", s.handleLogout)
			authGroup.POST("/refresh", s.handleRefresh)
		}

		campaigns := v1.Group("/campaigns")
		campaigns.Use(s.jwtAuthenticator.JWTAuth())
		{
			campaigns.POST("/quote", s.handleQuote)
			campaigns.GET("/", s.handleListCampaigns)
			campaigns.GET("/:id", s.handleGetCampaign)
			campaigns.GET("/:id/progress", s.handleCampaignProgress)
			campaigns.GET("/:id/submission", s.handleSubmissionLookup)

			campaigns.POST("/", middleware.RequireBrand(), s.handleCreateCampaign)
			campaigns.PUT("/:id", middleware.RequireBrand(), s.handleUpdateCampaign)
			campaigns.PUT("/:id/status", middleware.RequireBrand(), s.handleSetCampaignStatus)
			campaigns.GET("/:id/submissions", middleware.RequireBrand(), s.handleListCampaignSubmissions)
			campaigns.GET("/:id/payments", middleware.RequireBrand(), s.handleCampaignPayments)
		}

		submissions := v1.Group("/submissions")
		submissions.Use(s.jwtAuthenticator.JWTAuth())
		{
			submissions.POST("/", middleware.RequireInfluencer(), s.handleApply)
			submissions.GET("/mine", middleware.RequireInfluencer(), s.handleMySubmissions)
			submissions.GET("/:id", s.handleGetSubmission)
			submissions.POST("/:id/approve", middleware.RequireBrand(), s.handleApproveSubmission)
			submissions.POST("/:id/request-revision", middleware.RequireBrand(), s.handleRequestRevision)
			submissions.POST("/:id/resubmit", middleware.RequireInfluencer(), s.handleResubmit)
			submissions.POST("/:id/posted", middleware.RequireInfluencer(), s.handleMarkPosted)
			submissions.POST("/:id/complete", middleware.RequireBrand(), s.handleCompleteSubmission)
			submissions.POST("/:id/rate", middleware.RequireBrand(), s.handleRateSubmission)
		}

		payouts := v1.Group("/payout-methods")
		payouts.Use(s.jwtAuthenticator.JWTAuth())
		payouts.Use(middleware.RequireInfluencer())
		{
			payouts.POST("/", s.handleAddPayoutMethod)
			payouts.GET("/", s.handleListPayoutMethods)
			payouts.PUT("/:id", s.handleUpdatePayoutMethod)
			payouts.POST("/:id/primary", s.handleSetPrimaryPayoutMethod)
			payouts.DELETE("/:id", s.handleDeletePayoutMethod)
		}

		profiles := v1.Group("/profile")
		profiles.Use(s.jwtAuthenticator.JWTAuth())
		{
			profiles.GET("/me", s.handleGetProfile)
			profiles.PUT("/me", s.handleUpdateProfile)
			profiles.POST("/me/avatar", s.handleUploadAvatar)
		}

		socialGroup := v1.Group("/social")
		socialGroup.Use(s.jwtAuthenticator.JWTAuth())
		{
			socialGroup.GET("/links", s.handleSocialLinks)
		}
	}
}

var supportedPlatforms = []models.SocialPlatform{
	models.PlatformTikTok,
	models.PlatformInstagram,
	models.PlatformYouTube,
}

// platformHandler binds the platform from the route prefix so the handler
// body stays free of string parsing.
func (s *APIServer) platformHandler(platform models.SocialPlatform, h func(*gin.Context, models.SocialPlatform)) gin.HandlerFunc {
	return func(c *gin.Context) {
		h(c, platform)
	}
}

// Health check handler
func (s *APIServer) healthCheck(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{"database": "ok", "redis": "ok"}

	ctx := c.Request.Context()
	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = "unreachable"
		status = http.StatusServiceUnavailable
	}
	if err := s.redis.Health(ctx); err != nil {
		// Redis is a soft dependency; report but stay healthy
		checks["redis"] = "unreachable"
	}

	body := gin.H{"service": "clipfuse", "checks": checks}
	if status == http.StatusOK {
		body["status"] = "healthy"
	} else {
		body["status"] = "unhealthy"
	}
	c.JSON(status, body)
}

// currentUserID reads the authenticated user from the JWT middleware context
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	idStr := middleware.GetUserIDFromContext(c)
	if idStr == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// respondError sends a standardized error response
func respondError(c *gin.Context, err *apierrors.APIError) {
	requestID, _ := c.Get("request_id")
	reqIDStr, _ := requestID.(string)

	c.JSON(err.HTTPStatus, apierrors.ErrorResponse{
		Error:     *err,
		RequestID: reqIDStr,
	})
}

// respondServiceError maps service sentinel errors onto the API error
// taxonomy. Anything unrecognized is logged and becomes a 500.
func (s *APIServer) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, campaign.ErrCampaignNotFound), errors.Is(err, payment.ErrCampaignNotFound):
		respondError(c, apierrors.ErrCampaignNotFoundError)
	case errors.Is(err, campaign.ErrCampaignNotOwned), errors.Is(err, submission.ErrSubmissionNotOwned),
		errors.Is(err, payout.ErrMethodNotOwned):
		respondError(c, apierrors.ErrForbiddenError)
	case errors.Is(err, campaign.ErrInvalidBudget), errors.Is(err, campaign.ErrInvalidStatus),
		errors.Is(err, submission.ErrMissingVideoURL), errors.Is(err, submission.ErrMissingPostURL),
		errors.Is(err, submission.ErrInvalidRating), errors.Is(err, payout.ErrInvalidMethodType):
		respondError(c, apierrors.NewValidationError(err.Error()))
	case errors.Is(err, campaign.ErrFinancialsLocked), errors.Is(err, campaign.ErrCampaignArchived),
		errors.Is(err, submission.ErrAlreadyApplied), errors.Is(err, submission.ErrCampaignNotOpen),
		errors.Is(err, submission.ErrNotCompleted), errors.Is(err, payment.ErrNothingToFund),
		errors.Is(err, payment.ErrOverPayment), errors.Is(err, payment.ErrPaymentAlreadyDone):
		respondError(c, apierrors.NewConflictError(err.Error()))
	case errors.Is(err, submission.ErrInvalidTransition):
		respondError(c, apierrors.NewTransitionError(err.Error()))
	case errors.Is(err, submission.ErrSubmissionNotFound):
		respondError(c, apierrors.ErrSubmissionNotFoundError)
	case errors.Is(err, profile.ErrProfileNotFound), errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, payment.ErrUserNotFound):
		respondError(c, apierrors.ErrUserNotFoundError)
	case errors.Is(err, payout.ErrMethodNotFound):
		respondError(c, apierrors.NewNotFoundError("Payout method not found"))
	case errors.Is(err, payment.ErrPaymentNotFound):
		respondError(c, apierrors.NewNotFoundError("Payment not found"))
	case errors.Is(err, social.ErrLinkNotFound):
		respondError(c, apierrors.NewNotFoundError("Social link not found"))
	case errors.Is(err, payout.ErrInvalidDetails):
		var detailsErr *payout.DetailsValidationError
		if errors.As(err, &detailsErr) {
			respondError(c, apierrors.NewValidationError(detailsErr.Violations))
		} else {
			respondError(c, apierrors.NewValidationError(err.Error()))
		}
	case errors.Is(err, social.ErrUnsupportedPlatform):
		respondError(c, apierrors.NewInvalidRequestError("Unsupported platform"))
	case errors.Is(err, social.ErrNotConnected), errors.Is(err, social.ErrTokenRejected):
		respondError(c, apierrors.NewInvalidRequestError("Platform is not connected"))
	case errors.Is(err, social.ErrCircuitOpen):
		respondError(c, apierrors.ErrUpstreamUnavailableError)
	case errors.Is(err, social.ErrPlatformError):
		respondError(c, apierrors.ErrUpstreamTimeoutError)
	default:
		requestID, _ := c.Get("request_id")
		reqIDStr, _ := requestID.(string)
		logging.LogError(err, reqIDStr, "server", c.FullPath())
		respondError(c, apierrors.ErrInternalServerError)
	}
}
