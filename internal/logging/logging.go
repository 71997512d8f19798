package logging

import (
	"io"
	"os"
	"time"

	"github.com/clipfuse/clipfuse/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup initializes the global logger based on configuration
func Setup(cfg *config.LoggingConfig, env string) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	zerolog.TimeFieldFormat = time.RFC3339Nano

	var output io.Writer
	if cfg.Format == "json" || env == "production" {
		output = os.Stdout
	} else {
		// Pretty console output for development
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
			NoColor:    false,
		}
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Str("service", "clipfuse").
		Logger()
}

// NewLogger creates a new logger with additional context
func NewLogger(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// RequestLogger is a Gin middleware for structured request logging
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		requestID, _ := c.Get("request_id")
		reqIDStr, _ := requestID.(string)

		event := log.Info()
		if c.Writer.Status() >= 500 {
			event = log.Error()
		} else if c.Writer.Status() >= 400 {
			event = log.Warn()
		}

		event.
			Str("request_id", reqIDStr).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", raw).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int("body_size", c.Writer.Size()).
			Msg("HTTP request")
	}
}

// LogPayment logs a campaign funding event
func LogPayment(requestID, campaignID, paymentID, status string, amount float64) {
	log.Info().
		Str("request_id", requestID).
		Str("campaign_id", campaignID).
		Str("payment_id", paymentID).
		Str("status", status).
		Float64("amount", amount).
		Msg("Payment event")
}

// LogSubmissionTransition logs a submission lifecycle transition
func LogSubmissionTransition(submissionID, campaignID, from, to string) {
	log.Info().
		Str("submission_id", submissionID).
		Str("campaign_id", campaignID).
		Str("from", from).
		Str("to", to).
		Msg("Submission transition")
}

// LogMetricsSync logs a social metrics sync run
func LogMetricsSync(platform string, linksUpdated, submissionsUpdated int, err error) {
	event := log.Info()
	if err != nil {
		event = log.Error().Err(err)
	}
	event.
		Str("platform", platform).
		Int("links_updated", linksUpdated).
		Int("submissions_updated", submissionsUpdated).
		Msg("Metrics sync")
}

// LogError logs an error with context
func LogError(err error, requestID, component, operation string) {
	log.Error().
		Err(err).
		Str("request_id", requestID).
		Str("component", component).
		Str("operation", operation).
		Msg("Error occurred")
}
