package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clipfuse/clipfuse/internal/config"
	"github.com/clipfuse/clipfuse/internal/logging"
	"github.com/clipfuse/clipfuse/internal/models"
	"github.com/clipfuse/clipfuse/internal/monitoring"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/ephemeralkey"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Service errors
var (
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrPaymentAlreadyDone = errors.New("payment already succeeded or failed")
	ErrInvalidWebhookSig  = errors.New("invalid webhook signature")
	ErrUserNotFound       = errors.New("user not found")
	ErrCampaignNotFound   = errors.New("campaign not found")
	ErrNothingToFund      = errors.New("campaign budget is already fully funded")
	ErrOverPayment        = errors.New("payment would exceed the campaign budget")
	ErrIntentNotSucceeded = errors.New("payment intent has not succeeded")
)

// Service handles campaign funding through the payment processor
type Service struct {
	db           *pgxpool.Pool
	stripeConfig *config.StripeConfig
	payConfig    *config.PaymentsConfig
}

// NewService creates a new payment service
func NewService(db *pgxpool.Pool, stripeCfg *config.StripeConfig, payCfg *config.PaymentsConfig) *Service {
	if stripeCfg.SecretKey != "" {
		stripe.Key = stripeCfg.SecretKey
	}
	return &Service{
		db:           db,
		stripeConfig: stripeCfg,
		payConfig:    payCfg,
	}
}

// CreateIntentRequest is the body of POST /api/payments/create-intent
type CreateIntentRequest struct {
	CampaignID uuid.UUID `json:"campaignId" binding:"required"`
	UserID     uuid.UUID `json:"userId" binding:"required"`
}

// CreateIntentResponse carries everything the payment sheet needs plus the
// funding breakdown.
type CreateIntentResponse struct {
	PaymentIntent string          `json:"paymentIntent"`
	EphemeralKey  string          `json:"ephemeralKey"`
	CustomerID    string          `json:"customerId"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ProcessingFee decimal.Decimal `json:"processingFee"`
	Total         decimal.Decimal `json:"total"`
}

// ConfirmRequest is the body of POST /api/payments/confirm
type ConfirmRequest struct {
	CampaignID      uuid.UUID `json:"campaignId" binding:"required"`
	PaymentIntentID string    `json:"paymentIntentId" binding:"required"`
}

// HistoryResponse is a paginated payment listing
type HistoryResponse struct {
	Payments   []models.Payment `json:"payments"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// ComputeFee calculates the card processing fee for a funding subtotal.
func (s *Service) ComputeFee(subtotal decimal.Decimal) decimal.Decimal {
	percent := decimal.NewFromFloat(s.payConfig.FeePercent)
	fixed := decimal.NewFromInt(s.payConfig.FeeFixedCents).Div(decimal.NewFromInt(100))
	return subtotal.Mul(percent).Add(fixed).Round(2)
}

// CreateIntent opens a payment intent funding the campaign's remaining
// budget. A pending Payment row is created; the client presents the payment
// sheet with the returned client secret and ephemeral key.
func (s *Service) CreateIntent(ctx context.Context, req *CreateIntentRequest) (*CreateIntentResponse, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, req.UserID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	var totalBudget, totalPaid decimal.Decimal
	err = s.db.QueryRow(ctx, `
		SELECT total_budget, total_paid FROM campaigns WHERE id = $1
	`, req.CampaignID).Scan(&totalBudget, &totalPaid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	subtotal := totalBudget.Sub(totalPaid)
	if subtotal.LessThanOrEqual(decimal.Zero) {
		return nil, ErrNothingToFund
	}

	fee := s.ComputeFee(subtotal)
	total := subtotal.Add(fee)

	customerID, err := s.getOrCreateCustomer(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	ek, err := ephemeralkey.New(&stripe.EphemeralKeyParams{
		Customer:      stripe.String(customerID),
		StripeVersion: stripe.String("2023-10-16"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ephemeral key: %w", err)
	}

	paymentID := uuid.New()
	pi, err := paymentintent.New(&stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toCents(total)),
		Currency: stripe.String(s.payConfig.Currency),
		Customer: stripe.String(customerID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"payment_id":  paymentID.String(),
			"campaign_id": req.CampaignID.String(),
			"user_id":     req.UserID.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO payments (id, campaign_id, user_id, amount, processing_fee, currency, status, processor_payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, paymentID, req.CampaignID, req.UserID, subtotal, fee, s.payConfig.Currency,
		models.PaymentStatusPending, pi.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	return &CreateIntentResponse{
		PaymentIntent: pi.ClientSecret,
		EphemeralKey:  ek.Secret,
		CustomerID:    customerID,
		Subtotal:      subtotal,
		ProcessingFee: fee,
		Total:         total,
	}, nil
}

// Confirm verifies the intent with the processor and settles the pending
// payment: the Payment row flips to succeeded, the campaign's total_paid is
// credited and a draft campaign goes active on first funding. Confirming the
// same intent twice is a no-op.
func (s *Service) Confirm(ctx context.Context, req *ConfirmRequest) error {
	pi, err := paymentintent.Get(req.PaymentIntentID, nil)
	if err != nil {
		return fmt.Errorf("failed to retrieve payment intent: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return ErrIntentNotSucceeded
	}

	return s.settle(ctx, req.CampaignID, req.PaymentIntentID)
}

// settle credits a succeeded intent exactly once.
func (s *Service) settle(ctx context.Context, campaignID uuid.UUID, paymentIntentID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var paymentID uuid.UUID
	var amount decimal.Decimal
	var status models.PaymentStatus
	err = tx.QueryRow(ctx, `
		SELECT id, amount, status FROM payments
		WHERE campaign_id = $1 AND processor_payment_id = $2
		FOR UPDATE
	`, campaignID, paymentIntentID).Scan(&paymentID, &amount, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPaymentNotFound
		}
		return fmt.Errorf("failed to get payment: %w", err)
	}

	if status == models.PaymentStatusSucceeded {
		return nil // already settled
	}
	if status != models.PaymentStatusPending {
		return ErrPaymentAlreadyDone
	}

	var totalBudget, totalPaid decimal.Decimal
	var campaignStatus models.CampaignStatus
	err = tx.QueryRow(ctx, `
		SELECT total_budget, total_paid, status FROM campaigns WHERE id = $1 FOR UPDATE
	`, campaignID).Scan(&totalBudget, &totalPaid, &campaignStatus)
	if err != nil {
		return fmt.Errorf("failed to get campaign: %w", err)
	}

	if totalPaid.Add(amount).GreaterThan(totalBudget) {
		return ErrOverPayment
	}

	now := time.Now()
	_, err = tx.Exec(ctx, `
		UPDATE payments SET status = $1, succeeded_at = $2 WHERE id = $3
	`, models.PaymentStatusSucceeded, now, paymentID)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	newStatus := campaignStatus
	if campaignStatus == models.CampaignStatusDraft {
		newStatus = models.CampaignStatusActive
	}
	_, err = tx.Exec(ctx, `
		UPDATE campaigns SET total_paid = total_paid + $1, status = $2, updated_at = NOW()
		WHERE id = $3
	`, amount, newStatus, campaignID)
	if err != nil {
		return fmt.Errorf("failed to credit campaign: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	amountFloat, _ := amount.Float64()
	logging.LogPayment("", campaignID.String(), paymentID.String(), string(models.PaymentStatusSucceeded), amountFloat)
	monitoring.Get().PaymentsTotal.WithLabelValues(string(models.PaymentStatusSucceeded)).Inc()
	monitoring.Get().CampaignsFunded.Inc()

	return nil
}

// Fail marks a pending payment failed with a reason. No campaign credit is
// applied on failure.
func (s *Service) Fail(ctx context.Context, paymentIntentID, reason string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var paymentID uuid.UUID
	var status models.PaymentStatus
	err = tx.QueryRow(ctx, `
		SELECT id, status FROM payments WHERE processor_payment_id = $1 FOR UPDATE
	`, paymentIntentID).Scan(&paymentID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPaymentNotFound
		}
		return fmt.Errorf("failed to get payment: %w", err)
	}
	if status != models.PaymentStatusPending {
		return ErrPaymentAlreadyDone
	}

	now := time.Now()
	_, err = tx.Exec(ctx, `
		UPDATE payments SET status = $1, failure_reason = $2, failed_at = $3 WHERE id = $4
	`, models.PaymentStatusFailed, reason, now, paymentID)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	monitoring.Get().PaymentsTotal.WithLabelValues(string(models.PaymentStatusFailed)).Inc()

	return nil
}

// HandleWebhook processes processor webhook events. The webhook is a second
// confirmation path alongside the client's explicit confirm call.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.stripeConfig.WebhookSecret)
	if err != nil {
		return ErrInvalidWebhookSig
	}

	switch event.Type {
	case "payment_intent.succeeded":
		intentID := event.GetObjectValue("id")
		campaignIDStr := event.GetObjectValue("metadata", "campaign_id")
		if intentID == "" || campaignIDStr == "" {
			return fmt.Errorf("missing intent or campaign in event")
		}
		campaignID, err := uuid.Parse(campaignIDStr)
		if err != nil {
			return fmt.Errorf("invalid campaign_id: %w", err)
		}
		err = s.settle(ctx, campaignID, intentID)
		if errors.Is(err, ErrPaymentNotFound) {
			return nil // intent not opened through this service
		}
		return err
	case "payment_intent.payment_failed":
		intentID := event.GetObjectValue("id")
		if intentID == "" {
			return nil
		}
		reason := event.GetObjectValue("last_payment_error", "code")
		if reason == "" {
			reason = "payment failed"
		}
		err := s.Fail(ctx, intentID, reason)
		if errors.Is(err, ErrPaymentNotFound) || errors.Is(err, ErrPaymentAlreadyDone) {
			return nil
		}
		return err
	default:
		return nil
	}
}

// GetByID retrieves a payment by ID
func (s *Service) GetByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, campaign_id, user_id, amount, processing_fee, currency, status,
			processor_payment_id, failure_reason, created_at, succeeded_at, failed_at
		FROM payments WHERE id = $1
	`, paymentID)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// HistoryForCampaign retrieves payments against a campaign, newest first
func (s *Service) HistoryForCampaign(ctx context.Context, campaignID uuid.UUID, page, pageSize int) (*HistoryResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var total int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE campaign_id = $1`, campaignID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, campaign_id, user_id, amount, processing_fee, currency, status,
			processor_payment_id, failure_reason, created_at, succeeded_at, failed_at
		FROM payments
		WHERE campaign_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, campaignID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}

	return &HistoryResponse{
		Payments:   payments,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// getOrCreateCustomer resolves the user's processor customer, creating one
// on first funding and persisting its ID.
func (s *Service) getOrCreateCustomer(ctx context.Context, userID uuid.UUID) (string, error) {
	var customerID *string
	var email string
	err := s.db.QueryRow(ctx, `
		SELECT stripe_customer_id, email FROM users WHERE id = $1
	`, userID).Scan(&customerID, &email)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if customerID != nil && *customerID != "" {
		return *customerID, nil
	}

	cust, err := customer.New(&stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			"user_id": userID.String(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}

	_, err = s.db.Exec(ctx, `UPDATE users SET stripe_customer_id = $1 WHERE id = $2`, cust.ID, userID)
	if err != nil {
		return "", fmt.Errorf("failed to persist customer ID: %w", err)
	}

	return cust.ID, nil
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(
		&p.ID, &p.CampaignID, &p.UserID, &p.Amount, &p.ProcessingFee, &p.Currency,
		&p.Status, &p.ProcessorPaymentID, &p.FailureReason, &p.CreatedAt,
		&p.SucceededAt, &p.FailedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
