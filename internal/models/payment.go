package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the status of a campaign funding payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment represents a campaign funding record. Rows are created when a
// payment intent is opened and flipped to succeeded/failed exactly once;
// everywhere else they are read-only.
type Payment struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	CampaignID         uuid.UUID       `json:"campaign_id" db:"campaign_id"`
	UserID             uuid.UUID       `json:"user_id" db:"user_id"`
	Amount             decimal.Decimal `json:"amount" db:"amount"`
	ProcessingFee      decimal.Decimal `json:"processing_fee" db:"processing_fee"`
	Currency           string          `json:"currency" db:"currency"`
	Status             PaymentStatus   `json:"status" db:"status"`
	ProcessorPaymentID *string         `json:"processor_payment_id,omitempty" db:"processor_payment_id"`
	FailureReason      *string         `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	SucceededAt        *time.Time      `json:"succeeded_at,omitempty" db:"succeeded_at"`
	FailedAt           *time.Time      `json:"failed_at,omitempty" db:"failed_at"`
}
