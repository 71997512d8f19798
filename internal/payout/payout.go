package payout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clipfuse/clipfuse/internal/models"
	"github.com/clipfuse/clipfuse/internal/monitoring"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service errors
var (
	ErrMethodNotFound    = errors.New("payout method not found")
	ErrMethodNotOwned    = errors.New("payout method not owned by user")
	ErrInvalidMethodType = errors.New("invalid payout method type")
	ErrInvalidDetails    = errors.New("payout method details failed validation")
)

// Service handles payout method CRUD for influencers
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a new payout service
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// AddMethodRequest represents a request to add a payout method
type AddMethodRequest struct {
	MethodType models.PayoutMethodType `json:"method_type" binding:"required"`
	Details    json.RawMessage         `json:"details" binding:"required"`
	IsPrimary  bool                    `json:"is_primary"`
}

// UpdateMethodRequest represents a request to update a payout method's details
type UpdateMethodRequest struct {
	Details json.RawMessage `json:"details" binding:"required"`
}

// DetailsValidationError carries the schema violations for invalid details
type DetailsValidationError struct {
	Violations []string
}

func (e *DetailsValidationError) Error() string {
	return ErrInvalidDetails.Error()
}

func (e *DetailsValidationError) Unwrap() error {
	return ErrInvalidDetails
}

const methodColumns = `id, user_id, method_type, details, is_primary, created_at, updated_at`

// Add creates a payout method. Details are schema-validated for the method
// type. The user's first method becomes primary automatically; an explicit
// primary demotes the previous one.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, req *AddMethodRequest) (*models.PayoutMethod, error) {
	if !models.ValidPayoutMethodType(req.MethodType) {
		return nil, ErrInvalidMethodType
	}
	violations, err := ValidateDetails(req.MethodType, req.Details)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, &DetailsValidationError{Violations: violations}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var count int
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM payout_methods WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("failed to count payout methods: %w", err)
	}

	isPrimary := req.IsPrimary || count == 0
	if isPrimary && count > 0 {
		_, err = tx.Exec(ctx, `
			UPDATE payout_methods SET is_primary = FALSE, updated_at = NOW()
			WHERE user_id = $1 AND is_primary
		`, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to demote primary method: %w", err)
		}
	}

	m := &models.PayoutMethod{
		ID:         uuid.New(),
		UserID:     userID,
		MethodType: req.MethodType,
		Details:    req.Details,
		IsPrimary:  isPrimary,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO payout_methods (id, user_id, method_type, details, is_primary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, m.ID, m.UserID, m.MethodType, m.Details, m.IsPrimary).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create payout method: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	monitoring.Get().PayoutMethodsTotal.WithLabelValues(string(m.MethodType), "add").Inc()

	return m, nil
}

// List retrieves a user's payout methods, primary first
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.PayoutMethod, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+methodColumns+` FROM payout_methods
		WHERE user_id = $1
		ORDER BY is_primary DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payout methods: %w", err)
	}
	defer rows.Close()

	var methods []models.PayoutMethod
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout method: %w", err)
		}
		methods = append(methods, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payout methods: %w", err)
	}
	return methods, nil
}

// Update replaces a method's details after schema validation
func (s *Service) Update(ctx context.Context, userID, methodID uuid.UUID, req *UpdateMethodRequest) (*models.PayoutMethod, error) {
	m, err := s.getOwned(ctx, userID, methodID)
	if err != nil {
		return nil, err
	}

	violations, err := ValidateDetails(m.MethodType, req.Details)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, &DetailsValidationError{Violations: violations}
	}

	err = s.db.QueryRow(ctx, `
		UPDATE payout_methods SET details = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING updated_at
	`, req.Details, methodID).Scan(&m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update payout method: %w", err)
	}
	m.Details = req.Details

	return m, nil
}

// SetPrimary promotes a method to primary and demotes the previous one in
// the same transaction.
func (s *Service) SetPrimary(ctx context.Context, userID, methodID uuid.UUID) (*models.PayoutMethod, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+methodColumns+` FROM payout_methods WHERE id = $1 FOR UPDATE`, methodID)
	m, err := scanMethod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMethodNotFound
		}
		return nil, fmt.Errorf("failed to get payout method: %w", err)
	}
	if m.UserID != userID {
		return nil, ErrMethodNotOwned
	}

	_, err = tx.Exec(ctx, `
		UPDATE payout_methods SET is_primary = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND is_primary AND id <> $2
	`, userID, methodID)
	if err != nil {
		return nil, fmt.Errorf("failed to demote primary method: %w", err)
	}

	err = tx.QueryRow(ctx, `
		UPDATE payout_methods SET is_primary = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, methodID).Scan(&m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to promote payout method: %w", err)
	}
	m.IsPrimary = true

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return m, nil
}

// Delete removes a method. When the primary is deleted the most recent
// remaining method is promoted.
func (s *Service) Delete(ctx context.Context, userID, methodID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var owner uuid.UUID
	var wasPrimary bool
	var methodType models.PayoutMethodType
	err = tx.QueryRow(ctx, `
		SELECT user_id, is_primary, method_type FROM payout_methods WHERE id = $1 FOR UPDATE
	`, methodID).Scan(&owner, &wasPrimary, &methodType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMethodNotFound
		}
		return fmt.Errorf("failed to get payout method: %w", err)
	}
	if owner != userID {
		return ErrMethodNotOwned
	}

	_, err = tx.Exec(ctx, `DELETE FROM payout_methods WHERE id = $1`, methodID)
	if err != nil {
		return fmt.Errorf("failed to delete payout method: %w", err)
	}

	if wasPrimary {
		_, err = tx.Exec(ctx, `
			UPDATE payout_methods SET is_primary = TRUE, updated_at = NOW()
			WHERE id = (
				SELECT id FROM payout_methods WHERE user_id = $1
				ORDER BY created_at DESC LIMIT 1
			)
		`, userID)
		if err != nil {
			return fmt.Errorf("failed to promote replacement method: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	monitoring.Get().PayoutMethodsTotal.WithLabelValues(string(methodType), "delete").Inc()

	return nil
}

func (s *Service) getOwned(ctx context.Context, userID, methodID uuid.UUID) (*models.PayoutMethod, error) {
	row := s.db.QueryRow(ctx, `SELECT `+methodColumns+` FROM payout_methods WHERE id = $1`, methodID)
	m, err := scanMethod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMethodNotFound
		}
		return nil, fmt.Errorf("failed to get payout method: %w", err)
	}
	if m.UserID != userID {
		return nil, ErrMethodNotOwned
	}
	return m, nil
}

func scanMethod(row pgx.Row) (*models.PayoutMethod, error) {
	var m models.PayoutMethod
	err := row.Scan(&m.ID, &m.UserID, &m.MethodType, &m.Details, &m.IsPrimary, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
