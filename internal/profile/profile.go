package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipfuse/clipfuse/internal/models"
)

// Profile-specific errors
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrUsernameTaken   = errors.New("username already taken")
)

// Service handles profile operations
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a new profile service
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// UpdateProfileRequest represents a profile update. Nil fields are left
// untouched so partial updates work from the client.
type UpdateProfileRequest struct {
	Username    *string  `json:"username,omitempty" binding:"omitempty,min=3,max=32"`
	CompanyName *string  `json:"company_name,omitempty"`
	Industry    *string  `json:"industry,omitempty"`
	FirstName   *string  `json:"first_name,omitempty"`
	LastName    *string  `json:"last_name,omitempty"`
	Bio         *string  `json:"bio,omitempty"`
	Niches      []string `json:"niches,omitempty"`
}

// ProfileResponse is the profile joined with account basics.
type ProfileResponse struct {
	models.Profile
	Email    string          `json:"email"`
	UserType models.UserType `json:"user_type"`
}

const profileColumns = `p.user_id, p.username, p.company_name, p.industry, p.first_name, p.last_name, p.bio, p.avatar_url, p.niches, p.created_at, p.updated_at`

// Get retrieves a user's profile
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*ProfileResponse, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+profileColumns+`, u.email, u.user_type
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
	`, userID)

	var resp ProfileResponse
	err := row.Scan(
		&resp.UserID, &resp.Username, &resp.CompanyName, &resp.Industry,
		&resp.FirstName, &resp.LastName, &resp.Bio, &resp.AvatarURL,
		&resp.Niches, &resp.CreatedAt, &resp.UpdatedAt,
		&resp.Email, &resp.UserType,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &resp, nil
}

// Update applies a partial profile update
func (s *Service) Update(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*ProfileResponse, error) {
	if req.Username != nil {
		var taken bool
		err := s.db.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM profiles WHERE username = $1 AND user_id != $2)
		`, *req.Username, userID).Scan(&taken)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			return nil, ErrUsernameTaken
		}
	}

	result, err := s.db.Exec(ctx, `
		UPDATE profiles SET
			username     = COALESCE($2, username),
			company_name = COALESCE($3, company_name),
			industry     = COALESCE($4, industry),
			first_name   = COALESCE($5, first_name),
			last_name    = COALESCE($6, last_name),
			bio          = COALESCE($7, bio),
			niches       = COALESCE($8, niches),
			updated_at   = NOW()
		WHERE user_id = $1
	`, userID, req.Username, req.CompanyName, req.Industry,
		req.FirstName, req.LastName, req.Bio, req.Niches)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrProfileNotFound
	}

	return s.Get(ctx, userID)
}

// SetAvatar records the avatar URL after the object has been stored
func (s *Service) SetAvatar(ctx context.Context, userID uuid.UUID, url string) error {
	result, err := s.db.Exec(ctx, `
		UPDATE profiles SET avatar_url = $2, updated_at = NOW() WHERE user_id = $1
	`, userID, url)
	if err != nil {
		return fmt.Errorf("failed to set avatar: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// DeleteAccount removes the user and everything hanging off it. Campaign and
// submission rows are removed explicitly so the financial history does not
// outlive the account.
func (s *Service) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	statements := []string{
		`DELETE FROM content_submissions WHERE influencer_id = $1
		   OR campaign_id IN (SELECT id FROM campaigns WHERE brand_id = $1)`,
		`DELETE FROM payments WHERE user_id = $1
		   OR campaign_id IN (SELECT id FROM campaigns WHERE brand_id = $1)`,
		`DELETE FROM campaigns WHERE brand_id = $1`,
		`DELETE FROM payout_methods WHERE user_id = $1`,
		`DELETE FROM oauth_tokens WHERE user_id = $1`,
		`DELETE FROM social_links WHERE user_id = $1`,
		`DELETE FROM profiles WHERE user_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt, userID); err != nil {
			return fmt.Errorf("failed to delete account data: %w", err)
		}
	}

	result, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	return tx.Commit(ctx)
}
