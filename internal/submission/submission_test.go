package submission_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clipfuse/clipfuse/internal/models"
	"github.com/clipfuse/clipfuse/internal/submission"
)

func TestCanTransition(t *testing.T) {
	statuses := []models.SubmissionStatus{
		models.SubmissionStatusPendingReview,
		models.SubmissionStatusNeedsRevision,
		models.SubmissionStatusApproved,
		models.SubmissionStatusPostedLive,
		models.SubmissionStatusCompleted,
	}

	allowed := map[models.SubmissionStatus][]models.SubmissionStatus{
		models.SubmissionStatusPendingReview: {models.SubmissionStatusApproved, models.SubmissionStatusNeedsRevision},
		models.SubmissionStatusNeedsRevision: {models.SubmissionStatusPendingReview},
		models.SubmissionStatusApproved:      {models.SubmissionStatusPostedLive},
		models.SubmissionStatusPostedLive:    {models.SubmissionStatusCompleted},
		models.SubmissionStatusCompleted:     {},
	}

	for _, from := range statuses {
		for _, to := range statuses {
			want := false
			for _, ok := range allowed[from] {
				if to == ok {
					want = true
				}
			}
			assert.Equal(t, want, submission.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransitionRejectsUnknownStatus(t *testing.T) {
	assert.False(t, submission.CanTransition("archived", models.SubmissionStatusApproved))
	assert.False(t, submission.CanTransition(models.SubmissionStatusPendingReview, "archived"))
}

func TestValidSubmissionStatus(t *testing.T) {
	assert.True(t, models.ValidSubmissionStatus(models.SubmissionStatusPendingReview))
	assert.True(t, models.ValidSubmissionStatus(models.SubmissionStatusCompleted))
	assert.False(t, models.ValidSubmissionStatus("archived"))
	assert.False(t, models.ValidSubmissionStatus(""))
}
