package submission_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clipfuse/clipfuse/internal/models"
	"github.com/clipfuse/clipfuse/internal/submission"
)

func subWithStatus(status models.SubmissionStatus) *models.ContentSubmission {
	return &models.ContentSubmission{Status: status}
}

func TestProjectNoSubmission(t *testing.T) {
	influencer := submission.Project(nil, models.UserTypeInfluencer)
	assert.Equal(t, "Not Applied", influencer.Label)
	assert.Equal(t, "Apply Now", influencer.PrimaryActionLabel)
	assert.True(t, influencer.PrimaryActionEnabled)
	assert.False(t, influencer.ShowMetrics)

	brand := submission.Project(nil, models.UserTypeBrand)
	assert.Equal(t, "No Submission", brand.Label)
	assert.Equal(t, "No Submission", brand.PrimaryActionLabel)
	assert.False(t, brand.PrimaryActionEnabled)
}

func TestProjectInfluencer(t *testing.T) {
	tests := []struct {
		status      models.SubmissionStatus
		label       string
		action      string
		enabled     bool
		showMetrics bool
	}{
		{models.SubmissionStatusPendingReview, "Pending Review", "Application Submitted", false, false},
		{models.SubmissionStatusNeedsRevision, "Needs Revision", "Revise Submission", true, false},
		{models.SubmissionStatusApproved, "Approved", "View Submission", true, false},
		{models.SubmissionStatusPostedLive, "Posted Live", "View Submission", true, true},
		{models.SubmissionStatusCompleted, "Completed", "Campaign Completed", false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			p := submission.Project(subWithStatus(tt.status), models.UserTypeInfluencer)
			assert.Equal(t, tt.label, p.Label)
			assert.Equal(t, tt.action, p.PrimaryActionLabel)
			assert.Equal(t, tt.enabled, p.PrimaryActionEnabled)
			assert.Equal(t, tt.showMetrics, p.ShowMetrics)
			assert.False(t, p.Error)
		})
	}
}

func TestProjectBrand(t *testing.T) {
	tests := []struct {
		status      models.SubmissionStatus
		label       string
		action      string
		enabled     bool
		showMetrics bool
	}{
		{models.SubmissionStatusPendingReview, "Pending Review", "Review Submission", true, false},
		{models.SubmissionStatusNeedsRevision, "Needs Revision", "Awaiting Revision", false, false},
		{models.SubmissionStatusApproved, "Approved", "View Submission", true, false},
		{models.SubmissionStatusPostedLive, "Posted Live", "View Live Post", true, true},
		{models.SubmissionStatusCompleted, "Completed", "Campaign Completed", false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			p := submission.Project(subWithStatus(tt.status), models.UserTypeBrand)
			assert.Equal(t, tt.label, p.Label)
			assert.Equal(t, tt.action, p.PrimaryActionLabel)
			assert.Equal(t, tt.enabled, p.PrimaryActionEnabled)
			assert.Equal(t, tt.showMetrics, p.ShowMetrics)
		})
	}
}

func TestProjectUnknownStatus(t *testing.T) {
	p := submission.Project(subWithStatus("archived"), models.UserTypeBrand)
	assert.True(t, p.Error)
	assert.Equal(t, "Unavailable", p.Label)
	assert.False(t, p.PrimaryActionEnabled)
}

func TestErrorProjection(t *testing.T) {
	p := submission.ErrorProjection()
	assert.True(t, p.Error)
	assert.Equal(t, "Unavailable", p.PrimaryActionLabel)
	assert.False(t, p.PrimaryActionEnabled)
	assert.False(t, p.ShowMetrics)
}

func TestMetricsVisible(t *testing.T) {
	assert.True(t, models.MetricsVisible(models.SubmissionStatusPostedLive))
	assert.True(t, models.MetricsVisible(models.SubmissionStatusCompleted))
	assert.False(t, models.MetricsVisible(models.SubmissionStatusPendingReview))
	assert.False(t, models.MetricsVisible(models.SubmissionStatusNeedsRevision))
	assert.False(t, models.MetricsVisible(models.SubmissionStatusApproved))
}
