package submission

import (
	"github.com/clipfuse/clipfuse/internal/models"
)

// Projection is the user-facing rendering of a submission's status for a
// given viewer role: the status label, the primary button text and whether
// that button is enabled, and whether the read-only metrics view is shown.
// No transition is computed here; the backend operations are the sole
// authority for status changes.
type Projection struct {
	Label                string `json:"label"`
	PrimaryActionLabel   string `json:"primary_action_label"`
	PrimaryActionEnabled bool   `json:"primary_action_enabled"`
	ShowMetrics          bool   `json:"show_metrics"`
	Error                bool   `json:"error,omitempty"`
}

// Project maps a submission status and viewer role to its rendering. A nil
// submission means the viewer has not applied yet: influencers get the apply
// affordance, brands a disabled placeholder.
func Project(sub *models.ContentSubmission, role models.UserType) Projection {
	if sub == nil {
		if role == models.UserTypeInfluencer {
			return Projection{
				Label:                "Not Applied",
				PrimaryActionLabel:   "Apply Now",
				PrimaryActionEnabled: true,
			}
		}
		return Projection{
			Label:              "No Submission",
			PrimaryActionLabel: "No Submission",
		}
	}

	showMetrics := models.MetricsVisible(sub.Status)

	if role == models.UserTypeBrand {
		return projectBrand(sub.Status, showMetrics)
	}
	return projectInfluencer(sub.Status, showMetrics)
}

// ErrorProjection renders the state for a submission whose campaign could
// not be loaded: all actions disabled.
func ErrorProjection() Projection {
	return Projection{
		Label:              "Unavailable",
		PrimaryActionLabel: "Unavailable",
		Error:              true,
	}
}

func projectInfluencer(status models.SubmissionStatus, showMetrics bool) Projection {
	switch status {
	case models.SubmissionStatusPendingReview:
		return Projection{
			Label:              "Pending Review",
			PrimaryActionLabel: "Application Submitted",
		}
	case models.SubmissionStatusNeedsRevision:
		return Projection{
			Label:                "Needs Revision",
			PrimaryActionLabel:   "Revise Submission",
			PrimaryActionEnabled: true,
		}
	case models.SubmissionStatusApproved:
		return Projection{
			Label:                "Approved",
			PrimaryActionLabel:   "View Submission",
			PrimaryActionEnabled: true,
		}
	case models.SubmissionStatusPostedLive:
		return Projection{
			Label:                "Posted Live",
			PrimaryActionLabel:   "View Submission",
			PrimaryActionEnabled: true,
			ShowMetrics:          showMetrics,
		}
	case models.SubmissionStatusCompleted:
		return Projection{
			Label:              "Completed",
			PrimaryActionLabel: "Campaign Completed",
			ShowMetrics:        showMetrics,
		}
	}
	return ErrorProjection()
}

func projectBrand(status models.SubmissionStatus, showMetrics bool) Projection {
	switch status {
	case models.SubmissionStatusPendingReview:
		return Projection{
			Label:                "Pending Review",
			PrimaryActionLabel:   "Review Submission",
			PrimaryActionEnabled: true,
		}
	case models.SubmissionStatusNeedsRevision:
		return Projection{
			Label:              "Needs Revision",
			PrimaryActionLabel: "Awaiting Revision",
		}
	case models.SubmissionStatusApproved:
		return Projection{
			Label:                "Approved",
			PrimaryActionLabel:   "View Submission",
			PrimaryActionEnabled: true,
		}
	case models.SubmissionStatusPostedLive:
		return Projection{
			Label:                "Posted Live",
			PrimaryActionLabel:   "View Live Post",
			PrimaryActionEnabled: true,
			ShowMetrics:          showMetrics,
		}
	case models.SubmissionStatusCompleted:
		return Projection{
			Label:              "Completed",
			PrimaryActionLabel: "Campaign Completed",
			ShowMetrics:        showMetrics,
		}
	}
	return ErrorProjection()
}
