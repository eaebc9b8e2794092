package models

import "strconv"

// Abstract review states stored in abstracts.status.
const (
	StatusPending        = "pending"
	StatusUnderReview    = "under_review"
	StatusApproved       = "approved"
	StatusRejected       = "rejected"
	StatusFinalSubmitted = "final_submitted"
)

// DefaultUpdatableStatuses is the allow-list accepted by status updates.
var DefaultUpdatableStatuses = []string{
	StatusPending,
	StatusApproved,
	StatusRejected,
	StatusFinalSubmitted,
}

// ReportedStatuses lists every status counted by the statistics endpoint.
var ReportedStatuses = []string{
	StatusPending,
	StatusApproved,
	StatusRejected,
	StatusUnderReview,
	StatusFinalSubmitted,
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
