package utils

import "time"

const reviewDateLayout = "January 2, 2006 15:04 MST"

// FormatReviewDate renders a review timestamp in the portal's local time.
func FormatReviewDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(time.Local).Format(reviewDateLayout)
}
