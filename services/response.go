package services

import (
	"fmt"
	"time"
)

// APIVersion is reported in every bulk-update response.
const APIVersion = "2.0"

type ResponseMetadata struct {
	RequestID      string `json:"requestId"`
	ProcessingTime string `json:"processingTime"`
	Database       string `json:"database"`
}

type ResponseSummary struct {
	TotalProcessed    int    `json:"totalProcessed"`
	SuccessfulUpdates int    `json:"successfulUpdates"`
	FailedUpdates     int    `json:"failedUpdates"`
	SuccessRate       string `json:"successRate"`
	AvgTimePerUpdate  string `json:"avgTimePerUpdate"`
}

// BulkUpdateResponse is the wire shape of a status update. Several fields
// carry the same value under different names for older admin clients.
type BulkUpdateResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Results []UpdateResult `json:"results"`
	Errors  []string       `json:"errors"`
	Error   string         `json:"error,omitempty"`

	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`

	UpdatedCount int `json:"updatedCount"`
	FailedCount  int `json:"failedCount"`
	TotalCount   int `json:"totalCount"`

	OperationSuccess bool   `json:"operationSuccess"`
	DatabaseUpdated  bool   `json:"databaseUpdated"`
	HasErrors        bool   `json:"hasErrors"`
	AllSuccessful    bool   `json:"allSuccessful"`
	PartialSuccess   bool   `json:"partialSuccess"`
	NoUpdates        bool   `json:"noUpdates"`
	SuccessRate      string `json:"successRate"`

	Summary       ResponseSummary     `json:"summary"`
	Notifications *NotificationReport `json:"notifications,omitempty"`
	Metadata      ResponseMetadata    `json:"metadata"`
	Timestamp     string              `json:"timestamp"`
	Version       string              `json:"version"`

	OperationStatus string `json:"-"`
}

// BuildBulkResponse serialises a pipeline outcome.
func BuildBulkResponse(o *BulkOutcome) BulkUpdateResponse {
	summary := o.Summary
	if summary == nil {
		summary = &BatchSummary{}
	}
	results := summary.Results
	if results == nil {
		results = []UpdateResult{}
	}

	resp := BulkUpdateResponse{
		Success:         summary.Successful > 0,
		Message:         outcomeMessage(o, summary),
		Results:         results,
		Errors:          nilIfEmpty(o.Errors),
		Successful:      summary.Successful,
		Failed:          summary.Failed,
		Total:           summary.Total,
		DatabaseUpdated: o.DatabaseUpdated(),
		SuccessRate:     summary.SuccessRateLabel(),
		Notifications:   o.Notifications,
		Metadata: ResponseMetadata{
			RequestID:      o.RequestID,
			ProcessingTime: formatElapsed(o.ProcessingTime),
			Database:       o.Database,
		},
		Summary: ResponseSummary{
			TotalProcessed:    summary.Total,
			SuccessfulUpdates: summary.Successful,
			FailedUpdates:     summary.Failed,
			SuccessRate:       summary.SuccessRateLabel(),
			AvgTimePerUpdate:  averagePerItem(o.ProcessingTime, summary.Total),
		},
		OperationStatus: o.OperationStatus,
	}
	switch {
	case o.Fatal != nil:
		resp.Error = o.Fatal.Error()
	case !resp.Success:
		resp.Error = resp.Message
	}
	resp.fillAliases()
	return resp
}

// BuildValidationResponse describes a request rejected before the store was touched.
func BuildValidationResponse(requestID, database string, verr *ValidationError, elapsed time.Duration) BulkUpdateResponse {
	resp := BulkUpdateResponse{
		Success:     false,
		Message:     "Validation failed",
		Results:     []UpdateResult{},
		Errors:      verr.Messages(),
		SuccessRate: "0.0%",
		Metadata: ResponseMetadata{
			RequestID:      requestID,
			ProcessingTime: formatElapsed(elapsed),
			Database:       database,
		},
		Summary:         ResponseSummary{SuccessRate: "0.0%", AvgTimePerUpdate: "0.00ms"},
		OperationStatus: OperationFailed,
	}
	resp.fillAliases()
	return resp
}

// BuildErrorResponse is used when the request could not be processed at all.
func BuildErrorResponse(requestID, database, message string, elapsed time.Duration) BulkUpdateResponse {
	resp := BulkUpdateResponse{
		Message:     "Bulk update failed: " + message,
		Results:     []UpdateResult{},
		Errors:      []string{message},
		Error:       message,
		SuccessRate: "0.0%",
		Metadata: ResponseMetadata{
			RequestID:      requestID,
			ProcessingTime: formatElapsed(elapsed),
			Database:       database,
		},
		Summary:         ResponseSummary{SuccessRate: "0.0%", AvgTimePerUpdate: "0.00ms"},
		OperationStatus: OperationError,
	}
	resp.fillAliases()
	return resp
}

func (r *BulkUpdateResponse) fillAliases() {
	r.UpdatedCount = r.Successful
	r.FailedCount = r.Failed
	r.TotalCount = r.Total
	r.OperationSuccess = r.Success
	r.HasErrors = len(r.Errors) > 0
	r.AllSuccessful = r.Total > 0 && r.Successful == r.Total
	r.PartialSuccess = r.Successful > 0 && r.Failed > 0
	r.NoUpdates = r.Successful == 0
	r.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	r.Version = APIVersion
}

func outcomeMessage(o *BulkOutcome, s *BatchSummary) string {
	switch {
	case o.OperationStatus == OperationError:
		return "Bulk update failed: processing error"
	case o.Fatal != nil:
		return "Bulk update failed: database error"
	case s.Successful == 0:
		return "No abstracts were updated"
	case s.Failed == 0:
		return fmt.Sprintf("Successfully updated %d abstract(s) to %s", s.Successful, o.TargetStatus)
	default:
		return fmt.Sprintf("Updated %d of %d abstracts to %s", s.Successful, s.Total, o.TargetStatus)
	}
}

func nilIfEmpty(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return in
}

func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}

func averagePerItem(d time.Duration, n int) string {
	if n == 0 {
		return "0.00ms"
	}
	return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000/float64(n))
}
