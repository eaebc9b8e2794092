package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aIcoder504/apbmt-2025-conference-system/middleware"
	"github.com/aIcoder504/apbmt-2025-conference-system/services"
)

// BulkUpdateController serves the abstract status-update endpoints.
type BulkUpdateController struct {
	service *services.BulkStatusService
}

func NewBulkUpdateController(service *services.BulkStatusService) *BulkUpdateController {
	return &BulkUpdateController{service: service}
}

// UpdateStatus handles POST (bulk) and PUT (single or legacy shapes).
// Every outcome the pipeline produces is reported with HTTP 200; only
// malformed or invalid requests get 400.
func (ctl *BulkUpdateController) UpdateStatus(c *gin.Context) {
	started := time.Now()
	requestID := requestIDFrom(c)

	body, err := c.GetRawData()
	if err != nil {
		ctl.rejectRequest(c, requestID, &services.ValidationError{Problems: []error{services.ErrMalformedBody}}, started)
		return
	}

	req, err := services.ParseStatusUpdateBody(body)
	if err != nil {
		ctl.rejectRequest(c, requestID, asValidationError(err), started)
		return
	}
	if req.UpdatedBy == "" {
		req.UpdatedBy = c.GetString("email")
	}

	outcome, err := ctl.service.Run(c.Request.Context(), requestID, req)
	if err != nil {
		ctl.rejectRequest(c, requestID, asValidationError(err), started)
		return
	}

	resp := services.BuildBulkResponse(outcome)
	writePipelineHeaders(c, resp)
	c.JSON(http.StatusOK, resp)
}

func (ctl *BulkUpdateController) rejectRequest(c *gin.Context, requestID string, verr *services.ValidationError, started time.Time) {
	resp := services.BuildValidationResponse(requestID, ctl.service.Database(), verr, time.Since(started))
	writePipelineHeaders(c, resp)
	c.JSON(http.StatusBadRequest, resp)
}

// Status returns one abstract with its history when ?id is given, otherwise
// store health, counts per status and the feature block.
func (ctl *BulkUpdateController) Status(c *gin.Context) {
	requestID := requestIDFrom(c)
	c.Header("X-API-Version", services.APIVersion)
	c.Header("X-Database", ctl.service.Database())

	if id, ok := c.GetQuery("id"); ok {
		detail, err := ctl.service.Lookup(c.Request.Context(), id)
		switch {
		case errors.Is(err, services.ErrInvalidIdentifier):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid abstract ID", "requestId": requestID})
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Abstract not found", "requestId": requestID})
		case err != nil:
			c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error(), "requestId": requestID})
		default:
			c.JSON(http.StatusOK, gin.H{
				"success":   true,
				"abstract":  detail.Abstract,
				"data":      detail.Abstract,
				"history":   detail.History,
				"requestId": requestID,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
		}
		return
	}

	report, err := ctl.service.Statistics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success":   false,
			"status":    "unhealthy",
			"error":     err.Error(),
			"features":  ctl.service.Features(),
			"requestId": requestID,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	counts := make(gin.H, len(report.StatusCount)+1)
	for status, n := range report.StatusCount {
		counts[status] = n
	}
	counts["total"] = report.Total

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"status":       "healthy",
		"message":      "Bulk update API is running",
		"database":     report.Database,
		"statusCounts": counts,
		"lastUpdated":  report.LastUpdated,
		"features":     report.Features,
		"requestId":    requestID,
		"version":      services.APIVersion,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

func writePipelineHeaders(c *gin.Context, resp services.BulkUpdateResponse) {
	c.Header("X-Request-ID", resp.Metadata.RequestID)
	c.Header("X-Processing-Time", resp.Metadata.ProcessingTime)
	c.Header("X-Operation-Status", resp.OperationStatus)
	c.Header("X-Updated-Count", strconv.Itoa(resp.UpdatedCount))
	c.Header("X-Failed-Count", strconv.Itoa(resp.FailedCount))
	c.Header("X-Total-Count", strconv.Itoa(resp.TotalCount))
	c.Header("X-API-Version", resp.Version)
	c.Header("X-Database", resp.Metadata.Database)
}

func requestIDFrom(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	id := middleware.NewRequestID()
	c.Set(middleware.RequestIDKey, id)
	return id
}

func asValidationError(err error) *services.ValidationError {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return &services.ValidationError{Problems: []error{err}}
}

// SendStatusEmails re-sends status emails for the listed abstracts and waits
// for delivery before answering.
func (ctl *BulkUpdateController) SendStatusEmails(c *gin.Context) {
	started := time.Now()
	requestID := requestIDFrom(c)

	body, err := c.GetRawData()
	if err != nil {
		ctl.rejectRequest(c, requestID, &services.ValidationError{Problems: []error{services.ErrMalformedBody}}, started)
		return
	}
	req, err := services.ParseStatusUpdateBody(body)
	if err != nil {
		ctl.rejectRequest(c, requestID, asValidationError(err), started)
		return
	}

	report, err := ctl.service.SendStatusEmails(c.Request.Context(), requestID, req)
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		ctl.rejectRequest(c, requestID, verr, started)
		return
	case err != nil:
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error(), "requestId": requestID})
		return
	}

	c.Header("X-Request-ID", requestID)
	c.Header("X-API-Version", services.APIVersion)
	c.JSON(http.StatusOK, gin.H{
		"success":      report.EmailsSent > 0,
		"message":      "Bulk status emails processed: " + strconv.Itoa(report.EmailsSent) + "/" + strconv.Itoa(report.EmailsTotal) + " sent",
		"emailsSent":   report.EmailsSent,
		"emailsFailed": report.EmailsFailed,
		"emailsTotal":  report.EmailsTotal,
		"successRate":  report.SuccessRate,
		"errors":       report.Errors,
		"requestId":    requestID,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}
