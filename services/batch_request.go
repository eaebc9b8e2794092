package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedBody is returned when the request body is not JSON.
var ErrMalformedBody = errors.New("Invalid JSON in request body")

var errMixedStatus = errors.New("all items in one request must share the same status")

// BatchUpdateRequest is the canonical status-update request every accepted
// body shape is normalised into.
type BatchUpdateRequest struct {
	// RawIDs holds the decoded abstractIds value; nil when the field is absent.
	RawIDs    any
	Status    string
	Comments  *string
	UpdatedBy string
}

// NewBatchUpdateRequest builds a canonical request from already-typed input.
func NewBatchUpdateRequest(ids []string, status, comments, updatedBy string) *BatchUpdateRequest {
	raw := make([]any, len(ids))
	for i, id := range ids {
		raw[i] = id
	}
	req := &BatchUpdateRequest{RawIDs: raw, Status: status, UpdatedBy: updatedBy}
	if strings.TrimSpace(comments) != "" {
		req.Comments = &comments
	}
	return req
}

// ParseStatusUpdateBody accepts every body shape the admin UI has used:
//
//	{"abstractIds": [...], "status": "...", "comments": "...", "updatedBy": "..."}
//	{"abstractId" | "id": ..., "status": "...", "comments": "..."}
//	[{"id": ..., "status": "...", "comments": "..."}, ...]
//	{"bulk": true, "abstracts": [...]}
//	{"bulkUpdate": true, "items": [...]}
func ParseStatusUpdateBody(body []byte) (*BatchUpdateRequest, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, ErrMalformedBody
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrMalformedBody
	}

	switch v := decoded.(type) {
	case []any:
		return requestFromItems(v, "")
	case map[string]any:
		return requestFromObject(v)
	default:
		return nil, ErrMalformedBody
	}
}

func requestFromObject(obj map[string]any) (*BatchUpdateRequest, error) {
	updatedBy := stringField(obj, "updatedBy")

	if items, ok := obj["abstracts"].([]any); ok && truthy(obj["bulk"]) {
		return requestFromItems(items, updatedBy)
	}
	if items, ok := obj["items"].([]any); ok && truthy(obj["bulkUpdate"]) {
		return requestFromItems(items, updatedBy)
	}

	req := &BatchUpdateRequest{
		Status:    stringField(obj, "status"),
		Comments:  optionalString(obj, "comments"),
		UpdatedBy: updatedBy,
	}

	if ids, present := obj["abstractIds"]; present {
		req.RawIDs = ids
		return req, nil
	}
	if id, present := firstPresent(obj, "abstractId", "id"); present {
		req.RawIDs = []any{id}
	}
	return req, nil
}

func requestFromItems(items []any, updatedBy string) (*BatchUpdateRequest, error) {
	req := &BatchUpdateRequest{RawIDs: make([]any, 0, len(items)), UpdatedBy: updatedBy}

	statusSet := false
	for _, raw := range items {
		item, _ := raw.(map[string]any)
		if item == nil {
			req.RawIDs = append(req.RawIDs.([]any), raw)
			continue
		}
		id, _ := firstPresent(item, "id", "abstractId")
		req.RawIDs = append(req.RawIDs.([]any), id)

		status := stringField(item, "status")
		if !statusSet {
			req.Status = status
			statusSet = true
		} else if status != req.Status {
			return nil, &ValidationError{Problems: []error{errMixedStatus}}
		}

		if req.Comments == nil {
			req.Comments = optionalString(item, "comments")
		}
		if req.UpdatedBy == "" {
			req.UpdatedBy = stringField(item, "updatedBy")
		}
	}
	return req, nil
}

func firstPresent(obj map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func optionalString(obj map[string]any, key string) *string {
	s, ok := obj[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	s = strings.TrimSpace(s)
	return &s
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	case json.Number:
		return t.String() != "0"
	}
	return false
}
