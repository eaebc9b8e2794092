package services

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aIcoder504/apbmt-2025-conference-system/config"
)

var (
	ErrEmptyBatch    = errors.New("abstractIds array cannot be empty")
	ErrMissingStatus = errors.New("status field is required")
)

// batchShapeError carries the client-facing message for an absent or
// non-array id list while still matching ErrEmptyBatch.
type batchShapeError struct{ msg string }

func (e *batchShapeError) Error() string        { return e.msg }
func (e *batchShapeError) Is(target error) bool { return target == ErrEmptyBatch }

var (
	errIDsRequired = &batchShapeError{msg: "abstractIds field is required"}
	errIDsNotArray = &batchShapeError{msg: "abstractIds must be an array"}
)

type BatchTooLargeError struct {
	Max   int
	Count int
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("Cannot process more than %d abstracts at once (received %d)", e.Max, e.Count)
}

type InvalidStatusError struct {
	Value   string
	Allowed []string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("status must be one of: %s", strings.Join(e.Allowed, ", "))
}

// InvalidIdentifierError is reported by the strict identifier policy.
type InvalidIdentifierError struct {
	Index int
	Value any
	Err   error
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("Invalid abstract ID at index %d: %v", e.Index, e.Value)
}

func (e *InvalidIdentifierError) Unwrap() error { return e.Err }

// ValidationError is a pre-flight rejection. Nothing has touched the store.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	return "Validation failed: " + strings.Join(e.Messages(), "; ")
}

func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		out = append(out, p.Error())
	}
	return out
}

// Has reports whether any problem matches target.
func (e *ValidationError) Has(target error) bool {
	for _, p := range e.Problems {
		if errors.Is(p, target) {
			return true
		}
	}
	return false
}

// RequestedID is one identifier from the request, in request order.
type RequestedID struct {
	Raw any
	Key int64
	Err error
}

func (r RequestedID) Valid() bool { return r.Err == nil }

// ValidatedBatch is a structurally valid request ready for the store.
type ValidatedBatch struct {
	IDs       []RequestedID
	Status    string
	Comments  *string
	UpdatedBy string
}

// Keys returns the distinct valid keys in first-seen order.
func (b *ValidatedBatch) Keys() []int64 {
	seen := make(map[int64]struct{}, len(b.IDs))
	keys := make([]int64, 0, len(b.IDs))
	for _, id := range b.IDs {
		if !id.Valid() {
			continue
		}
		if _, ok := seen[id.Key]; ok {
			continue
		}
		seen[id.Key] = struct{}{}
		keys = append(keys, id.Key)
	}
	return keys
}

type BatchValidator struct {
	maxSize  int
	allowed  []string
	idPolicy string
}

func NewBatchValidator(p config.PipelineSettings) *BatchValidator {
	return &BatchValidator{
		maxSize:  p.MaxBulkSize,
		allowed:  append([]string(nil), p.SupportedStatuses...),
		idPolicy: p.IDPolicy,
	}
}

func (v *BatchValidator) MaxSize() int { return v.maxSize }

func (v *BatchValidator) Allowed() []string { return append([]string(nil), v.allowed...) }

// Validate checks the batch structure (presence, size, status) and then
// normalises each identifier. Structural problems always reject the whole
// request; malformed identifiers reject it only under the strict policy and
// otherwise become per-item failures.
func (v *BatchValidator) Validate(req *BatchUpdateRequest) (*ValidatedBatch, error) {
	var problems []error

	ids, isList := req.RawIDs.([]any)
	switch {
	case req.RawIDs == nil:
		problems = append(problems, errIDsRequired)
	case !isList:
		problems = append(problems, errIDsNotArray)
	case len(ids) == 0:
		problems = append(problems, ErrEmptyBatch)
	case len(ids) > v.maxSize:
		problems = append(problems, &BatchTooLargeError{Max: v.maxSize, Count: len(ids)})
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		problems = append(problems, ErrMissingStatus)
	} else if !slices.Contains(v.allowed, status) {
		problems = append(problems, &InvalidStatusError{Value: status, Allowed: v.Allowed()})
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	requested := make([]RequestedID, len(ids))
	for i, raw := range ids {
		key, err := NormalizeID(raw)
		requested[i] = RequestedID{Raw: raw, Key: key, Err: err}
		if err != nil && v.idPolicy == config.IDPolicyStrict {
			problems = append(problems, &InvalidIdentifierError{Index: i, Value: raw, Err: err})
		}
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	updatedBy := strings.TrimSpace(req.UpdatedBy)
	if updatedBy == "" {
		updatedBy = "admin"
	}

	return &ValidatedBatch{
		IDs:       requested,
		Status:    status,
		Comments:  req.Comments,
		UpdatedBy: updatedBy,
	}, nil
}
