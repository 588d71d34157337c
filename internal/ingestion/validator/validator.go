// Package validator provides input validation for ingestion requests. It
// enforces that a request names its target index and document, and
// carries at least one field value, returning per-field error details.
package validator

import (
	"fmt"
	"strings"

	"github.com/fieldsearch/queryengine/internal/ingestion"
)

const (
	maxIndexNameLength = 128
	maxDocIDLength     = 512
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks that req names a target index and document
// and supplies at least one field value, returning a ValidationError if
// not.
func ValidateIngestRequest(req *ingestion.IngestRequest) error {
	errs := make(map[string]string)

	index := strings.TrimSpace(req.IndexName)
	if index == "" {
		errs["index"] = "index is required"
	} else if len(index) > maxIndexNameLength {
		errs["index"] = fmt.Sprintf("index must be at most %d characters", maxIndexNameLength)
	}

	docID := strings.TrimSpace(req.DocID)
	if docID == "" {
		errs["doc_id"] = "doc_id is required"
	} else if len(docID) > maxDocIDLength {
		errs["doc_id"] = fmt.Sprintf("doc_id must be at most %d characters", maxDocIDLength)
	}

	if len(req.Text) == 0 && len(req.Numeric) == 0 && len(req.Tags) == 0 && len(req.Vector) == 0 {
		errs["fields"] = "at least one of text, numeric, tags, or vector is required"
	}

	if req.IdempotencyKey != "" && len(req.IdempotencyKey) > 255 {
		errs["idempotency_key"] = "idempotency key must be at most 255 characters"
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
