// Package classify derives a per-field validation map and an overall
// disposition for an extracted record. Classification is read-only: its only
// side effect is the identifier lookup against the contact master.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashwinpo/email-review-workshop/internal/domain"
	"github.com/ashwinpo/email-review-workshop/pkg/validator"
)

// ContactLookup resolves a SAP id in the external contact master. The lookup
// is opaque to the classifier; it only consumes the result.
type ContactLookup interface {
	Lookup(ctx context.Context, sapID string) (domain.SAPLookupResult, error)
}

// Classifier combines validator results into a disposition.
type Classifier struct {
	lookup ContactLookup
}

func New(lookup ContactLookup) *Classifier {
	return &Classifier{lookup: lookup}
}

// Classify validates every reviewable field and derives the disposition:
// REJECTED when the SAP id is bound to a different contact (contradiction
// wins over everything), AUTO_APPROVED when all four fields are valid,
// NEEDS_REVIEW otherwise. An unknown SAP id is reported on the assessment
// but does not change the disposition.
func (c *Classifier) Classify(ctx context.Context, fields domain.ContactFields) (domain.RecordAssessment, error) {
	assessment := domain.RecordAssessment{
		Fields: validator.Fields(fields),
	}

	sap := assessment.Fields[domain.FieldSAPID]
	if sap.Valid && c.lookup != nil {
		result, err := c.lookup.Lookup(ctx, sap.Normalized)
		if err != nil {
			return domain.RecordAssessment{}, fmt.Errorf("lookup SAP id %s: %w", sap.Normalized, err)
		}
		assessment.SAPKnown = result.Exists
		if contradicts(result, fields.ContactEmail) {
			assessment.Disposition = domain.DispositionRejected
			assessment.RejectReason = fmt.Sprintf("SAP id %s is bound to a different contact", sap.Normalized)
			return assessment, nil
		}
	}

	if assessment.AllValid() {
		assessment.Disposition = domain.DispositionAutoApproved
	} else {
		assessment.Disposition = domain.DispositionNeedsReview
	}
	return assessment, nil
}

// contradicts reports whether the contact master binds the id to a different
// email than the one extracted. Comparison is case-insensitive; a master
// entry without a bound contact never contradicts.
func contradicts(result domain.SAPLookupResult, contactEmail string) bool {
	if !result.Exists || strings.TrimSpace(result.BoundContact) == "" {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(result.BoundContact), strings.TrimSpace(contactEmail))
}
