package domain

// Reason classifies why a field failed validation.
type Reason string

const (
	// ReasonMissing marks an absent or empty field.
	ReasonMissing Reason = "MISSING"
	// ReasonInvalidFormat marks a present field that fails its format contract.
	ReasonInvalidFormat Reason = "INVALID_FORMAT"
)

// Field names used in validation maps, audit payloads and follow-up messages.
const (
	FieldSAPID        = "sap_id"
	FieldContactName  = "contact_name"
	FieldContactEmail = "contact_email"
	FieldContactPhone = "contact_phone"
)

// FieldValidation is the derived validity of a single field. It is recomputed
// on every read and never persisted.
type FieldValidation struct {
	Field      string `json:"field"`
	Valid      bool   `json:"valid"`
	Reason     Reason `json:"reason,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Normalized string `json:"normalized,omitempty"`
}

// Disposition is the derived readiness of a whole record.
type Disposition string

const (
	DispositionAutoApproved Disposition = "AUTO_APPROVED"
	DispositionNeedsReview  Disposition = "NEEDS_REVIEW"
	DispositionRejected     Disposition = "REJECTED"
)

// RecordAssessment couples the per-field validations with the overall
// disposition for one record.
type RecordAssessment struct {
	Fields      map[string]FieldValidation `json:"fields"`
	Disposition Disposition                `json:"disposition"`
	// SAPKnown reports whether the SAP id resolved in the contact master.
	// An unknown id does not change the disposition; the review surface
	// shows it as a warning.
	SAPKnown bool `json:"sap_known"`
	// RejectReason is set when Disposition is REJECTED.
	RejectReason string `json:"reject_reason,omitempty"`
}

// Invalid returns the validations that failed, in a stable field order.
func (a RecordAssessment) Invalid() []FieldValidation {
	ordered := []string{FieldSAPID, FieldContactName, FieldContactEmail, FieldContactPhone}
	failed := make([]FieldValidation, 0, len(ordered))
	for _, name := range ordered {
		if fv, ok := a.Fields[name]; ok && !fv.Valid {
			failed = append(failed, fv)
		}
	}
	return failed
}

// AllValid reports whether every required field passed validation.
func (a RecordAssessment) AllValid() bool {
	return len(a.Invalid()) == 0
}

// SAPLookupResult is the answer of the external identifier lookup.
type SAPLookupResult struct {
	Exists       bool   `json:"exists"`
	BoundContact string `json:"bound_contact,omitempty"`
}
