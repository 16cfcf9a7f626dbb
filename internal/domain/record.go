package domain

import (
	"time"
)

// ExtractedRecord is one extraction result awaiting review. Fields are
// best-effort output of the extraction endpoint: any of them may be empty.
// Records are immutable once queued; a record leaves the pending view when a
// terminal ReviewAction is recorded against its EmailID, never by deletion.
type ExtractedRecord struct {
	EmailID         string    `json:"email_id"`
	Sender          string    `json:"sender"`
	SAPID           string    `json:"sap_id"`
	ContactName     string    `json:"contact_name"`
	ContactEmail    string    `json:"contact_email"`
	ContactPhone    string    `json:"contact_phone"`
	ExtractionError string    `json:"extraction_error,omitempty"`
	QueuedAt        time.Time `json:"queued_at"`
}

// ContactFields is the reviewable subset of an ExtractedRecord. It is what a
// reviewer submits back when approving or requesting a follow-up.
type ContactFields struct {
	SAPID        string `json:"sap_id"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
}

// Fields returns the reviewable fields of the record as extracted.
func (r ExtractedRecord) Fields() ContactFields {
	return ContactFields{
		SAPID:        r.SAPID,
		ContactName:  r.ContactName,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,
	}
}

// RawEmail is an inbound message before extraction.
type RawEmail struct {
	EmailID    string    `json:"email_id"`
	Sender     string    `json:"sender"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}
