package domain

import "time"

// ApprovedChange is a confirmed, validated record ready for downstream
// consumption. Exactly one row exists per email_id that reached confirmed;
// every field present is valid at the time of write.
type ApprovedChange struct {
	EmailID      string    `json:"email_id"`
	SAPID        string    `json:"sap_id"`
	ContactName  string    `json:"contact_name"`
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone"`
	SourceBody   string    `json:"source_body"`
	ApprovedBy   string    `json:"approved_by"`
	ApprovedAt   time.Time `json:"approved_at"`
}
