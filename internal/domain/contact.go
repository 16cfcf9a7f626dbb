package domain

import "time"

// SAPContact is one entry of the contact master the identifier lookup is
// served from. The master is maintained outside the review workflow; this
// service only reads it, plus a bulk load path for workshop seeding.
type SAPContact struct {
	SAPID         string    `json:"sap_id"`
	ContactEmail  string    `json:"contact_email"`
	AccountStatus string    `json:"account_status"`
	UpdatedAt     time.Time `json:"updated_at"`
}
