package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutgoingStatus tracks delivery of a follow-up message. This service only
// ever writes pending; the delivery sink owns the rest of the lifecycle.
type OutgoingStatus string

const (
	OutgoingPending OutgoingStatus = "pending"
	OutgoingSent    OutgoingStatus = "sent"
	OutgoingFailed  OutgoingStatus = "failed"
)

// OutgoingMessage is a composed follow-up awaiting delivery by the external
// mail sink. A new message is only created by an explicit reviewer action.
type OutgoingMessage struct {
	ID        uuid.UUID      `json:"id"`
	EmailID   string         `json:"email_id"`
	ToEmail   string         `json:"to_email"`
	Subject   string         `json:"subject"`
	Body      string         `json:"body"`
	CreatedBy string         `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	Status    OutgoingStatus `json:"status"`
}
