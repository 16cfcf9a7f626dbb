package repository

import (
	"context"

	"github.com/ashwinpo/email-review-workshop/internal/domain"
)

// QueueFilter narrows the pending view. Search is a free-text match over
// email_id, sender and sap_id; Limit bounds the result set.
type QueueFilter struct {
	Search string
	Limit  int
}

// QueueRepository reads and populates the review queue. The queue is
// append-only from this service's perspective: records are never updated
// after insertion except for the single terminal-state claim.
type QueueRepository interface {
	// Insert stores the raw email and its queue record together. It
	// returns false without error when the email_id is already queued.
	Insert(ctx context.Context, email domain.RawEmail, record domain.ExtractedRecord) (bool, error)
	// ListPending returns queue records with no terminal action yet.
	ListPending(ctx context.Context, filter QueueFilter) ([]domain.ExtractedRecord, error)
	// GetByEmailID returns a queue record whether or not it is pending.
	GetByEmailID(ctx context.Context, emailID string) (domain.ExtractedRecord, error)
	// SourceBody returns the original email text for a queued record.
	SourceBody(ctx context.Context, emailID string) (string, error)
	// ClaimTerminal atomically marks the record actioned. It returns
	// domain.ErrAlreadyActioned when another writer claimed it first and
	// domain.ErrRecordNotFound when the email_id is not queued.
	ClaimTerminal(ctx context.Context, emailID string) error
}

// ActionRepository is the append-only audit log. There is deliberately no
// update or delete operation.
type ActionRepository interface {
	Append(ctx context.Context, action domain.ReviewAction) (domain.ReviewAction, error)
	List(ctx context.Context, limit int) ([]domain.ReviewAction, error)
	ListByEmailID(ctx context.Context, emailID string) ([]domain.ReviewAction, error)
}

// ApprovedRepository stores confirmed changes for downstream consumers.
type ApprovedRepository interface {
	Insert(ctx context.Context, change domain.ApprovedChange) error
	List(ctx context.Context, limit int) ([]domain.ApprovedChange, error)
}

// OutgoingRepository stores composed follow-up messages for the delivery sink.
type OutgoingRepository interface {
	Insert(ctx context.Context, message domain.OutgoingMessage) error
	List(ctx context.Context, limit int) ([]domain.OutgoingMessage, error)
}

// ContactRepository is the identifier-lookup collaborator backed by the
// contact master table.
type ContactRepository interface {
	Lookup(ctx context.Context, sapID string) (domain.SAPLookupResult, error)
	// Load bulk-upserts master entries (workshop seeding).
	Load(ctx context.Context, contacts []domain.SAPContact) (int, error)
}
