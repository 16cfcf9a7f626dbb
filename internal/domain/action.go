package domain

import (
	"encoding/json"
	"time"
)

// ActionType enumerates the terminal actions a reviewer can take.
type ActionType string

const (
	ActionConfirmed    ActionType = "confirmed"
	ActionFollowupSent ActionType = "followup_sent"
)

// ReviewAction is one entry in the append-only audit log. Once written it is
// never edited or deleted; many actions may reference one record, but only
// the first is terminal.
type ReviewAction struct {
	ID        int64           `json:"id"`
	EmailID   string          `json:"email_id"`
	Action    ActionType      `json:"action"`
	Actor     string          `json:"actor"`
	OldValues json.RawMessage `json:"old_values,omitempty"`
	NewValues json.RawMessage `json:"new_values,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewReviewAction builds an audit entry with JSON-encoded value snapshots.
// Encoding ContactFields cannot fail, so marshal errors are ignored.
func NewReviewAction(emailID string, action ActionType, actor string, oldValues, newValues any, reason string) ReviewAction {
	entry := ReviewAction{
		EmailID: emailID,
		Action:  action,
		Actor:   actor,
		Reason:  reason,
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	return entry
}
