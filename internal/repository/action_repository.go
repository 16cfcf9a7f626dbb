package repository

import (
	"context"

	"github.com/ashwinpo/email-review-workshop/internal/db"
	"github.com/ashwinpo/email-review-workshop/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type actionRepository struct {
	conn *db.Connection
}

// NewActionRepository wires the append-only audit log repository.
func NewActionRepository(conn *db.Connection) ActionRepository {
	return &actionRepository{conn: conn}
}

func (r *actionRepository) Append(ctx context.Context, action domain.ReviewAction) (domain.ReviewAction, error) {
	row := r.conn.Pool.QueryRow(
		ctx,
		`INSERT INTO review_actions (email_id, action_type, actor, old_values, new_values, reason)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		action.EmailID,
		string(action.Action),
		action.Actor,
		nullableJSON(action.OldValues),
		nullableJSON(action.NewValues),
		action.Reason,
	)

	var createdAt pgtype.Timestamptz
	if err := row.Scan(&action.ID, &createdAt); err != nil {
		return domain.ReviewAction{}, domain.NewStoreError("append review action", err)
	}
	if createdAt.Valid {
		action.CreatedAt = createdAt.Time
	}
	return action, nil
}

func (r *actionRepository) List(ctx context.Context, limit int) ([]domain.ReviewAction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.conn.Pool.Query(
		ctx,
		`SELECT id, email_id, action_type, actor, old_values, new_values, reason, created_at
		 FROM review_actions
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, domain.NewStoreError("list review actions", err)
	}
	defer rows.Close()
	return scanActions(rows)
}

func (r *actionRepository) ListByEmailID(ctx context.Context, emailID string) ([]domain.ReviewAction, error) {
	rows, err := r.conn.Pool.Query(
		ctx,
		`SELECT id, email_id, action_type, actor, old_values, new_values, reason, created_at
		 FROM review_actions
		 WHERE email_id = $1
		 ORDER BY id`,
		emailID,
	)
	if err != nil {
		return nil, domain.NewStoreError("list actions for record", err)
	}
	defer rows.Close()
	return scanActions(rows)
}

func scanActions(rows pgx.Rows) ([]domain.ReviewAction, error) {
	actions := []domain.ReviewAction{}
	for rows.Next() {
		var (
			action     domain.ReviewAction
			actionType string
			createdAt  pgtype.Timestamptz
		)
		if err := rows.Scan(
			&action.ID,
			&action.EmailID,
			&actionType,
			&action.Actor,
			&action.OldValues,
			&action.NewValues,
			&action.Reason,
			&createdAt,
		); err != nil {
			return nil, domain.NewStoreError("scan review action", err)
		}
		action.Action = domain.ActionType(actionType)
		if createdAt.Valid {
			action.CreatedAt = createdAt.Time
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate review actions", err)
	}
	return actions, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
