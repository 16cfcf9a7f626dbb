package repository

import (
	"context"

	"github.com/ashwinpo/email-review-workshop/internal/db"
	"github.com/ashwinpo/email-review-workshop/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type outgoingRepository struct {
	conn *db.Connection
}

// NewOutgoingRepository wires the outgoing-messages repository.
func NewOutgoingRepository(conn *db.Connection) OutgoingRepository {
	return &outgoingRepository{conn: conn}
}

func (r *outgoingRepository) Insert(ctx context.Context, message domain.OutgoingMessage) error {
	id := message.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := r.conn.Pool.Exec(
		ctx,
		`INSERT INTO outgoing_emails (id, email_id, to_email, subject, body, created_by, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id,
		message.EmailID,
		message.ToEmail,
		message.Subject,
		message.Body,
		message.CreatedBy,
		string(message.Status),
	)
	if err != nil {
		return domain.NewStoreError("insert outgoing message", err)
	}
	return nil
}

func (r *outgoingRepository) List(ctx context.Context, limit int) ([]domain.OutgoingMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.conn.Pool.Query(
		ctx,
		`SELECT id, email_id, to_email, subject, body, created_by, created_at, status
		 FROM outgoing_emails
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, domain.NewStoreError("list outgoing messages", err)
	}
	defer rows.Close()

	messages := []domain.OutgoingMessage{}
	for rows.Next() {
		var (
			message   domain.OutgoingMessage
			status    string
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(
			&message.ID,
			&message.EmailID,
			&message.ToEmail,
			&message.Subject,
			&message.Body,
			&message.CreatedBy,
			&createdAt,
			&status,
		); err != nil {
			return nil, domain.NewStoreError("scan outgoing message", err)
		}
		message.Status = domain.OutgoingStatus(status)
		if createdAt.Valid {
			message.CreatedAt = createdAt.Time
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate outgoing messages", err)
	}
	return messages, nil
}
