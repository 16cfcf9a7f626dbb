package repository

import (
	"context"

	"github.com/ashwinpo/email-review-workshop/internal/db"
	"github.com/ashwinpo/email-review-workshop/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
)

type approvedRepository struct {
	conn *db.Connection
}

// NewApprovedRepository wires the approved-changes repository.
func NewApprovedRepository(conn *db.Connection) ApprovedRepository {
	return &approvedRepository{conn: conn}
}

func (r *approvedRepository) Insert(ctx context.Context, change domain.ApprovedChange) error {
	// The primary key enforces exactly-once per email_id; the claim in
	// review_queue should already have serialized writers, so a conflict
	// here is a real store-level surprise worth surfacing.
	_, err := r.conn.Pool.Exec(
		ctx,
		`INSERT INTO approved_changes
		     (email_id, sap_id, contact_name, contact_email, contact_phone, source_body, approved_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		change.EmailID,
		change.SAPID,
		change.ContactName,
		change.ContactEmail,
		change.ContactPhone,
		change.SourceBody,
		change.ApprovedBy,
	)
	if err != nil {
		return domain.NewStoreError("insert approved change", err)
	}
	return nil
}

func (r *approvedRepository) List(ctx context.Context, limit int) ([]domain.ApprovedChange, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.conn.Pool.Query(
		ctx,
		`SELECT email_id, sap_id, contact_name, contact_email, contact_phone, source_body, approved_by, approved_at
		 FROM approved_changes
		 ORDER BY approved_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, domain.NewStoreError("list approved changes", err)
	}
	defer rows.Close()

	changes := []domain.ApprovedChange{}
	for rows.Next() {
		var (
			change     domain.ApprovedChange
			approvedAt pgtype.Timestamptz
		)
		if err := rows.Scan(
			&change.EmailID,
			&change.SAPID,
			&change.ContactName,
			&change.ContactEmail,
			&change.ContactPhone,
			&change.SourceBody,
			&change.ApprovedBy,
			&approvedAt,
		); err != nil {
			return nil, domain.NewStoreError("scan approved change", err)
		}
		if approvedAt.Valid {
			change.ApprovedAt = approvedAt.Time
		}
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate approved changes", err)
	}
	return changes, nil
}
