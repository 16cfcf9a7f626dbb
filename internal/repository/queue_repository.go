package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ashwinpo/email-review-workshop/internal/db"
	"github.com/ashwinpo/email-review-workshop/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type queueRepository struct {
	conn *db.Connection
}

// NewQueueRepository wires a queue repository backed by pgxpool.
func NewQueueRepository(conn *db.Connection) QueueRepository {
	return &queueRepository{conn: conn}
}

func (r *queueRepository) Insert(ctx context.Context, email domain.RawEmail, record domain.ExtractedRecord) (bool, error) {
	inserted := false
	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO source_emails (email_id, sender, body, received_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (email_id) DO NOTHING`,
			email.EmailID, email.Sender, email.Body, email.ReceivedAt,
		); err != nil {
			return fmt.Errorf("insert source email: %w", err)
		}

		tag, err := tx.Exec(
			ctx,
			`INSERT INTO review_queue
			     (email_id, sender, sap_id, contact_name, contact_email, contact_phone, extraction_error)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (email_id) DO NOTHING`,
			record.EmailID, record.Sender, record.SAPID, record.ContactName,
			record.ContactEmail, record.ContactPhone, record.ExtractionError,
		)
		if err != nil {
			return fmt.Errorf("insert queue record: %w", err)
		}
		inserted = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, domain.NewStoreError("queue insert", err)
	}
	return inserted, nil
}

func (r *queueRepository) ListPending(ctx context.Context, filter QueueFilter) ([]domain.ExtractedRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT email_id, sender, sap_id, contact_name, contact_email, contact_phone, extraction_error, queued_at
	          FROM review_queue
	          WHERE actioned_at IS NULL`
	args := []any{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query += ` AND (email_id ILIKE $1 OR sender ILIKE $1 OR sap_id ILIKE $1)`
		args = append(args, "%"+search+"%")
	}
	query += fmt.Sprintf(` ORDER BY queued_at, email_id LIMIT %d`, limit)

	rows, err := r.conn.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStoreError("list pending queue", err)
	}
	defer rows.Close()

	records := []domain.ExtractedRecord{}
	for rows.Next() {
		record, err := scanQueueRecord(rows)
		if err != nil {
			return nil, domain.NewStoreError("scan queue record", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate queue records", err)
	}
	return records, nil
}

func (r *queueRepository) GetByEmailID(ctx context.Context, emailID string) (domain.ExtractedRecord, error) {
	row := r.conn.Pool.QueryRow(
		ctx,
		`SELECT email_id, sender, sap_id, contact_name, contact_email, contact_phone, extraction_error, queued_at
		 FROM review_queue
		 WHERE email_id = $1`,
		emailID,
	)
	record, err := scanQueueRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ExtractedRecord{}, domain.ErrRecordNotFound
		}
		return domain.ExtractedRecord{}, domain.NewStoreError("get queue record", err)
	}
	return record, nil
}

func (r *queueRepository) SourceBody(ctx context.Context, emailID string) (string, error) {
	var body string
	err := r.conn.Pool.QueryRow(
		ctx,
		`SELECT body FROM source_emails WHERE email_id = $1`,
		emailID,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrRecordNotFound
		}
		return "", domain.NewStoreError("get source body", err)
	}
	return body, nil
}

// ClaimTerminal is the serialization point for concurrent actioning: the
// UPDATE only succeeds for the first writer, everyone else observes the
// terminal state.
func (r *queueRepository) ClaimTerminal(ctx context.Context, emailID string) error {
	tag, err := r.conn.Pool.Exec(
		ctx,
		`UPDATE review_queue SET actioned_at = now()
		 WHERE email_id = $1 AND actioned_at IS NULL`,
		emailID,
	)
	if err != nil {
		return domain.NewStoreError("claim terminal state", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = r.conn.Pool.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM review_queue WHERE email_id = $1)`,
		emailID,
	).Scan(&exists)
	if err != nil {
		return domain.NewStoreError("check queue record", err)
	}
	if !exists {
		return domain.ErrRecordNotFound
	}
	return domain.ErrAlreadyActioned
}

func scanQueueRecord(row pgx.Row) (domain.ExtractedRecord, error) {
	var (
		record   domain.ExtractedRecord
		queuedAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&record.EmailID,
		&record.Sender,
		&record.SAPID,
		&record.ContactName,
		&record.ContactEmail,
		&record.ContactPhone,
		&record.ExtractionError,
		&queuedAt,
	); err != nil {
		return domain.ExtractedRecord{}, err
	}
	if queuedAt.Valid {
		record.QueuedAt = queuedAt.Time
	}
	return record, nil
}
