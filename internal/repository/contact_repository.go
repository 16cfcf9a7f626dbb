package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ashwinpo/email-review-workshop/internal/db"
	"github.com/ashwinpo/email-review-workshop/internal/domain"

	"github.com/jackc/pgx/v5"
)

type contactRepository struct {
	conn *db.Connection
}

// NewContactRepository wires the contact-master lookup repository.
func NewContactRepository(conn *db.Connection) ContactRepository {
	return &contactRepository{conn: conn}
}

func (r *contactRepository) Lookup(ctx context.Context, sapID string) (domain.SAPLookupResult, error) {
	var contactEmail string
	err := r.conn.Pool.QueryRow(
		ctx,
		`SELECT contact_email FROM sap_contacts WHERE sap_id = $1`,
		strings.ToUpper(strings.TrimSpace(sapID)),
	).Scan(&contactEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SAPLookupResult{Exists: false}, nil
		}
		return domain.SAPLookupResult{}, domain.NewStoreError("lookup SAP contact", err)
	}
	return domain.SAPLookupResult{Exists: true, BoundContact: contactEmail}, nil
}

func (r *contactRepository) Load(ctx context.Context, contacts []domain.SAPContact) (int, error) {
	loaded := 0
	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		for _, contact := range contacts {
			sapID := strings.ToUpper(strings.TrimSpace(contact.SAPID))
			if sapID == "" {
				continue
			}
			status := contact.AccountStatus
			if status == "" {
				status = "ACTIVE"
			}
			if _, err := tx.Exec(
				ctx,
				`INSERT INTO sap_contacts (sap_id, contact_email, account_status, updated_at)
				 VALUES ($1, $2, $3, now())
				 ON CONFLICT (sap_id) DO UPDATE
				 SET contact_email = EXCLUDED.contact_email,
				     account_status = EXCLUDED.account_status,
				     updated_at = now()`,
				sapID, contact.ContactEmail, status,
			); err != nil {
				return fmt.Errorf("upsert contact %s: %w", sapID, err)
			}
			loaded++
		}
		return nil
	})
	if err != nil {
		return 0, domain.NewStoreError("load SAP contacts", err)
	}
	return loaded, nil
}
