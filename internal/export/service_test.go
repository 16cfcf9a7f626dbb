package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ashwinpo/email-review-workshop/internal/domain"

	"github.com/xuri/excelize/v2"
)

type staticActions struct {
	actions []domain.ReviewAction
}

func (s *staticActions) Append(ctx context.Context, action domain.ReviewAction) (domain.ReviewAction, error) {
	return action, nil
}

func (s *staticActions) List(ctx context.Context, limit int) ([]domain.ReviewAction, error) {
	return s.actions, nil
}

func (s *staticActions) ListByEmailID(ctx context.Context, emailID string) ([]domain.ReviewAction, error) {
	return s.actions, nil
}

type staticApproved struct {
	changes []domain.ApprovedChange
}

func (s *staticApproved) Insert(ctx context.Context, change domain.ApprovedChange) error {
	return nil
}

func (s *staticApproved) List(ctx context.Context, limit int) ([]domain.ApprovedChange, error) {
	return s.changes, nil
}

type staticOutgoing struct{}

func (s *staticOutgoing) Insert(ctx context.Context, message domain.OutgoingMessage) error {
	return nil
}

func (s *staticOutgoing) List(ctx context.Context, limit int) ([]domain.OutgoingMessage, error) {
	return nil, nil
}

func TestWriteAuditLogWorkbook(t *testing.T) {
	actions := &staticActions{actions: []domain.ReviewAction{
		{
			ID:        1,
			EmailID:   "email-001",
			Action:    domain.ActionConfirmed,
			Actor:     "reviewer@example.com",
			CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}}
	service := NewService(actions, &staticApproved{}, &staticOutgoing{})

	var buf bytes.Buffer
	if err := service.WriteAuditLog(context.Background(), &buf); err != nil {
		t.Fatalf("WriteAuditLog() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Audit Log")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d rows", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][1] != "Email ID" {
		t.Errorf("unexpected header row: %v", rows[0])
	}
	if rows[1][1] != "email-001" || rows[1][2] != "confirmed" {
		t.Errorf("unexpected data row: %v", rows[1])
	}
}

func TestWriteApprovedChangesWorkbook(t *testing.T) {
	approved := &staticApproved{changes: []domain.ApprovedChange{
		{
			EmailID:      "email-002",
			SAPID:        "SAP123456",
			ContactName:  "Jane Doe",
			ContactEmail: "jane@example.com",
			ContactPhone: "(555) 123-4567",
			ApprovedBy:   "reviewer@example.com",
			ApprovedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}}
	service := NewService(&staticActions{}, approved, &staticOutgoing{})

	var buf bytes.Buffer
	if err := service.WriteApprovedChanges(context.Background(), &buf); err != nil {
		t.Fatalf("WriteApprovedChanges() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Approved Changes")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d rows", len(rows))
	}
	if rows[1][1] != "SAP123456" {
		t.Errorf("unexpected data row: %v", rows[1])
	}
}
