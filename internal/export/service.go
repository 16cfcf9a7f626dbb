// Package export renders review data as spreadsheet downloads for
// stakeholders who live outside the review surface.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ashwinpo/email-review-workshop/internal/domain"
	"github.com/ashwinpo/email-review-workshop/internal/repository"

	"github.com/xuri/excelize/v2"
)

const defaultRowLimit = 10000

// Service builds xlsx workbooks from the audit log, approved changes and
// outgoing messages. Exports are synchronous: the data volumes of a review
// queue fit comfortably in one request.
type Service struct {
	actions  repository.ActionRepository
	approved repository.ApprovedRepository
	outgoing repository.OutgoingRepository

	rowLimit int
	now      func() time.Time
}

type Option func(*Service)

// WithRowLimit bounds the number of rows per workbook.
func WithRowLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.rowLimit = limit
		}
	}
}

func NewService(
	actions repository.ActionRepository,
	approved repository.ApprovedRepository,
	outgoing repository.OutgoingRepository,
	opts ...Option,
) *Service {
	service := &Service{
		actions:  actions,
		approved: approved,
		outgoing: outgoing,
		rowLimit: defaultRowLimit,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// WriteAuditLog streams the audit log workbook to w, newest entries first.
func (s *Service) WriteAuditLog(ctx context.Context, w io.Writer) error {
	actions, err := s.actions.List(ctx, s.rowLimit)
	if err != nil {
		return fmt.Errorf("list audit entries: %w", err)
	}

	rows := make([][]any, 0, len(actions))
	for _, action := range actions {
		rows = append(rows, []any{
			action.ID,
			action.EmailID,
			string(action.Action),
			action.Actor,
			string(action.OldValues),
			string(action.NewValues),
			action.Reason,
			action.CreatedAt.Format(time.RFC3339),
		})
	}
	headers := []any{"ID", "Email ID", "Action", "Actor", "Old Values", "New Values", "Reason", "Created At"}
	return writeWorkbook(w, "Audit Log", headers, rows)
}

// WriteApprovedChanges streams the approved changes workbook to w.
func (s *Service) WriteApprovedChanges(ctx context.Context, w io.Writer) error {
	changes, err := s.approved.List(ctx, s.rowLimit)
	if err != nil {
		return fmt.Errorf("list approved changes: %w", err)
	}

	rows := make([][]any, 0, len(changes))
	for _, change := range changes {
		rows = append(rows, []any{
			change.EmailID,
			change.SAPID,
			change.ContactName,
			change.ContactEmail,
			change.ContactPhone,
			change.ApprovedBy,
			change.ApprovedAt.Format(time.RFC3339),
		})
	}
	headers := []any{"Email ID", "SAP ID", "Contact Name", "Contact Email", "Contact Phone", "Approved By", "Approved At"}
	return writeWorkbook(w, "Approved Changes", headers, rows)
}

// WriteFollowups streams the outgoing messages workbook to w.
func (s *Service) WriteFollowups(ctx context.Context, w io.Writer) error {
	messages, err := s.outgoing.List(ctx, s.rowLimit)
	if err != nil {
		return fmt.Errorf("list outgoing messages: %w", err)
	}

	rows := make([][]any, 0, len(messages))
	for _, message := range messages {
		rows = append(rows, []any{
			message.ID.String(),
			message.EmailID,
			message.ToEmail,
			message.Subject,
			string(message.Status),
			message.CreatedBy,
			message.CreatedAt.Format(time.RFC3339),
		})
	}
	headers := []any{"ID", "Email ID", "To", "Subject", "Status", "Created By", "Created At"}
	return writeWorkbook(w, "Follow-ups", headers, rows)
}

// FileName produces a dated attachment name for a workbook.
func (s *Service) FileName(base string) string {
	return fmt.Sprintf("%s_%s.xlsx", base, s.now().UTC().Format("2006-01-02"))
}

// ApprovedChanges exposes the raw rows for non-spreadsheet consumers.
func (s *Service) ApprovedChanges(ctx context.Context) ([]domain.ApprovedChange, error) {
	return s.approved.List(ctx, s.rowLimit)
}

func writeWorkbook(w io.Writer, sheet string, headers []any, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	stream, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}
	if err := stream.SetRow("A1", headers); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("locate row %d: %w", i+2, err)
		}
		if err := stream.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := stream.Flush(); err != nil {
		return fmt.Errorf("flush workbook: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
