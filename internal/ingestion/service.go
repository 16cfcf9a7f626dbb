// Package ingestion feeds raw emails through extraction and into the review
// queue. Ingestion is idempotent on email_id: replaying a batch never
// duplicates queue rows.
package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashwinpo/email-review-workshop/internal/domain"
	"github.com/ashwinpo/email-review-workshop/internal/extraction"
	"github.com/ashwinpo/email-review-workshop/internal/repository"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// Service runs extraction over inbound emails and queues the results.
type Service struct {
	queue     repository.QueueRepository
	extractor extraction.Extractor
}

func NewService(queue repository.QueueRepository, extractor extraction.Extractor) *Service {
	return &Service{queue: queue, extractor: extractor}
}

// Summary reports what a batch produced.
type Summary struct {
	Received           int `json:"received"`
	Queued             int `json:"queued"`
	Duplicates         int `json:"duplicates"`
	ExtractionFailures int `json:"extraction_failures"`
}

// Ingest extracts contact fields from every email and inserts the results.
// An extraction failure is not fatal for the batch: the record is queued
// with the error attached so a reviewer still sees the email. Duplicate
// email ids are skipped without error.
func (s *Service) Ingest(ctx context.Context, emails []domain.RawEmail) (Summary, error) {
	summary := Summary{Received: len(emails)}

	for _, email := range emails {
		email = normalizeEmail(email)

		record := domain.ExtractedRecord{
			EmailID: email.EmailID,
			Sender:  email.Sender,
		}
		fields, err := s.extractor.Extract(ctx, email.Body)
		if err != nil {
			summary.ExtractionFailures++
			record.ExtractionError = err.Error()
			slog.Warn("extraction failed, queueing record without fields",
				"email_id", email.EmailID, "error", err)
		} else {
			record.SAPID = fields.SAPID
			record.ContactName = fields.ContactName
			record.ContactEmail = fields.ContactEmail
			record.ContactPhone = fields.ContactPhone
		}

		inserted, err := s.queue.Insert(ctx, email, record)
		if err != nil {
			return summary, fmt.Errorf("queue email %s: %w", email.EmailID, err)
		}
		if !inserted {
			summary.Duplicates++
			continue
		}
		summary.Queued++
	}

	return summary, nil
}

func normalizeEmail(email domain.RawEmail) domain.RawEmail {
	email.EmailID = strings.TrimSpace(email.EmailID)
	if email.EmailID == "" {
		email.EmailID = uuid.NewString()
	}
	email.Sender = strings.TrimSpace(email.Sender)
	if email.ReceivedAt.IsZero() {
		email.ReceivedAt = time.Now().UTC()
	}
	return email
}

// ParseEmails decodes an uploaded batch. The format is chosen by file
// extension: .json holds an array of emails, .jsonl/.ndjson one object per
// line, .csv columns email_id, sender, body and optionally received_at.
func ParseEmails(fileName string, data io.Reader) ([]domain.RawEmail, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".json":
		return parseJSONArray(data)
	case ".jsonl", ".ndjson":
		return parseJSONLines(data)
	case ".csv":
		return parseCSV(data)
	case ".xlsx":
		return parseXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
	}
}

func parseJSONArray(data io.Reader) ([]domain.RawEmail, error) {
	payload, err := io.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	payload = bytes.TrimPrefix(payload, byteOrderMark)

	emails := []domain.RawEmail{}
	if err := json.Unmarshal(payload, &emails); err != nil {
		return nil, fmt.Errorf("decode JSON array: %w", err)
	}
	return emails, nil
}

func parseJSONLines(data io.Reader) ([]domain.RawEmail, error) {
	scanner := bufio.NewScanner(data)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	emails := []domain.RawEmail{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(bytes.TrimPrefix(scanner.Bytes(), byteOrderMark))
		if len(line) == 0 {
			continue
		}
		var email domain.RawEmail
		if err := json.Unmarshal(line, &email); err != nil {
			return nil, fmt.Errorf("decode line %d: %w", lineNo, err)
		}
		emails = append(emails, email)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return emails, nil
}

func parseXLSX(data io.Reader) ([]domain.RawEmail, error) {
	payload, err := io.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnsupportedFormat)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: workbook sheet is empty", ErrUnsupportedFormat)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("normalize sheet row: %w", err)
		}
	}
	writer.Flush()
	return parseCSV(&buf)
}

func parseCSV(data io.Reader) ([]domain.RawEmail, error) {
	reader := csv.NewReader(data)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	columns := map[string]int{}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, string(byteOrderMark))))
		columns[name] = i
	}
	bodyIdx, ok := columns["body"]
	if !ok {
		return nil, fmt.Errorf("%w: CSV needs a body column", ErrUnsupportedFormat)
	}

	cell := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	emails := []domain.RawEmail{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}
		if bodyIdx >= len(row) {
			continue
		}
		email := domain.RawEmail{
			EmailID: cell(row, "email_id"),
			Sender:  cell(row, "sender"),
			Body:    row[bodyIdx],
		}
		if raw := cell(row, "received_at"); raw != "" {
			if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
				email.ReceivedAt = parsed
			}
		}
		emails = append(emails, email)
	}
	return emails, nil
}
