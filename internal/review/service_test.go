package review

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ashwinpo/email-review-workshop/internal/classify"
	"github.com/ashwinpo/email-review-workshop/internal/domain"
	"github.com/ashwinpo/email-review-workshop/internal/followup"
	"github.com/ashwinpo/email-review-workshop/internal/repository"
)

type stubQueueRepo struct {
	mu       sync.Mutex
	records  map[string]domain.ExtractedRecord
	bodies   map[string]string
	claimed  map[string]bool
	claimErr error
}

func newStubQueueRepo(records ...domain.ExtractedRecord) *stubQueueRepo {
	repo := &stubQueueRepo{
		records: make(map[string]domain.ExtractedRecord),
		bodies:  make(map[string]string),
		claimed: make(map[string]bool),
	}
	for _, record := range records {
		repo.records[record.EmailID] = record
		repo.bodies[record.EmailID] = "original email text for " + record.EmailID
	}
	return repo
}

func (s *stubQueueRepo) Insert(ctx context.Context, email domain.RawEmail, record domain.ExtractedRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.EmailID]; ok {
		return false, nil
	}
	s.records[record.EmailID] = record
	s.bodies[record.EmailID] = email.Body
	return true, nil
}

func (s *stubQueueRepo) ListPending(ctx context.Context, filter repository.QueueFilter) ([]domain.ExtractedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := []domain.ExtractedRecord{}
	for id, record := range s.records {
		if !s.claimed[id] {
			pending = append(pending, record)
		}
	}
	return pending, nil
}

func (s *stubQueueRepo) GetByEmailID(ctx context.Context, emailID string) (domain.ExtractedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[emailID]
	if !ok {
		return domain.ExtractedRecord{}, domain.ErrRecordNotFound
	}
	return record, nil
}

func (s *stubQueueRepo) SourceBody(ctx context.Context, emailID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.bodies[emailID]
	if !ok {
		return "", domain.ErrRecordNotFound
	}
	return body, nil
}

func (s *stubQueueRepo) ClaimTerminal(ctx context.Context, emailID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimErr != nil {
		return s.claimErr
	}
	if _, ok := s.records[emailID]; !ok {
		return domain.ErrRecordNotFound
	}
	if s.claimed[emailID] {
		return domain.ErrAlreadyActioned
	}
	s.claimed[emailID] = true
	return nil
}

type stubActionRepo struct {
	mu        sync.Mutex
	appended  []domain.ReviewAction
	appendErr error
	nextID    int64
}

func (s *stubActionRepo) Append(ctx context.Context, action domain.ReviewAction) (domain.ReviewAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return domain.ReviewAction{}, s.appendErr
	}
	s.nextID++
	action.ID = s.nextID
	s.appended = append(s.appended, action)
	return action, nil
}

func (s *stubActionRepo) List(ctx context.Context, limit int) ([]domain.ReviewAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ReviewAction{}, s.appended...), nil
}

func (s *stubActionRepo) ListByEmailID(ctx context.Context, emailID string) ([]domain.ReviewAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []domain.ReviewAction{}
	for _, action := range s.appended {
		if action.EmailID == emailID {
			matched = append(matched, action)
		}
	}
	return matched, nil
}

type stubApprovedRepo struct {
	mu        sync.Mutex
	changes   []domain.ApprovedChange
	insertErr error
}

func (s *stubApprovedRepo) Insert(ctx context.Context, change domain.ApprovedChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.changes = append(s.changes, change)
	return nil
}

func (s *stubApprovedRepo) List(ctx context.Context, limit int) ([]domain.ApprovedChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ApprovedChange{}, s.changes...), nil
}

type stubOutgoingRepo struct {
	mu       sync.Mutex
	messages []domain.OutgoingMessage
}

func (s *stubOutgoingRepo) Insert(ctx context.Context, message domain.OutgoingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
	return nil
}

func (s *stubOutgoingRepo) List(ctx context.Context, limit int) ([]domain.OutgoingMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutgoingMessage{}, s.messages...), nil
}

type stubLookup struct {
	results map[string]domain.SAPLookupResult
}

func (s *stubLookup) Lookup(ctx context.Context, sapID string) (domain.SAPLookupResult, error) {
	if s.results == nil {
		return domain.SAPLookupResult{}, nil
	}
	return s.results[sapID], nil
}

type fixture struct {
	queue    *stubQueueRepo
	actions  *stubActionRepo
	approved *stubApprovedRepo
	outgoing *stubOutgoingRepo
	service  *Service
}

func newFixture(lookup *stubLookup, records ...domain.ExtractedRecord) *fixture {
	f := &fixture{
		queue:    newStubQueueRepo(records...),
		actions:  &stubActionRepo{},
		approved: &stubApprovedRepo{},
		outgoing: &stubOutgoingRepo{},
	}
	f.service = NewService(
		f.queue,
		f.actions,
		f.approved,
		f.outgoing,
		classify.New(lookup),
		followup.New("reviewers@example.com"),
	)
	return f
}

func validRecord(emailID string) domain.ExtractedRecord {
	return domain.ExtractedRecord{
		EmailID:      emailID,
		Sender:       "jane.doe@customer.example.com",
		SAPID:        "SAP123456",
		ContactName:  "Jane Doe",
		ContactEmail: "jane.doe@customer.example.com",
		ContactPhone: "555-123-4567",
	}
}

func TestApproveCreatesChangeAndAuditEntry(t *testing.T) {
	f := newFixture(&stubLookup{}, validRecord("email-001"))

	result, err := f.service.Approve(context.Background(), ApproveRequest{
		EmailID:  "email-001",
		Actor:    "reviewer@example.com",
		Reviewed: validRecord("email-001").Fields(),
	})
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	if len(f.approved.changes) != 1 {
		t.Fatalf("expected exactly one approved change, got %d", len(f.approved.changes))
	}
	change := f.approved.changes[0]
	if change.EmailID != "email-001" || change.ApprovedBy != "reviewer@example.com" {
		t.Errorf("unexpected approved change: %+v", change)
	}
	if change.ContactPhone != "(555) 123-4567" {
		t.Errorf("expected normalized phone in approved change, got %q", change.ContactPhone)
	}
	if change.SourceBody == "" {
		t.Error("approved change should carry the source email body")
	}

	if len(f.actions.appended) != 1 {
		t.Fatalf("expected exactly one audit entry, got %d", len(f.actions.appended))
	}
	action := f.actions.appended[0]
	if action.Action != domain.ActionConfirmed {
		t.Errorf("expected confirmed action, got %s", action.Action)
	}
	if action.Actor != "reviewer@example.com" {
		t.Errorf("unexpected actor %q", action.Actor)
	}
	if len(action.OldValues) == 0 || len(action.NewValues) == 0 {
		t.Error("audit entry should snapshot old and new values")
	}
	if result.Change.EmailID != change.EmailID {
		t.Errorf("result change mismatch: %+v", result.Change)
	}
}

func TestApproveRejectsInvalidFields(t *testing.T) {
	record := validRecord("email-002")
	record.ContactPhone = "12345"
	record.ContactEmail = ""
	f := newFixture(&stubLookup{}, record)

	_, err := f.service.Approve(context.Background(), ApproveRequest{
		EmailID:  "email-002",
		Actor:    "reviewer@example.com",
		Reviewed: record.Fields(),
	})

	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := map[string]domain.Reason{}
	for _, field := range validationErr.Fields {
		fields[field.Field] = field.Reason
	}
	if fields[domain.FieldContactPhone] != domain.ReasonInvalidFormat {
		t.Errorf("expected INVALID_FORMAT for phone, got %v", fields[domain.FieldContactPhone])
	}
	if fields[domain.FieldContactEmail] != domain.ReasonMissing {
		t.Errorf("expected MISSING for email, got %v", fields[domain.FieldContactEmail])
	}

	if len(f.approved.changes) != 0 {
		t.Error("invalid approval must not write an approved change")
	}
	if len(f.actions.appended) != 0 {
		t.Error("invalid approval must not write an audit entry")
	}
	if f.queue.claimed["email-002"] {
		t.Error("invalid approval must not claim the record")
	}
}

func TestApproveRejectsContradictedSAPID(t *testing.T) {
	record := validRecord("email-003")
	lookup := &stubLookup{results: map[string]domain.SAPLookupResult{
		"SAP123456": {Exists: true, BoundContact: "someone.else@customer.example.com"},
	}}
	f := newFixture(lookup, record)

	_, err := f.service.Approve(context.Background(), ApproveRequest{
		EmailID:  "email-003",
		Actor:    "reviewer@example.com",
		Reviewed: record.Fields(),
	})

	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for rejected record, got %v", err)
	}
	if len(f.approved.changes) != 0 {
		t.Error("rejected record must not produce an approved change")
	}
}

func TestApproveSecondAttemptConflicts(t *testing.T) {
	f := newFixture(&stubLookup{}, validRecord("email-004"))
	req := ApproveRequest{
		EmailID:  "email-004",
		Actor:    "reviewer@example.com",
		Reviewed: validRecord("email-004").Fields(),
	}

	if _, err := f.service.Approve(context.Background(), req); err != nil {
		t.Fatalf("first Approve() error = %v", err)
	}
	_, err := f.service.Approve(context.Background(), req)
	if !errors.Is(err, domain.ErrAlreadyActioned) {
		t.Fatalf("expected ErrAlreadyActioned, got %v", err)
	}

	if len(f.approved.changes) != 1 {
		t.Errorf("expected exactly one approved change after replay, got %d", len(f.approved.changes))
	}
	if len(f.actions.appended) != 1 {
		t.Errorf("expected exactly one audit entry after replay, got %d", len(f.actions.appended))
	}
}

func TestConcurrentActionsProduceOneWinner(t *testing.T) {
	f := newFixture(&stubLookup{}, validRecord("email-005"))
	req := ApproveRequest{
		EmailID:  "email-005",
		Actor:    "reviewer@example.com",
		Reviewed: validRecord("email-005").Fields(),
	}

	const writers = 8
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Approve(context.Background(), req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	winners, losers := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, domain.ErrAlreadyActioned):
			losers++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("expected exactly one winner, got %d", winners)
	}
	if losers != writers-1 {
		t.Errorf("expected %d losers, got %d", writers-1, losers)
	}
	if len(f.approved.changes) != 1 {
		t.Errorf("expected exactly one approved change, got %d", len(f.approved.changes))
	}
}

func TestApproveAuditFailureIsInconsistentWrite(t *testing.T) {
	f := newFixture(&stubLookup{}, validRecord("email-006"))
	f.actions.appendErr = errors.New("connection reset")

	_, err := f.service.Approve(context.Background(), ApproveRequest{
		EmailID:  "email-006",
		Actor:    "reviewer@example.com",
		Reviewed: validRecord("email-006").Fields(),
	})

	var inconsistentErr *domain.InconsistentWriteError
	if !errors.As(err, &inconsistentErr) {
		t.Fatalf("expected InconsistentWriteError, got %v", err)
	}
	if inconsistentErr.EmailID != "email-006" {
		t.Errorf("unexpected email id %q", inconsistentErr.EmailID)
	}
	// The primary write landed before the audit write failed.
	if len(f.approved.changes) != 1 {
		t.Errorf("expected the approved change to survive, got %d", len(f.approved.changes))
	}
}

func TestFollowupAllowedForInvalidRecord(t *testing.T) {
	record := validRecord("email-007")
	record.SAPID = "not-an-id"
	record.ContactPhone = ""
	f := newFixture(&stubLookup{}, record)

	result, err := f.service.RequestFollowup(context.Background(), FollowupRequest{
		EmailID: "email-007",
		Actor:   "reviewer@example.com",
	})
	if err != nil {
		t.Fatalf("RequestFollowup() error = %v", err)
	}

	if len(f.outgoing.messages) != 1 {
		t.Fatalf("expected one outgoing message, got %d", len(f.outgoing.messages))
	}
	message := f.outgoing.messages[0]
	if message.ToEmail != record.ContactEmail {
		t.Errorf("expected follow-up addressed to the valid contact email, got %q", message.ToEmail)
	}
	if message.Status != domain.OutgoingPending {
		t.Errorf("expected pending status, got %s", message.Status)
	}
	if !strings.Contains(message.Body, "SAP ID") {
		t.Errorf("follow-up body should name the invalid SAP id field:\n%s", message.Body)
	}
	if !strings.Contains(message.Body, "Phone") {
		t.Errorf("follow-up body should name the missing phone field:\n%s", message.Body)
	}

	if len(f.actions.appended) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(f.actions.appended))
	}
	action := f.actions.appended[0]
	if action.Action != domain.ActionFollowupSent {
		t.Errorf("expected followup_sent action, got %s", action.Action)
	}
	if action.Reason == "" {
		t.Error("follow-up audit entry should carry a reason")
	}
	if result.Message.EmailID != "email-007" {
		t.Errorf("unexpected result message: %+v", result.Message)
	}
}

func TestFollowupHonorsReviewerOverrides(t *testing.T) {
	f := newFixture(&stubLookup{}, validRecord("email-008"))

	result, err := f.service.RequestFollowup(context.Background(), FollowupRequest{
		EmailID: "email-008",
		Actor:   "reviewer@example.com",
		Subject: "Re: your account update",
		Body:    "Please call us back.",
	})
	if err != nil {
		t.Fatalf("RequestFollowup() error = %v", err)
	}
	if result.Message.Subject != "Re: your account update" {
		t.Errorf("expected overridden subject, got %q", result.Message.Subject)
	}
	if result.Message.Body != "Please call us back." {
		t.Errorf("expected overridden body, got %q", result.Message.Body)
	}
}

func TestFollowupThenApproveConflicts(t *testing.T) {
	f := newFixture(&stubLookup{}, validRecord("email-009"))

	if _, err := f.service.RequestFollowup(context.Background(), FollowupRequest{
		EmailID: "email-009",
		Actor:   "reviewer@example.com",
	}); err != nil {
		t.Fatalf("RequestFollowup() error = %v", err)
	}

	_, err := f.service.Approve(context.Background(), ApproveRequest{
		EmailID:  "email-009",
		Actor:    "reviewer@example.com",
		Reviewed: validRecord("email-009").Fields(),
	})
	if !errors.Is(err, domain.ErrAlreadyActioned) {
		t.Fatalf("expected ErrAlreadyActioned after follow-up, got %v", err)
	}
	if len(f.approved.changes) != 0 {
		t.Error("an actioned record must not gain an approved change")
	}
}

func TestApproveUnknownRecord(t *testing.T) {
	f := newFixture(&stubLookup{})

	_, err := f.service.Approve(context.Background(), ApproveRequest{
		EmailID:  "missing",
		Actor:    "reviewer@example.com",
		Reviewed: domain.ContactFields{},
	})
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestKPIsCountDispositions(t *testing.T) {
	needsReview := validRecord("email-011")
	needsReview.ContactPhone = ""
	f := newFixture(&stubLookup{}, validRecord("email-010"), needsReview)

	counts, err := f.service.KPIs(context.Background())
	if err != nil {
		t.Fatalf("KPIs() error = %v", err)
	}
	if counts.Total != 2 {
		t.Errorf("expected 2 pending, got %d", counts.Total)
	}
	if counts.AutoApproved != 1 {
		t.Errorf("expected 1 auto-approved, got %d", counts.AutoApproved)
	}
	if counts.NeedsReview != 1 {
		t.Errorf("expected 1 needs-review, got %d", counts.NeedsReview)
	}
}
