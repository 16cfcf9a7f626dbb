// Package review implements the human-review workflow: listing pending
// records, approving them into approved_changes and requesting follow-ups,
// with every transition mirrored into the append-only audit log.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashwinpo/email-review-workshop/internal/cache"
	"github.com/ashwinpo/email-review-workshop/internal/classify"
	"github.com/ashwinpo/email-review-workshop/internal/domain"
	"github.com/ashwinpo/email-review-workshop/internal/followup"
	"github.com/ashwinpo/email-review-workshop/internal/repository"
	"github.com/ashwinpo/email-review-workshop/pkg/validator"
)

// Service is the action processor. It exclusively owns the transitions that
// create ApprovedChange, ReviewAction and OutgoingMessage rows.
type Service struct {
	queue      repository.QueueRepository
	actions    repository.ActionRepository
	approved   repository.ApprovedRepository
	outgoing   repository.OutgoingRepository
	classifier *classify.Classifier
	composer   *followup.Composer

	readCache  *cache.Cache
	queueLimit int
}

type Option func(*Service)

// WithCache enables the TTL-bounded read cache for queue listings and KPIs.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) { s.readCache = c }
}

// WithQueueLimit bounds the pending listing.
func WithQueueLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.queueLimit = limit
		}
	}
}

func NewService(
	queue repository.QueueRepository,
	actions repository.ActionRepository,
	approved repository.ApprovedRepository,
	outgoing repository.OutgoingRepository,
	classifier *classify.Classifier,
	composer *followup.Composer,
	opts ...Option,
) *Service {
	service := &Service{
		queue:      queue,
		actions:    actions,
		approved:   approved,
		outgoing:   outgoing,
		classifier: classifier,
		composer:   composer,
		queueLimit: 100,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// QueueItem is one pending record with its derived assessment.
type QueueItem struct {
	Record     domain.ExtractedRecord  `json:"record"`
	Assessment domain.RecordAssessment `json:"assessment"`
}

// RecordDetail is the full review view of one record.
type RecordDetail struct {
	Record     domain.ExtractedRecord  `json:"record"`
	SourceBody string                  `json:"source_body"`
	Assessment domain.RecordAssessment `json:"assessment"`
	Actions    []domain.ReviewAction   `json:"actions"`
}

// KPICounts summarizes the pending queue by disposition.
type KPICounts struct {
	Total        int `json:"total"`
	AutoApproved int `json:"auto_approved"`
	NeedsReview  int `json:"needs_review"`
	Rejected     int `json:"rejected"`
}

// ApproveRequest carries a reviewer's confirmation of a record.
type ApproveRequest struct {
	EmailID  string
	Actor    string
	Reviewed domain.ContactFields
}

// ApproveResult reports the rows an approval created.
type ApproveResult struct {
	Change domain.ApprovedChange `json:"change"`
	Action domain.ReviewAction   `json:"action"`
}

// FollowupRequest carries a reviewer's request for customer correction.
// Subject and Body override the composed message when non-empty, matching
// the edit box the review surface offers.
type FollowupRequest struct {
	EmailID string
	Actor   string
	Subject string
	Body    string
}

// FollowupResult reports the rows a follow-up created.
type FollowupResult struct {
	Message domain.OutgoingMessage `json:"message"`
	Action  domain.ReviewAction    `json:"action"`
}

// Approve confirms a record. Field validity is always re-checked here
// against the reviewed values, never trusted from a prior read. The claim on
// the queue row serializes concurrent writers: the loser gets
// domain.ErrAlreadyActioned. After the claim succeeds, any failure is an
// InconsistentWriteError so an operator can reconcile instead of a blind
// retry duplicating the primary effect.
func (s *Service) Approve(ctx context.Context, req ApproveRequest) (ApproveResult, error) {
	record, err := s.queue.GetByEmailID(ctx, req.EmailID)
	if err != nil {
		return ApproveResult{}, err
	}

	reviewed := validator.Normalize(req.Reviewed)
	assessment, err := s.classifier.Classify(ctx, reviewed)
	if err != nil {
		return ApproveResult{}, fmt.Errorf("classify reviewed values: %w", err)
	}
	if invalid := assessment.Invalid(); len(invalid) > 0 {
		return ApproveResult{}, &domain.ValidationError{EmailID: req.EmailID, Fields: invalid}
	}
	if assessment.Disposition == domain.DispositionRejected {
		return ApproveResult{}, &domain.ValidationError{
			EmailID: req.EmailID,
			Fields: []domain.FieldValidation{{
				Field:  domain.FieldSAPID,
				Reason: domain.ReasonInvalidFormat,
				Detail: assessment.RejectReason,
			}},
		}
	}

	sourceBody, err := s.queue.SourceBody(ctx, req.EmailID)
	if err != nil {
		return ApproveResult{}, err
	}

	if err := s.queue.ClaimTerminal(ctx, req.EmailID); err != nil {
		return ApproveResult{}, err
	}

	change := domain.ApprovedChange{
		EmailID:      req.EmailID,
		SAPID:        reviewed.SAPID,
		ContactName:  reviewed.ContactName,
		ContactEmail: reviewed.ContactEmail,
		ContactPhone: reviewed.ContactPhone,
		SourceBody:   sourceBody,
		ApprovedBy:   req.Actor,
	}
	if err := s.approved.Insert(ctx, change); err != nil {
		return ApproveResult{}, &domain.InconsistentWriteError{EmailID: req.EmailID, Op: "approve primary write", Err: err}
	}

	entry := domain.NewReviewAction(req.EmailID, domain.ActionConfirmed, req.Actor, record.Fields(), reviewed, "")
	action, err := s.actions.Append(ctx, entry)
	if err != nil {
		return ApproveResult{}, &domain.InconsistentWriteError{EmailID: req.EmailID, Op: "approve audit write", Err: err}
	}

	s.invalidate(ctx)
	return ApproveResult{Change: change, Action: action}, nil
}

// RequestFollowup composes and persists a correction request. There is no
// validity precondition: follow-up exists precisely for incomplete records.
func (s *Service) RequestFollowup(ctx context.Context, req FollowupRequest) (FollowupResult, error) {
	record, err := s.queue.GetByEmailID(ctx, req.EmailID)
	if err != nil {
		return FollowupResult{}, err
	}

	assessment, err := s.classifier.Classify(ctx, record.Fields())
	if err != nil {
		return FollowupResult{}, fmt.Errorf("classify record: %w", err)
	}

	message := s.composer.Compose(record, assessment)
	if strings.TrimSpace(req.Subject) != "" {
		message.Subject = req.Subject
	}
	if strings.TrimSpace(req.Body) != "" {
		message.Body = req.Body
	}
	message.CreatedBy = req.Actor

	if err := s.queue.ClaimTerminal(ctx, req.EmailID); err != nil {
		return FollowupResult{}, err
	}

	if err := s.outgoing.Insert(ctx, message); err != nil {
		return FollowupResult{}, &domain.InconsistentWriteError{EmailID: req.EmailID, Op: "followup primary write", Err: err}
	}

	entry := domain.NewReviewAction(
		req.EmailID,
		domain.ActionFollowupSent,
		req.Actor,
		record.Fields(),
		map[string]any{"followup": map[string]string{"to": message.ToEmail, "subject": message.Subject}},
		"Missing or invalid fields",
	)
	action, err := s.actions.Append(ctx, entry)
	if err != nil {
		return FollowupResult{}, &domain.InconsistentWriteError{EmailID: req.EmailID, Op: "followup audit write", Err: err}
	}

	s.invalidate(ctx)
	return FollowupResult{Message: message, Action: action}, nil
}

// ListPending returns pending records with their assessments. Results may be
// served from the read cache within its TTL; the cache is invalidated on
// every write.
func (s *Service) ListPending(ctx context.Context, search string) ([]QueueItem, error) {
	cacheKey := fmt.Sprintf("queue:%s:%d", strings.ToLower(strings.TrimSpace(search)), s.queueLimit)
	items := []QueueItem{}
	if err := s.readCache.GetJSON(ctx, cacheKey, &items); err == nil {
		return items, nil
	}

	records, err := s.queue.ListPending(ctx, repository.QueueFilter{Search: search, Limit: s.queueLimit})
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		assessment, err := s.classifier.Classify(ctx, record.Fields())
		if err != nil {
			return nil, fmt.Errorf("classify record %s: %w", record.EmailID, err)
		}
		items = append(items, QueueItem{Record: record, Assessment: assessment})
	}

	if err := s.readCache.SetJSON(ctx, cacheKey, items); err != nil {
		slog.Warn("failed to populate read cache", "key", cacheKey, "error", err)
	}
	return items, nil
}

// KPIs counts the pending queue by disposition.
func (s *Service) KPIs(ctx context.Context) (KPICounts, error) {
	counts := KPICounts{}
	if err := s.readCache.GetJSON(ctx, "kpis", &counts); err == nil {
		return counts, nil
	}

	items, err := s.ListPending(ctx, "")
	if err != nil {
		return KPICounts{}, err
	}
	for _, item := range items {
		counts.Total++
		switch item.Assessment.Disposition {
		case domain.DispositionAutoApproved:
			counts.AutoApproved++
		case domain.DispositionRejected:
			counts.Rejected++
		default:
			counts.NeedsReview++
		}
	}

	if err := s.readCache.SetJSON(ctx, "kpis", counts); err != nil {
		slog.Warn("failed to populate read cache", "key", "kpis", "error", err)
	}
	return counts, nil
}

// RecordDetail returns one record with its source text, assessment and
// action history.
func (s *Service) RecordDetail(ctx context.Context, emailID string) (RecordDetail, error) {
	record, err := s.queue.GetByEmailID(ctx, emailID)
	if err != nil {
		return RecordDetail{}, err
	}
	sourceBody, err := s.queue.SourceBody(ctx, emailID)
	if err != nil {
		return RecordDetail{}, err
	}
	assessment, err := s.classifier.Classify(ctx, record.Fields())
	if err != nil {
		return RecordDetail{}, fmt.Errorf("classify record %s: %w", emailID, err)
	}
	actions, err := s.actions.ListByEmailID(ctx, emailID)
	if err != nil {
		return RecordDetail{}, err
	}
	return RecordDetail{
		Record:     record,
		SourceBody: sourceBody,
		Assessment: assessment,
		Actions:    actions,
	}, nil
}

// AuditLog returns recent audit entries, newest first.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]domain.ReviewAction, error) {
	return s.actions.List(ctx, limit)
}

// Followups returns recent outgoing messages, newest first.
func (s *Service) Followups(ctx context.Context, limit int) ([]domain.OutgoingMessage, error) {
	return s.outgoing.List(ctx, limit)
}

// ApprovedChanges returns recent approved rows, newest first.
func (s *Service) ApprovedChanges(ctx context.Context, limit int) ([]domain.ApprovedChange, error) {
	return s.approved.List(ctx, limit)
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.readCache.Invalidate(ctx); err != nil {
		slog.Warn("failed to invalidate read cache", "error", err)
	}
}
