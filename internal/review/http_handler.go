package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ashwinpo/email-review-workshop/internal/auth"
	"github.com/ashwinpo/email-review-workshop/internal/domain"
)

// Handler exposes the review workflow as a JSON API under /api/.
type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api"), "/")
	segments := strings.Split(path, "/")

	switch {
	case r.Method == http.MethodGet && path == "queue":
		h.handleListQueue(w, r)
	case r.Method == http.MethodGet && len(segments) == 2 && segments[0] == "queue":
		h.handleRecordDetail(w, r, segments[1])
	case r.Method == http.MethodPost && len(segments) == 3 && segments[0] == "queue" && segments[2] == "approve":
		h.handleApprove(w, r, segments[1])
	case r.Method == http.MethodPost && len(segments) == 3 && segments[0] == "queue" && segments[2] == "followup":
		h.handleFollowup(w, r, segments[1])
	case r.Method == http.MethodGet && path == "kpis":
		h.handleKPIs(w, r)
	case r.Method == http.MethodGet && path == "actions":
		h.handleAuditLog(w, r)
	case r.Method == http.MethodGet && path == "followups":
		h.handleFollowups(w, r)
	case r.Method == http.MethodGet && path == "approved":
		h.handleApproved(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) handleListQueue(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPending(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleRecordDetail(w http.ResponseWriter, r *http.Request, emailID string) {
	detail, err := h.service.RecordDetail(r.Context(), emailID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type approvePayload struct {
	ReviewedValues domain.ContactFields `json:"reviewed_values"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request, emailID string) {
	defer r.Body.Close()
	var payload approvePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "acting reviewer unknown", http.StatusBadRequest)
		return
	}
	result, err := h.service.Approve(r.Context(), ApproveRequest{
		EmailID:  emailID,
		Actor:    actor,
		Reviewed: payload.ReviewedValues,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type followupPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *Handler) handleFollowup(w http.ResponseWriter, r *http.Request, emailID string) {
	defer r.Body.Close()
	payload := followupPayload{}
	// An empty body means "send the composed message as-is".
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "acting reviewer unknown", http.StatusBadRequest)
		return
	}
	result, err := h.service.RequestFollowup(r.Context(), FollowupRequest{
		EmailID: emailID,
		Actor:   actor,
		Subject: payload.Subject,
		Body:    payload.Body,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleKPIs(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.KPIs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *Handler) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	actions, err := h.service.AuditLog(r.Context(), parseLimit(r, 100))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

func (h *Handler) handleFollowups(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.Followups(r.Context(), parseLimit(r, 100))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleApproved(w http.ResponseWriter, r *http.Request) {
	changes, err := h.service.ApprovedChanges(r.Context(), parseLimit(r, 100))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changes)
}

func parseLimit(r *http.Request, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// errorResponse distinguishes the failure classes of the workflow so the
// review surface can render "could not reach the store" differently from
// "your input is invalid" and an operator can spot inconsistent writes.
type errorResponse struct {
	Error  string                   `json:"error"`
	Code   string                   `json:"code"`
	Fields []domain.FieldValidation `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var storeErr *domain.StoreError
	var inconsistentErr *domain.InconsistentWriteError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  validationErr.Error(),
			Code:   "VALIDATION_FAILED",
			Fields: validationErr.Fields,
		})
	case errors.Is(err, domain.ErrAlreadyActioned):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "ALREADY_ACTIONED"})
	case errors.Is(err, domain.ErrRecordNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Code: "NOT_FOUND"})
	case errors.As(err, &storeErr):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: storeErr.Error(), Code: "STORE_UNAVAILABLE"})
	case errors.As(err, &inconsistentErr):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: inconsistentErr.Error(), Code: "INCONSISTENT_WRITE"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Code: "INTERNAL"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
