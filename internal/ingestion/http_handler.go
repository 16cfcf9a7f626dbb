package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ashwinpo/email-review-workshop/internal/domain"
)

// Handler exposes ingestion as an HTTP endpoint. It accepts either a raw
// JSON array of emails or a multipart upload with a "file" part.
type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	emails, err := h.decodeEmails(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrUnsupportedFormat) {
			status = http.StatusUnsupportedMediaType
		}
		http.Error(w, err.Error(), status)
		return
	}

	summary, err := h.service.Ingest(r.Context(), emails)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) decodeEmails(r *http.Request) ([]domain.RawEmail, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, fmt.Errorf("invalid form data: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("file required: %w", err)
		}
		defer file.Close()
		return ParseEmails(header.Filename, file)
	}

	defer r.Body.Close()
	emails := []domain.RawEmail{}
	if err := json.NewDecoder(r.Body).Decode(&emails); err != nil {
		return nil, fmt.Errorf("decode JSON body: %w", err)
	}
	return emails, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
