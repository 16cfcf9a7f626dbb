package export

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, "/actions.xlsx"):
		h.download(w, r, "audit_log", h.service.WriteAuditLog)
	case strings.HasSuffix(r.URL.Path, "/approved.xlsx"):
		h.download(w, r, "approved_changes", h.service.WriteApprovedChanges)
	case strings.HasSuffix(r.URL.Path, "/followups.xlsx"):
		h.download(w, r, "followups", h.service.WriteFollowups)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request, base string, write func(context.Context, io.Writer) error) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.service.FileName(base)))
	if err := write(r.Context(), w); err != nil {
		// Headers are already out; the truncated body is all we can signal.
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
