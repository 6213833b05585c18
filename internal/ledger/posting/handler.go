package posting

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/halcyon-erp/halcyon/internal/ledger/documents"
	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
	locks "github.com/halcyon-erp/halcyon/internal/shared"
)

type Handler struct {
	service   *Service
	logger    *slog.Logger
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, validator: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/batches", h.PostBatch)
	r.Post("/check", h.CheckDraft)
	r.Get("/documents/{id}", h.GetDocument)
	r.Post("/documents/{id}/post", h.PostDocument)
	r.Post("/documents/post-all", h.PostAll)
	r.Get("/journals", h.ListJournals)
	r.Post("/journals/{id}/unwind", h.Unwind)
	r.Get("/journals/{id}/check", h.Check)
}

func (h *Handler) ListJournals(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListJournals(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type postBatchRequest struct {
	DocumentIDs []int64 `json:"documentIds" validate:"required,min=1,dive,gt=0"`
	PostDate    string  `json:"postDate" validate:"omitempty,datetime=2006-01-02"`
}

type postAllRequest struct {
	DocumentType string `json:"documentType" validate:"required"`
	PostDate     string `json:"postDate" validate:"omitempty,datetime=2006-01-02"`
}

type checkRequest struct {
	Currency      string              `json:"currency" validate:"required,len=3"`
	Distributions []DraftDistribution `json:"distributions" validate:"required,min=1,dive"`
}

// parsePostDate turns an optional YYYY-MM-DD value into a posting date; an
// empty value means "post as of now".
func parsePostDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (h *Handler) PostBatch(w http.ResponseWriter, r *http.Request) {
	var req postBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	postDate, err := parsePostDate(req.PostDate)
	if err != nil {
		http.Error(w, "invalid postDate, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	res, err := h.service.PostMany(r.Context(), req.DocumentIDs, postDate)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) CheckDraft(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	report, err := h.service.CheckDraft(r.Context(), req.Currency, req.Distributions)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.GetDocument(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) PostDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	postDate, err := parsePostDate(r.URL.Query().Get("postDate"))
	if err != nil {
		http.Error(w, "invalid postDate, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	res, err := h.service.PostOne(r.Context(), id, postDate)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) PostAll(w http.ResponseWriter, r *http.Request) {
	var req postAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	postDate, err := parsePostDate(req.PostDate)
	if err != nil {
		http.Error(w, "invalid postDate, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	res, err := h.service.PostAllUnposted(r.Context(), documents.DocumentType(req.DocumentType), postDate)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Unwind(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Unwind(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unwound"})
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	report, err := h.service.Check(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

type batchFailure struct {
	DocumentID int64  `json:"documentId,omitempty"`
	Error      string `json:"error"`
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var batchErr *BatchError
	if errors.As(err, &batchErr) {
		failures := make([]batchFailure, len(batchErr.Failed))
		for i, f := range batchErr.Failed {
			failures[i] = batchFailure{DocumentID: f.DocumentID, Error: f.Err.Error()}
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"batchId":  batchErr.BatchID,
			"state":    batchErr.State,
			"failures": failures,
		})
		return
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrDocumentNotFound), errors.Is(err, shared.ErrJournalNotFound),
		errors.Is(err, shared.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrPostingToParent), errors.Is(err, shared.ErrUnbalanced):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrAlreadyPosted), errors.Is(err, shared.ErrInvalidPeriod):
		status = http.StatusConflict
	case errors.Is(err, locks.ErrLockHeld):
		status = http.StatusLocked
	case errors.Is(err, shared.ErrStoreUnavailable), errors.Is(err, shared.ErrConversionUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("posting operation", slog.Any("error", err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
