package reports

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.TrialBalance)
	r.Get("/trial-balance/accounts/{accountId}", h.AccountRow)
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	periodID, err := strconv.ParseInt(r.URL.Query().Get("periodId"), 10, 64)
	if err != nil || periodID <= 0 {
		http.Error(w, "periodId query parameter required", http.StatusBadRequest)
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), periodID)
	if err != nil {
		h.logger.Error("trial balance report", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tb)
}

func (h *Handler) AccountRow(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid account id", http.StatusBadRequest)
		return
	}
	periodID, err := strconv.ParseInt(r.URL.Query().Get("periodId"), 10, 64)
	if err != nil || periodID <= 0 {
		http.Error(w, "periodId query parameter required", http.StatusBadRequest)
		return
	}
	row, err := h.service.AccountRow(r.Context(), accountID, periodID)
	if err != nil {
		if errors.Is(err, shared.ErrNoOpenTrialBalance) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("trial balance row", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(row)
}
