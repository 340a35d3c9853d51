package reports

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/colmado-pos/colmado-pos/internal/catalog"
	"github.com/colmado-pos/colmado-pos/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/summary", h.summary)
		r.Get("/low-stock", h.lowStock)
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if !ValidRangeDate(from) || !ValidRangeDate(to) {
		httpx.Problem(w, http.StatusBadRequest, "invalid range", "from and to must be YYYY-MM-DD")
		return
	}
	if from > to {
		httpx.Problem(w, http.StatusBadRequest, "invalid range", "from must not be after to")
		return
	}

	summary, err := h.service.Summary(r.Context(), from, to)
	if err != nil {
		h.logger.Error("report summary failed", "from", from, "to", to, "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "unexpected failure")
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.LowStock(r.Context())
	if err != nil {
		h.logger.Error("low stock report failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "unexpected failure")
		return
	}
	if out == nil {
		out = []catalog.Product{}
	}
	httpx.JSON(w, http.StatusOK, out)
}
