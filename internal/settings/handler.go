package settings

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/colmado-pos/colmado-pos/internal/platform/httpx"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/business", h.updateBusiness)
		r.Put("/system", h.updateSystem)
		r.Post("/reset", h.reset)
		r.Get("/export", h.export)
		r.Post("/import", h.importSettings)
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	current, err := h.service.Get(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, current)
}

func (h *Handler) updateBusiness(w http.ResponseWriter, r *http.Request) {
	var req UpdateBusinessRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}
	updated, err := h.service.UpdateBusiness(r.Context(), actorID(r), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) updateSystem(w http.ResponseWriter, r *http.Request) {
	var req UpdateSystemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}
	updated, err := h.service.UpdateSystem(r.Context(), actorID(r), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	restored, err := h.service.Reset(r.Context(), actorID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, restored)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	payload, err := h.service.Export(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="pos-settings.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (h *Handler) importSettings(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request", "unable to read body")
		return
	}
	imported, err := h.service.Import(r.Context(), actorID(r), payload)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid settings document", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, imported)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("settings request failed", "path", r.URL.Path, "error", err)
	httpx.Problem(w, http.StatusInternalServerError, "internal error", "unexpected failure")
}

func actorID(r *http.Request) string {
	return r.Header.Get("X-Cashier-ID")
}
