package building

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/oikos-digital/oikos/internal/platform/httpx"
)

// Handler exposes building and apartment read endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs an HTTP handler for building endpoints.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches building routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{buildingID}", h.get)
	r.Get("/{buildingID}/apartments", h.apartments)
	r.Get("/{buildingID}/mills-audit", h.millsAudit)
}

func parseBuildingID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "buildingID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.ErrValidation
	}
	return id, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	buildings, err := h.service.ListBuildings(r.Context())
	if err != nil {
		h.logger.Error("list buildings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"buildings": buildings})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseBuildingID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.GetBuilding(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) apartments(w http.ResponseWriter, r *http.Request) {
	id, err := parseBuildingID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	apartments, err := h.service.ListApartments(r.Context(), id)
	if err != nil {
		h.logger.Error("list apartments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"apartments": apartments})
}

func (h *Handler) millsAudit(w http.ResponseWriter, r *http.Request) {
	id, err := parseBuildingID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	warning, err := h.service.AuditMills(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"ok":      warning == nil,
		"warning": warning,
	})
}
