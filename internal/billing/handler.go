package billing

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/oikos-digital/oikos/internal/platform/httpx"
	"github.com/oikos-digital/oikos/internal/shared"
)

// Handler exposes the billing endpoints. It is a thin transport: parse,
// validate, call the service, respond.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	summary  *SummaryService
	validate *validator.Validate
}

// NewHandler constructs an HTTP handler for billing endpoints.
func NewHandler(logger *slog.Logger, service *Service, summary *SummaryService) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		summary:  summary,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes attaches billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{buildingID}/calculate", h.calculate)
	r.Post("/{buildingID}/issue", h.issue)
	r.Get("/{buildingID}/summary", h.dashboardSummary)
}

type issueRequest struct {
	Month           string  `json:"month" validate:"required,len=7"`
	ReserveOverride *string `json:"reserve_override,omitempty" validate:"omitempty"`
}

func (h *Handler) parseBuilding(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "buildingID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.ErrValidation
	}
	return id, nil
}

func (h *Handler) parsePeriod(r *http.Request) (shared.Month, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return shared.CurrentMonth(), nil
	}
	return shared.ParseMonth(raw)
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	buildingID, err := h.parseBuilding(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := h.parsePeriod(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Calculate(r.Context(), buildingID, period, Options{})
	if err != nil {
		h.logger.Error("calculate shares", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	buildingID, err := h.parseBuilding(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req issueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	period, err := shared.ParseMonth(req.Month)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	opts := Options{}
	if req.ReserveOverride != nil {
		amount, err := decimal.NewFromString(*req.ReserveOverride)
		if err != nil || amount.IsNegative() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "reserve_override must be a non-negative amount")
			return
		}
		opts.ReserveMonthlyOverride = &amount
	}
	result, receipt, err := h.service.CalculateAndIssue(r.Context(), buildingID, period, opts)
	if err != nil {
		h.logger.Error("issue shares", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"result":  result,
		"receipt": receipt,
	})
}

func (h *Handler) dashboardSummary(w http.ResponseWriter, r *http.Request) {
	buildingID, err := h.parseBuilding(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := h.parsePeriod(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	summary, err := h.summary.Summary(r.Context(), buildingID, period)
	if err != nil {
		h.logger.Error("dashboard summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
