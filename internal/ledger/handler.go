package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/oikos-digital/oikos/internal/platform/httpx"
)

// Handler exposes ledger endpoints: payments, adjustments and history.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs an HTTP handler for ledger endpoints.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes attaches ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/payments", h.recordPayment)
	r.Post("/adjustments", h.recordAdjustment)
	r.Get("/apartments/{apartmentID}/history", h.history)
}

type paymentRequest struct {
	BuildingID  int64  `json:"building_id" validate:"required,gt=0"`
	ApartmentID int64  `json:"apartment_id" validate:"required,gt=0"`
	Amount      string `json:"amount" validate:"required"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	ReferenceID int64  `json:"reference_id"`
	Description string `json:"description" validate:"max=255"`
}

type adjustmentRequest struct {
	BuildingID  int64  `json:"building_id" validate:"required,gt=0"`
	ApartmentID int64  `json:"apartment_id" validate:"required,gt=0"`
	Delta       string `json:"delta" validate:"required"`
	Description string `json:"description" validate:"required,max=255"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a positive number")
		return
	}
	date := time.Now().UTC()
	if req.Date != "" {
		date, _ = time.Parse("2006-01-02", req.Date)
	}
	tx, err := h.service.RecordPayment(r.Context(), req.BuildingID, req.ApartmentID, amount, date, req.ReferenceID, req.Description)
	if err != nil {
		h.logger.Error("record payment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tx)
}

func (h *Handler) recordAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	delta, err := decimal.NewFromString(req.Delta)
	if err != nil || delta.IsZero() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "delta must be a non-zero number")
		return
	}
	tx, err := h.service.RecordAdjustment(r.Context(), req.BuildingID, req.ApartmentID, delta, req.Description)
	if err != nil {
		h.logger.Error("record adjustment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tx)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	apartmentID, err := strconv.ParseInt(chi.URLParam(r, "apartmentID"), 10, 64)
	if err != nil || apartmentID <= 0 {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	entries, err := h.service.History(r.Context(), apartmentID)
	if err != nil {
		h.logger.Error("ledger history", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": entries})
}
