package pos

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-pos/meridian/internal/accounting/numbering"
	"github.com/meridian-pos/meridian/internal/accounting/shared"
	"github.com/meridian-pos/meridian/internal/platform/httpx"
)

// Handler exposes the POS accounting endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *ConfigValidator
	series    numbering.Repository
	validate  *validator.Validate
}

// NewHandler builds the POS HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, configValidator *ConfigValidator, series numbering.Repository) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: configValidator,
		series:    series,
		validate:  validator.New(),
	}
}

// MountRoutes registers the POS routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/orders/{id}/complete-payment", h.completePayment)
	r.Post("/orders/{id}/post-to-gl", h.postToGL)
	r.Get("/orders/accounting-status", h.ordersAccountingStatus)
	r.Get("/orders/{id}/accounting", h.orderAccountingSummary)
	r.Get("/config/{businessUnitID}/validate", h.validateConfig)
	r.Get("/config/{businessUnitID}/series", h.listSeries)
}

func (h *Handler) completePayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req CompletePaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "request body must be JSON")
		return
	}
	autoPost := true
	if req.AutoPostToGL != nil {
		autoPost = *req.AutoPostToGL
	}
	result, err := h.service.CompleteOrderPayment(r.Context(), orderID, autoPost)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) postToGL(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := h.service.PostOrderToGL(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	// A nil journal entry with no error is a hard failure, never a success.
	if result == nil || result.JournalEntry == nil {
		h.logger.Error("posting returned no journal entry", slog.String("order_id", orderID.String()))
		httpx.Problem(w, http.StatusInternalServerError, "Posting failed", "no journal entry was created")
		return
	}
	httpx.JSON(w, http.StatusOK, newPostToGLResponse(result))
}

func (h *Handler) orderAccountingSummary(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	summary, err := h.service.GetOrderAccountingSummary(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) ordersAccountingStatus(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("ids"))
	query := OrdersStatusQuery{}
	if raw != "" {
		query.IDs = strings.Split(raw, ",")
	}
	if err := h.validate.Struct(query); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "ids must be 1-200 comma-separated order ids")
		return
	}
	ids := make([]uuid.UUID, len(query.IDs))
	for i, part := range query.IDs {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid request", "ids contains an invalid order id")
			return
		}
		ids[i] = id
	}
	statuses, err := h.service.GetOrdersAccountingStatus(r.Context(), ids)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, statuses)
}

func (h *Handler) validateConfig(w http.ResponseWriter, r *http.Request) {
	businessUnitID, ok := h.pathID(w, r, "businessUnitID")
	if !ok {
		return
	}
	result, err := h.validator.Validate(r.Context(), businessUnitID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) listSeries(w http.ResponseWriter, r *http.Request) {
	businessUnitID, ok := h.pathID(w, r, "businessUnitID")
	if !ok {
		return
	}
	series, err := h.series.ListByBusinessUnit(r.Context(), businessUnitID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if series == nil {
		series = []numbering.Series{}
	}
	httpx.JSON(w, http.StatusOK, series)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", param+" must be a valid id")
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps service errors onto HTTP problem responses. Posting errors
// surface their literal message so operators see exactly what blocked the
// posting.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		configErr   *shared.ConfigurationError
		mismatchErr *shared.PaymentMismatchError
		mappingErr  *shared.MissingGLMappingError
		unbalanced  *shared.UnbalancedEntryError
	)
	switch {
	case errors.Is(err, shared.ErrOrderNotFound),
		errors.Is(err, shared.ErrSeriesNotFound),
		errors.Is(err, shared.ErrAccountNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, shared.ErrAlreadyPosted),
		errors.Is(err, shared.ErrAlreadyPaid):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrOrderNotPaid),
		errors.Is(err, shared.ErrNoOpenPeriod),
		errors.As(err, &configErr),
		errors.As(err, &mismatchErr),
		errors.As(err, &mappingErr),
		errors.As(err, &unbalanced):
		httpx.Problem(w, http.StatusBadRequest, "Posting rejected", err.Error())
	default:
		h.logger.Error("pos request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal error", "an unexpected error occurred")
	}
}
