package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-dms/meridian/internal/platform/httpx"
	"github.com/meridian-dms/meridian/internal/shared"
)

const defaultCardLimit = 100

// Handler serves stock movements and valuations over JSON.
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

// Routes mounts the inventory endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/movements/in", h.AddStock)
	r.Post("/movements/out", h.RemoveStock)
	r.Post("/adjustments", h.AdjustStock)
	r.Get("/products/{productID}/valuation", h.Valuation)
	r.Get("/products/{productID}/card", h.StockCard)
}

type movementRequest struct {
	ProductID    int64   `json:"product_id" validate:"required"`
	Qty          float64 `json:"qty" validate:"required,gt=0"`
	UnitCost     float64 `json:"unit_cost" validate:"gte=0"`
	Type         string  `json:"type" validate:"required,oneof=PURCHASE SALE RETURN ADJUSTMENT"`
	SourceType   string  `json:"source_type" validate:"required"`
	SourceID     string  `json:"source_id" validate:"required,uuid"`
	SourceNumber string  `json:"source_number"`
	ActorID      int64   `json:"actor_id"`
}

type adjustRequest struct {
	ProductID int64   `json:"product_id" validate:"required"`
	NewQty    float64 `json:"new_qty" validate:"gte=0"`
	Reason    string  `json:"reason" validate:"required"`
	ActorID   int64   `json:"actor_id"`
}

type transactionResponse struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"product_id"`
	Type         string    `json:"type"`
	QtyIn        float64   `json:"qty_in"`
	QtyOut       float64   `json:"qty_out"`
	UnitCost     float64   `json:"unit_cost"`
	BalanceAfter float64   `json:"balance_after"`
	SourceType   string    `json:"source_type,omitempty"`
	SourceNumber string    `json:"source_number,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type valuationResponse struct {
	ProductID  int64     `json:"product_id"`
	Qty        float64   `json:"qty"`
	AvgCost    float64   `json:"avg_cost"`
	TotalValue float64   `json:"total_value"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	req, src, ok := h.decodeMovement(w, r)
	if !ok {
		return
	}
	result, err := h.service.AddStock(r.Context(), AddStockInput{
		ProductID: req.ProductID,
		Qty:       req.Qty,
		UnitCost:  req.UnitCost,
		Type:      TransactionType(req.Type),
		Source:    src,
		ActorID:   req.ActorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"transaction": toTransactionResponse(result.Transaction),
		"new_qty":     result.NewQty,
		"avg_cost":    result.AvgCost,
	})
}

func (h *Handler) RemoveStock(w http.ResponseWriter, r *http.Request) {
	req, src, ok := h.decodeMovement(w, r)
	if !ok {
		return
	}
	result, err := h.service.RemoveStock(r.Context(), RemoveStockInput{
		ProductID: req.ProductID,
		Qty:       req.Qty,
		Type:      TransactionType(req.Type),
		Source:    src,
		ActorID:   req.ActorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"transaction":     toTransactionResponse(result.Transaction),
		"new_qty":         result.NewQty,
		"cost_at_removal": result.CostAtRemoval,
		"total_cost":      result.TotalCost,
	})
}

func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.AdjustStock(r.Context(), AdjustStockInput{
		ProductID: req.ProductID,
		NewQty:    req.NewQty,
		Reason:    req.Reason,
		ActorID:   req.ActorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"transaction": toTransactionResponse(result.Transaction),
		"old_qty":     result.OldQty,
		"new_qty":     result.NewQty,
	})
}

func (h *Handler) Valuation(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	val, err := h.service.GetValuation(r.Context(), productID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, valuationResponse{
		ProductID:  val.ProductID,
		Qty:        val.Qty,
		AvgCost:    val.AvgCost,
		TotalValue: val.TotalValue,
		UpdatedAt:  val.UpdatedAt,
	})
}

func (h *Handler) StockCard(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultCardLimit
	}
	movements, err := h.service.StockCard(r.Context(), productID, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, toTransactionResponse(m))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) decodeMovement(w http.ResponseWriter, r *http.Request) (movementRequest, SourceRef, bool) {
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return req, SourceRef{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, SourceRef{}, false
	}
	sourceID, err := uuid.Parse(req.SourceID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "source_id must be a UUID")
		return req, SourceRef{}, false
	}
	return req, SourceRef{Type: req.SourceType, ID: sourceID, Number: req.SourceNumber}, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var insufficient InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"title":      "Insufficient Stock",
			"status":     http.StatusUnprocessableEntity,
			"detail":     insufficient.Error(),
			"product_id": insufficient.ProductID,
			"available":  insufficient.Available,
			"requested":  insufficient.Requested,
		})
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidUnitCost):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Movement Rejected", err.Error())
	case errors.Is(err, ErrValuationNotFound), errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "concurrent stock movement conflict, retry")
	default:
		h.logger.Error("inventory request failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func toTransactionResponse(t Transaction) transactionResponse {
	return transactionResponse{
		ID:           t.ID,
		ProductID:    t.ProductID,
		Type:         string(t.Type),
		QtyIn:        t.QtyIn,
		QtyOut:       t.QtyOut,
		UnitCost:     t.UnitCost,
		BalanceAfter: t.BalanceAfter,
		SourceType:   t.SourceType,
		SourceNumber: t.SourceNumber,
		Reason:       t.Reason,
		CreatedAt:    t.CreatedAt,
	}
}
