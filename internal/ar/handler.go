package ar

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-dms/meridian/internal/accounting/accounts"
	acctshared "github.com/meridian-dms/meridian/internal/accounting/shared"
	"github.com/meridian-dms/meridian/internal/accounting/journals"
	"github.com/meridian-dms/meridian/internal/accounting/ledger"
	"github.com/meridian-dms/meridian/internal/platform/httpx"
	"github.com/meridian-dms/meridian/internal/shared"
)

// Handler serves receivable postings and customer statements over JSON.
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

// Routes mounts the receivable endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sales", h.PostSale)
	r.Post("/returns", h.PostReturn)
	r.Post("/receipts", h.PostReceipt)
	r.Get("/customers/{customerID}/statement", h.Statement)
}

type saleRequest struct {
	CustomerID      int64   `json:"customer_id" validate:"required"`
	InvoiceID       string  `json:"invoice_id" validate:"required,uuid"`
	InvoiceNo       string  `json:"invoice_no" validate:"required"`
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	CostOfGoodsSold float64 `json:"cost_of_goods_sold" validate:"gte=0"`
	Date            string  `json:"date" validate:"required"`
	ActorID         int64   `json:"actor_id"`
}

type returnRequest struct {
	CustomerID int64   `json:"customer_id" validate:"required"`
	OrderID    string  `json:"order_id" validate:"required,uuid"`
	OrderNo    string  `json:"order_no" validate:"required"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	Date       string  `json:"date" validate:"required"`
	ActorID    int64   `json:"actor_id"`
}

type receiptRequest struct {
	CustomerID    int64   `json:"customer_id" validate:"required"`
	PaymentID     string  `json:"payment_id" validate:"required,uuid"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Method        string  `json:"method"`
	CashAccountID int64   `json:"cash_account_id" validate:"required"`
	Date          string  `json:"date" validate:"required"`
	ActorID       int64   `json:"actor_id"`
}

func (h *Handler) PostSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if !h.decode(w, r, &req) {
		return
	}
	invoiceID, date, ok := h.parseRef(w, req.InvoiceID, req.Date)
	if !ok {
		return
	}
	entry, err := h.service.PostSale(r.Context(), SaleInput{
		CustomerID:      req.CustomerID,
		InvoiceID:       invoiceID,
		InvoiceNo:       req.InvoiceNo,
		Amount:          req.Amount,
		CostOfGoodsSold: req.CostOfGoodsSold,
		Date:            date,
		ActorID:         req.ActorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPostedResponse(entry))
}

func (h *Handler) PostReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if !h.decode(w, r, &req) {
		return
	}
	orderID, date, ok := h.parseRef(w, req.OrderID, req.Date)
	if !ok {
		return
	}
	entry, err := h.service.PostReturn(r.Context(), ReturnInput{
		CustomerID: req.CustomerID,
		OrderID:    orderID,
		OrderNo:    req.OrderNo,
		Amount:     req.Amount,
		Date:       date,
		ActorID:    req.ActorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPostedResponse(entry))
}

func (h *Handler) PostReceipt(w http.ResponseWriter, r *http.Request) {
	var req receiptRequest
	if !h.decode(w, r, &req) {
		return
	}
	paymentID, date, ok := h.parseRef(w, req.PaymentID, req.Date)
	if !ok {
		return
	}
	entry, err := h.service.PostReceipt(r.Context(), ReceiptInput{
		CustomerID:    req.CustomerID,
		PaymentID:     paymentID,
		Amount:        req.Amount,
		Method:        req.Method,
		CashAccountID: req.CashAccountID,
		Date:          date,
		ActorID:       req.ActorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPostedResponse(entry))
}

func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
		return
	}
	from, to, ok := parseRange(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Statement(r.Context(), customerID, from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ledger.NewEntryViews(entries))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) parseRef(w http.ResponseWriter, rawID, rawDate string) (uuid.UUID, time.Time, bool) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "document id must be a UUID")
		return uuid.Nil, time.Time{}, false
	}
	date, err := time.Parse("2006-01-02", rawDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return uuid.Nil, time.Time{}, false
	}
	return id, date, true
}

// parseRange reads from/to query dates defaulting to the current month.
func parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := now
	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.Parse("2006-01-02", raw); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
			return from, to, false
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.Parse("2006-01-02", raw); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
			return from, to, false
		}
		to = to.AddDate(0, 0, 1)
	}
	return from, to, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var missing accounts.MissingAccountError
	switch {
	case errors.As(err, &missing):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Account Setup Required", missing.Error())
	case errors.Is(err, acctshared.ErrNotCashAccount),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrNegativeCost):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Posting Rejected", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "concurrent posting conflict, retry")
	default:
		h.logger.Error("receivable request failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func toPostedResponse(e journals.JournalEntry) map[string]any {
	return map[string]any{
		"journal_id":     e.ID,
		"journal_number": e.Number,
		"type":           string(e.Type),
		"total_debit":    e.TotalDebit,
		"total_credit":   e.TotalCredit,
		"posted_at":      e.PostedAt,
	}
}
