package ap

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

// Handler serves payable postings and vendor statements over JSON.
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

// Routes mounts the payable endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/purchases", h.PostPurchase)
	r.Post("/payments", h.PostPayment)
	r.Post("/expenses", h.PostExpense)
	r.Get("/vendors/{vendorID}/statement", h.Statement)
}

type purchaseRequest struct {
	VendorID   int64   `json:"vendor_id" validate:"required"`
	PurchaseID string  `json:"purchase_id" validate:"required,uuid"`
	PurchaseNo string  `json:"purchase_no" validate:"required"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	Date       string  `json:"date" validate:"required"`
	ActorID    int64   `json:"actor_id"`
}

type paymentRequest struct {
	VendorID      int64   `json:"vendor_id" validate:"required"`
	PaymentID     string  `json:"payment_id" validate:"required,uuid"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Method        string  `json:"method"`
	CashAccountID int64   `json:"cash_account_id" validate:"required"`
	Date          string  `json:"date" validate:"required"`
	ActorID       int64   `json:"actor_id"`
}

type expenseRequest struct {
	ExpenseAccountID int64   `json:"expense_account_id" validate:"required"`
	VendorID         int64   `json:"vendor_id"`
	CashAccountID    int64   `json:"cash_account_id"`
	ExpenseID        string  `json:"expense_id" validate:"required,uuid"`
	ExpenseNo        string  `json:"expense_no" validate:"required"`
	Amount           float64 `json:"amount" validate:"required,gt=0"`
	Narration        string  `json:"narration"`
	Date             string  `json:"date" validate:"required"`
	ActorID          int64   `json:"actor_id"`
}

func (h *Handler) PostPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !h.decode(w, r, &req) {
		return
	}
	purchaseID, date, ok := h.parseRef(w, req.PurchaseID, req.Date)
	if !ok {
		return
	}
	entry, err := h.service.PostPurchase(r.Context(), PurchaseInput{
		VendorID:   req.VendorID,
		PurchaseID: purchaseID,
		PurchaseNo: req.PurchaseNo,
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

func (h *Handler) PostPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	paymentID, date, ok := h.parseRef(w, req.PaymentID, req.Date)
	if !ok {
		return
	}
	entry, err := h.service.PostPayment(r.Context(), PaymentInput{
		VendorID:      req.VendorID,
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

func (h *Handler) PostExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !h.decode(w, r, &req) {
		return
	}
	expenseID, date, ok := h.parseRef(w, req.ExpenseID, req.Date)
	if !ok {
		return
	}
	entry, err := h.service.PostExpense(r.Context(), ExpenseInput{
		ExpenseAccountID: req.ExpenseAccountID,
		VendorID:         req.VendorID,
		CashAccountID:    req.CashAccountID,
		ExpenseID:        expenseID,
		ExpenseNo:        req.ExpenseNo,
		Amount:           req.Amount,
		Narration:        req.Narration,
		Date:             date,
		ActorID:          req.ActorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPostedResponse(entry))
}

func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	vendorID, err := strconv.ParseInt(chi.URLParam(r, "vendorID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid vendor id")
		return
	}
	from, to, ok := parseRange(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Statement(r.Context(), vendorID, from, to)
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
		errors.Is(err, ErrSettlementChoice),
		errors.Is(err, ErrNotExpenseAccount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Posting Rejected", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "concurrent posting conflict, retry")
	default:
		h.logger.Error("payable request failed", "error", err)
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
