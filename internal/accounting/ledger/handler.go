package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-dms/meridian/internal/platform/httpx"
)

// EntryView is the JSON shape of a ledger entry.
type EntryView struct {
	ID             int64     `json:"id"`
	AccountID      int64     `json:"account_id"`
	AccountCode    string    `json:"account_code,omitempty"`
	AccountName    string    `json:"account_name,omitempty"`
	Date           time.Time `json:"date"`
	Description    string    `json:"description,omitempty"`
	Debit          float64   `json:"debit"`
	Credit         float64   `json:"credit"`
	RunningBalance float64   `json:"running_balance"`
	JournalID      int64     `json:"journal_id"`
	JournalNumber  string    `json:"journal_number"`
	PartyKind      string    `json:"party_kind,omitempty"`
	PartyID        int64     `json:"party_id,omitempty"`
}

// NewEntryViews maps ledger entries to their JSON shape.
func NewEntryViews(entries []Entry) []EntryView {
	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryView{
			ID:             e.ID,
			AccountID:      e.AccountID,
			AccountCode:    e.AccountCode,
			AccountName:    e.AccountName,
			Date:           e.Date,
			Description:    e.Description,
			Debit:          e.Debit,
			Credit:         e.Credit,
			RunningBalance: e.RunningBalance,
			JournalID:      e.JournalID,
			JournalNumber:  e.JournalNumber,
			PartyKind:      string(e.Party.Kind),
			PartyID:        e.Party.ID,
		})
	}
	return out
}

type cashBookView struct {
	ID             int64     `json:"id"`
	AccountID      int64     `json:"account_id"`
	Date           time.Time `json:"date"`
	Description    string    `json:"description,omitempty"`
	CashIn         float64   `json:"cash_in"`
	CashOut        float64   `json:"cash_out"`
	RunningBalance float64   `json:"running_balance"`
	SourceType     string    `json:"source_type,omitempty"`
	SourceNumber   string    `json:"source_number,omitempty"`
	JournalID      int64     `json:"journal_id"`
}

type dailySummaryView struct {
	AccountID int64     `json:"account_id"`
	Day       string    `json:"day"`
	Opening   float64   `json:"opening"`
	TotalIn   float64   `json:"total_in"`
	TotalOut  float64   `json:"total_out"`
	Closing   float64   `json:"closing"`
	TxCount   int64     `json:"tx_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Handler serves ledger statements and the cash book over JSON.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
}

func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// Routes mounts the ledger endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/accounts/{accountID}/statement", h.AccountStatement)
	r.Get("/cash-book/{accountID}", h.CashBook)
	r.Get("/cash-book/{accountID}/daily", h.DailySummaries)
}

func (h *Handler) AccountStatement(w http.ResponseWriter, r *http.Request) {
	accountID, from, to, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	entries, err := h.repo.AccountStatement(r.Context(), accountID, from, to)
	if err != nil {
		h.logger.Error("account statement failed", "error", err, "account_id", accountID)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, NewEntryViews(entries))
}

func (h *Handler) CashBook(w http.ResponseWriter, r *http.Request) {
	accountID, from, to, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	entries, err := h.repo.CashBook(r.Context(), accountID, from, to)
	if err != nil {
		h.logger.Error("cash book failed", "error", err, "account_id", accountID)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]cashBookView, 0, len(entries))
	for _, e := range entries {
		out = append(out, cashBookView{
			ID:             e.ID,
			AccountID:      e.AccountID,
			Date:           e.Date,
			Description:    e.Description,
			CashIn:         e.CashIn,
			CashOut:        e.CashOut,
			RunningBalance: e.RunningBalance,
			SourceType:     e.SourceType,
			SourceNumber:   e.SourceNumber,
			JournalID:      e.JournalID,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) DailySummaries(w http.ResponseWriter, r *http.Request) {
	accountID, from, to, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	summaries, err := h.repo.DailySummaries(r.Context(), accountID, from, to)
	if err != nil {
		h.logger.Error("daily summaries failed", "error", err, "account_id", accountID)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]dailySummaryView, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, dailySummaryView{
			AccountID: s.AccountID,
			Day:       s.Day.Format("2006-01-02"),
			Opening:   s.Opening,
			TotalIn:   s.TotalIn,
			TotalOut:  s.TotalOut,
			Closing:   s.Closing,
			TxCount:   s.TxCount,
			UpdatedAt: s.UpdatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

// parseQuery reads the account id and from/to dates, defaulting the range to
// the current month.
func (h *Handler) parseQuery(w http.ResponseWriter, r *http.Request) (int64, time.Time, time.Time, bool) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return 0, time.Time{}, time.Time{}, false
	}
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := now
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.Parse("2006-01-02", raw); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
			return 0, time.Time{}, time.Time{}, false
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.Parse("2006-01-02", raw); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
			return 0, time.Time{}, time.Time{}, false
		}
		to = to.AddDate(0, 0, 1)
	}
	return accountID, from, to, true
}
