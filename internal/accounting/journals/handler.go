package journals

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	acctshared "github.com/meridian-dms/meridian/internal/accounting/shared"
	"github.com/meridian-dms/meridian/internal/platform/httpx"
	"github.com/meridian-dms/meridian/internal/shared"
)

const defaultListLimit = 50

// Handler serves journal entries over JSON. Posting through this surface is
// for manual adjustment entries; document postings go through the composers.
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

// Routes mounts the journal endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Post)
	r.Get("/{id}", h.Show)
	r.Post("/{id}/reverse", h.Reverse)
	r.Get("/source/{type}/{sourceID}", h.ShowBySource)
}

type postLineRequest struct {
	AccountID int64   `json:"account_id" validate:"required"`
	Debit     float64 `json:"debit" validate:"gte=0"`
	Credit    float64 `json:"credit" validate:"gte=0"`
}

type postEntryRequest struct {
	Date      string            `json:"date" validate:"required"`
	Narration string            `json:"narration"`
	Reference string            `json:"reference" validate:"required"`
	Lines     []postLineRequest `json:"lines" validate:"required,min=2,dive"`
	PostedBy  int64             `json:"posted_by"`
}

type reverseEntryRequest struct {
	Memo    string `json:"memo"`
	Date    string `json:"date"`
	ActorID int64  `json:"actor_id"`
}

type lineResponse struct {
	LineNo      int     `json:"line_no"`
	AccountID   int64   `json:"account_id"`
	AccountCode string  `json:"account_code"`
	AccountName string  `json:"account_name"`
	Debit       float64 `json:"debit"`
	Credit      float64 `json:"credit"`
	PartyKind   string  `json:"party_kind,omitempty"`
	PartyID     int64   `json:"party_id,omitempty"`
}

type entryResponse struct {
	ID           int64          `json:"id"`
	Number       string         `json:"number"`
	Type         string         `json:"type"`
	Date         time.Time      `json:"date"`
	Narration    string         `json:"narration,omitempty"`
	TotalDebit   float64        `json:"total_debit"`
	TotalCredit  float64        `json:"total_credit"`
	SourceType   string         `json:"source_type"`
	SourceID     uuid.UUID      `json:"source_id"`
	SourceNumber string         `json:"source_number,omitempty"`
	ReversalOf   *int64         `json:"reversal_of,omitempty"`
	ReversedBy   *int64         `json:"reversed_by,omitempty"`
	PostedBy     int64          `json:"posted_by"`
	PostedAt     time.Time      `json:"posted_at"`
	Lines        []lineResponse `json:"lines,omitempty"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultListLimit
	}
	entries, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list journal entries failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) ShowBySource(w http.ResponseWriter, r *http.Request) {
	sourceID, err := uuid.Parse(chi.URLParam(r, "sourceID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid source id")
		return
	}
	entry, err := h.service.GetBySource(r.Context(), chi.URLParam(r, "type"), sourceID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

// Post creates a manual adjustment entry. Lines must balance within the
// accounting tolerance.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	var req postEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}

	lines := make([]LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, LineInput{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit})
	}
	input := PostingInput{
		Type:      TypeAdjustment,
		Date:      date,
		Narration: req.Narration,
		Lines:     lines,
		Source: SourceRef{
			Type:   "MANUAL",
			ID:     uuid.New(),
			Number: req.Reference,
		},
		PostedBy: req.PostedBy,
	}
	if err := input.Validate(); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Posting Rejected", err.Error())
		return
	}
	entry, err := h.service.PostEntry(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	var req reverseEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	date := time.Now().UTC()
	if req.Date != "" {
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
	}
	entry, err := h.service.ReverseEntry(r.Context(), ReverseInput{
		EntryID: id,
		ActorID: req.ActorID,
		Memo:    req.Memo,
		Date:    date,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, acctshared.ErrJournalNotFound), errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, acctshared.ErrUnbalanced),
		errors.Is(err, acctshared.ErrTooFewLines),
		errors.Is(err, acctshared.ErrAccountNotFound),
		errors.Is(err, acctshared.ErrAccountInactive):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Posting Rejected", err.Error())
	case errors.Is(err, acctshared.ErrAlreadyReversed):
		httpx.Problem(w, http.StatusConflict, "Already Reversed", err.Error())
	case errors.Is(err, shared.ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "concurrent posting conflict, retry")
	default:
		h.logger.Error("journal request failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func toEntryResponse(e JournalEntry) entryResponse {
	resp := entryResponse{
		ID:           e.ID,
		Number:       e.Number,
		Type:         string(e.Type),
		Date:         e.Date,
		Narration:    e.Narration,
		TotalDebit:   e.TotalDebit,
		TotalCredit:  e.TotalCredit,
		SourceType:   e.SourceType,
		SourceID:     e.SourceID,
		SourceNumber: e.SourceNumber,
		ReversalOf:   e.ReversalOf,
		ReversedBy:   e.ReversedBy,
		PostedBy:     e.PostedBy,
		PostedAt:     e.PostedAt,
	}
	for _, l := range e.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			LineNo:      l.LineNo,
			AccountID:   l.AccountID,
			AccountCode: l.AccountCode,
			AccountName: l.AccountName,
			Debit:       l.Debit,
			Credit:      l.Credit,
			PartyKind:   string(l.Party.Kind),
			PartyID:     l.Party.ID,
		})
	}
	return resp
}
