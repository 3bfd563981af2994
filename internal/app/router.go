package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-dms/meridian/internal/accounting/accounts"
	"github.com/meridian-dms/meridian/internal/accounting/journals"
	"github.com/meridian-dms/meridian/internal/accounting/ledger"
	"github.com/meridian-dms/meridian/internal/accounting/reports"
	"github.com/meridian-dms/meridian/internal/ap"
	"github.com/meridian-dms/meridian/internal/ar"
	"github.com/meridian-dms/meridian/internal/inventory"
	"github.com/meridian-dms/meridian/internal/observability"
	"github.com/meridian-dms/meridian/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AccountsHandler  *accounts.Handler
	JournalsHandler  *journals.Handler
	LedgerHandler    *ledger.Handler
	InventoryHandler *inventory.Handler
	ARHandler        *ar.Handler
	APHandler        *ap.Handler
	ReportsHandler   *reports.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		if params.AccountsHandler != nil {
			r.Route("/accounts", params.AccountsHandler.Routes)
		}
		if params.JournalsHandler != nil {
			r.Route("/journals", params.JournalsHandler.Routes)
		}
		if params.LedgerHandler != nil {
			r.Route("/ledger", params.LedgerHandler.Routes)
		}
		if params.InventoryHandler != nil {
			r.Route("/inventory", params.InventoryHandler.Routes)
		}
		if params.ARHandler != nil {
			r.Route("/ar", params.ARHandler.Routes)
		}
		if params.APHandler != nil {
			r.Route("/ap", params.APHandler.Routes)
		}
		if params.ReportsHandler != nil {
			r.Route("/reports", params.ReportsHandler.Routes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
