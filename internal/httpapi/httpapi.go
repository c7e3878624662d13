// Package httpapi serves the plain HTTP routes next to the Connect services:
// health, Prometheus metrics and CSV exports.
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/mmynk/splitledger/internal/export"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/storage"
)

type API struct {
	router      *mux.Router
	ledger      *ledger.Service
	metrics     *metrics.Metrics
	corsOrigins []string
}

// New builds the router. m may be nil, in which case /metrics is not served.
func New(l *ledger.Service, m *metrics.Metrics, corsOrigins []string) *API {
	a := &API{
		router:      mux.NewRouter(),
		ledger:      l,
		metrics:     m,
		corsOrigins: corsOrigins,
	}
	a.setupRoutes()
	return a
}

func (a *API) setupRoutes() {
	a.router.Use(middleware.RequestID, middleware.Logging)

	a.router.HandleFunc("/healthz", a.handleHealth).Methods("GET")
	if a.metrics != nil {
		a.router.Handle("/metrics", a.metrics.Handler()).Methods("GET")
	}
	a.router.HandleFunc("/groups/{group_id}/export.csv", a.handleExport).Methods("GET")
}

// Mount serves h for every path under prefix. Connect service handlers are
// mounted this way and share the request ID of the HTTP middleware.
func (a *API) Mount(prefix string, h http.Handler) {
	a.router.PathPrefix(prefix).Handler(h)
}

// Handler returns the router wrapped in CORS handling for browser clients.
func (a *API) Handler() http.Handler {
	corsOptions := cors.Options{
		AllowedOrigins: a.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type",
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
			middleware.RequestIDHeader,
		},
		ExposedHeaders: []string{
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
			middleware.RequestIDHeader,
		},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.router)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := a.ledger.Store().Stats(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"groups":   stats.Groups,
		"expenses": stats.Expenses,
	})
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	groupID, err := strconv.ParseInt(vars["group_id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid group_id", http.StatusBadRequest)
		return
	}
	view, err := export.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := a.writeExport(r, &buf, groupID, view); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "group not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "Export failed", "group_id", groupID, "view", view, "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=group-%d-%s.csv", groupID, view))
	w.Write(buf.Bytes())
}

func (a *API) writeExport(r *http.Request, buf *bytes.Buffer, groupID int64, view export.View) error {
	ctx := r.Context()
	if view == export.ViewExpenses {
		detail, err := a.ledger.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		return export.WriteExpenses(buf, detail.Group, detail.Expenses)
	}

	plan, err := a.ledger.SettleUp(ctx, groupID)
	if err != nil {
		return err
	}
	if view == export.ViewBalances {
		return export.WriteBalances(buf, plan.Balances)
	}
	return export.WriteSettlements(buf, plan.Settlements)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
