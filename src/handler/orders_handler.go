package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradejournal/src/database"
	"tradejournal/src/model"
	"tradejournal/src/repository"
)

type orderSearcher interface {
	Search(ctx context.Context, options repository.OrderSearchOptions) ([]model.Order, error)
}

type orderNotesUpdater interface {
	UpdateNotes(ctx context.Context, id uint, notes *string) (*model.Order, error)
}

type orderSyncer interface {
	ReconcileOrders(ctx context.Context) error
}

// parseOrderStatuses accepts "open", or a comma separated list of venue statuses.
func parseOrderStatuses(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.EqualFold(raw, "open") {
		return model.OpenOrderStatuses
	}

	var statuses []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, s)
		}
	}
	return statuses
}

// ListOrdersHandler lists journal orders. With ?sync=true the order
// reconciler runs first. Supports status, symbol, page and pageSize.
func ListOrdersHandler(repo orderSearcher, syncer orderSyncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset, err := parsePagination(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if wantsSync(r) && syncer != nil {
			if err := syncer.ReconcileOrders(r.Context()); err != nil {
				logger.WithError(err).Warn("order sync before listing failed")
				w.Header().Set("X-Sync-Error", syncErrorHeader(err))
			}
		}

		orders, err := repo.Search(r.Context(), repository.OrderSearchOptions{
			Statuses: parseOrderStatuses(r.URL.Query().Get("status")),
			Symbol:   strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol"))),
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			logger.WithError(err).Error("failed to search orders")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, orders)
	}
}

// UpdateOrderNotesHandler edits the notes of one order. Notes set here are
// what new positions inherit.
func UpdateOrderNotesHandler(repo orderNotesUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(chi.URLParam(r, "id"))
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		notes, err := decodeNotes(r)
		if err != nil {
			logger.WithError(err).Warn("invalid notes payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		order, err := repo.UpdateNotes(r.Context(), id, notes)
		if err != nil {
			logger.WithError(err).Error("failed to update order notes")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if order == nil {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

// DefaultListOrdersHandler reads from the read-only database.
func DefaultListOrdersHandler(syncer orderSyncer) http.HandlerFunc {
	return ListOrdersHandler(repository.NewOrderRepository().WithDB(database.ReadOnlyDB), syncer)
}

// DefaultUpdateOrderNotesHandler writes through the main database.
func DefaultUpdateOrderNotesHandler() http.HandlerFunc {
	return UpdateOrderNotesHandler(repository.NewOrderRepository())
}

// DefaultSyncRunsHandler reads from the read-only database.
func DefaultSyncRunsHandler() http.HandlerFunc {
	return SyncRunsHandler(repository.NewSyncRunRepository().WithDB(database.ReadOnlyDB))
}
