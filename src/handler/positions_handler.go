package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradejournal/src/database"
	"tradejournal/src/executors"
	"tradejournal/src/model"
	"tradejournal/src/repository"
)

type positionSearcher interface {
	Search(ctx context.Context, options repository.PositionSearchOptions) ([]model.Position, error)
}

type positionNotesUpdater interface {
	UpdateNotes(ctx context.Context, id uint, notes *string) (*model.Position, error)
}

type positionSyncer interface {
	ReconcilePositions(ctx context.Context) error
}

// ListPositionsHandler lists journal positions. With ?sync=true the position
// reconciler runs first; a failed sync still serves the last-known ledger and
// reports the failure in the X-Sync-Error header.
// Supports status (OPEN|CLOSED), symbol, page and pageSize.
func ListPositionsHandler(repo positionSearcher, syncer positionSyncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := strings.ToUpper(r.URL.Query().Get("status"))
		if status != "" && status != model.PositionStatusOpen && status != model.PositionStatusClosed {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}

		limit, offset, err := parsePagination(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if wantsSync(r) && syncer != nil {
			if err := syncer.ReconcilePositions(r.Context()); err != nil {
				logger.WithError(err).Warn("position sync before listing failed")
				w.Header().Set("X-Sync-Error", syncErrorHeader(err))
			}
		}

		positions, err := repo.Search(r.Context(), repository.PositionSearchOptions{
			Status: status,
			Symbol: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol"))),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			logger.WithError(err).Error("failed to search positions")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, positions)
	}
}

// UpdatePositionNotesHandler edits the notes of one position, OPEN or CLOSED.
// No other field can be changed through it.
func UpdatePositionNotesHandler(repo positionNotesUpdater) http.HandlerFunc {
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

		position, err := repo.UpdateNotes(r.Context(), id, notes)
		if err != nil {
			logger.WithError(err).Error("failed to update position notes")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if position == nil {
			http.Error(w, "position not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, position)
	}
}

func syncErrorHeader(err error) string {
	if errors.Is(err, executors.ErrSyncInProgress) {
		return "in-progress"
	}
	return "failed"
}

// DefaultListPositionsHandler reads from the read-only database.
func DefaultListPositionsHandler(syncer positionSyncer) http.HandlerFunc {
	return ListPositionsHandler(repository.NewPositionRepository().WithDB(database.ReadOnlyDB), syncer)
}

// DefaultUpdatePositionNotesHandler writes through the main database.
func DefaultUpdatePositionNotesHandler() http.HandlerFunc {
	return UpdatePositionNotesHandler(repository.NewPositionRepository())
}
