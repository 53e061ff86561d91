package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	logger "github.com/sirupsen/logrus"

	"tradejournal/src/executors"
	"tradejournal/src/model"
)

type allSyncer interface {
	ReconcileAll(ctx context.Context) error
}

type syncRunFinder interface {
	FindLatest(ctx context.Context, kind string, limit int) ([]model.SyncRun, error)
}

type syncResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SyncHandler runs both reconcilers and reports the combined outcome.
func SyncHandler(syncer allSyncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := syncer.ReconcileAll(r.Context())
		if err == nil {
			writeJSON(w, http.StatusOK, syncResponse{Success: true})
			return
		}

		status := http.StatusInternalServerError
		if errors.Is(err, executors.ErrSyncInProgress) {
			status = http.StatusConflict
		}

		logger.WithError(err).Warn("sync request failed")
		writeJSON(w, status, syncResponse{Success: false, Error: err.Error()})
	}
}

// SyncRunsHandler lists recent reconciler invocations, optionally by kind.
func SyncRunsHandler(repo syncRunFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("kind")
		if kind != "" && kind != model.SyncKindPositions && kind != model.SyncKindOrders {
			http.Error(w, "invalid kind", http.StatusBadRequest)
			return
		}

		limit := 20
		if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
			parsed, err := strconv.Atoi(limitParam)
			if err != nil || parsed <= 0 || parsed > 200 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		runs, err := repo.FindLatest(r.Context(), kind, limit)
		if err != nil {
			logger.WithError(err).Error("failed to list sync runs")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, runs)
	}
}
