package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/src/executors"
	"tradejournal/src/model"
	"tradejournal/src/repository"
)

type mockPositionSearcher struct {
	positions   []model.Position
	err         error
	options     repository.PositionSearchOptions
	calledCount int
}

func (m *mockPositionSearcher) Search(ctx context.Context, options repository.PositionSearchOptions) ([]model.Position, error) {
	m.calledCount++
	m.options = options
	return m.positions, m.err
}

type mockSyncer struct {
	err            error
	positionsCalls int
	ordersCalls    int
	allCalls       int
}

func (m *mockSyncer) ReconcilePositions(ctx context.Context) error {
	m.positionsCalls++
	return m.err
}

func (m *mockSyncer) ReconcileOrders(ctx context.Context) error {
	m.ordersCalls++
	return m.err
}

func (m *mockSyncer) ReconcileAll(ctx context.Context) error {
	m.allCalls++
	return m.err
}

type mockPositionNotesUpdater struct {
	position *model.Position
	err      error
	id       uint
	notes    *string
}

func (m *mockPositionNotesUpdater) UpdateNotes(ctx context.Context, id uint, notes *string) (*model.Position, error) {
	m.id = id
	m.notes = notes
	return m.position, m.err
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestListPositionsHandler_InvalidStatus(t *testing.T) {
	repo := &mockPositionSearcher{}
	handler := ListPositionsHandler(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/positions?status=pending", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	assert.Zero(t, repo.calledCount)
}

func TestListPositionsHandler_InvalidPage(t *testing.T) {
	handler := ListPositionsHandler(&mockPositionSearcher{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/positions?page=0", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestListPositionsHandler_RepoError(t *testing.T) {
	handler := ListPositionsHandler(&mockPositionSearcher{err: assert.AnError}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/positions", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
}

func TestListPositionsHandler_Success(t *testing.T) {
	repo := &mockPositionSearcher{positions: []model.Position{
		{ID: 1, Symbol: "ADAUSDT", Side: model.PositionSideLong, Status: model.PositionStatusOpen, Quantity: 100},
	}}
	syncer := &mockSyncer{}
	handler := ListPositionsHandler(repo, syncer)

	req := httptest.NewRequest(http.MethodGet, "/api/positions?status=open&symbol=adausdt&page=3&pageSize=500", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, syncer.positionsCalls)
	assert.Equal(t, model.PositionStatusOpen, repo.options.Status)
	assert.Equal(t, "ADAUSDT", repo.options.Symbol)
	assert.Equal(t, maxPageSize, repo.options.Limit)
	assert.Equal(t, 2*maxPageSize, repo.options.Offset)

	var got []model.Position
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "ADAUSDT", got[0].Symbol)
}

func TestListPositionsHandler_SyncFirst(t *testing.T) {
	repo := &mockPositionSearcher{}
	syncer := &mockSyncer{}
	handler := ListPositionsHandler(repo, syncer)

	req := httptest.NewRequest(http.MethodGet, "/api/positions?sync=true", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, syncer.positionsCalls)
	assert.Zero(t, syncer.ordersCalls)
	assert.Empty(t, rr.Header().Get("X-Sync-Error"))
}

func TestListPositionsHandler_SyncFailureStillServesLedger(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		header string
	}{
		{"in progress", fmt.Errorf("positions: %w", executors.ErrSyncInProgress), "in-progress"},
		{"failed", assert.AnError, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockPositionSearcher{positions: []model.Position{{ID: 9}}}
			handler := ListPositionsHandler(repo, &mockSyncer{err: tt.err})

			req := httptest.NewRequest(http.MethodGet, "/api/positions?sync=1", nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.header, rr.Header().Get("X-Sync-Error"))
			assert.Equal(t, 1, repo.calledCount)
		})
	}
}

func TestUpdatePositionNotesHandler(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		handler := UpdatePositionNotesHandler(&mockPositionNotesUpdater{})
		req := withURLParam(httptest.NewRequest(http.MethodPut, "/api/positions/x", strings.NewReader(`{"notes":"a"}`)), "id", "x")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		handler := UpdatePositionNotesHandler(&mockPositionNotesUpdater{})
		req := withURLParam(httptest.NewRequest(http.MethodPut, "/api/positions/1", strings.NewReader(`{"qty":5}`)), "id", "1")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("not found", func(t *testing.T) {
		handler := UpdatePositionNotesHandler(&mockPositionNotesUpdater{})
		req := withURLParam(httptest.NewRequest(http.MethodPut, "/api/positions/7", strings.NewReader(`{"notes":"a"}`)), "id", "7")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("repo error", func(t *testing.T) {
		handler := UpdatePositionNotesHandler(&mockPositionNotesUpdater{err: assert.AnError})
		req := withURLParam(httptest.NewRequest(http.MethodPut, "/api/positions/7", strings.NewReader(`{"notes":"a"}`)), "id", "7")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("trims and saves", func(t *testing.T) {
		notes := "breakout retest"
		repo := &mockPositionNotesUpdater{position: &model.Position{ID: 7, Notes: &notes}}
		handler := UpdatePositionNotesHandler(repo)
		req := withURLParam(httptest.NewRequest(http.MethodPut, "/api/positions/7", strings.NewReader(`{"notes":"  breakout retest "}`)), "id", "7")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.EqualValues(t, 7, repo.id)
		require.NotNil(t, repo.notes)
		assert.Equal(t, "breakout retest", *repo.notes)
	})

	t.Run("blank clears", func(t *testing.T) {
		repo := &mockPositionNotesUpdater{position: &model.Position{ID: 7}}
		handler := UpdatePositionNotesHandler(repo)
		req := withURLParam(httptest.NewRequest(http.MethodPut, "/api/positions/7", strings.NewReader(`{"notes":"   "}`)), "id", "7")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Nil(t, repo.notes)
	})
}
