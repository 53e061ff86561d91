package handler

import (
	"net/http"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	logger "github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

type errBadRequest string

func (e errBadRequest) Error() string { return string(e) }

// parsePagination reads page (1-based) and pageSize from the query string.
func parsePagination(r *http.Request) (limit, offset int, err error) {
	page := 1
	if pageParam := r.URL.Query().Get("page"); pageParam != "" {
		parsedPage, convErr := strconv.Atoi(pageParam)
		if convErr != nil || parsedPage <= 0 {
			return 0, 0, errBadRequest("invalid page")
		}
		page = parsedPage
	}

	pageSize := defaultPageSize
	if sizeParam := r.URL.Query().Get("pageSize"); sizeParam != "" {
		parsedSize, convErr := strconv.Atoi(sizeParam)
		if convErr != nil || parsedSize <= 0 {
			return 0, 0, errBadRequest("invalid pageSize")
		}
		pageSize = parsedSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return pageSize, (page - 1) * pageSize, nil
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func wantsSync(r *http.Request) bool {
	v := strings.ToLower(r.URL.Query().Get("sync"))
	return v == "true" || v == "1"
}

type notesPayload struct {
	Notes *string `json:"notes"`
}

// decodeNotes reads {"notes": "..."}; blank text clears the notes.
func decodeNotes(r *http.Request) (*string, error) {
	var payload notesPayload
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Notes == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*payload.Notes)
	if trimmed == "" {
		return nil, nil
	}
	return &trimmed, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}
