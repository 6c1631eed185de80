package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/postoffice/pkg/records"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type listRecordsResponse struct {
	Records []records.Record `json:"records"`
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) error {
	id, err := uuid.Parse(chi.URLParam(r, "attemptID"))
	if err != nil {
		return badRequest("invalid_attempt_id", "attempt id must be a UUID", err)
	}

	rec, err := s.records.ByAttempt(r.Context(), id)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return newHTTPError(http.StatusNotFound, "record_not_found", "no record for attempt", err)
		}
		return err
	}
	return writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	f := records.Filter{ToAddress: q.Get("to"), Limit: defaultListLimit}

	if v := q.Get("success"); v != "" {
		ok, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest("invalid_query", "success must be a boolean", err)
		}
		f.Success = &ok
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return badRequest("invalid_query", "limit must be a positive integer", err)
		}
		f.Limit = min(n, maxListLimit)
	}

	list, err := s.records.List(r.Context(), f)
	if err != nil {
		return err
	}
	if list == nil {
		list = []records.Record{}
	}
	return writeJSON(w, http.StatusOK, listRecordsResponse{Records: list})
}
