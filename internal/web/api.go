package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sloppy/nettools/internal/geo"
	"github.com/sloppy/nettools/internal/runs"
	"github.com/sloppy/nettools/internal/speedtest"
	"github.com/sloppy/nettools/internal/validate"
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.Logger.Error("encode response", "err", err)
		}
	}
}

// errorStatus maps domain errors onto HTTP statuses.
func errorStatus(err error) int {
	var verr validate.Errors
	var lerr *geo.LookupError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &lerr):
		return http.StatusBadGateway
	case errors.Is(err, runs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, runs.ErrActive), errors.Is(err, speedtest.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	body := errorBody{Error: err.Error()}
	var verr validate.Errors
	if errors.As(err, &verr) {
		body.Fields = verr.Fields()
	}
	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed", "err", err)
		body.Error = "internal error"
	}
	s.jsonResponse(w, body, status)
}

// decodeJSON fills dst from a JSON body. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return validate.Errors{{Field: "body", Message: "invalid JSON body"}}
	}
	return nil
}
