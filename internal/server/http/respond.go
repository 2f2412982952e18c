package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/formsync/internal/convert"
	"github.com/and161185/formsync/internal/errs"
)

const maxBody = 4 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// statusFor maps a domain error to an HTTP status and a client-safe body.
func statusFor(err error) (int, ErrorResponse) {
	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ErrorResponse{Error: "validation failed", Errors: ve.Messages}
	case errors.Is(err, errs.ErrInvalidArgument):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"}
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: "forbidden"}
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "not found"}
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict, ErrorResponse{Error: "already exists"}
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, ErrorResponse{Error: "too many failed attempts, try again later"}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
}

// fail writes the mapped error. Server errors are logged with their detail, which never reaches the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, body := statusFor(err)
	if code == http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, code, body)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed json body", errs.ErrInvalidArgument)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := convert.ParseID(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", errs.ErrInvalidArgument, name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", errs.ErrInvalidArgument, name)
	}
	return n, nil
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}
