package api

import (
	"encoding/json"
	"net/http"

	bferrors "github.com/blockforge/blockforge/pkg/errors"
)

// StatusOf maps a project error onto an HTTP status code.
func StatusOf(err error) int {
	switch bferrors.GetCode(err) {
	case bferrors.ErrCodeNotFound:
		return http.StatusNotFound
	case bferrors.ErrCodeInvalidInput, bferrors.ErrCodeConstraintViolation:
		return http.StatusUnprocessableEntity
	case bferrors.ErrCodeCycle, bferrors.ErrCodeNotEmpty:
		return http.StatusConflict
	case bferrors.ErrCodeLockedConnection:
		return http.StatusLocked
	case bferrors.ErrCodeEmptyHistory:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	code := string(bferrors.GetCode(err))
	if code == "" {
		code = string(bferrors.ErrCodeInternal)
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "code", code)
	}
	writeJSON(w, status, errorBody{
		Code:    code,
		Message: bferrors.UserMessage(err),
		Rule:    bferrors.GetRule(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON request body, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return bferrors.Wrap(bferrors.ErrCodeInvalidInput, err, "decode request body: %v", err)
	}
	return nil
}
