package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/candidate-matcher/internal/apperrors"
)

// maxBodyBytes bounds request bodies; job descriptions and CVs fit easily.
const maxBodyBytes = 1 << 20

// writeError maps err to a status code and a safe message. Internal details
// are logged, never returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	msg := apperrors.UserMessage(err, "Internal server error")
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("code", string(apperrors.CodeOf(err))),
			zap.Error(err))
	}
	s.jsonResponse(w, status, map[string]string{
		"error": msg,
		"code":  string(apperrors.CodeOf(err)),
	})
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "Invalid request body: " + err.Error()
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		s.errorResponse(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

// pathID parses the {id} path value.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}
