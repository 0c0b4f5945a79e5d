package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/candidate-matcher/internal/apperrors"
	"github.com/jonathan/candidate-matcher/internal/pipeline"
)

// SendMessageRequest is the body of POST /messages. Without a conversation
// id a new conversation is started.
type SendMessageRequest struct {
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
	Message        string     `json:"message"`
}

// FeedbackRequest is the body of POST /conversations/{id}/feedback.
type FeedbackRequest struct {
	Message string `json:"message"`
}

// ReviewJobDescriptionRequest is the body of POST /job-descriptions/review.
type ReviewJobDescriptionRequest struct {
	Description string `json:"description"`
}

// ReviewJobDescriptionResponse carries the advice text.
type ReviewJobDescriptionResponse struct {
	Review string `json:"review"`
}

// FetchJobPostingRequest is the body of POST /job-postings/fetch.
type FetchJobPostingRequest struct {
	URL string `json:"url"`
}

// handleSendMessage runs a message through the session and returns the
// whole outcome at once.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	res, err := s.deps.Sessions.Send(r.Context(), req.ConversationID, req.Message, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleSendMessageStream streams pipeline progress as SSE "progress" events
// followed by one "result" or "error" event.
func (s *Server) handleSendMessageStream(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.errorResponse(w, http.StatusBadRequest, "Message is required")
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	onProgress := func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("progress", event); err != nil {
			s.log.Debug("failed to write SSE event", zap.Error(err))
		}
	}
	res, err := s.deps.Sessions.Send(r.Context(), req.ConversationID, req.Message, onProgress)
	if err != nil {
		if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
			s.log.Error("streaming message failed", zap.Error(err))
		}
		sse.WriteError(apperrors.UserMessage(err, "Internal server error"), string(apperrors.CodeOf(err)))
		return
	}
	if err := sse.WriteEvent("result", res); err != nil {
		s.log.Debug("failed to write SSE result", zap.Error(err))
	}
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req FeedbackRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	res, err := s.deps.Sessions.SendFeedback(r.Context(), id, req.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleReviewJobDescription(w http.ResponseWriter, r *http.Request) {
	var req ReviewJobDescriptionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		s.errorResponse(w, http.StatusBadRequest, "Description is required")
		return
	}
	s.jsonResponse(w, http.StatusOK, ReviewJobDescriptionResponse{
		Review: s.deps.Reviewer.ReviewJobDescription(r.Context(), req.Description),
	})
}

// handleFetchJobPosting downloads a posting so clients can review or edit
// the text before sending it as a message.
func (s *Server) handleFetchJobPosting(w http.ResponseWriter, r *http.Request) {
	var req FetchJobPostingRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.errorResponse(w, http.StatusBadRequest, "URL is required")
		return
	}
	posting, err := s.deps.Postings.JobPosting(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, posting)
}
