package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/candidate-matcher/internal/types"
)

// CreateConversationRequest is the body of POST /conversations.
type CreateConversationRequest struct {
	Title string `json:"title,omitempty"`
}

// RenameConversationRequest is the body of PATCH /conversations/{id}.
type RenameConversationRequest struct {
	Title string `json:"title"`
}

// FeedbackModeRequest is the body of PUT /conversations/{id}/feedback-mode.
type FeedbackModeRequest struct {
	Enabled bool `json:"enabled"`
}

// SelectionReviewRequest is the body of POST /conversations/{id}/selection-review.
type SelectionReviewRequest struct {
	CandidateIDs []uuid.UUID `json:"candidate_ids"`
	Notes        string      `json:"notes,omitempty"`
}

// ConversationListResponse wraps the conversation list.
type ConversationListResponse struct {
	Conversations []types.Conversation `json:"conversations"`
	Count         int                  `json:"count"`
}

// MessageListResponse wraps a conversation's messages.
type MessageListResponse struct {
	Messages []types.Message `json:"messages"`
	Count    int             `json:"count"`
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.deps.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if convs == nil {
		convs = []types.Conversation{}
	}
	s.jsonResponse(w, http.StatusOK, ConversationListResponse{Conversations: convs, Count: len(convs)})
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if r.ContentLength != 0 && !s.decodeJSON(w, r, &req) {
		return
	}
	conv, err := s.deps.Sessions.Create(r.Context(), req.Title)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, conv)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	conv, err := s.deps.Sessions.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, conv)
}

func (s *Server) handleRenameConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req RenameConversationRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	conv, err := s.deps.Sessions.Rename(r.Context(), id, req.Title)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Sessions.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if _, err := s.deps.Sessions.Get(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	msgs, err := s.deps.Sessions.Messages(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []types.Message{}
	}
	s.jsonResponse(w, http.StatusOK, MessageListResponse{Messages: msgs, Count: len(msgs)})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	state, err := s.deps.Sessions.State(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

func (s *Server) handleSetFeedbackMode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req FeedbackModeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	state, err := s.deps.Sessions.SetFeedbackMode(r.Context(), id, req.Enabled)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

func (s *Server) handleSelectionReview(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req SelectionReviewRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	msg, err := s.deps.Sessions.ReviewSelection(r.Context(), id, req.CandidateIDs, req.Notes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, msg)
}
