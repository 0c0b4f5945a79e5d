package server

import (
	"net/http"
	"strconv"

	"github.com/jonathan/candidate-matcher/internal/candidates"
	"github.com/jonathan/candidate-matcher/internal/matching"
	"github.com/jonathan/candidate-matcher/internal/types"
)

// CandidateListResponse wraps the candidate list.
type CandidateListResponse struct {
	Candidates []types.Candidate `json:"candidates"`
	Count      int               `json:"count"`
}

// SimilarCandidatesResponse wraps a similarity search.
type SimilarCandidatesResponse struct {
	Candidates []types.ScoredCandidate `json:"candidates"`
	Count      int                     `json:"count"`
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	cs, err := s.deps.Candidates.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cs == nil {
		cs = []types.Candidate{}
	}
	s.jsonResponse(w, http.StatusOK, CandidateListResponse{Candidates: cs, Count: len(cs)})
}

func (s *Server) handleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	var req candidates.NewCandidate
	if !s.decodeJSON(w, r, &req) {
		return
	}
	c, err := s.deps.Candidates.Add(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, c)
}

func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	c, err := s.deps.Candidates.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var patch types.CandidatePatch
	if !s.decodeJSON(w, r, &patch) {
		return
	}
	c, err := s.deps.Candidates.Update(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Candidates.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSimilarCandidates(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	limit := matching.DefaultTopK
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	hits, err := s.deps.Candidates.Similar(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if hits == nil {
		hits = []types.ScoredCandidate{}
	}
	s.jsonResponse(w, http.StatusOK, SimilarCandidatesResponse{Candidates: hits, Count: len(hits)})
}
