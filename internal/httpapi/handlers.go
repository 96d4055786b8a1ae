package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sketchloom/sessionengine/internal/store"
	"github.com/sketchloom/sessionengine/internal/wireframe"
)

type createSessionRequest struct {
	Prompt string `json:"prompt"`
	UserID string `json:"user_id,omitempty"`
}

type createSessionResponse struct {
	SessionID string              `json:"session_id"`
	Wireframe *wireframe.Document `json:"wireframe"`
	Version   int                 `json:"version"`
}

// createSession handles POST /design-sessions
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Prompt == "" {
		writeBadRequest(w, "prompt is required")
		return
	}

	result, err := s.sm.CreateSession(r.Context(), req.UserID, req.Prompt)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: result.SessionID,
		Wireframe: result.Wireframe,
		Version:   result.Version,
	})
}

type editRequest struct {
	EditPrompt string `json:"edit_prompt"`
}

type editResponse struct {
	SessionID      string              `json:"session_id"`
	Wireframe      *wireframe.Document `json:"wireframe,omitempty"`
	Version        int                 `json:"version,omitempty"`
	ChangesSummary interface{}         `json:"changes_summary,omitempty"`
	ProcessingMs   int64               `json:"processing_ms,omitempty"`
}

// applyEdit handles POST /design-sessions/{sessionID}/edit
func (s *Server) applyEdit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.EditPrompt == "" {
		writeBadRequest(w, "edit_prompt is required")
		return
	}

	result, err := s.sm.ApplyEdit(r.Context(), sessionID, req.EditPrompt)
	if err != nil {
		writeAppError(w, err)
		return
	}

	if result.NeedsClarification {
		candidates := make([]clarificationCandidate, 0, len(result.Candidates))
		for _, c := range result.Candidates {
			candidates = append(candidates, clarificationCandidate{
				Identifier: c.Identifier, Type: c.Type, ComponentName: c.ComponentName,
			})
		}
		writeJSON(w, http.StatusOK, clarificationResponse{Clarification: candidates})
		return
	}

	writeJSON(w, http.StatusOK, editResponse{
		SessionID:      sessionID,
		Wireframe:      result.Wireframe,
		Version:        result.Version,
		ChangesSummary: result.Diff,
		ProcessingMs:   result.ProcessingMs,
	})
}

type getSessionResponse struct {
	Metadata       *store.Metadata     `json:"metadata"`
	CurrentVersion int                 `json:"current_version"`
	Wireframe      *wireframe.Document `json:"wireframe"`
}

// getSession handles GET /design-sessions/{sessionID}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	view, err := s.sm.GetSession(r.Context(), sessionID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, getSessionResponse{
		Metadata:       view.Metadata,
		CurrentVersion: view.CurrentVersion,
		Wireframe:      view.Wireframe,
	})
}

type historyEntryResponse struct {
	Version      int    `json:"version"`
	EditType     string `json:"edit_type"`
	Prompt       string `json:"prompt"`
	ProcessingMs int64  `json:"processing_ms"`
	Compacted    bool   `json:"compacted"`
}

type historyResponse struct {
	Versions []historyEntryResponse `json:"versions"`
}

// getHistory handles GET /design-sessions/{sessionID}/history
func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	entries, err := s.sm.GetHistory(r.Context(), sessionID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	resp := historyResponse{Versions: make([]historyEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Versions = append(resp.Versions, historyEntryResponse{
			Version: e.Version, EditType: e.EditType, Prompt: e.Prompt,
			ProcessingMs: e.ProcessingMs, Compacted: e.Compacted,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// getVersion handles GET /design-sessions/{sessionID}/versions/{version}
func (s *Server) getVersion(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	versionStr := chi.URLParam(r, "version")

	v, err := strconv.Atoi(versionStr)
	if err != nil {
		writeBadRequest(w, "version must be an integer")
		return
	}

	state, err := s.sm.GetVersion(r.Context(), sessionID, v)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// deleteSession handles DELETE /design-sessions/{sessionID}
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.sm.CloseSession(r.Context(), sessionID); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type forkRequest struct {
	Version int    `json:"version"`
	UserID  string `json:"user_id,omitempty"`
}

type forkResponse struct {
	SessionID string `json:"session_id"`
}

// forkSession handles POST /design-sessions/{sessionID}/fork
func (s *Server) forkSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req forkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Version <= 0 {
		writeBadRequest(w, "version is required")
		return
	}

	forkID, err := s.sm.ForkSession(r.Context(), sessionID, req.Version, req.UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, forkResponse{SessionID: forkID})
}

type shareResponse struct {
	ShareToken string `json:"share_token"`
}

// shareSession handles POST /design-sessions/{sessionID}/share
func (s *Server) shareSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	token, err := s.sm.ShareSession(r.Context(), sessionID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{ShareToken: token})
}

// unshareSession handles DELETE /design-sessions/{sessionID}/share
func (s *Server) unshareSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.sm.UnshareSession(r.Context(), sessionID); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
