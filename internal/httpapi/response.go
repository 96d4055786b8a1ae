package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/sketchloom/sessionengine/internal/apperr"
)

// errorResponse is the JSON body written for every non-2xx response.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorDetail{Code: "INVALID_REQUEST", Message: message}})
}

// writeAppError maps err to its apperr.Kind's HTTP status and code, or to a
// generic 500 INTERNAL_ERROR when err does not carry a Kind.
func writeAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == "" {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorDetail{Code: "INTERNAL_ERROR", Message: err.Error()}})
		return
	}
	writeJSON(w, apperr.HTTPStatus(kind), errorResponse{Error: errorDetail{Code: apperr.Code(kind), Message: err.Error()}})
}

// clarificationResponse is the response body ApplyEdit returns in place of
// a committed version when reference resolution could not find a referent.
type clarificationResponse struct {
	Clarification []clarificationCandidate `json:"clarification"`
}

type clarificationCandidate struct {
	Identifier    string `json:"identifier"`
	Type          string `json:"type"`
	ComponentName string `json:"componentName,omitempty"`
}
