package event

// SessionCreatedData is the data for session.created events.
type SessionCreatedData struct {
	SessionID string `json:"sessionID"`
	UserID    string `json:"userID,omitempty"`
}

// SessionExpiredData is the data for session.expired events, published by
// the Janitor when a session's TTL has elapsed.
type SessionExpiredData struct {
	SessionID string `json:"sessionID"`
}

// SessionCompletedData is the data for session.completed events.
type SessionCompletedData struct {
	SessionID string `json:"sessionID"`
}

// EditAppliedData is the data for edit.applied events, published once a new
// version has committed.
type EditAppliedData struct {
	SessionID    string `json:"sessionID"`
	Version      int    `json:"version"`
	EditType     string `json:"editType"`
	ProcessingMs int64  `json:"processingMs"`
}

// EditFailedData is the data for edit.failed events.
type EditFailedData struct {
	SessionID string `json:"sessionID"`
	Kind      string `json:"kind"` // taxonomy kind from apperr
}

// ClarificationRequestedData is the data for edit.clarification_requested
// events, published when the Context Engine declines to execute an
// ambiguous edit.
type ClarificationRequestedData struct {
	SessionID  string `json:"sessionID"`
	Candidates int    `json:"candidates"`
}

// VersionCompactedData is the data for version.compacted events. No
// component in this repository publishes that event.
type VersionCompactedData struct {
	SessionID      string `json:"sessionID"`
	VersionsPruned int    `json:"versionsPruned"`
}
