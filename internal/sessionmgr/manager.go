package sessionmgr

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sketchloom/sessionengine/internal/apperr"
	"github.com/sketchloom/sessionengine/internal/contextengine"
	"github.com/sketchloom/sessionengine/internal/event"
	"github.com/sketchloom/sessionengine/internal/llmadapter"
	"github.com/sketchloom/sessionengine/internal/logging"
	"github.com/sketchloom/sessionengine/internal/store"
	"github.com/sketchloom/sessionengine/internal/version"
	"github.com/sketchloom/sessionengine/internal/wireframe"
)

// rootElement is the target element recorded for the implicit context
// entry a new session starts with, matching contextengine's root
// identifier convention.
const rootElement = "root"

// Limits bundles the tunables ApplyEdit enforces, read once from config at
// construction so the hot path never touches the config package directly.
type Limits struct {
	EditBudget  time.Duration
	LockTimeout time.Duration
}

// Manager is the Session Manager. One Manager serves every session; a
// per-session lock inside it serializes concurrent edits to the same
// session without blocking edits to distinct sessions.
type Manager struct {
	store    *store.Store
	versions *version.Manager
	llm      *llmadapter.Adapter
	limits   Limits
	locks    *lockTable
}

// New returns a Manager wiring the given Store, Version Manager, and LLM
// Adapter together under limits.
func New(s *store.Store, versions *version.Manager, llm *llmadapter.Adapter, limits Limits) *Manager {
	return &Manager{store: s, versions: versions, llm: llm, limits: limits, locks: newLockTable()}
}

// EditResult is the outcome of a successful ApplyEdit call. Exactly one of
// (Version set) or (NeedsClarification true) holds.
type EditResult struct {
	NeedsClarification bool
	Candidates         []contextengine.Candidate

	Version      int
	Wireframe    *wireframe.Document
	Diff         *version.ChangeSummary
	ProcessingMs int64
}

// HistoryEntry summarizes one committed version for GetHistory, without
// the wireframe body so a compacted version can still be listed.
type HistoryEntry struct {
	Version      int
	EditType     string
	Prompt       string
	ProcessingMs int64
	CreatedAt    time.Time
	Compacted    bool
}

// CreateResult is the outcome of a successful CreateSession call.
type CreateResult struct {
	SessionID string
	Wireframe *wireframe.Document
	Version   int
}

// CreateSession invokes the LLM Adapter to produce an initial wireframe
// from prompt, persists it as version 1 under a fresh session ID, and
// appends the implicit root context entry every session starts with.
func (m *Manager) CreateSession(ctx context.Context, userID, prompt string) (*CreateResult, error) {
	wf, err := m.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	v, err := m.versions.CreateInitial(ctx, sessionID, userID, wf, prompt)
	if err != nil {
		return nil, err
	}

	entry := store.ContextEntry{Prompt: prompt, EditType: "modify", TargetElements: []string{rootElement}, Version: v, CreatedAt: time.Now()}
	if err := m.store.AppendContext(ctx, sessionID, entry); err != nil {
		logging.Logger.Warn().Err(err).Str("sessionID", sessionID).Msg("context ring append failed after session creation")
	}

	event.Publish(event.Event{
		Type: event.SessionCreated,
		Data: event.SessionCreatedData{SessionID: sessionID, UserID: userID},
	})
	return &CreateResult{SessionID: sessionID, Wireframe: wf, Version: v}, nil
}

// ApplyEdit runs the full edit pipeline for sessionID: classify the prompt,
// resolve its referents against the current wireframe and context ring,
// short-circuit with NeedsClarification if a required referent cannot be
// resolved, otherwise build the augmented prompt, call the LLM Adapter, and
// commit the result as a new version. The whole call is bounded by the
// configured edit budget; once a version has committed, a subsequently
// exhausted budget no longer affects the outcome.
func (m *Manager) ApplyEdit(ctx context.Context, sessionID, prompt string) (*EditResult, error) {
	budgetCtx, cancel := context.WithTimeout(ctx, m.limits.EditBudget)
	defer cancel()

	release, err := m.locks.acquire(budgetCtx, sessionID, m.limits.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	meta, err := m.store.GetMetadata(budgetCtx, sessionID)
	if err != nil {
		return nil, err
	}
	if meta.Status != store.StatusActive {
		return nil, apperr.New(apperr.KindConflict, fmt.Sprintf("session %s is not active (status=%s)", sessionID, meta.Status))
	}

	current, err := m.loadCurrentState(budgetCtx, meta)
	if err != nil {
		return nil, err
	}

	ring, err := m.store.GetContext(budgetCtx, sessionID)
	if err != nil {
		return nil, err
	}

	intent := contextengine.Classify(prompt)
	resolution := contextengine.ResolveReferences(prompt, current.Wireframe, ring, intent)
	if resolution.NeedsClarification {
		event.Publish(event.Event{
			Type: event.ClarificationRequested,
			Data: event.ClarificationRequestedData{SessionID: sessionID, Candidates: len(resolution.Candidates)},
		})
		return &EditResult{NeedsClarification: true, Candidates: resolution.Candidates}, nil
	}

	augmented := contextengine.BuildPrompt(prompt, current.Wireframe, ring, resolution.TargetElements)

	start := time.Now()
	newDoc, err := m.llm.Generate(budgetCtx, augmented)
	if err != nil {
		m.publishEditFailed(sessionID, err)
		return nil, m.classifyBudgetError(budgetCtx, err)
	}
	processingMs := time.Since(start).Milliseconds()

	editMeta := version.EditMetadata{
		Prompt:       prompt,
		EditType:     string(intent),
		ProcessingMs: processingMs,
	}
	fromVersion := meta.CurrentVersion
	newVersion, err := m.versions.CreateNext(budgetCtx, sessionID, fromVersion, newDoc, editMeta)
	if err != nil && apperr.KindOf(err) == apperr.KindConflict {
		// One internally retried attempt on a lost CAS race before Conflict
		// is surfaced to the caller, against the metadata's latest version.
		retryMeta, metaErr := m.store.GetMetadata(budgetCtx, sessionID)
		if metaErr == nil {
			fromVersion = retryMeta.CurrentVersion
			newVersion, err = m.versions.CreateNext(budgetCtx, sessionID, fromVersion, newDoc, editMeta)
		}
	}
	if err != nil {
		m.publishEditFailed(sessionID, err)
		return nil, m.classifyBudgetError(budgetCtx, err)
	}

	entry := store.ContextEntry{
		Prompt:         prompt,
		EditType:       string(intent),
		TargetElements: resolution.TargetElements,
		Version:        newVersion,
		CreatedAt:      time.Now(),
	}
	if err := m.store.AppendContext(ctx, sessionID, entry); err != nil {
		logging.Logger.Warn().Err(err).Str("sessionID", sessionID).Msg("context ring append failed after version commit")
	}

	diff, err := m.versions.Diff(ctx, sessionID, fromVersion, newVersion)
	if err != nil {
		logging.Logger.Warn().Err(err).Str("sessionID", sessionID).Msg("change summary failed after version commit")
		diff = nil
	}

	event.Publish(event.Event{
		Type: event.EditApplied,
		Data: event.EditAppliedData{SessionID: sessionID, Version: newVersion, EditType: string(intent), ProcessingMs: processingMs},
	})

	return &EditResult{Version: newVersion, Wireframe: newDoc, Diff: diff, ProcessingMs: processingMs}, nil
}

// classifyBudgetError normalizes a pipeline failure into Timeout when the
// edit budget, rather than the failing call itself, is what actually ran
// out; otherwise the original error's Kind is preserved.
func (m *Manager) classifyBudgetError(budgetCtx context.Context, err error) error {
	if budgetCtx.Err() != nil && apperr.KindOf(err) == "" {
		return apperr.Wrap(apperr.KindTimeout, "edit budget exceeded before version commit", budgetCtx.Err())
	}
	return err
}

func (m *Manager) publishEditFailed(sessionID string, err error) {
	event.Publish(event.Event{
		Type: event.EditFailed,
		Data: event.EditFailedData{SessionID: sessionID, Kind: string(apperr.KindOf(err))},
	})
}

// GetHistory returns a summary of every committed version of sessionID,
// oldest first. Compacted versions are included with Compacted=true and no
// wireframe body, since GetHistory never needs one.
func (m *Manager) GetHistory(ctx context.Context, sessionID string) ([]HistoryEntry, error) {
	meta, err := m.store.GetMetadata(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, meta.CurrentVersion)
	for v := 1; v <= meta.CurrentVersion; v++ {
		state, err := m.store.GetState(ctx, sessionID, v)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				continue
			}
			return nil, err
		}
		entries = append(entries, HistoryEntry{
			Version:      state.Version,
			EditType:     state.EditType,
			Prompt:       state.Prompt,
			ProcessingMs: state.ProcessingMs,
			CreatedAt:    state.CreatedAt,
			Compacted:    state.Compacted,
		})
	}
	return entries, nil
}

// GetVersion returns the stored state for one version of sessionID,
// KindGone if it has been compacted.
func (m *Manager) GetVersion(ctx context.Context, sessionID string, v int) (*store.VersionState, error) {
	return m.versions.GetState(ctx, sessionID, v)
}

// SessionView is the combined metadata/current-wireframe snapshot returned
// by GetSession.
type SessionView struct {
	Metadata       *store.Metadata
	CurrentVersion int
	Wireframe      *wireframe.Document
}

// GetSession returns sessionID's metadata together with its current
// version's wireframe.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*SessionView, error) {
	meta, err := m.store.GetMetadata(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state, err := m.loadCurrentState(ctx, meta)
	if err != nil {
		return nil, err
	}
	return &SessionView{Metadata: meta, CurrentVersion: meta.CurrentVersion, Wireframe: state.Wireframe}, nil
}

// loadCurrentState loads the wireframe state at meta.CurrentVersion. A
// missing state at that version is an integrity violation rather than an
// ordinary NotFound: the session is quarantined (further writes rejected
// via the active-status check; reads stay permitted) and KindFatal is
// raised in its place.
func (m *Manager) loadCurrentState(ctx context.Context, meta *store.Metadata) (*store.VersionState, error) {
	state, err := m.versions.GetState(ctx, meta.SessionID, meta.CurrentVersion)
	if err != nil && apperr.KindOf(err) == apperr.KindNotFound {
		if qErr := m.store.QuarantineSession(ctx, meta.SessionID); qErr != nil {
			logging.Logger.Error().Err(qErr).Str("sessionID", meta.SessionID).Msg("failed to quarantine session after integrity violation")
		}
		return nil, apperr.Wrap(apperr.KindFatal, fmt.Sprintf("session %s: current_version %d has no state", meta.SessionID, meta.CurrentVersion), err)
	}
	return state, err
}

// CloseSession marks sessionID Completed. Closed sessions reject further
// edits but remain readable via GetHistory/GetVersion until the Janitor
// expires them.
func (m *Manager) CloseSession(ctx context.Context, sessionID string) error {
	release, err := m.locks.acquire(ctx, sessionID, m.limits.LockTimeout)
	if err != nil {
		return err
	}
	defer release()

	meta, err := m.store.GetMetadata(ctx, sessionID)
	if err != nil {
		return err
	}
	meta.Status = store.StatusCompleted
	meta.LastActivity = time.Now()
	if err := m.store.PutMetadata(ctx, meta); err != nil {
		return err
	}

	event.Publish(event.Event{Type: event.SessionCompleted, Data: event.SessionCompletedData{SessionID: sessionID}})
	return nil
}

// ForkSession creates a brand new session whose version 1 is a copy of
// sessionID's wireframe at atVersion. The fork has its own independent
// version history and context ring; it is not undo, it is a new session.
func (m *Manager) ForkSession(ctx context.Context, sessionID string, atVersion int, userID string) (string, error) {
	source, err := m.versions.GetState(ctx, sessionID, atVersion)
	if err != nil {
		return "", err
	}

	forkID := uuid.NewString()
	prompt := fmt.Sprintf("forked from session %s at version %d", sessionID, atVersion)
	if _, err := m.versions.CreateInitial(ctx, forkID, userID, source.Wireframe.Clone(), prompt); err != nil {
		return "", err
	}

	meta, err := m.store.GetMetadata(ctx, forkID)
	if err != nil {
		return "", err
	}
	meta.ParentSessionID = sessionID
	meta.ParentVersion = atVersion
	if err := m.store.PutMetadata(ctx, meta); err != nil {
		return "", err
	}

	event.Publish(event.Event{Type: event.SessionCreated, Data: event.SessionCreatedData{SessionID: forkID, UserID: userID}})
	return forkID, nil
}

// ShareSession attaches an opaque share token to sessionID's metadata and
// returns it. It implies no rendering surface of its own.
func (m *Manager) ShareSession(ctx context.Context, sessionID string) (string, error) {
	release, err := m.locks.acquire(ctx, sessionID, m.limits.LockTimeout)
	if err != nil {
		return "", err
	}
	defer release()

	meta, err := m.store.GetMetadata(ctx, sessionID)
	if err != nil {
		return "", err
	}
	meta.ShareToken = uuid.NewString()
	if err := m.store.PutMetadata(ctx, meta); err != nil {
		return "", err
	}
	return meta.ShareToken, nil
}

// UnshareSession detaches sessionID's share token, if any.
func (m *Manager) UnshareSession(ctx context.Context, sessionID string) error {
	release, err := m.locks.acquire(ctx, sessionID, m.limits.LockTimeout)
	if err != nil {
		return err
	}
	defer release()

	meta, err := m.store.GetMetadata(ctx, sessionID)
	if err != nil {
		return err
	}
	if meta.ShareToken == "" {
		return nil
	}
	meta.ShareToken = ""
	return m.store.PutMetadata(ctx, meta)
}
