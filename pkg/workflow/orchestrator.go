package workflow

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"finscope-be/internal/constant"
	"finscope-be/internal/entity"
	"finscope-be/internal/pkg/logger"
	"finscope-be/pkg/gateway"
	"finscope-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// TopicSessionState carries StateChange payloads for every committed
// state transition. The websocket feed and the NATS bridge subscribe
// to it.
const TopicSessionState = "session.state"

const refreshTimeout = 30 * time.Second

// StateChange is the published shape of a state transition.
type StateChange struct {
	Event   string          `json:"event"`
	Session *SessionSummary `json:"session"`
}

type SessionSummary struct {
	SessionId    string    `json:"session_id"`
	WorkflowType string    `json:"workflow_type"`
	Company      string    `json:"company"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

// Archiver receives a session's transcript after its backend resources
// were confirmed released. Archiving is best-effort: a failure is
// logged, never blocks teardown (the original behavior on end).
type Archiver interface {
	Archive(ctx context.Context, session *entity.Session) error
}

// Orchestrator owns the single logical analysis session: it derives
// dirty/conflict status, arbitrates resume-vs-replace-vs-create,
// sequences backend creation and teardown, and guards against
// concurrent duplicate operations. All durable writes go through it;
// presentation code never touches the store directly.
type Orchestrator struct {
	store    store.Store
	gw       gateway.Gateway
	pub      message.Publisher
	archiver Archiver
	logger   logger.ILogger

	mu      sync.RWMutex
	current *entity.Session

	mutation opLatch
	chat     opLatch
}

func NewOrchestrator(st store.Store, gw gateway.Gateway, pub message.Publisher, archiver Archiver, log logger.ILogger) *Orchestrator {
	return &Orchestrator{
		store:    st,
		gw:       gw,
		pub:      pub,
		archiver: archiver,
		logger:   log,
	}
}

// Restore loads the persisted active session, if any. Corrupt or absent
// records leave the orchestrator empty.
func (o *Orchestrator) Restore(ctx context.Context) error {
	var sess entity.Session
	found, err := o.store.Load(ctx, store.KeyActiveSession, &sess)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	o.mu.Lock()
	o.current = &sess
	o.mu.Unlock()
	o.logger.Info("Orchestrator", "Restored active session", map[string]interface{}{
		"session_id": sess.SessionId,
		"workflow":   sess.WorkflowType,
	})
	return nil
}

// Current returns a copy of the active session, or nil.
func (o *Orchestrator) Current() *entity.Session {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current.Clone()
}

// Status derives the UI-facing status against a pending selection.
// Read-only; stays available while a mutation is latched.
func (o *Orchestrator) Status(pending entity.Selection) Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Derive(o.current, pending)
}

// Create starts a new session from the selection. If an active session
// already exists it is never silently replaced: a matching selection
// resumes it, a diverging one reports ErrSessionConflict for the user
// to resolve. file is required for upload selections.
func (o *Orchestrator) Create(ctx context.Context, sel entity.Selection, file io.Reader, fileName string) (*entity.Session, error) {
	if !o.mutation.tryAcquire() {
		return nil, ErrOperationInFlight
	}
	defer o.mutation.release()

	o.mu.RLock()
	active := o.current
	o.mu.RUnlock()

	if active != nil {
		if entity.SameSelection(sel, active.Origin) {
			return active.Clone(), nil
		}
		return nil, ErrSessionConflict
	}

	return o.createLocked(ctx, sel, file, fileName, "session created")
}

// Replace ends the active session, then creates a new one from the
// selection. If the backend end call fails the replace is aborted and
// the existing session stays active and untouched; backend resources
// are never silently orphaned.
func (o *Orchestrator) Replace(ctx context.Context, sel entity.Selection, file io.Reader, fileName string) (*entity.Session, error) {
	if !o.mutation.tryAcquire() {
		return nil, ErrOperationInFlight
	}
	defer o.mutation.release()

	o.mu.RLock()
	active := o.current
	o.mu.RUnlock()

	if active == nil {
		return nil, ErrNoActiveSession
	}

	// Validate the new selection before tearing anything down.
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	if err := o.teardown(ctx, active.Clone(), "session replaced"); err != nil {
		return nil, err
	}

	return o.createLocked(ctx, sel, file, fileName, "session created")
}

// Resume re-exposes the stored session without any blocking network
// call. A background refresh may repair a transcript lost to a hard
// reload, but never overwrites non-empty local messages and never
// blocks the resume path.
func (o *Orchestrator) Resume(ctx context.Context) (*entity.Session, error) {
	o.mu.RLock()
	active := o.current.Clone()
	o.mu.RUnlock()

	if active == nil {
		return nil, ErrNoActiveSession
	}

	if len(active.Messages) == 0 {
		go o.refreshMessages(active.SessionId)
	}

	o.publish(stateMessage(StateChange{Event: "session resumed", Session: summarize(active)}))
	return active, nil
}

// End releases the backend session, archives the transcript, and
// clears both the session record and the upload draft. On failure the
// local session is left intact so the user keeps a handle to the
// backend resource and can retry.
func (o *Orchestrator) End(ctx context.Context) error {
	if !o.mutation.tryAcquire() {
		return ErrOperationInFlight
	}
	defer o.mutation.release()

	o.mu.RLock()
	active := o.current
	o.mu.RUnlock()

	if active == nil {
		return ErrNoActiveSession
	}

	if err := o.teardown(ctx, active.Clone(), "session ended"); err != nil {
		return err
	}

	if err := o.store.Clear(ctx, store.KeyUploadDraft); err != nil {
		o.logger.Warn("Orchestrator", "Failed to clear upload draft", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

// SendChat appends the user message optimistically, then the backend
// reply on success or an inline error entry on failure. The user's
// input is never rolled back; ordering is strictly user at N, reply at
// N+1.
func (o *Orchestrator) SendChat(ctx context.Context, text string) (*entity.Message, *entity.Message, error) {
	if !o.chat.tryAcquire() {
		return nil, nil, ErrOperationInFlight
	}
	defer o.chat.release()

	o.mu.RLock()
	active := o.current
	o.mu.RUnlock()

	if active == nil {
		return nil, nil, ErrNoActiveSession
	}

	userMsg := entity.Message{
		Role:      constant.ChatMessageRoleUser,
		Content:   text,
		Timestamp: time.Now(),
	}
	o.appendMessages(ctx, active.SessionId, userMsg)

	var reply entity.Message
	resp, err := o.gw.SendChat(ctx, active.SessionId, text)
	if err != nil {
		o.logger.Error("Orchestrator", "Chat send failed", map[string]interface{}{
			"session_id": active.SessionId,
			"error":      err.Error(),
		})
		reply = entity.Message{
			Role:      constant.ChatMessageRoleAssistant,
			Content:   "The analysis backend could not answer: " + err.Error(),
			Timestamp: time.Now(),
		}
	} else {
		reply = entity.Message{
			Role:       constant.ChatMessageRoleAssistant,
			Content:    resp.Answer,
			References: resp.References,
			Timestamp:  time.Now(),
		}
	}
	o.appendMessages(ctx, active.SessionId, reply)

	return &userMsg, &reply, nil
}

// createLocked runs the create protocol. Caller holds the mutation
// latch and has ruled out an active session.
func (o *Orchestrator) createLocked(ctx context.Context, sel entity.Selection, file io.Reader, fileName string, event string) (*entity.Session, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	result, err := o.gw.StartAnalysis(ctx, &gateway.StartAnalysisRequest{
		WorkflowType: sel.Workflow(),
		Selection:    sel,
		File:         file,
		FileName:     fileName,
	})
	if err != nil {
		// Pending selection stays untouched with the caller; retry is free.
		return nil, err
	}

	sess := &entity.Session{
		SessionId:        result.SessionId,
		WorkflowType:     sel.Workflow(),
		Origin:           sel,
		ExecutiveSummary: result.ExecutiveSummary,
		NewsArticles:     result.NewsArticles,
		Messages:         []entity.Message{},
		CreatedAt:        time.Now(),
	}

	// Single atomic commit of the full record.
	if err := o.store.Save(ctx, store.KeyActiveSession, sess); err != nil {
		// The backend allocated resources we cannot track; release them
		// rather than orphaning temp files.
		if endErr := o.gw.EndSession(ctx, sess.SessionId); endErr != nil {
			o.logger.Error("Orchestrator", "Failed to release session after store failure", map[string]interface{}{
				"session_id": sess.SessionId,
				"error":      endErr.Error(),
			})
		}
		return nil, err
	}

	o.mu.Lock()
	o.current = sess
	o.mu.Unlock()

	o.logger.Info("Orchestrator", "Session created", map[string]interface{}{
		"session_id": sess.SessionId,
		"workflow":   sess.WorkflowType,
		"company":    sel.Company(),
	})
	o.publish(stateMessage(StateChange{Event: event, Session: summarize(sess)}))

	return sess.Clone(), nil
}

// teardown ends the backend session and, only on confirmed success,
// archives the transcript and clears local state.
func (o *Orchestrator) teardown(ctx context.Context, active *entity.Session, event string) error {
	if err := o.gw.EndSession(ctx, active.SessionId); err != nil {
		o.logger.Error("Orchestrator", "Backend end-session failed, keeping local session", map[string]interface{}{
			"session_id": active.SessionId,
			"error":      err.Error(),
		})
		return err
	}

	if o.archiver != nil {
		if err := o.archiver.Archive(ctx, active); err != nil {
			o.logger.Warn("Orchestrator", "Failed to archive session transcript", map[string]interface{}{
				"session_id": active.SessionId,
				"error":      err.Error(),
			})
		}
	}

	if err := o.store.Clear(ctx, store.KeyActiveSession); err != nil {
		o.logger.Warn("Orchestrator", "Failed to clear session record", map[string]interface{}{"error": err.Error()})
	}

	o.mu.Lock()
	o.current = nil
	o.mu.Unlock()

	o.logger.Info("Orchestrator", "Session ended", map[string]interface{}{"session_id": active.SessionId})
	o.publish(stateMessage(StateChange{Event: event, Session: nil}))
	return nil
}

// appendMessages appends to the live session and persists the whole
// record. A late append for a superseded session id is dropped.
func (o *Orchestrator) appendMessages(ctx context.Context, sessionId string, msgs ...entity.Message) {
	o.mu.Lock()
	if o.current == nil || o.current.SessionId != sessionId {
		o.mu.Unlock()
		return
	}
	o.current.Messages = append(o.current.Messages, msgs...)
	snapshot := o.current.Clone()
	o.mu.Unlock()

	if err := o.store.Save(ctx, store.KeyActiveSession, snapshot); err != nil {
		o.logger.Warn("Orchestrator", "Failed to persist transcript", map[string]interface{}{"error": err.Error()})
	}
	o.publish(stateMessage(StateChange{Event: "chat updated", Session: summarize(snapshot)}))
}

// refreshMessages opportunistically pulls the transcript from the
// backend after a resume found it empty. Fetch failure or an empty
// result keeps local state; a session replaced meanwhile is left alone.
func (o *Orchestrator) refreshMessages(sessionId string) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	snapshot, err := o.gw.FetchSession(ctx, sessionId)
	if err != nil {
		o.logger.Warn("Orchestrator", "Background transcript refresh failed", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return
	}
	if len(snapshot.Messages) == 0 {
		return
	}

	o.mu.Lock()
	if o.current == nil || o.current.SessionId != sessionId || len(o.current.Messages) > 0 {
		o.mu.Unlock()
		return
	}
	o.current.Messages = append([]entity.Message{}, snapshot.Messages...)
	refreshed := o.current.Clone()
	o.mu.Unlock()

	if err := o.store.Save(ctx, store.KeyActiveSession, refreshed); err != nil {
		o.logger.Warn("Orchestrator", "Failed to persist refreshed transcript", map[string]interface{}{"error": err.Error()})
	}
	o.publish(stateMessage(StateChange{Event: "chat refreshed", Session: summarize(refreshed)}))
}

func (o *Orchestrator) publish(msg *message.Message) {
	if o.pub == nil {
		return
	}
	if err := o.pub.Publish(TopicSessionState, msg); err != nil {
		o.logger.Warn("Orchestrator", "Failed to publish state change", map[string]interface{}{"error": err.Error()})
	}
}

func summarize(s *entity.Session) *SessionSummary {
	if s == nil {
		return nil
	}
	return &SessionSummary{
		SessionId:    s.SessionId,
		WorkflowType: s.WorkflowType,
		Company:      s.Origin.Company(),
		CreatedAt:    s.CreatedAt,
		MessageCount: len(s.Messages),
	}
}

func stateMessage(change StateChange) *message.Message {
	payload, _ := json.Marshal(change)
	return message.NewMessage(watermill.NewUUID(), payload)
}
