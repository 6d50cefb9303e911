package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"finscope-be/internal/constant"
	"finscope-be/internal/entity"
	"finscope-be/pkg/gateway"
	"finscope-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

// fakeGateway scripts the analysis backend. startGate, when set, blocks
// StartAnalysis until released so tests can hold a mutation in flight.
type fakeGateway struct {
	mu         sync.Mutex
	startCalls int
	endCalls   []string
	chatCalls  int
	fetchCalls int

	nextSessionId string
	startErr      error
	endErr        error
	chatErr       error
	chatReply     gateway.ChatReply
	fetchSnapshot *gateway.SessionSnapshot
	fetchErr      error

	startGate    chan struct{}
	startEntered chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{nextSessionId: "sess-1", chatReply: gateway.ChatReply{Answer: "hello"}}
}

func (f *fakeGateway) StartAnalysis(ctx context.Context, req *gateway.StartAnalysisRequest) (*gateway.StartAnalysisResult, error) {
	f.mu.Lock()
	f.startCalls++
	id := f.nextSessionId
	startErr := f.startErr
	f.mu.Unlock()

	if f.startEntered != nil {
		f.startEntered <- struct{}{}
	}
	if f.startGate != nil {
		<-f.startGate
	}
	if startErr != nil {
		return nil, startErr
	}
	return &gateway.StartAnalysisResult{SessionId: id, ExecutiveSummary: "summary"}, nil
}

func (f *fakeGateway) FetchSession(ctx context.Context, sessionId string) (*gateway.SessionSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.fetchSnapshot != nil {
		return f.fetchSnapshot, nil
	}
	return &gateway.SessionSnapshot{SessionId: sessionId}, nil
}

func (f *fakeGateway) SendChat(ctx context.Context, sessionId, message string) (*gateway.ChatReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls++
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	reply := f.chatReply
	return &reply, nil
}

func (f *fakeGateway) EndSession(ctx context.Context, sessionId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endCalls = append(f.endCalls, sessionId)
	return f.endErr
}

func (f *fakeGateway) Health(ctx context.Context) error { return nil }

func (f *fakeGateway) counts() (start, end int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls, len(f.endCalls)
}

type recordingArchiver struct {
	mu       sync.Mutex
	archived []*entity.Session
	err      error
}

func (r *recordingArchiver) Archive(ctx context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.archived = append(r.archived, session)
	return nil
}

// failingStore rejects every Save so the create commit cannot land.
type failingStore struct{ store.Store }

func (failingStore) Save(ctx context.Context, key string, value interface{}) error {
	return errors.New("disk full")
}

func newTestOrchestrator(gw gateway.Gateway) (*Orchestrator, *store.MemoryStore) {
	st := store.NewMemoryStore()
	return NewOrchestrator(st, gw, nil, nil, nopLogger{}), st
}

func TestCreateCommitsSessionAtomically(t *testing.T) {
	gw := newFakeGateway()
	orch, st := newTestOrchestrator(gw)

	sess, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "sess-1", sess.SessionId)
	assert.Equal(t, constant.WorkflowSec, sess.WorkflowType)
	assert.Equal(t, "summary", sess.ExecutiveSummary)
	assert.NotNil(t, sess.Messages)
	assert.Empty(t, sess.Messages)

	var stored entity.Session
	found, err := st.Load(context.Background(), store.KeyActiveSession, &stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "sess-1", stored.SessionId)
	assert.True(t, entity.SameSelection(stored.Origin, acmeFiling("0001-23")))

	assert.Equal(t, StatusActiveClean, orch.Status(acmeFiling("0001-23")))
	assert.Equal(t, StatusActiveDirty, orch.Status(acmeFiling("0002-24")))
}

func TestCreateRejectsInvalidSelectionWithoutBackendCall(t *testing.T) {
	gw := newFakeGateway()
	orch, st := newTestOrchestrator(gw)

	_, err := orch.Create(context.Background(), entity.SecSelection{Ticker: "ACME"}, nil, "")
	var vErr *entity.ValidationError
	require.ErrorAs(t, err, &vErr)

	starts, _ := gw.counts()
	assert.Zero(t, starts)
	found, _ := st.Load(context.Background(), store.KeyActiveSession, &entity.Session{})
	assert.False(t, found)
}

func TestCreateBackendFailureLeavesStateEmpty(t *testing.T) {
	gw := newFakeGateway()
	gw.startErr = &gateway.Error{StatusCode: 503, Message: "overloaded"}
	orch, st := newTestOrchestrator(gw)

	_, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	require.Error(t, err)

	assert.Equal(t, StatusEmpty, orch.Status(nil))
	found, _ := st.Load(context.Background(), store.KeyActiveSession, &entity.Session{})
	assert.False(t, found)

	// A retry with the same selection is free.
	gw.startErr = nil
	_, err = orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	assert.NoError(t, err)
}

func TestCreateStoreFailureReleasesBackendSession(t *testing.T) {
	gw := newFakeGateway()
	orch := NewOrchestrator(failingStore{}, gw, nil, nil, nopLogger{})

	_, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	require.Error(t, err)

	starts, ends := gw.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, ends, "backend session must be released when the commit fails")
	assert.Nil(t, orch.Current())
}

func TestCreateMatchingActiveSelectionResumesWithoutBackendCall(t *testing.T) {
	gw := newFakeGateway()
	orch, _ := newTestOrchestrator(gw)

	first, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	require.NoError(t, err)

	again, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	require.NoError(t, err)
	assert.Equal(t, first.SessionId, again.SessionId)

	starts, _ := gw.counts()
	assert.Equal(t, 1, starts)
}

func TestCreateDivergingActiveSelectionConflicts(t *testing.T) {
	gw := newFakeGateway()
	orch, _ := newTestOrchestrator(gw)

	_, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	require.NoError(t, err)

	_, err = orch.Create(context.Background(), acmeFiling("0002-24"), nil, "")
	assert.ErrorIs(t, err, ErrSessionConflict)

	starts, ends := gw.counts()
	assert.Equal(t, 1, starts)
	assert.Zero(t, ends)
}

func TestConcurrentCreateIsLatched(t *testing.T) {
	gw := newFakeGateway()
	gw.startGate = make(chan struct{})
	gw.startEntered = make(chan struct{}, 1)
	orch, _ := newTestOrchestrator(gw)

	done := make(chan error, 1)
	go func() {
		_, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
		done <- err
	}()
	<-gw.startEntered

	// Second submit while the first is in flight bounces, status reads stay live.
	_, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	assert.ErrorIs(t, err, ErrOperationInFlight)
	assert.Equal(t, StatusEmpty, orch.Status(nil))

	close(gw.startGate)
	require.NoError(t, <-done)

	starts, _ := gw.counts()
	assert.Equal(t, 1, starts)
}

func TestReplaceAbortsWhenBackendEndFails(t *testing.T) {
	gw := newFakeGateway()
	orch, st := newTestOrchestrator(gw)

	first, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	require.NoError(t, err)

	gw.endErr = &gateway.Error{StatusCode: 500, Message: "cleanup failed"}
	_, err = orch.Replace(context.Background(), acmeFiling("0002-24"), nil, "")
	require.Error(t, err)

	// Old session survives in memory and in the store, no new backend session.
	current := orch.Current()
	require.NotNil(t, current)
	assert.Equal(t, first.SessionId, current.SessionId)

	var stored entity.Session
	found, _ := st.Load(context.Background(), store.KeyActiveSession, &stored)
	require.True(t, found)
	assert.Equal(t, first.SessionId, stored.SessionId)

	starts, _ := gw.counts()
	assert.Equal(t, 1, starts)
}

func TestReplaceValidatesBeforeTeardown(t *testing.T) {
	gw := newFakeGateway()
	orch, _ := newTestOrchestrator(gw)

	_, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	require.NoError(t, err)

	_, err = orch.Replace(context.Background(), entity.SecSelection{Ticker: "ACME"}, nil, "")
	var vErr *entity.ValidationError
	require.ErrorAs(t, err, &vErr)

	_, ends := gw.counts()
	assert.Zero(t, ends, "a bad selection must not tear down the active session")
	assert.NotNil(t, orch.Current())
}

func TestResumeThenReplaceScenario(t *testing.T) {
	gw := newFakeGateway()
	archiver := &recordingArchiver{}
	st := store.NewMemoryStore()
	orch := NewOrchestrator(st, gw, nil, archiver, nopLogger{})

	first, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	require.NoError(t, err)

	// A later filing for the same company is a diverged selection.
	assert.Equal(t, StatusActiveDirty, orch.Status(acmeFiling("0002-24")))

	resumed, err := orch.Resume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.SessionId, resumed.SessionId)

	gw.mu.Lock()
	gw.nextSessionId = "sess-2"
	gw.mu.Unlock()

	second, err := orch.Replace(context.Background(), acmeFiling("0002-24"), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "sess-2", second.SessionId)
	assert.True(t, entity.SameSelection(second.Origin, acmeFiling("0002-24")))

	gw.mu.Lock()
	ended := append([]string{}, gw.endCalls...)
	gw.mu.Unlock()
	assert.Equal(t, []string{first.SessionId}, ended)

	archiver.mu.Lock()
	require.Len(t, archiver.archived, 1)
	assert.Equal(t, first.SessionId, archiver.archived[0].SessionId)
	archiver.mu.Unlock()

	assert.Equal(t, StatusActiveClean, orch.Status(acmeFiling("0002-24")))
}

func TestEndClearsSessionAndUploadDraft(t *testing.T) {
	gw := newFakeGateway()
	orch, st := newTestOrchestrator(gw)

	require.NoError(t, st.Save(context.Background(), store.KeyUploadDraft, map[string]string{"company_name": "Acme Corp"}))

	_, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	require.NoError(t, err)

	require.NoError(t, orch.End(context.Background()))
	assert.Equal(t, StatusEmpty, orch.Status(nil))

	found, _ := st.Load(context.Background(), store.KeyActiveSession, &entity.Session{})
	assert.False(t, found)
	var draft map[string]string
	found, _ = st.Load(context.Background(), store.KeyUploadDraft, &draft)
	assert.False(t, found)

	assert.ErrorIs(t, orch.End(context.Background()), ErrNoActiveSession)
}

func TestEndKeepsSessionWhenBackendFails(t *testing.T) {
	gw := newFakeGateway()
	gw.endErr = errors.New("backend unreachable")
	orch, st := newTestOrchestrator(gw)

	first, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	require.NoError(t, err)

	require.Error(t, orch.End(context.Background()))

	current := orch.Current()
	require.NotNil(t, current)
	assert.Equal(t, first.SessionId, current.SessionId)
	found, _ := st.Load(context.Background(), store.KeyActiveSession, &entity.Session{})
	assert.True(t, found)
}

func TestSendChatAppendsUserThenReply(t *testing.T) {
	gw := newFakeGateway()
	gw.chatReply = gateway.ChatReply{Answer: "Revenue grew 12%.", References: "10-K p.42"}
	orch, st := newTestOrchestrator(gw)

	_, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	require.NoError(t, err)

	userMsg, reply, err := orch.SendChat(context.Background(), "How did revenue do?")
	require.NoError(t, err)
	assert.Equal(t, constant.ChatMessageRoleUser, userMsg.Role)
	assert.Equal(t, "How did revenue do?", userMsg.Content)
	assert.Equal(t, constant.ChatMessageRoleAssistant, reply.Role)
	assert.Equal(t, "Revenue grew 12%.", reply.Content)
	assert.Equal(t, "10-K p.42", reply.References)

	var stored entity.Session
	found, _ := st.Load(context.Background(), store.KeyActiveSession, &stored)
	require.True(t, found)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, stored.Messages[0].Role)
	assert.Equal(t, constant.ChatMessageRoleAssistant, stored.Messages[1].Role)
}

func TestSendChatFailureKeepsUserMessageAndAddsErrorEntry(t *testing.T) {
	gw := newFakeGateway()
	gw.chatErr = &gateway.Error{StatusCode: 502, Message: "model timeout"}
	orch, _ := newTestOrchestrator(gw)

	_, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	require.NoError(t, err)

	userMsg, reply, err := orch.SendChat(context.Background(), "Any risks?")
	require.NoError(t, err, "a backend chat failure is reported inline, not as an operation error")
	assert.Equal(t, "Any risks?", userMsg.Content)
	assert.Equal(t, constant.ChatMessageRoleAssistant, reply.Role)
	assert.Contains(t, reply.Content, "could not answer")

	current := orch.Current()
	require.Len(t, current.Messages, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, current.Messages[0].Role)
	assert.Equal(t, "Any risks?", current.Messages[0].Content)
}

func TestSendChatWithoutSession(t *testing.T) {
	gw := newFakeGateway()
	orch, _ := newTestOrchestrator(gw)

	_, _, err := orch.SendChat(context.Background(), "hello?")
	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.Zero(t, gw.chatCalls)
}

func TestRestoreFromStore(t *testing.T) {
	gw := newFakeGateway()
	st := store.NewMemoryStore()

	seed := &entity.Session{
		SessionId:    "sess-restored",
		WorkflowType: constant.WorkflowSec,
		Origin:       acmeFiling("0001-23"),
		Messages:     []entity.Message{{Role: constant.ChatMessageRoleUser, Content: "hi"}},
		CreatedAt:    time.Now(),
	}
	require.NoError(t, st.Save(context.Background(), store.KeyActiveSession, seed))

	orch := NewOrchestrator(st, gw, nil, nil, nopLogger{})
	require.NoError(t, orch.Restore(context.Background()))

	current := orch.Current()
	require.NotNil(t, current)
	assert.Equal(t, "sess-restored", current.SessionId)
	assert.Equal(t, StatusActiveClean, orch.Status(acmeFiling("0001-23")))
}

func TestRestoreTreatsCorruptRecordAsEmpty(t *testing.T) {
	gw := newFakeGateway()
	st := store.NewMemoryStore()
	st.Corrupt(store.KeyActiveSession)

	orch := NewOrchestrator(st, gw, nil, nil, nopLogger{})
	require.NoError(t, orch.Restore(context.Background()))
	assert.Equal(t, StatusEmpty, orch.Status(nil))
}

func TestResumeRefreshesEmptyTranscriptInBackground(t *testing.T) {
	gw := newFakeGateway()
	orch, _ := newTestOrchestrator(gw)

	sess, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	require.NoError(t, err)

	gw.mu.Lock()
	gw.fetchSnapshot = &gateway.SessionSnapshot{
		SessionId: sess.SessionId,
		Messages: []entity.Message{
			{Role: constant.ChatMessageRoleUser, Content: "earlier question"},
			{Role: constant.ChatMessageRoleAssistant, Content: "earlier answer"},
		},
	}
	gw.mu.Unlock()

	resumed, err := orch.Resume(context.Background())
	require.NoError(t, err)
	assert.Empty(t, resumed.Messages, "resume returns immediately, refresh runs in the background")

	assert.Eventually(t, func() bool {
		current := orch.Current()
		return current != nil && len(current.Messages) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestResumeRefreshNeverOverwritesLocalTranscript(t *testing.T) {
	gw := newFakeGateway()
	orch, _ := newTestOrchestrator(gw)

	sess, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	require.NoError(t, err)

	_, _, err = orch.SendChat(context.Background(), "local question")
	require.NoError(t, err)

	gw.mu.Lock()
	gw.fetchSnapshot = &gateway.SessionSnapshot{
		SessionId: sess.SessionId,
		Messages:  []entity.Message{{Role: constant.ChatMessageRoleUser, Content: "stale backend copy"}},
	}
	gw.mu.Unlock()

	_, err = orch.Resume(context.Background())
	require.NoError(t, err)

	// Non-empty local transcript means no refresh is even attempted.
	time.Sleep(50 * time.Millisecond)
	gw.mu.Lock()
	fetches := gw.fetchCalls
	gw.mu.Unlock()
	assert.Zero(t, fetches)

	current := orch.Current()
	require.Len(t, current.Messages, 2)
	assert.Equal(t, "local question", current.Messages[0].Content)
}

func TestStatePersistsAcrossOrchestrators(t *testing.T) {
	gw := newFakeGateway()
	st := store.NewMemoryStore()

	orch := NewOrchestrator(st, gw, nil, nil, nopLogger{})
	_, err := orch.Create(context.Background(), acmeFiling("0001-23"), nil, "")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, _, err = orch.SendChat(context.Background(), fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	// Fresh orchestrator over the same store sees the full transcript.
	revived := NewOrchestrator(st, gw, nil, nil, nopLogger{})
	require.NoError(t, revived.Restore(context.Background()))
	current := revived.Current()
	require.NotNil(t, current)
	assert.Len(t, current.Messages, 6)
	assert.Equal(t, StatusActiveClean, revived.Status(acmeFiling("0001-23")))
}
