package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/candidate-matcher/internal/apperrors"
	"github.com/jonathan/candidate-matcher/internal/pipeline"
	"github.com/jonathan/candidate-matcher/internal/store/memory"
	"github.com/jonathan/candidate-matcher/internal/types"
)

type stubRunner struct {
	mu     sync.Mutex
	result *types.PipelineResult
	err    error
	calls  int
	// during runs inside Run, before it returns.
	during func()
}

func (r *stubRunner) Run(_ context.Context, _ string, onProgress pipeline.ProgressCallback) (*types.PipelineResult, error) {
	r.mu.Lock()
	r.calls++
	during := r.during
	r.mu.Unlock()
	if onProgress != nil {
		onProgress(pipeline.ProgressEvent{State: pipeline.StateExtracting, Message: "extracting"})
	}
	if during != nil {
		during()
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

type stubResponder struct {
	lastText     string
	lastSelected []uuid.UUID
}

func (s *stubResponder) Respond(_ context.Context, result *types.PipelineResult, text string) string {
	s.lastText = text
	return "feedback on " + result.Requirements.Title
}

func (s *stubResponder) ReviewSelection(_ context.Context, _ *types.PipelineResult, selected []uuid.UUID, _ string) string {
	s.lastSelected = selected
	return "review"
}

// flakyStore fails selected writes on top of the in-memory store.
type flakyStore struct {
	*memory.Store
	failAssistant int
	failSave      bool
}

func (f *flakyStore) AppendMessage(ctx context.Context, id uuid.UUID, role types.Role, content string) (*types.Message, error) {
	if role == types.RoleAssistant && f.failAssistant > 0 {
		f.failAssistant--
		return nil, errors.New("write failed")
	}
	return f.Store.AppendMessage(ctx, id, role, content)
}

func (f *flakyStore) SaveResult(ctx context.Context, r types.StoredResult) error {
	if f.failSave {
		return errors.New("write failed")
	}
	return f.Store.SaveResult(ctx, r)
}

func newTestManager(runner Runner) (*Manager, *memory.Store, *stubResponder) {
	st := memory.New()
	resp := &stubResponder{}
	return NewManager(st, runner, resp, zap.NewNop()), st, resp
}

func TestSend_NewConversationDeliversAndRetitles(t *testing.T) {
	ctx := context.Background()
	runner := &stubRunner{result: sampleResult()}
	m, st, _ := newTestManager(runner)

	var events []pipeline.ProgressEvent
	res, err := m.Send(ctx, nil, "We need a backend engineer", func(e pipeline.ProgressEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)

	assert.True(t, res.CandidatesDelivered)
	assert.Equal(t, InputPrimary, res.Mode)
	assert.Equal(t, "Senior Backend Engineer", res.Conversation.Title)
	assert.Equal(t, InputSuppressed, res.State.InputMode)
	assert.Len(t, events, 1)

	msgs, err := st.ListMessages(ctx, res.Conversation.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.Equal(t, types.RoleAssistant, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "# Job Analysis Results")

	stored, err := st.ResultForMessage(ctx, res.AssistantMessage.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Senior Backend Engineer", stored.Result.Requirements.Title)
}

func TestSend_KeepsCustomTitle(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(&stubRunner{result: sampleResult()})

	conv, err := m.Create(ctx, "Q3 hiring")
	require.NoError(t, err)
	res, err := m.Send(ctx, &conv.ID, "job text", nil)
	require.NoError(t, err)
	assert.Equal(t, "Q3 hiring", res.Conversation.Title)
}

func TestSend_UnspecifiedTitleKeepsDefault(t *testing.T) {
	result := sampleResult()
	result.Requirements.Title = types.NotSpecified
	m, _, _ := newTestManager(&stubRunner{result: result})

	res, err := m.Send(context.Background(), nil, "job text", nil)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConversationTitle, res.Conversation.Title)
}

func TestSend_RejectsEmptyText(t *testing.T) {
	m, _, _ := newTestManager(&stubRunner{result: sampleResult()})
	_, err := m.Send(context.Background(), nil, "   ", nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))
}

func TestSend_UnknownConversation(t *testing.T) {
	m, _, _ := newTestManager(&stubRunner{result: sampleResult()})
	id := uuid.New()
	_, err := m.Send(context.Background(), &id, "job text", nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestSend_SuppressedAfterDelivery(t *testing.T) {
	ctx := context.Background()
	runner := &stubRunner{result: sampleResult()}
	m, _, _ := newTestManager(runner)

	res, err := m.Send(ctx, nil, "job text", nil)
	require.NoError(t, err)

	_, err = m.Send(ctx, &res.Conversation.ID, "another job", nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidState))
	assert.Equal(t, 1, runner.calls)
}

func TestSend_FailureRollsBackAndAllowsRetry(t *testing.T) {
	ctx := context.Background()
	runner := &stubRunner{err: errors.New("boom")}
	m, st, _ := newTestManager(runner)

	_, err := m.Send(ctx, nil, "job text", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInternal))

	convs, err := st.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	id := convs[0].ID

	msgs, err := st.ListMessages(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, MsgSearchFailed, msgs[1].Content)

	state, err := m.State(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, DeliveryRolledBack, state.Delivery)
	assert.Equal(t, InputPrimary, state.InputMode)

	runner.err = nil
	runner.result = sampleResult()
	var deliveredDuringRun bool
	runner.during = func() { deliveredDuringRun = m.tracker.State(id).Delivered }

	res, err := m.Send(ctx, &id, "job text", nil)
	require.NoError(t, err)
	assert.False(t, deliveredDuringRun)
	assert.True(t, res.State.Delivered)
}

func TestSend_TranscriptWriteFailureAppendsApology(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{Store: memory.New(), failAssistant: 1}
	m := NewManager(st, &stubRunner{result: sampleResult()}, &stubResponder{}, zap.NewNop())

	_, err := m.Send(ctx, nil, "job text", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInternal))

	convs, err := st.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	msgs, err := st.ListMessages(ctx, convs[0].ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.Equal(t, MsgSearchFailed, msgs[1].Content)

	state, err := m.State(ctx, convs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, InputPrimary, state.InputMode)
}

func TestSend_ResultSaveFailureKeepsTranscript(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{Store: memory.New(), failSave: true}
	m := NewManager(st, &stubRunner{result: sampleResult()}, &stubResponder{}, zap.NewNop())

	res, err := m.Send(ctx, nil, "job text", nil)
	require.NoError(t, err)
	assert.True(t, res.CandidatesDelivered)
	assert.Contains(t, res.AssistantMessage.Content, "# Job Analysis Results")

	msgs, err := st.ListMessages(ctx, res.Conversation.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	stored, err := st.LatestResult(ctx, res.Conversation.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestSend_ConcurrentSearchRejected(t *testing.T) {
	ctx := context.Background()
	runner := &stubRunner{result: sampleResult()}
	m, _, _ := newTestManager(runner)

	conv, err := m.Create(ctx, "")
	require.NoError(t, err)

	var innerErr error
	runner.during = func() {
		runner.during = nil
		_, innerErr = m.Send(ctx, &conv.ID, "second", nil)
	}
	_, err = m.Send(ctx, &conv.ID, "first", nil)
	require.NoError(t, err)
	assert.True(t, apperrors.IsCode(innerErr, apperrors.CodeInvalidState))
}

func TestSend_CanceledRunIsUnavailable(t *testing.T) {
	m, _, _ := newTestManager(&stubRunner{err: context.Canceled})
	_, err := m.Send(context.Background(), nil, "job text", nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnavailable))
}

func TestSend_FeedbackModeRoutesToResponder(t *testing.T) {
	ctx := context.Background()
	runner := &stubRunner{result: sampleResult()}
	m, st, resp := newTestManager(runner)

	res, err := m.Send(ctx, nil, "job text", nil)
	require.NoError(t, err)
	id := res.Conversation.ID

	state, err := m.SetFeedbackMode(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, InputFeedback, state.InputMode)

	fb, err := m.Send(ctx, &id, "Why is Margaret first?", nil)
	require.NoError(t, err)
	assert.Equal(t, InputFeedback, fb.Mode)
	assert.False(t, fb.CandidatesDelivered)
	assert.Equal(t, "feedback on Senior Backend Engineer", fb.AssistantMessage.Content)
	assert.Equal(t, "Why is Margaret first?", resp.lastText)
	assert.Equal(t, 1, runner.calls)

	msgs, err := st.ListMessages(ctx, id)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestSendFeedback_WithoutSearch(t *testing.T) {
	ctx := context.Background()
	m, st, _ := newTestManager(&stubRunner{})

	conv, err := m.Create(ctx, "")
	require.NoError(t, err)

	_, err = m.SendFeedback(ctx, conv.ID, "thoughts?")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeContextReconstruction))
	assert.Equal(t, MsgNoPreviousSearch, apperrors.UserMessage(err, ""))

	msgs, err := st.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestReviewSelection(t *testing.T) {
	ctx := context.Background()
	m, _, resp := newTestManager(&stubRunner{result: sampleResult()})

	res, err := m.Send(ctx, nil, "job text", nil)
	require.NoError(t, err)

	_, err = m.ReviewSelection(ctx, res.Conversation.ID, nil, "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))

	pick := res.Result.Candidates[0].ID
	msg, err := m.ReviewSelection(ctx, res.Conversation.ID, []uuid.UUID{pick}, "shortlist")
	require.NoError(t, err)
	assert.Equal(t, "review", msg.Content)
	assert.Equal(t, []uuid.UUID{pick}, resp.lastSelected)
}

func TestState_HydratesFromStore(t *testing.T) {
	ctx := context.Background()
	runner := &stubRunner{result: sampleResult()}
	m, st, _ := newTestManager(runner)

	res, err := m.Send(ctx, nil, "job text", nil)
	require.NoError(t, err)

	// A fresh manager over the same store sees the delivered batch.
	restarted := NewManager(st, runner, &stubResponder{}, zap.NewNop())
	state, err := restarted.State(ctx, res.Conversation.ID)
	require.NoError(t, err)
	assert.True(t, state.Delivered)
	assert.Equal(t, InputSuppressed, state.InputMode)

	conv, err := restarted.Create(ctx, "")
	require.NoError(t, err)
	state, err = restarted.State(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, DeliveryIdle, state.Delivery)
}

func TestState_RestoredAfterEviction(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(&stubRunner{result: sampleResult()})
	clock := time.Now()
	m.tracker.limit = 1
	m.tracker.now = func() time.Time { return clock }

	res, err := m.Send(ctx, nil, "job text", nil)
	require.NoError(t, err)
	id := res.Conversation.ID

	clock = clock.Add(trackerIdleAfter)
	_, err = m.Create(ctx, "other")
	require.NoError(t, err)
	assert.False(t, m.tracker.Known(id))

	state, err := m.State(ctx, id)
	require.NoError(t, err)
	assert.True(t, state.Delivered)
	assert.Equal(t, InputSuppressed, state.InputMode)
}

func TestConversationCRUD(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(&stubRunner{result: sampleResult()})

	conv, err := m.Create(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConversationTitle, conv.Title)

	_, err = m.Rename(ctx, conv.ID, " ")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))

	renamed, err := m.Rename(ctx, conv.ID, "Platform team")
	require.NoError(t, err)
	assert.Equal(t, "Platform team", renamed.Title)

	list, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, m.Delete(ctx, conv.ID))
	_, err = m.Get(ctx, conv.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	assert.False(t, m.tracker.Known(conv.ID))

	_, err = m.SetFeedbackMode(ctx, conv.ID, true)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}
