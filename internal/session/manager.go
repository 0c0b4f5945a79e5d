package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/candidate-matcher/internal/apperrors"
	"github.com/jonathan/candidate-matcher/internal/logger"
	"github.com/jonathan/candidate-matcher/internal/pipeline"
	"github.com/jonathan/candidate-matcher/internal/store"
	"github.com/jonathan/candidate-matcher/internal/types"
)

// Messages shown to the user.
const (
	MsgNoPreviousSearch = "No previous candidate search found in conversation. Please perform a candidate search first."
	MsgSearchFailed     = "I'm sorry, I couldn't complete the candidate search. Please try again."
	MsgInputSuppressed  = "Candidates have already been delivered for this conversation. Start a new conversation or switch to feedback mode."
	MsgSearchInProgress = "A candidate search is already running for this conversation."
)

// Runner runs the matching pipeline.
type Runner interface {
	Run(ctx context.Context, text string, onProgress pipeline.ProgressCallback) (*types.PipelineResult, error)
}

// Responder answers feedback about a stored result.
type Responder interface {
	Respond(ctx context.Context, result *types.PipelineResult, text string) string
	ReviewSelection(ctx context.Context, result *types.PipelineResult, selected []uuid.UUID, notes string) string
}

// Store is the persistence the Manager needs.
type Store interface {
	store.ConversationStore
	store.ResultStore
}

// SendResult is the outcome of a Send.
type SendResult struct {
	Conversation     types.Conversation    `json:"conversation"`
	Mode             InputMode             `json:"mode"`
	UserMessage      types.Message         `json:"user_message"`
	AssistantMessage types.Message         `json:"assistant_message"`
	Result           *types.PipelineResult `json:"result,omitempty"`
	// CandidatesDelivered is true once the run produced a candidate list,
	// even an empty one.
	CandidatesDelivered bool  `json:"candidates_delivered"`
	State               State `json:"state"`
}

// FeedbackResult is the outcome of SendFeedback.
type FeedbackResult struct {
	Conversation     types.Conversation `json:"conversation"`
	UserMessage      types.Message      `json:"user_message"`
	AssistantMessage types.Message      `json:"assistant_message"`
	Feedback         string             `json:"feedback"`
}

// Manager is the conversation service. All collaborators are injected.
type Manager struct {
	store     Store
	runner    Runner
	responder Responder
	tracker   *Tracker
	log       *zap.Logger
}

// NewManager creates a Manager with a fresh Tracker.
func NewManager(s Store, runner Runner, responder Responder, log *zap.Logger) *Manager {
	return &Manager{
		store:     s,
		runner:    runner,
		responder: responder,
		tracker:   NewTracker(),
		log:       logger.Named(log, "session"),
	}
}

// Send handles a message from the user. Without a conversation id a new
// conversation is created. In feedback mode the message goes to the
// responder; otherwise it runs the pipeline, unless candidates were already
// delivered.
func (m *Manager) Send(ctx context.Context, conversationID *uuid.UUID, text string, onProgress pipeline.ProgressCallback) (*SendResult, error) {
	const op = "session.Manager.Send"
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, "Message is required", nil)
	}

	conv, created, err := m.getOrCreate(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	log := m.log.With(zap.String(logger.FieldConversation, conv.ID.String()))

	state, err := m.state(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	switch state.InputMode {
	case InputSuppressed:
		return nil, apperrors.E(apperrors.CodeInvalidState, op, MsgInputSuppressed, nil)
	case InputFeedback:
		fb, err := m.SendFeedback(ctx, conv.ID, text)
		if err != nil {
			return nil, err
		}
		return &SendResult{
			Conversation:     fb.Conversation,
			Mode:             InputFeedback,
			UserMessage:      fb.UserMessage,
			AssistantMessage: fb.AssistantMessage,
			State:            m.tracker.State(conv.ID),
		}, nil
	}

	if !m.tracker.BeginSearch(conv.ID) {
		return nil, apperrors.E(apperrors.CodeInvalidState, op, MsgSearchInProgress, nil)
	}

	userMsg, err := m.store.AppendMessage(ctx, conv.ID, types.RoleUser, text)
	if err != nil {
		m.tracker.Rollback(conv.ID)
		return nil, err
	}

	log.Info("starting candidate search", zap.Bool("new_conversation", created))
	result, runErr := m.runner.Run(ctx, text, onProgress)
	if runErr != nil {
		return nil, m.failSearch(ctx, op, conv.ID, runErr, log)
	}

	assistantMsg, err := m.store.AppendMessage(ctx, conv.ID, types.RoleAssistant, RenderTranscript(result))
	if err != nil {
		return nil, m.failSearch(ctx, op, conv.ID, err, log)
	}
	// The transcript is already visible, so a lost sidecar only costs
	// feedback on this search.
	if err := m.store.SaveResult(ctx, types.StoredResult{
		MessageID:      assistantMsg.ID,
		ConversationID: conv.ID,
		Result:         *result,
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		log.Error("failed to save search result", zap.Error(err))
	}

	if (created || conv.Title == types.DefaultConversationTitle) && result.Requirements.HasTitle() {
		if updated, err := m.store.UpdateConversationTitle(ctx, conv.ID, TruncateTitle(result.Requirements.Title)); err != nil {
			log.Warn("failed to retitle conversation", zap.Error(err))
		} else {
			conv = updated
		}
	} else if refreshed, err := m.store.GetConversation(ctx, conv.ID); err == nil {
		conv = refreshed
	}

	m.tracker.Confirm(conv.ID)
	log.Info("candidates delivered", zap.Int("candidates", len(result.Candidates)))

	return &SendResult{
		Conversation:        *conv,
		Mode:                InputPrimary,
		UserMessage:         *userMsg,
		AssistantMessage:    *assistantMsg,
		Result:              result,
		CandidatesDelivered: true,
		State:               m.tracker.State(conv.ID),
	}, nil
}

// failSearch keeps the transcript consistent after a failed run: the user
// message gets an apology reply and the delivery is rolled back.
func (m *Manager) failSearch(ctx context.Context, op string, id uuid.UUID, runErr error, log *zap.Logger) error {
	log.Error("candidate search failed", zap.Error(runErr))
	if _, err := m.store.AppendMessage(context.WithoutCancel(ctx), id, types.RoleAssistant, MsgSearchFailed); err != nil {
		log.Error("failed to append apology message", zap.Error(err))
	}
	m.tracker.Rollback(id)

	var ae *apperrors.Error
	if errors.As(runErr, &ae) {
		return runErr
	}
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		return apperrors.E(apperrors.CodeUnavailable, op, "candidate search was interrupted", runErr)
	}
	return apperrors.E(apperrors.CodeInternal, op, "candidate search failed", runErr)
}

// SendFeedback answers feedback about the conversation's latest search.
// Without a stored search nothing is appended.
func (m *Manager) SendFeedback(ctx context.Context, conversationID uuid.UUID, text string) (*FeedbackResult, error) {
	const op = "session.Manager.SendFeedback"
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, "Feedback is required", nil)
	}

	conv, err := m.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	stored, err := m.latestResult(ctx, op, conversationID)
	if err != nil {
		return nil, err
	}

	userMsg, err := m.store.AppendMessage(ctx, conversationID, types.RoleUser, text)
	if err != nil {
		return nil, err
	}
	reply := m.responder.Respond(ctx, &stored.Result, text)
	assistantMsg, err := m.store.AppendMessage(context.WithoutCancel(ctx), conversationID, types.RoleAssistant, reply)
	if err != nil {
		return nil, err
	}

	if refreshed, err := m.store.GetConversation(ctx, conversationID); err == nil {
		conv = refreshed
	}
	return &FeedbackResult{
		Conversation:     *conv,
		UserMessage:      *userMsg,
		AssistantMessage: *assistantMsg,
		Feedback:         reply,
	}, nil
}

// ReviewSelection reviews a shortlist taken from the latest search and
// appends the review as an assistant message.
func (m *Manager) ReviewSelection(ctx context.Context, conversationID uuid.UUID, selected []uuid.UUID, notes string) (*types.Message, error) {
	const op = "session.Manager.ReviewSelection"
	if len(selected) == 0 {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, "At least one candidate must be selected", nil)
	}
	if _, err := m.store.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	stored, err := m.latestResult(ctx, op, conversationID)
	if err != nil {
		return nil, err
	}
	review := m.responder.ReviewSelection(ctx, &stored.Result, selected, notes)
	return m.store.AppendMessage(ctx, conversationID, types.RoleAssistant, review)
}

func (m *Manager) latestResult(ctx context.Context, op string, id uuid.UUID) (*types.StoredResult, error) {
	stored, err := m.store.LatestResult(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, apperrors.E(apperrors.CodeContextReconstruction, op, MsgNoPreviousSearch, nil)
	}
	return stored, nil
}

// State returns the session flags of a conversation.
func (m *Manager) State(ctx context.Context, id uuid.UUID) (State, error) {
	if _, err := m.store.GetConversation(ctx, id); err != nil {
		return State{}, err
	}
	return m.state(ctx, id)
}

// SetFeedbackMode switches feedback mode on or off.
func (m *Manager) SetFeedbackMode(ctx context.Context, id uuid.UUID, on bool) (State, error) {
	if _, err := m.State(ctx, id); err != nil {
		return State{}, err
	}
	return m.tracker.SetFeedbackMode(id, on), nil
}

// state hydrates flags for conversations this process has not seen: a
// conversation whose newest message is an assistant reply with a stored
// result has delivered its candidates.
func (m *Manager) state(ctx context.Context, id uuid.UUID) (State, error) {
	if m.tracker.Known(id) {
		return m.tracker.State(id), nil
	}
	msgs, err := m.store.ListMessages(ctx, id)
	if err != nil {
		return State{}, err
	}
	delivery := DeliveryIdle
	if n := len(msgs); n > 0 && msgs[n-1].Role == types.RoleAssistant {
		r, err := m.store.ResultForMessage(ctx, msgs[n-1].ID)
		if err != nil {
			return State{}, err
		}
		if r != nil {
			delivery = DeliveryConfirmed
		}
	}
	return m.tracker.Hydrate(id, delivery), nil
}

// Create starts an empty conversation.
func (m *Manager) Create(ctx context.Context, title string) (*types.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = types.DefaultConversationTitle
	}
	conv, err := m.store.CreateConversation(ctx, TruncateTitle(title))
	if err != nil {
		return nil, err
	}
	m.tracker.Hydrate(conv.ID, DeliveryIdle)
	return conv, nil
}

// Get returns a conversation.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*types.Conversation, error) {
	return m.store.GetConversation(ctx, id)
}

// List returns conversations, most recently updated first.
func (m *Manager) List(ctx context.Context) ([]types.Conversation, error) {
	return m.store.ListConversations(ctx)
}

// Rename changes a conversation's title.
func (m *Manager) Rename(ctx context.Context, id uuid.UUID, title string) (*types.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, "session.Manager.Rename", "Title is required", nil)
	}
	return m.store.UpdateConversationTitle(ctx, id, TruncateTitle(title))
}

// Delete removes a conversation with its messages and results.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	if err := m.store.DeleteConversation(ctx, id); err != nil {
		return err
	}
	m.tracker.Forget(id)
	return nil
}

// Messages returns a conversation's messages in order.
func (m *Manager) Messages(ctx context.Context, id uuid.UUID) ([]types.Message, error) {
	return m.store.ListMessages(ctx, id)
}

func (m *Manager) getOrCreate(ctx context.Context, id *uuid.UUID) (*types.Conversation, bool, error) {
	if id != nil && *id != uuid.Nil {
		conv, err := m.store.GetConversation(ctx, *id)
		return conv, false, err
	}
	conv, err := m.store.CreateConversation(ctx, types.DefaultConversationTitle)
	if err != nil {
		return nil, false, err
	}
	m.tracker.Hydrate(conv.ID, DeliveryIdle)
	return conv, true, nil
}
