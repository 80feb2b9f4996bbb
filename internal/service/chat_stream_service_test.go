package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"agent-catalog-be/internal/constant"
	"agent-catalog-be/internal/dto"
	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/internal/repository/unitofwork"
	"agent-catalog-be/pkg/conversation"
	"agent-catalog-be/pkg/ledger"
	"agent-catalog-be/pkg/llm"
	"agent-catalog-be/pkg/llm/llmtest"
	"agent-catalog-be/pkg/prompt"
	"agent-catalog-be/pkg/quota"
	"agent-catalog-be/pkg/stream"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relayHarness struct {
	svc        IChatStreamService
	publisher  *recordingPublisher
	reconciler *recordingReconciler
}

func newRelay(factory unitofwork.RepositoryFactory, provider llm.LLMProvider) relayHarness {
	log := logger.NewNopLogger()
	publisher := &recordingPublisher{}
	reconciler := &recordingReconciler{}
	svc := NewChatStreamService(
		factory,
		prompt.NewComposer(prompt.NewRepositorySource(factory), log),
		quota.NewGuard(),
		provider,
		conversation.NewStore(factory),
		ledger.NewLedger(factory, 0.002),
		reconciler,
		publisher,
		log,
	)
	return relayHarness{svc: svc, publisher: publisher, reconciler: reconciler}
}

func fragments(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("frag-%d ", i)
	}
	return out
}

func chatRequest(f fixture, message string, first bool) *dto.ChatStreamRequest {
	return &dto.ChatStreamRequest{SessionId: f.sessionId, Message: message, IsFirstMessage: first}
}

func TestRelayForwardsFragmentsInOrderAndFinalizes(t *testing.T) {
	f := newFixture(t, constant.SubscriptionPlanFree, 10)
	provider := llmtest.NewScriptedProvider(1500, fragments(10)...)
	h := newRelay(f.factory, provider)
	sink := &stream.Recorder{}

	turn, err := h.svc.Begin(context.Background(), f.userId, chatRequest(f, "¿Qué opción me conviene?", true))
	require.NoError(t, err)
	outcome := h.svc.Stream(context.Background(), turn, sink)

	assert.Equal(t, OutcomeCompleted, outcome)
	assert.Equal(t, fragments(10), sink.Tokens)
	require.NotNil(t, sink.Usage)
	assert.Equal(t, 1500, sink.Usage.TotalTokens)
	assert.Empty(t, sink.Error)

	messages := f.messages(t)
	require.Len(t, messages, 2)
	assert.Equal(t, []string{"user", "assistant"}, rolesOf(messages))
	assert.Equal(t, "¿Qué opción me conviene?", messages[0].Content)
	assert.Equal(t, strings.Join(fragments(10), ""), messages[1].Content)
	assert.Equal(t, sink.Text(), messages[1].Content)
	require.NotNil(t, messages[1].TokensUsed)
	assert.Equal(t, 1500, *messages[1].TokensUsed)
	assert.NotNil(t, messages[1].ResponseTimeMs)

	assert.Equal(t, 11, f.profile(t).UsageCount)
	assert.Equal(t, 3, f.session(t).CostCents)

	logs := f.usageLogs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, messages[1].Id, *logs[0].MessageId)
	assert.Equal(t, true, logs[0].EventData["is_first_message"])

	require.Len(t, h.publisher.completed, 1)
	assert.Equal(t, messages[1].Id, h.publisher.completed[0].MessageId)
	assert.Empty(t, h.reconciler.pending)
}

func TestRelayFirstTurnUsesFormPrompt(t *testing.T) {
	f := newFixture(t, constant.SubscriptionPlanFree, 0)
	provider := llmtest.NewScriptedProvider(10, "ok")
	h := newRelay(f.factory, provider)

	turn, err := h.svc.Begin(context.Background(), f.userId, chatRequest(f, "Hola", true))
	require.NoError(t, err)

	history := provider.History()
	require.Empty(t, history, "the model is not contacted before Stream")
	require.Equal(t, llm.Message{Role: "user", Content: "Hola"}, turn.History[len(turn.History)-1])
	assert.Equal(t, "system", turn.History[0].Role)
	assert.Contains(t, turn.History[0].Content, "TIMELINE PARA LA DECISIÓN: URGENTE (esta semana)")
	assert.Contains(t, turn.History[0].Content, "1. Abrir ahora\n2. Esperar un año")
	assert.NotContains(t, turn.History[0].Content, constant.SectionPersonalContext)

	h.svc.Stream(context.Background(), turn, &stream.Recorder{})
	assert.Equal(t, turn.History, provider.History())
}

func TestRelayLaterTurnsReplayTranscriptWithStoredPrompt(t *testing.T) {
	f := newFixture(t, constant.SubscriptionPlanFree, 0)
	provider := llmtest.NewScriptedProvider(10, "respuesta")
	h := newRelay(f.factory, provider)

	first, err := h.svc.Begin(context.Background(), f.userId, chatRequest(f, "primera", true))
	require.NoError(t, err)
	h.svc.Stream(context.Background(), first, &stream.Recorder{})

	second, err := h.svc.Begin(context.Background(), f.userId, chatRequest(f, "segunda", false))
	require.NoError(t, err)

	assert.Equal(t, []llm.Message{
		{Role: "system", Content: constant.FallbackPromptDecisionArchitect},
		{Role: "user", Content: "primera"},
		{Role: "assistant", Content: "respuesta"},
		{Role: "user", Content: "segunda"},
	}, second.History)
}

func TestRelayDeniesTurnAtCeiling(t *testing.T) {
	f := newFixture(t, constant.SubscriptionPlanFree, 100)
	provider := llmtest.NewScriptedProvider(10, "nunca")
	h := newRelay(f.factory, provider)

	turn, err := h.svc.Begin(context.Background(), f.userId, chatRequest(f, "hola", false))

	assert.Nil(t, turn)
	var limitErr *dto.LimitExceededError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 100, limitErr.Limit)
	assert.Equal(t, 100, limitErr.Used)
	assert.Equal(t, "2026-11-01", limitErr.ResetAfter.Format("2006-01-02"))

	assert.Empty(t, f.messages(t))
	assert.Equal(t, 100, f.profile(t).UsageCount)
	assert.Empty(t, f.usageLogs(t))
	assert.Zero(t, provider.Calls())
	require.Len(t, h.publisher.limits, 1)
	assert.Equal(t, constant.SubscriptionPlanFree, h.publisher.limits[0].plan)
}

func TestRelayProCeilingScenario(t *testing.T) {
	f := newFixture(t, constant.SubscriptionPlanPro, 999)
	h := newRelay(f.factory, llmtest.NewScriptedProvider(100, "uno", "dos"))

	turn, err := h.svc.Begin(context.Background(), f.userId, chatRequest(f, "última", false))
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, h.svc.Stream(context.Background(), turn, &stream.Recorder{}))
	assert.Equal(t, 1000, f.profile(t).UsageCount)

	_, err = h.svc.Begin(context.Background(), f.userId, chatRequest(f, "una más", false))
	var limitErr *dto.LimitExceededError
	assert.ErrorAs(t, err, &limitErr)
}

func TestRelayMidStreamFailureIsNotBilled(t *testing.T) {
	f := newFixture(t, constant.SubscriptionPlanFree, 5)
	provider := llmtest.Failing(errors.New("upstream 502"), "a", "b", "c")
	h := newRelay(f.factory, provider)
	sink := &stream.Recorder{}

	turn, err := h.svc.Begin(context.Background(), f.userId, chatRequest(f, "hola", false))
	require.NoError(t, err)
	outcome := h.svc.Stream(context.Background(), turn, sink)

	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, []string{"a", "b", "c"}, sink.Tokens)
	assert.Equal(t, constant.MessageStreamFailed, sink.Error)
	assert.Nil(t, sink.Usage)

	assert.Equal(t, []string{"user"}, rolesOf(f.messages(t)))
	assert.Equal(t, 5, f.profile(t).UsageCount)
	assert.Zero(t, f.session(t).CostCents)
	assert.Empty(t, f.usageLogs(t))
	assert.Empty(t, h.publisher.completed)
}

func TestRelayReadTimeoutSurfacesAsStreamError(t *testing.T) {
	f := newFixture(t, constant.SubscriptionPlanFree, 0)
	provider := llmtest.Failing(fmt.Errorf("%w after 30s", llm.ErrReadTimeout), "a")
	h := newRelay(f.factory, provider)
	sink := &stream.Recorder{}

	turn, err := h.svc.Begin(context.Background(), f.userId, chatRequest(f, "hola", false))
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, h.svc.Stream(context.Background(), turn, sink))
	assert.Equal(t, constant.MessageStreamFailed, sink.Error)
	assert.Equal(t, 0, f.profile(t).UsageCount)
}

// cancellingSink cancels the request context once it has forwarded n tokens.
type cancellingSink struct {
	*stream.Recorder
	n      int
	cancel context.CancelFunc
	once   sync.Once
}

func (s *cancellingSink) Token(text string) error {
	if err := s.Recorder.Token(text); err != nil {
		return err
	}
	if len(s.Recorder.Tokens) >= s.n {
		s.once.Do(s.cancel)
	}
	return nil
}

func TestRelayClientDisconnectAfterThreeOfTenFragments(t *testing.T) {
	f := newFixture(t, constant.SubscriptionPlanFree, 7)
	provider := llmtest.NewScriptedProvider(900, fragments(10)...)
	h := newRelay(f.factory, provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &cancellingSink{Recorder: &stream.Recorder{}, n: 3, cancel: cancel}

	turn, err := h.svc.Begin(ctx, f.userId, chatRequest(f, "hola", false))
	require.NoError(t, err)
	outcome := h.svc.Stream(ctx, turn, sink)

	assert.Equal(t, OutcomeCancelled, outcome)
	assert.Len(t, sink.Tokens, 3)
	assert.Nil(t, sink.Usage)
	assert.Empty(t, sink.Error, "nothing is written to a departed client")
	assert.Equal(t, 3, provider.Yielded())

	assert.Equal(t, []string{"user"}, rolesOf(f.messages(t)))
	assert.Equal(t, 7, f.profile(t).UsageCount)
	assert.Empty(t, f.usageLogs(t))
}

func TestRelayWriteFailureStopsConsumingModel(t *testing.T) {
	f := newFixture(t, constant.SubscriptionPlanFree, 0)
	provider := llmtest.NewScriptedProvider(900, fragments(10)...)
	h := newRelay(f.factory, provider)
	sink := &stream.Recorder{FailAfter: 3}

	turn, err := h.svc.Begin(context.Background(), f.userId, chatRequest(f, "hola", false))
	require.NoError(t, err)

	assert.Equal(t, OutcomeCancelled, h.svc.Stream(context.Background(), turn, sink))
	assert.True(t, provider.Released())
	assert.Equal(t, 4, provider.Yielded())
	assert.Equal(t, []string{"user"}, rolesOf(f.messages(t)))
	assert.Equal(t, 0, f.profile(t).UsageCount)
}

func TestRelayAssistantPersistenceFailureStillCompletes(t *testing.T) {
	f := newFixture(t, constant.SubscriptionPlanFree, 0)
	faulty := &faultyFactory{RepositoryFactory: f.factory, role: constant.ChatMessageRoleAssistant, failures: 1}
	h := newRelay(faulty, llmtest.NewScriptedProvider(500, "todo ", "entregado"))
	sink := &stream.Recorder{}

	turn, err := h.svc.Begin(context.Background(), f.userId, chatRequest(f, "hola", false))
	require.NoError(t, err)
	outcome := h.svc.Stream(context.Background(), turn, sink)

	assert.Equal(t, OutcomeCompleted, outcome)
	require.NotNil(t, sink.Usage, "delivered text still gets the success marker")
	assert.Equal(t, "todo entregado", sink.Text())

	require.Len(t, h.reconciler.pending, 1)
	pending := h.reconciler.pending[0]
	assert.False(t, pending.MessageSaved)
	assert.Equal(t, "todo entregado", pending.Content)
	assert.Equal(t, 500, pending.TotalTokens)

	assert.Equal(t, []string{"user"}, rolesOf(f.messages(t)))
	assert.Equal(t, 1, f.profile(t).UsageCount, "usage is booked independently of the transcript write")
}

func TestRelayUserTurnPersistenceFailureAbortsBeforeModel(t *testing.T) {
	f := newFixture(t, constant.SubscriptionPlanFree, 0)
	faulty := &faultyFactory{RepositoryFactory: f.factory, role: constant.ChatMessageRoleUser, failures: 1}
	provider := llmtest.NewScriptedProvider(10, "x")
	h := newRelay(faulty, provider)

	turn, err := h.svc.Begin(context.Background(), f.userId, chatRequest(f, "hola", false))

	assert.Nil(t, turn)
	assert.ErrorIs(t, err, dto.ErrPersistence)
	assert.Zero(t, provider.Calls())
	assert.Empty(t, f.messages(t))
}

func TestRelayOwnershipIsolation(t *testing.T) {
	owner := newFixture(t, constant.SubscriptionPlanFree, 0)
	h := newRelay(owner.factory, llmtest.NewScriptedProvider(10, "x"))

	intruder := uuid.New()
	_, errForeign := h.svc.Begin(context.Background(), intruder, chatRequest(owner, "hola", false))
	_, errMissing := h.svc.Begin(context.Background(), owner.userId, &dto.ChatStreamRequest{SessionId: uuid.New(), Message: "hola"})

	assert.ErrorIs(t, errForeign, dto.ErrSessionNotFound)
	assert.ErrorIs(t, errMissing, dto.ErrSessionNotFound)
	assert.Empty(t, owner.messages(t))
}

func TestRelayBeginFailures(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		f := newFixture(t, constant.SubscriptionPlanFree, 0)
		_, err := newRelay(f.factory, llmtest.NewScriptedProvider(0)).svc.Begin(context.Background(), uuid.Nil, chatRequest(f, "hola", false))
		assert.ErrorIs(t, err, dto.ErrUnauthenticated)
	})

	t.Run("unknown plan", func(t *testing.T) {
		f := newFixture(t, "enterprise", 0)
		_, err := newRelay(f.factory, llmtest.NewScriptedProvider(0)).svc.Begin(context.Background(), f.userId, chatRequest(f, "hola", false))
		assert.ErrorIs(t, err, dto.ErrPlanMisconfigured)
		assert.Empty(t, f.messages(t))
	})
}
