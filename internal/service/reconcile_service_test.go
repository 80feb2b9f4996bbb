package service

import (
	"context"
	"testing"
	"time"

	"agent-catalog-be/internal/constant"
	"agent-catalog-be/internal/dto"
	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/internal/repository/unitofwork"
	"agent-catalog-be/pkg/conversation"
	"agent-catalog-be/pkg/ledger"
	"agent-catalog-be/pkg/llm/llmtest"
	"agent-catalog-be/pkg/stream"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReconciler(t *testing.T, factory unitofwork.RepositoryFactory, maxAttempts int, log logger.ILogger) IReconcileService {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	svc := NewReconcileService(pubSub, "test.reconcile", conversation.NewStore(factory), ledger.NewLedger(factory, 0.002), maxAttempts, 5*time.Millisecond, log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, svc.Consume(ctx))
	return svc
}

func pendingTurn(f fixture) dto.ReconcileTurnMessage {
	return dto.ReconcileTurnMessage{
		MessageId:      uuid.New(),
		SessionId:      f.sessionId,
		UserId:         f.userId,
		Content:        "respuesta entregada",
		TotalTokens:    1000,
		ResponseTimeMs: 1200,
		MessageSaved:   false,
	}
}

func TestReconcileStoresMissingTurn(t *testing.T) {
	f := newFixture(t, constant.SubscriptionPlanFree, 3)
	svc := newReconciler(t, f.factory, 3, logger.NewNopLogger())

	require.NoError(t, svc.Enqueue(context.Background(), pendingTurn(f)))

	assert.Eventually(t, func() bool {
		return len(f.messages(t)) == 1 && f.profile(t).UsageCount == 4
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "respuesta entregada", f.messages(t)[0].Content)
	assert.Equal(t, 2, f.session(t).CostCents)
}

func TestReconcileDoesNotDoubleCountBookedTurn(t *testing.T) {
	f := newFixture(t, constant.SubscriptionPlanFree, 3)
	turn := pendingTurn(f)

	// The ledger already booked the turn; only the transcript write was lost.
	_, err := ledger.NewLedger(f.factory, 0.002).Record(context.Background(), ledger.Entry{
		MessageId: turn.MessageId, UserId: f.userId, SessionId: f.sessionId, TotalTokens: turn.TotalTokens,
	})
	require.NoError(t, err)

	svc := newReconciler(t, f.factory, 3, logger.NewNopLogger())
	require.NoError(t, svc.Enqueue(context.Background(), turn))
	require.NoError(t, svc.Enqueue(context.Background(), turn))

	assert.Eventually(t, func() bool { return len(f.messages(t)) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 4, f.profile(t).UsageCount)
	assert.Len(t, f.usageLogs(t), 1)
}

func TestReconcileRetriesUntilStorageRecovers(t *testing.T) {
	f := newFixture(t, constant.SubscriptionPlanFree, 0)
	faulty := &faultyFactory{RepositoryFactory: f.factory, role: constant.ChatMessageRoleAssistant, failures: 2}
	svc := newReconciler(t, faulty, 5, logger.NewNopLogger())

	require.NoError(t, svc.Enqueue(context.Background(), pendingTurn(f)))

	assert.Eventually(t, func() bool {
		return len(f.messages(t)) == 1 && f.profile(t).UsageCount == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReconcileGivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t, constant.SubscriptionPlanFree, 0)
	faulty := &faultyFactory{RepositoryFactory: f.factory, role: constant.ChatMessageRoleAssistant, failures: -1}
	log := newCaptureLogger()
	svc := newReconciler(t, faulty, 2, log)

	require.NoError(t, svc.Enqueue(context.Background(), pendingTurn(f)))

	assert.Eventually(t, func() bool {
		for _, msg := range log.Errors() {
			if msg == "Giving up on turn, manual repair required" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, f.messages(t))
	assert.Equal(t, 0, f.profile(t).UsageCount)
}

func TestReconciledTurnKeepsItsPlaceInTranscript(t *testing.T) {
	f := newFixture(t, constant.SubscriptionPlanFree, 0)
	faulty := &faultyFactory{RepositoryFactory: f.factory, role: constant.ChatMessageRoleAssistant, failures: 1}
	h := newRelay(faulty, llmtest.NewScriptedProvider(10, "uno"))

	first, err := h.svc.Begin(context.Background(), f.userId, chatRequest(f, "primera", false))
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, h.svc.Stream(context.Background(), first, &stream.Recorder{}))
	require.Len(t, h.reconciler.pending, 1)
	pending := h.reconciler.pending[0]
	assert.False(t, pending.CompletedAt.IsZero())

	// The user keeps chatting before the lost reply is repaired.
	time.Sleep(2 * time.Millisecond)
	second, err := h.svc.Begin(context.Background(), f.userId, chatRequest(f, "segunda", false))
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, h.svc.Stream(context.Background(), second, &stream.Recorder{}))

	svc := newReconciler(t, f.factory, 3, logger.NewNopLogger())
	require.NoError(t, svc.Enqueue(context.Background(), pending))
	assert.Eventually(t, func() bool { return len(f.messages(t)) == 4 }, 2*time.Second, 10*time.Millisecond)

	messages := f.messages(t)
	assert.Equal(t, []string{"user", "assistant", "user", "assistant"}, rolesOf(messages))
	assert.Equal(t, "primera", messages[0].Content)
	assert.Equal(t, pending.MessageId, messages[1].Id)
	assert.True(t, messages[1].CreatedAt.Equal(pending.CompletedAt))
	assert.Equal(t, "segunda", messages[2].Content)
}
