package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agent-catalog-be/internal/dto"
	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/pkg/conversation"
	"agent-catalog-be/pkg/database"
	"agent-catalog-be/pkg/ledger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IReconcileService replays the bookkeeping of turns that were delivered but not fully
// recorded. Both replayed writes are keyed by message id, so replays never double count.
type IReconcileService interface {
	ITurnReconciler
	Consume(ctx context.Context) error
}

type reconcileService struct {
	pubSub       *gochannel.GoChannel
	topicName    string
	conversation *conversation.Store
	ledger       *ledger.Ledger
	maxAttempts  int
	backoff      time.Duration
	logger       logger.ILogger
}

func NewReconcileService(
	pubSub *gochannel.GoChannel,
	topicName string,
	conversationStore *conversation.Store,
	usageLedger *ledger.Ledger,
	maxAttempts int,
	backoff time.Duration,
	log logger.ILogger,
) IReconcileService {
	return &reconcileService{
		pubSub:       pubSub,
		topicName:    topicName,
		conversation: conversationStore,
		ledger:       usageLedger,
		maxAttempts:  maxAttempts,
		backoff:      backoff,
		logger:       log,
	}
}

func (rs *reconcileService) Enqueue(ctx context.Context, payload dto.ReconcileTurnMessage) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal reconcile message: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("message_id", payload.MessageId.String())
	if err := rs.pubSub.Publish(rs.topicName, msg); err != nil {
		return fmt.Errorf("publish reconcile message: %w", err)
	}
	rs.logger.Warn("RECONCILE", "Turn queued for reconciliation", map[string]interface{}{
		"message_id":    payload.MessageId.String(),
		"message_saved": payload.MessageSaved,
		"attempt":       payload.Attempt,
	})
	return nil
}

func (rs *reconcileService) Consume(ctx context.Context) error {
	messages, err := rs.pubSub.Subscribe(ctx, rs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			rs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (rs *reconcileService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ReconcileTurnMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		rs.logger.Error("RECONCILE", "Dropping undecodable message", map[string]interface{}{"uuid": msg.UUID, "error": err.Error()})
		msg.Ack()
		return
	}

	err := rs.apply(ctx, payload)
	msg.Ack()
	if err == nil {
		return
	}

	next := payload
	next.Attempt++
	if next.Attempt >= rs.maxAttempts || database.IsPermanent(err) {
		rs.logger.Error("RECONCILE", "Giving up on turn, manual repair required", map[string]interface{}{
			"message_id":   payload.MessageId.String(),
			"session_id":   payload.SessionId.String(),
			"user_id":      payload.UserId.String(),
			"total_tokens": payload.TotalTokens,
			"content":      payload.Content,
			"attempts":     next.Attempt,
			"error":        err.Error(),
		})
		return
	}

	rs.logger.Warn("RECONCILE", "Retry scheduled", map[string]interface{}{
		"message_id": payload.MessageId.String(),
		"attempt":    next.Attempt,
		"error":      err.Error(),
	})
	time.AfterFunc(rs.backoff*time.Duration(next.Attempt), func() {
		if ctx.Err() != nil {
			return
		}
		if err := rs.Enqueue(ctx, next); err != nil {
			rs.logger.Error("RECONCILE", "Failed to requeue turn", map[string]interface{}{"message_id": next.MessageId.String(), "error": err.Error()})
		}
	})
}

func (rs *reconcileService) apply(ctx context.Context, payload dto.ReconcileTurnMessage) error {
	created, err := rs.conversation.AppendAssistantTurn(ctx, conversation.AssistantTurn{
		Id:             payload.MessageId,
		SessionId:      payload.SessionId,
		Content:        payload.Content,
		TokensUsed:     payload.TotalTokens,
		ResponseTimeMs: payload.ResponseTimeMs,
		CreatedAt:      payload.CompletedAt,
	})
	if err != nil {
		return err
	}

	result, err := rs.ledger.Record(ctx, ledger.Entry{
		MessageId:      payload.MessageId,
		UserId:         payload.UserId,
		SessionId:      payload.SessionId,
		TotalTokens:    payload.TotalTokens,
		IsFirstMessage: payload.IsFirstMessage,
	})
	if err != nil {
		return err
	}

	rs.logger.Info("RECONCILE", "Turn reconciled", map[string]interface{}{
		"message_id":      payload.MessageId.String(),
		"message_created": created,
		"usage_applied":   result.Applied,
	})
	return nil
}
