package queue

import (
	"context"
	"errors"
	"fmt"

	"roster-desk/pkg/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func redisOpt(config utils.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.QueueDB,
	}
}

type Client struct {
	client *asynq.Client
	log    *zap.Logger
}

func NewClient(config utils.RedisConfig, log *zap.Logger) *Client {
	return &Client{
		client: asynq.NewClient(redisOpt(config)),
		log:    log.With(zap.String("queue", "client")),
	}
}

// EnqueueReconcile schedules reconciliation of an intent. A task already
// pending for the same intent and source is not an error.
func (c *Client) EnqueueReconcile(ctx context.Context, payload ReconcilePayload) error {
	task, opts, err := NewReconcileTask(payload)
	if err != nil {
		return fmt.Errorf("build reconcile task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			c.log.Debug("Reconcile task already queued", zap.String("intent_id", payload.IntentID))
			return nil
		}
		c.log.Error("Failed to enqueue reconcile task",
			zap.Error(err),
			zap.String("intent_id", payload.IntentID),
		)
		return fmt.Errorf("enqueue reconcile %s: %w", payload.IntentID, err)
	}

	c.log.Info("Reconcile task enqueued",
		zap.String("task_id", info.ID),
		zap.String("intent_id", payload.IntentID),
		zap.String("source", payload.Source),
	)
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
