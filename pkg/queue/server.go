package queue

import (
	"context"

	"roster-desk/pkg/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Reconciler applies a confirmed payment to its booking. It reports whether
// this call performed the reconciliation.
type Reconciler interface {
	ReconcileIntent(ctx context.Context, intentID, source string) (bool, error)
}

func NewServer(config utils.RedisConfig, log *zap.Logger) *asynq.Server {
	return asynq.NewServer(
		redisOpt(config),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				QueuePayments: 6,
				"default":     1,
			},
			Logger: log.Sugar(),
		},
	)
}

func NewServeMux(reconciler Reconciler, log *zap.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReconcilePayment, HandleReconcileTask(reconciler, log))
	return mux
}

func HandleReconcileTask(reconciler Reconciler, log *zap.Logger) asynq.HandlerFunc {
	log = log.With(zap.String("task", TypeReconcilePayment))

	return func(ctx context.Context, task *asynq.Task) error {
		p, err := ParseReconcileTask(task)
		if err != nil {
			log.Error("Invalid reconcile payload", zap.Error(err))
			return err
		}

		applied, err := reconciler.ReconcileIntent(ctx, p.IntentID, p.Source)
		if err != nil {
			log.Warn("Reconcile failed, will retry",
				zap.Error(err),
				zap.String("intent_id", p.IntentID),
			)
			return err
		}

		log.Info("Reconcile task done",
			zap.String("intent_id", p.IntentID),
			zap.String("source", p.Source),
			zap.Bool("applied", applied),
		)
		return nil
	}
}
