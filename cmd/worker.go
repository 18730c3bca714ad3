package cmd

import (
	"roster-desk/pkg/queue"
	"roster-desk/pkg/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ReconcileWorker runs payment reconciliation tasks off the queue.
type ReconcileWorker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *zap.Logger
}

func NewReconcileWorker(config utils.RedisConfig, reconciler queue.Reconciler, logger *zap.Logger) *ReconcileWorker {
	return &ReconcileWorker{
		server: queue.NewServer(config, logger),
		mux:    queue.NewServeMux(reconciler, logger),
		log:    logger.With(zap.String("component", "reconcile_worker")),
	}
}

// Start begins processing in the background.
func (w *ReconcileWorker) Start() error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	w.log.Info("Reconcile worker started")
	return nil
}

func (w *ReconcileWorker) Shutdown() {
	w.server.Shutdown()
	w.log.Info("Reconcile worker stopped")
}
