package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeReconcilePayment = "payment:reconcile"
	QueuePayments        = "payments"
)

// ReconcilePayload names a provider payment whose confirmation should be
// reflected on the booking roster.
type ReconcilePayload struct {
	IntentID  string `json:"intent_id"`
	BookingID string `json:"booking_id,omitempty"`
	Source    string `json:"source"` // charge, webhook, invoice
}

func NewReconcileTask(payload ReconcilePayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}

	task := asynq.NewTask(TypeReconcilePayment, b)
	opts := []asynq.Option{
		asynq.Queue(QueuePayments),
		asynq.MaxRetry(8),
		asynq.Timeout(30 * time.Second),
		// one pending task per intent and source
		asynq.TaskID(fmt.Sprintf("reconcile:%s:%s", payload.Source, payload.IntentID)),
		asynq.Retention(24 * time.Hour),
	}

	return task, opts, nil
}

func ParseReconcileTask(task *asynq.Task) (ReconcilePayload, error) {
	var p ReconcilePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", TypeReconcilePayment, err)
	}
	if p.IntentID == "" {
		return p, fmt.Errorf("%s payload missing intent id", TypeReconcilePayment)
	}
	return p, nil
}
