package task

import (
	"encoding/json"
	"errors"
	"time"

	"smallbiznis-trustescrow/pkg/taskname"

	"github.com/hibiken/asynq"
)

type RecalculatePayload struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

// NewTrustRecalculate builds a trust recalculation task. Duplicate tasks for
// the same user are dropped by asynq while one is pending.
func NewTrustRecalculate(userID, reason string) (*asynq.Task, error) {
	if userID == "" {
		return nil, errors.New("task: user id required")
	}
	b, err := json.Marshal(RecalculatePayload{UserID: userID, Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.TrustRecalculate, b,
		asynq.Queue(QueueTrust),
		asynq.MaxRetry(5),
		asynq.Unique(30*time.Second),
	), nil
}

func DecodeRecalculate(t *asynq.Task) (RecalculatePayload, error) {
	var p RecalculatePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, err
	}
	if p.UserID == "" {
		return p, errors.New("task: user id required")
	}
	return p, nil
}
