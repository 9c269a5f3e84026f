package task

import (
	"context"
	"errors"
	"testing"

	"smallbiznis-trustescrow/pkg/taskname"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestTrustRecalculateTask(t *testing.T) {
	tk, err := NewTrustRecalculate("u1", "escrow_completed")
	require.NoError(t, err)
	require.Equal(t, taskname.TrustRecalculate, tk.Type())

	p, err := DecodeRecalculate(tk)
	require.NoError(t, err)
	require.Equal(t, "u1", p.UserID)
	require.Equal(t, "escrow_completed", p.Reason)
}

func TestTrustRecalculateRequiresUser(t *testing.T) {
	_, err := NewTrustRecalculate("", "")
	require.Error(t, err)

	_, err = DecodeRecalculate(asynq.NewTask(taskname.TrustRecalculate, []byte(`{}`)))
	require.Error(t, err)
}

type stubQueue struct {
	err   error
	tasks []*asynq.Task
}

func (q *stubQueue) EnqueueContext(_ context.Context, t *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, t)
	if q.err != nil {
		return nil, q.err
	}
	return &asynq.TaskInfo{Queue: QueueTrust, Type: t.Type()}, nil
}

func TestEnqueueTreatsDuplicateAsPending(t *testing.T) {
	tk, err := NewTrustRecalculate("u1", "completed")
	require.NoError(t, err)

	q := &stubQueue{}
	info, err := (&enqueuerImpl{client: q}).Enqueue(context.Background(), tk)
	require.NoError(t, err)
	require.Equal(t, QueueTrust, info.Queue)

	q.err = asynq.ErrDuplicateTask
	info, err = (&enqueuerImpl{client: q}).Enqueue(context.Background(), tk)
	require.NoError(t, err)
	require.Nil(t, info)

	q.err = errors.New("redis down")
	_, err = (&enqueuerImpl{client: q}).Enqueue(context.Background(), tk)
	require.ErrorContains(t, err, "trust:recalculate")
	require.Len(t, q.tasks, 3)
}
