package queue

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/socialdesk/internal/service"
)

const (
	TaskTypeDispatchPost = "dispatch:post"
	QueueName            = "default"
)

type DispatchPostPayload struct {
	PostID int64 `json:"post_id"`
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type taskDeleter interface {
	DeleteTask(queue, id string) error
}

// Queue schedules post dispatch as delayed asynq tasks and handles them.
type Queue struct {
	client    enqueuer
	inspector taskDeleter
	publisher service.Publisher
}

func NewQueue(client *asynq.Client, inspector *asynq.Inspector, publisher service.Publisher) *Queue {
	return &Queue{
		client:    client,
		inspector: inspector,
		publisher: publisher,
	}
}
