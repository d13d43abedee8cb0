package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

func TaskID(postID int64) string {
	return fmt.Sprintf("post:%d", postID)
}

// Schedule enqueues the dispatch of postID at the given time, replacing a
// task already queued for the same post.
func (q *Queue) Schedule(ctx context.Context, postID int64, at time.Time) error {
	payload, err := json.Marshal(DispatchPostPayload{PostID: postID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeDispatchPost, payload)
	opts := []asynq.Option{
		asynq.TaskID(TaskID(postID)),
		asynq.ProcessAt(at),
		asynq.Queue(QueueName),
		asynq.MaxRetry(0),
	}

	_, err = q.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		if err := q.Unschedule(ctx, postID); err != nil {
			return err
		}
		_, err = q.client.EnqueueContext(ctx, task, opts...)
	}
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("enqueue post %d: %w", postID, err)
	}

	slog.Info("post scheduled", "post_id", postID, "at", at)
	return nil
}

// Unschedule deletes the queued dispatch of postID. A missing task is not an
// error.
func (q *Queue) Unschedule(_ context.Context, postID int64) error {
	err := q.inspector.DeleteTask(QueueName, TaskID(postID))
	if err != nil && !errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
		slog.Info(err.Error())
		return fmt.Errorf("delete task for post %d: %w", postID, err)
	}
	return nil
}
