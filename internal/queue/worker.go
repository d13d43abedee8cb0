package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/socialdesk/internal/service"
)

func (q *Queue) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeDispatchPost, q.HandleDispatchPostTask)
	return mux
}

// HandleDispatchPostTask publishes the post named in the task. Failures are
// recorded on the post and never retried.
func (q *Queue) HandleDispatchPostTask(ctx context.Context, task *asynq.Task) error {
	var payload DispatchPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	post, err := q.publisher.Dispatch(ctx, payload.PostID)
	if errors.Is(err, service.ErrPostNotFound) {
		slog.Info("dispatch for removed post", "post_id", payload.PostID)
		return nil
	}
	if err != nil {
		slog.Error("dispatch post", "post_id", payload.PostID, "error", err)
		return fmt.Errorf("dispatch post %d: %v: %w", payload.PostID, err, asynq.SkipRetry)
	}

	slog.Info("dispatch finished", "post_id", post.ID, "status", post.Status)
	return nil
}
