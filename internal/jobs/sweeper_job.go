package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/socialdesk/internal/models"
	"github.com/maheshrc27/socialdesk/internal/repository"
	"github.com/maheshrc27/socialdesk/internal/service"
)

// SweeperJob dispatches scheduled posts whose queued task never ran, for
// example because it was lost while the queue was down.
type SweeperJob struct {
	pr        repository.PostRepository
	publisher service.Publisher
	grace     time.Duration
	limit     int
	now       func() time.Time
}

func NewSweeperJob(pr repository.PostRepository, publisher service.Publisher, grace time.Duration) *SweeperJob {
	return &SweeperJob{
		pr:        pr,
		publisher: publisher,
		grace:     grace,
		limit:     10,
		now:       time.Now,
	}
}

func (j *SweeperJob) DispatchOverdue() {
	ctx := context.Background()

	posts, err := j.pr.ListDue(ctx, j.now().Add(-j.grace))
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if len(posts) == 0 {
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, j.limit)

	for _, post := range posts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(post *models.Post) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if _, err := j.publisher.Dispatch(ctx, post.ID); err != nil {
				slog.Error("dispatch overdue post", "post_id", post.ID, "error", err)
			}
		}(post)
	}

	wg.Wait()
	slog.Info("overdue posts swept", "count", len(posts))
}
