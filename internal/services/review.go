package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gostore-shop/apiserver/types"
	"go.uber.org/zap"
)

// Task kinds published after review mutations.
const (
	TaskReviewCreated = "review.created"
	TaskReviewDeleted = "review.deleted"
)

const publishTimeout = 5 * time.Second

// Task is the background-task payload submitted to the queue after a
// review mutation. Delivery is at-least-once with no ordering
// guarantee; no result is consumed.
type Task struct {
	Kind      string `json:"kind"`
	ReviewID  int    `json:"review_id"`
	ProductID int    `json:"product_id"`
}

// TaskQueue is the submit side of the background-task queue.
type TaskQueue interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// ReviewRepository defines persistence operations for reviews. Create
// and SoftDelete keep the product rating consistent transactionally.
type ReviewRepository interface {
	List(ctx context.Context) ([]types.Review, error)
	Create(ctx context.Context, review types.Review) (types.Review, error)
	SoftDelete(ctx context.Context, id int) (productID int, err error)
}

// ReviewService encapsulates review use-cases and submits the
// fire-and-forget background task after each mutation.
type ReviewService struct {
	repo    ReviewRepository
	tasks   TaskQueue
	channel string
	logger  *zap.Logger
}

func NewReviewService(repo ReviewRepository, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{repo: repo, logger: logger}
}

// WithTaskQueue attaches the queue used for background-task submission.
func (s *ReviewService) WithTaskQueue(tasks TaskQueue, channel string) *ReviewService {
	s.tasks = tasks
	s.channel = channel
	return s
}

func (s *ReviewService) List(ctx context.Context) ([]types.Review, error) {
	return s.repo.List(ctx)
}

// Create inserts a review; the repository recomputes the product
// rating in the same transaction. On success a background task is
// submitted; publish failures are logged, never surfaced.
func (s *ReviewService) Create(ctx context.Context, review types.Review) (types.Review, error) {
	created, err := s.repo.Create(ctx, review)
	if err != nil {
		return types.Review{}, err
	}
	s.submitTask(Task{Kind: TaskReviewCreated, ReviewID: created.ID, ProductID: created.ProductID})
	return created, nil
}

// Delete soft-deletes a review; the repository recomputes the affected
// product's rating in the same transaction.
func (s *ReviewService) Delete(ctx context.Context, id int) error {
	productID, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	s.submitTask(Task{Kind: TaskReviewDeleted, ReviewID: id, ProductID: productID})
	return nil
}

func (s *ReviewService) submitTask(task Task) {
	if s.tasks == nil {
		return
	}

	data, err := json.Marshal(task)
	if err != nil {
		s.logger.Error("marshal task", zap.Error(err))
		return
	}

	// Publishing is detached from the request: the mutation has
	// already committed and must not fail on broker trouble.
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	id, err := s.tasks.Publish(ctx, s.channel, data, map[string]string{"kind": task.Kind})
	if err != nil {
		s.logger.Warn("publish task",
			zap.String("kind", task.Kind),
			zap.Int("review_id", task.ReviewID),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("task published", zap.String("kind", task.Kind), zap.String("message_id", id))
}
