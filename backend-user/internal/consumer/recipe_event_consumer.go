package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/D-Tasker207/gazpacho-backend/pkg/dto"
	"github.com/D-Tasker207/gazpacho-backend/pkg/kafka"
	"github.com/D-Tasker207/gazpacho-backend/pkg/logger"
	"github.com/D-Tasker207/gazpacho-backend/pkg/retry"
	"go.uber.org/zap"
)

// RecordSource is the part of a kafka consumer the event loop needs
type RecordSource interface {
	Poll(ctx context.Context) ([]*kafka.Record, error)
	CommitRecords(ctx context.Context, records []*kafka.Record) error
	Rewind(records []*kafka.Record)
	Close()
}

// RecipeRemover drops a deleted recipe from every saved list
type RecipeRemover interface {
	RemoveRecipeEverywhere(ctx context.Context, recipeID int64) (int64, error)
}

// RecipeEventConsumerConfig holds configuration for RecipeEventConsumer
type RecipeEventConsumerConfig struct {
	Source      RecordSource
	Remover     RecipeRemover
	DLQ         *retry.DLQHandler
	Logger      *logger.Logger
	PollBackoff time.Duration
}

// RecipeEventConsumer keeps saved lists in step with recipe deletions
type RecipeEventConsumer struct {
	source      RecordSource
	remover     RecipeRemover
	dlq         *retry.DLQHandler
	log         *logger.Logger
	pollBackoff time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
}

// NewRecipeEventConsumer creates a new RecipeEventConsumer
func NewRecipeEventConsumer(cfg *RecipeEventConsumerConfig) *RecipeEventConsumer {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	dlq := cfg.DLQ
	if dlq == nil {
		dlq = retry.NewDLQHandler(retry.DefaultConfig(), nil, "user-service")
	}
	backoff := cfg.PollBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	return &RecipeEventConsumer{
		source:      cfg.Source,
		remover:     cfg.Remover,
		dlq:         dlq,
		log:         log,
		pollBackoff: backoff,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start polls until ctx ends or Stop is called
func (c *RecipeEventConsumer) Start(ctx context.Context) {
	defer close(c.doneCh)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	c.log.Info("Recipe event consumer started")
	for {
		records, err := c.source.Poll(ctx)
		if ctx.Err() != nil {
			c.log.Info("Recipe event consumer stopped")
			return
		}
		if err != nil {
			c.log.Error("Failed to poll recipe events", zap.Error(err))
			select {
			case <-time.After(c.pollBackoff):
			case <-ctx.Done():
				return
			}
			continue
		}

		done, failed := c.processBatch(ctx, records)
		if len(done) > 0 {
			if err := c.source.CommitRecords(ctx, done); err != nil {
				c.log.Error("Failed to commit recipe events", zap.Error(err))
			}
		}
		if len(failed) > 0 {
			c.source.Rewind(failed)
			select {
			case <-time.After(c.pollBackoff):
			case <-ctx.Done():
				return
			}
		}
	}
}

type topicPartition struct {
	topic     string
	partition int32
}

// processBatch handles records in order. The first failure in a partition
// stops that partition for this batch; other partitions carry on.
// done may be committed, failed holds the record each stopped partition
// must resume from.
func (c *RecipeEventConsumer) processBatch(ctx context.Context, records []*kafka.Record) (done, failed []*kafka.Record) {
	stopped := make(map[topicPartition]bool)
	for _, record := range records {
		tp := topicPartition{record.Topic, record.Partition}
		if stopped[tp] {
			continue
		}
		if !c.processRecord(ctx, record) {
			stopped[tp] = true
			failed = append(failed, record)
			continue
		}
		done = append(done, record)
	}
	return done, failed
}

// Stop ends the poll loop and closes the source
func (c *RecipeEventConsumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		<-c.doneCh
		c.source.Close()
	})
}

// processRecord handles one record and reports whether its offset may be committed
func (c *RecipeEventConsumer) processRecord(ctx context.Context, record *kafka.Record) bool {
	var event dto.RecipeEvent
	if err := json.Unmarshal(record.Value, &event); err != nil {
		c.log.Warn("Skipping malformed recipe event",
			zap.Int64("offset", record.Offset), zap.Error(err))
		return true
	}
	if event.EventType != dto.RecipeEventDeleted {
		return true
	}
	if event.RecipeID <= 0 {
		c.log.Warn("Skipping recipe.deleted event without recipe id", zap.Int64("offset", record.Offset))
		return true
	}

	var removed int64
	err := c.dlq.Process(ctx, record.Topic, strconv.FormatInt(event.RecipeID, 10), record.Value, func(ctx context.Context) error {
		n, err := c.remover.RemoveRecipeEverywhere(ctx, event.RecipeID)
		removed = n
		return err
	})

	var dead *retry.DeadLetteredError
	switch {
	case err == nil:
		c.log.Info(fmt.Sprintf("Removed recipe %d from %d saved lists", event.RecipeID, removed))
		return true
	case errors.As(err, &dead):
		c.log.Error("Recipe event moved to DLQ",
			zap.Int64("recipe_id", event.RecipeID), zap.Error(dead.Err))
		return true
	default:
		c.log.Error("Failed to process recipe event",
			zap.Int64("recipe_id", event.RecipeID), zap.Error(err))
		return false
	}
}
