package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	obsadapter "github.com/fairyhunter13/sift/internal/adapter/observability"
	"github.com/fairyhunter13/sift/internal/domain"
	"github.com/fairyhunter13/sift/internal/observability"
)

// Handler runs one screening task.
type Handler func(ctx context.Context, task domain.ScreeningTask) error

// DeadLetterer keeps failed tasks for later inspection or replay.
type DeadLetterer interface {
	DeadLetter(ctx context.Context, task domain.ScreeningTask, code string, cause error) error
}

// fetcher is the part of *kgo.Client the consumer needs.
type fetcher interface {
	PollFetches(ctx context.Context) kgo.Fetches
	MarkCommitRecords(rs ...*kgo.Record)
	CommitMarkedOffsets(ctx context.Context) error
	Close()
}

// Consumer reads screening tasks from a consumer group.
type Consumer struct {
	client     fetcher
	handle     Handler
	deadLetter DeadLetterer
	poller     *AdaptivePoller
	workers    int
	topic      string
	groupID    string
}

// NewConsumer joins groupID on topic. At most workers tasks run at once.
func NewConsumer(brokers []string, groupID, topic string, workers int, h Handler) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: %w: no seed brokers provided", domain.ErrInvalidArgument)
	}
	if groupID == "" {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: %w: missing group id", domain.ErrInvalidArgument)
	}
	if h == nil {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: %w: nil handler", domain.ErrInvalidArgument)
	}
	if topic == "" {
		topic = DefaultTopic
	}

	admin, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: admin client: %w", err)
	}
	if err := createTopicIfNotExists(context.Background(), admin, topic, defaultPartitions, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist", slog.String("topic", topic), slog.Any("error", err))
	}
	admin.Close()

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.RequireStableFetchOffsets(),
		kgo.DisableAutoCommit(),
		kgo.SessionTimeout(30*time.Second),
		kgo.HeartbeatInterval(3*time.Second),
		kgo.FetchMaxWait(5*time.Second),
		kgo.FetchMaxBytes(10*1024*1024),
		kotelHooks(),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: %w", err)
	}
	slog.Info("redpanda consumer created",
		slog.String("group_id", groupID),
		slog.String("topic", topic),
		slog.Int("workers", workers))
	return newConsumer(client, groupID, topic, workers, h), nil
}

func newConsumer(client fetcher, groupID, topic string, workers int, h Handler) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		client:  client,
		handle:  h,
		poller:  NewAdaptivePoller(250*time.Millisecond, 10*time.Second),
		workers: workers,
		topic:   topic,
		groupID: groupID,
	}
}

// WithDeadLetter routes failed tasks to d.
func (c *Consumer) WithDeadLetter(d DeadLetterer) *Consumer {
	c.deadLetter = d
	return c
}

// Start polls until ctx ends. Each fetched batch is handled by the worker pool
// and its offsets are committed once every record in it has been handled.
func (c *Consumer) Start(ctx context.Context) error {
	slog.Info("starting redpanda consumer", slog.String("group_id", c.groupID), slog.String("topic", c.topic))
	for {
		fetches := c.client.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			break
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				slog.Error("fetch error",
					slog.String("topic", fe.Topic),
					slog.Int("partition", int(fe.Partition)),
					slog.Any("error", fe.Err))
			}
			c.poller.RecordFailure()
			if !sleep(ctx, c.poller.NextInterval()) {
				break
			}
			continue
		}
		c.poller.RecordSuccess()

		records := fetches.Records()
		if len(records) == 0 {
			continue
		}
		c.processBatch(ctx, records)
		c.client.MarkCommitRecords(records...)
		if err := c.client.CommitMarkedOffsets(ctx); err != nil {
			slog.Error("commit offsets failed", slog.Any("error", err))
		}
	}
	slog.Info("redpanda consumer stopping", slog.String("group_id", c.groupID))
	return ctx.Err()
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}

func (c *Consumer) processBatch(ctx context.Context, records []*kgo.Record) {
	var g errgroup.Group
	g.SetLimit(c.workers)
	for _, rec := range records {
		g.Go(func() error {
			c.processRecord(ctx, rec)
			return nil
		})
	}
	_ = g.Wait()
}

// processRecord decodes and handles one record. Failures are logged and
// dead-lettered; they never stop the consumer.
func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) {
	ctx, span := otel.Tracer("queue.consumer").Start(ctx, "ProcessScreeningTask")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.destination", record.Topic),
		attribute.Int64("messaging.kafka.offset", record.Offset),
	)

	var task domain.ScreeningTask
	if err := json.Unmarshal(record.Value, &task); err != nil {
		slog.Error("failed to unmarshal screening task",
			slog.Int64("offset", record.Offset),
			slog.Int("partition", int(record.Partition)),
			slog.Any("error", err))
		span.SetStatus(codes.Error, "invalid payload")
		obsadapter.TasksFinishedTotal.WithLabelValues("invalid").Inc()
		return
	}

	if task.RequestID != "" {
		ctx = observability.ContextWithRequestID(ctx, task.RequestID)
	}
	lg := observability.LoggerFromContext(ctx).With(
		slog.String("screening_id", task.ScreeningID),
		slog.String("job_id", task.JobID),
	)
	if task.RequestID != "" {
		lg = lg.With(slog.String("request_id", task.RequestID))
	}
	ctx = observability.ContextWithLogger(ctx, lg)
	span.SetAttributes(attribute.String("screening.id", task.ScreeningID))

	obsadapter.StartProcessingTask()
	err := c.handle(ctx, task)
	if err == nil {
		obsadapter.FinishTask("completed")
		lg.Info("screening task completed")
		return
	}

	code := failureCode(err)
	obsadapter.FinishTask("failed")
	span.RecordError(err)
	span.SetStatus(codes.Error, code)
	lg.Error("screening task failed", slog.String("failure_code", code), slog.Any("error", err))

	if c.deadLetter == nil || !deadLetterWorthy(code) {
		return
	}
	if dlErr := c.deadLetter.DeadLetter(ctx, task, code, err); dlErr != nil {
		lg.Error("dead-letter publish failed", slog.Any("error", dlErr))
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
