// Package redpanda provides Redpanda/Kafka queue integration.
//
// The producer publishes screening tasks; the consumer runs them on a bounded
// set of workers and commits offsets only after a fetched batch is handled.
// Tasks that fail are copied to a dead-letter topic.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/sift/internal/adapter/observability"
	"github.com/fairyhunter13/sift/internal/domain"
)

const (
	// DefaultTopic carries screening tasks.
	DefaultTopic = "screening-tasks"
	// DeadLetterSuffix is appended to the task topic for failed tasks.
	DeadLetterSuffix = ".dlq"

	defaultPartitions = 8
)

// recordProducer is the part of *kgo.Client the producer needs.
type recordProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Ping(ctx context.Context) error
	Close()
}

// Producer implements domain.Queue on a Kafka topic.
type Producer struct {
	client recordProducer
	topic  string
}

// kotelHooks instruments a client with OpenTelemetry tracing.
func kotelHooks() kgo.Opt {
	k := kotel.NewKotel(kotel.WithTracer(kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))))
	return kgo.WithHooks(k.Hooks()...)
}

// NewProducer connects to brokers and makes sure topic and its dead-letter
// topic exist.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.NewProducer: %w: no seed brokers provided", domain.ErrInvalidArgument)
	}
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1_000_000),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kotelHooks(),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewProducer: %w", err)
	}
	ctx := context.Background()
	for _, t := range []string{topic, topic + DeadLetterSuffix} {
		if err := createTopicIfNotExists(ctx, client, t, defaultPartitions, 1); err != nil {
			slog.Warn("failed to create topic, it may already exist", slog.String("topic", t), slog.Any("error", err))
		}
	}
	slog.Info("redpanda producer created", slog.Any("brokers", brokers), slog.String("topic", topic))
	return &Producer{client: client, topic: topic}, nil
}

// Topic returns the task topic.
func (p *Producer) Topic() string { return p.topic }

// EnqueueScreening publishes task keyed by its screening id and returns that id.
func (p *Producer) EnqueueScreening(ctx domain.Context, task domain.ScreeningTask) (string, error) {
	if task.ScreeningID == "" || task.JobID == "" {
		return "", fmt.Errorf("op=redpanda.EnqueueScreening: %w: screening and job ids required", domain.ErrInvalidArgument)
	}
	rec, err := taskRecord(p.topic, task)
	if err != nil {
		return "", fmt.Errorf("op=redpanda.EnqueueScreening: %w", err)
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return "", fmt.Errorf("op=redpanda.EnqueueScreening: produce: %w", err)
	}
	observability.EnqueueTask()
	slog.Info("screening task enqueued",
		slog.String("screening_id", task.ScreeningID),
		slog.String("job_id", task.JobID),
		slog.String("topic", p.topic))
	return task.ScreeningID, nil
}

// DeadLetter copies a failed task to the dead-letter topic with the failure
// code and cause as headers.
func (p *Producer) DeadLetter(ctx context.Context, task domain.ScreeningTask, code string, cause error) error {
	rec, err := taskRecord(p.topic+DeadLetterSuffix, task)
	if err != nil {
		return fmt.Errorf("op=redpanda.DeadLetter: %w", err)
	}
	rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: "failure_code", Value: []byte(code)})
	if cause != nil {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: "error", Value: []byte(cause.Error())})
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("op=redpanda.DeadLetter: produce: %w", err)
	}
	return nil
}

// Ping checks broker connectivity for readiness checks.
func (p *Producer) Ping(ctx context.Context) error { return p.client.Ping(ctx) }

// Close flushes and closes the client.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}

func taskRecord(topic string, task domain.ScreeningTask) (*kgo.Record, error) {
	b, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	headers := []kgo.RecordHeader{
		{Key: "screening_id", Value: []byte(task.ScreeningID)},
		{Key: "job_id", Value: []byte(task.JobID)},
	}
	if task.RequestID != "" {
		headers = append(headers, kgo.RecordHeader{Key: "request_id", Value: []byte(task.RequestID)})
	}
	return &kgo.Record{
		Topic:   topic,
		Key:     []byte(task.ScreeningID),
		Value:   b,
		Headers: headers,
	}, nil
}
