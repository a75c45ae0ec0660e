package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/sift/internal/domain"
)

// fakeFetcher replays scripted fetches, then cancels the consumer context.
type fakeFetcher struct {
	mu      sync.Mutex
	script  []kgo.Fetches
	cancel  context.CancelFunc
	marked  []*kgo.Record
	commits int
	closed  bool
}

func (f *fakeFetcher) PollFetches(context.Context) kgo.Fetches {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.script) == 0 {
		f.cancel()
		return kgo.Fetches{}
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next
}

func (f *fakeFetcher) MarkCommitRecords(rs ...*kgo.Record) {
	f.mu.Lock()
	f.marked = append(f.marked, rs...)
	f.mu.Unlock()
}

func (f *fakeFetcher) CommitMarkedOffsets(context.Context) error {
	f.mu.Lock()
	f.commits++
	f.mu.Unlock()
	return nil
}

func (f *fakeFetcher) Close() { f.closed = true }

func fetchOf(recs ...*kgo.Record) kgo.Fetches {
	return kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic:      "tasks",
		Partitions: []kgo.FetchPartition{{Partition: 0, Records: recs}},
	}}}}
}

func fetchErr(err error) kgo.Fetches {
	return kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic:      "tasks",
		Partitions: []kgo.FetchPartition{{Partition: 0, Err: err}},
	}}}}
}

func taskRec(t *testing.T, offset int64, task domain.ScreeningTask) *kgo.Record {
	t.Helper()
	b, err := json.Marshal(task)
	require.NoError(t, err)
	return &kgo.Record{Topic: "tasks", Offset: offset, Key: []byte(task.ScreeningID), Value: b}
}

type recordingDLQ struct {
	mu    sync.Mutex
	codes map[string]string
}

func (d *recordingDLQ) DeadLetter(_ context.Context, task domain.ScreeningTask, code string, _ error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.codes == nil {
		d.codes = map[string]string{}
	}
	d.codes[task.ScreeningID] = code
	return nil
}

func TestConsumer_HandlesBatchThenCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen []string
	)
	h := func(_ context.Context, task domain.ScreeningTask) error {
		mu.Lock()
		seen = append(seen, task.ScreeningID)
		mu.Unlock()
		return nil
	}
	r1 := taskRec(t, 1, domain.ScreeningTask{ScreeningID: "a", JobID: "j"})
	r2 := taskRec(t, 2, domain.ScreeningTask{ScreeningID: "b", JobID: "j"})
	ff := &fakeFetcher{script: []kgo.Fetches{fetchOf(r1, r2)}, cancel: cancel}

	err := newConsumer(ff, "g", "tasks", 2, h).Start(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.ElementsMatch(t, []string{"a", "b"}, seen)
	assert.ElementsMatch(t, []*kgo.Record{r1, r2}, ff.marked)
	assert.Equal(t, 1, ff.commits)
}

func TestConsumer_FailedTasksAreDeadLettered(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := func(_ context.Context, task domain.ScreeningTask) error {
		switch task.ScreeningID {
		case "dup":
			return fmt.Errorf("finish: %w", domain.ErrConflict)
		case "slow":
			return domain.NewUpstreamError("stub", domain.ErrUpstreamTimeout)
		}
		return nil
	}
	bad := &kgo.Record{Topic: "tasks", Offset: 3, Value: []byte("{not json")}
	ff := &fakeFetcher{cancel: cancel, script: []kgo.Fetches{fetchOf(
		taskRec(t, 1, domain.ScreeningTask{ScreeningID: "dup", JobID: "j"}),
		taskRec(t, 2, domain.ScreeningTask{ScreeningID: "slow", JobID: "j"}),
		bad,
	)}}
	dlq := &recordingDLQ{}

	_ = newConsumer(ff, "g", "tasks", 1, h).WithDeadLetter(dlq).Start(ctx)
	assert.Equal(t, map[string]string{"slow": "UPSTREAM_TIMEOUT"}, dlq.codes)
	assert.Len(t, ff.marked, 3, "failed and malformed records are still committed")
}

func TestConsumer_FetchErrorsBackOff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	h := func(context.Context, domain.ScreeningTask) error { calls++; return nil }
	ff := &fakeFetcher{cancel: cancel, script: []kgo.Fetches{
		fetchErr(errors.New("leader not available")),
		fetchOf(taskRec(t, 1, domain.ScreeningTask{ScreeningID: "a", JobID: "j"})),
	}}
	c := newConsumer(ff, "g", "tasks", 1, h)
	c.poller = NewAdaptivePoller(time.Millisecond, 5*time.Millisecond)

	_ = c.Start(ctx)
	assert.Equal(t, 1, calls)
	assert.Zero(t, c.poller.ConsecutiveFailures())
}

func TestConsumer_Close(t *testing.T) {
	ff := &fakeFetcher{}
	require.NoError(t, newConsumer(ff, "g", "tasks", 0, func(context.Context, domain.ScreeningTask) error { return nil }).Close())
	assert.True(t, ff.closed)
}

func TestNewConsumer_Validation(t *testing.T) {
	h := func(context.Context, domain.ScreeningTask) error { return nil }
	_, err := NewConsumer(nil, "g", "t", 1, h)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = NewConsumer([]string{"localhost:9092"}, "", "t", 1, h)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = NewConsumer([]string{"localhost:9092"}, "g", "t", 1, nil)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}
