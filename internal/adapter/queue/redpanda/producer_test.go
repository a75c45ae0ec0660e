package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/sift/internal/domain"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		f.records = append(f.records, r)
		out = append(out, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return out
}

func (f *fakeProducer) Ping(context.Context) error { return f.err }
func (f *fakeProducer) Close()                     { f.closed = true }

func header(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestProducer_EnqueueScreening(t *testing.T) {
	fp := &fakeProducer{}
	p := &Producer{client: fp, topic: "tasks"}
	task := domain.ScreeningTask{ScreeningID: "s-1", JobID: "j-1", ResumeName: "a.pdf", ResumeText: "Jane", RequestID: "req-9"}

	id, err := p.EnqueueScreening(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, "s-1", id)
	require.Len(t, fp.records, 1)

	rec := fp.records[0]
	assert.Equal(t, "tasks", rec.Topic)
	assert.Equal(t, "s-1", string(rec.Key))
	assert.Equal(t, "j-1", header(rec, "job_id"))
	assert.Equal(t, "req-9", header(rec, "request_id"))

	var got domain.ScreeningTask
	require.NoError(t, json.Unmarshal(rec.Value, &got))
	assert.Equal(t, task, got)
}

func TestProducer_EnqueueScreeningErrors(t *testing.T) {
	p := &Producer{client: &fakeProducer{}, topic: "tasks"}
	_, err := p.EnqueueScreening(context.Background(), domain.ScreeningTask{JobID: "j"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	boom := errors.New("broker down")
	p = &Producer{client: &fakeProducer{err: boom}, topic: "tasks"}
	_, err = p.EnqueueScreening(context.Background(), domain.ScreeningTask{ScreeningID: "s", JobID: "j"})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "op=redpanda.EnqueueScreening")
}

func TestProducer_DeadLetter(t *testing.T) {
	fp := &fakeProducer{}
	p := &Producer{client: fp, topic: "tasks"}
	err := p.DeadLetter(context.Background(), domain.ScreeningTask{ScreeningID: "s", JobID: "j"}, "INTERNAL", errors.New("db gone"))
	require.NoError(t, err)
	require.Len(t, fp.records, 1)
	assert.Equal(t, "tasks.dlq", fp.records[0].Topic)
	assert.Equal(t, "INTERNAL", header(fp.records[0], "failure_code"))
	assert.Equal(t, "db gone", header(fp.records[0], "error"))
}

func TestProducer_PingAndClose(t *testing.T) {
	fp := &fakeProducer{}
	p := &Producer{client: fp, topic: "tasks"}
	require.NoError(t, p.Ping(context.Background()))
	require.NoError(t, p.Close())
	assert.True(t, fp.closed)
	assert.Equal(t, "tasks", p.Topic())
}

func TestNewProducer_Validation(t *testing.T) {
	_, err := NewProducer(nil, "tasks")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}
