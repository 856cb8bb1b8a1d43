package audit

import (
	"context"
	"errors"
	"slotwise/cmd/internal/domain/entity"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAppender struct {
	mu       sync.Mutex
	failures int
	calls    int
	entries  []*entity.AuditLog
	block    chan struct{}
}

func (f *fakeAppender) Append(_ context.Context, entry *entity.AuditLog) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("database is locked")
	}
	copied := *entry
	f.entries = append(f.entries, &copied)
	return nil
}

func fastOptions() Options {
	return Options{Buffer: 4, Attempts: 3, Delay: time.Millisecond, WriteTimeout: time.Second}
}

func TestSink_WritesAndDrainsOnClose(t *testing.T) {
	repo := &fakeAppender{}
	sink := NewSink(repo, fastOptions())

	sink.Record(entity.ActionNoShowPrediction, 3, map[string]float64{"prediction": 0.25})
	sink.Record(entity.ActionRoleChange, 4, nil)
	require.NoError(t, sink.Close(context.Background()))

	require.Len(t, repo.entries, 2)
	assert.Equal(t, 3, repo.entries[0].SubjectID)
	assert.JSONEq(t, `{"prediction":0.25}`, string(repo.entries[0].Payload))
	assert.Nil(t, repo.entries[1].Payload)
}

func TestSink_RetriesTransientFailures(t *testing.T) {
	repo := &fakeAppender{failures: 2}
	sink := NewSink(repo, fastOptions())

	sink.Record(entity.ActionNoShowPrediction, 1, nil)
	require.NoError(t, sink.Close(context.Background()))

	assert.Equal(t, 3, repo.calls)
	assert.Len(t, repo.entries, 1)
}

func TestSink_GivesUpWithoutPanicking(t *testing.T) {
	repo := &fakeAppender{failures: 10}
	sink := NewSink(repo, fastOptions())

	sink.Record(entity.ActionNoShowPrediction, 1, nil)
	require.NoError(t, sink.Close(context.Background()))

	assert.Equal(t, 3, repo.calls)
	assert.Empty(t, repo.entries)
}

func TestSink_DropsWhenFullOrClosed(t *testing.T) {
	repo := &fakeAppender{block: make(chan struct{})}
	opts := fastOptions()
	opts.Buffer = 1
	sink := NewSink(repo, opts)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// One entry is taken by the blocked worker, one fills the buffer,
		// the rest must not block.
		for i := 0; i < 10; i++ {
			sink.Record(entity.ActionNoShowPrediction, i, nil)
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(repo.block)
	require.NoError(t, sink.Close(context.Background()))
	assert.LessOrEqual(t, len(repo.entries), 2)

	assert.NotPanics(t, func() { sink.Record(entity.ActionNoShowPrediction, 99, nil) })
	assert.NoError(t, sink.Close(context.Background()))
}

func TestSink_UnencodablePayloadIsDropped(t *testing.T) {
	repo := &fakeAppender{}
	sink := NewSink(repo, fastOptions())

	sink.Record(entity.ActionNoShowPrediction, 1, func() {})
	require.NoError(t, sink.Close(context.Background()))
	assert.Empty(t, repo.entries)
}
