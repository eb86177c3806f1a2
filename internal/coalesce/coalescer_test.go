package coalesce

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type write struct {
	docID string
	field Field
	value string
}

type recorder struct {
	mu     sync.Mutex
	writes []write
	err    error
	block  chan struct{} // when non-nil, writes wait here
}

func (r *recorder) writeFunc(docID string, field Field, value string) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, write{docID, field, value})
	return r.err
}

func (r *recorder) snapshot() []write {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]write(nil), r.writes...)
}

func newTestCoalescer(rec *recorder, opts ...Option) *Coalescer {
	base := []Option{
		WithWindow(FieldTitle, 20 * time.Millisecond),
		WithWindow(FieldContent, 40 * time.Millisecond),
	}
	return New(rec.writeFunc, append(base, opts...)...)
}

func TestRapidEditsCoalesceToOneWrite(t *testing.T) {
	rec := &recorder{}
	c := newTestCoalescer(rec)

	c.Edit("doc1", FieldTitle, "A")
	time.Sleep(5 * time.Millisecond)
	c.Edit("doc1", FieldTitle, "B")
	time.Sleep(5 * time.Millisecond)
	c.Edit("doc1", FieldTitle, "C")

	time.Sleep(100 * time.Millisecond)

	writes := rec.snapshot()
	require.Len(t, writes, 1, "exactly one write per quiet period")
	assert.Equal(t, write{"doc1", FieldTitle, "C"}, writes[0])
}

func TestDistinctFieldsFlushIndependently(t *testing.T) {
	rec := &recorder{}
	c := newTestCoalescer(rec)

	c.Edit("doc1", FieldTitle, "new title")
	c.Edit("doc1", FieldContent, "new body")

	time.Sleep(120 * time.Millisecond)

	writes := rec.snapshot()
	require.Len(t, writes, 2)
	// Title's shorter window flushes first.
	assert.Equal(t, FieldTitle, writes[0].field)
	assert.Equal(t, FieldContent, writes[1].field)
}

func TestEditDuringInFlightWriteIsDeferred(t *testing.T) {
	rec := &recorder{block: make(chan struct{})}
	c := newTestCoalescer(rec)

	c.Edit("doc1", FieldTitle, "first")

	// Wait for the window to expire and the write to start blocking.
	time.Sleep(40 * time.Millisecond)
	c.Edit("doc1", FieldTitle, "second")

	// No second write may start while the first is in flight.
	assert.Empty(t, rec.snapshot())

	close(rec.block)
	time.Sleep(60 * time.Millisecond)

	writes := rec.snapshot()
	require.Len(t, writes, 2, "deferred edit flushes after the in-flight write completes")
	assert.Equal(t, "first", writes[0].value)
	assert.Equal(t, "second", writes[1].value)
}

func TestFlushFailureReportedOnceAndDoesNotRetry(t *testing.T) {
	rec := &recorder{err: errors.New("store down")}
	var mu sync.Mutex
	var failures []write
	c := newTestCoalescer(rec, WithErrorHandler(func(docID string, field Field, value string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, write{docID, field, value})
	}))

	c.Edit("doc1", FieldTitle, "doomed")
	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	require.Len(t, failures, 1)
	assert.Equal(t, write{"doc1", FieldTitle, "doomed"}, failures[0])
	mu.Unlock()
	assert.Len(t, rec.snapshot(), 1, "no automatic retry")

	// A subsequent edit schedules a fresh attempt.
	rec.mu.Lock()
	rec.err = nil
	rec.mu.Unlock()
	c.Edit("doc1", FieldTitle, "recovered")
	time.Sleep(80 * time.Millisecond)

	writes := rec.snapshot()
	require.Len(t, writes, 2)
	assert.Equal(t, "recovered", writes[1].value)
}

func TestFlushWritesPendingEditsSynchronously(t *testing.T) {
	rec := &recorder{}
	c := newTestCoalescer(rec)

	c.Edit("doc1", FieldTitle, "pending")
	c.Edit("doc2", FieldTitle, "other doc")
	c.Flush("doc1")

	writes := rec.snapshot()
	require.Len(t, writes, 1, "flush targets a single document")
	assert.Equal(t, write{"doc1", FieldTitle, "pending"}, writes[0])

	time.Sleep(60 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 2, "the other document still flushes on its own timer")
}

func TestCloseDrainsAllKeysAndRejectsNewEdits(t *testing.T) {
	rec := &recorder{}
	c := newTestCoalescer(rec)

	c.Edit("doc1", FieldTitle, "t")
	c.Edit("doc1", FieldContent, "c")
	c.Edit("doc2", FieldContent, "d")

	c.Close()
	assert.Len(t, rec.snapshot(), 3)

	c.Edit("doc3", FieldTitle, "too late")
	time.Sleep(60 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 3, "edits after Close are dropped")
}
