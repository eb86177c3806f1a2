// Package coalesce buffers high-frequency field edits and turns them into a
// minimal ordered sequence of durable writes. Edits are keyed by
// (document, field); each key flushes once per trailing quiet period and
// never has more than one write in flight.
package coalesce

import (
	"sync"
	"time"
)

// Field names a coalesced document field.
type Field string

const (
	FieldTitle   Field = "title"
	FieldContent Field = "content"
)

const (
	DefaultTitleWindow   = 500 * time.Millisecond
	DefaultContentWindow = time.Second
)

// WriteFunc performs the durable write for one key.
type WriteFunc func(docID string, field Field, value string) error

// ErrorFunc is told once about a failed flush. There is no automatic retry;
// the next edit on the key schedules a fresh attempt.
type ErrorFunc func(docID string, field Field, value string, err error)

type key struct {
	docID string
	field Field
}

type entry struct {
	timer    *time.Timer
	value    string
	dirty    bool
	inFlight bool
}

type Coalescer struct {
	mu      sync.Mutex
	cond    *sync.Cond
	write   WriteFunc
	onError ErrorFunc
	windows map[Field]time.Duration
	pending map[key]*entry
	closed  bool
}

type Option func(*Coalescer)

// WithWindow overrides the quiet period for a field.
func WithWindow(field Field, window time.Duration) Option {
	return func(c *Coalescer) { c.windows[field] = window }
}

// WithErrorHandler installs the flush-failure callback.
func WithErrorHandler(fn ErrorFunc) Option {
	return func(c *Coalescer) { c.onError = fn }
}

func New(write WriteFunc, opts ...Option) *Coalescer {
	c := &Coalescer{
		write: write,
		windows: map[Field]time.Duration{
			FieldTitle:   DefaultTitleWindow,
			FieldContent: DefaultContentWindow,
		},
		pending: make(map[key]*entry),
	}
	c.cond = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Edit records the latest value for (docID, field) and restarts the key's
// quiet-period timer. An edit arriving while a write for the key is in
// flight is picked up when that write completes.
func (c *Coalescer) Edit(docID string, field Field, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	k := key{docID: docID, field: field}
	e := c.pending[k]
	if e == nil {
		e = &entry{}
		c.pending[k] = e
	}
	e.value = value
	e.dirty = true

	if e.inFlight {
		return
	}
	window := c.window(field)
	if e.timer == nil {
		e.timer = time.AfterFunc(window, func() { c.fire(k) })
	} else {
		e.timer.Reset(window)
	}
}

// Flush synchronously writes every pending field of docID, bypassing the
// quiet period. Used when a session closes so edits inside the window are
// not lost.
func (c *Coalescer) Flush(docID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range c.keysLocked(docID) {
		c.flushKeyLocked(k)
	}
}

// Close drains all pending writes and rejects further edits.
func (c *Coalescer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for {
		keys := c.keysLocked("")
		if len(keys) == 0 {
			return
		}
		for _, k := range keys {
			c.flushKeyLocked(k)
		}
	}
}

func (c *Coalescer) window(field Field) time.Duration {
	if w, ok := c.windows[field]; ok {
		return w
	}
	return DefaultContentWindow
}

// fire runs when a key's timer expires.
func (c *Coalescer) fire(k key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.pending[k]
	if e == nil || e.inFlight {
		// An in-flight write picks the edit up on completion.
		return
	}
	c.drainLocked(k, e)
}

// drainLocked writes the latest value for k until no further edits are
// pending, then drops the entry. The lock is released around each durable
// write; edits arriving meanwhile mark the entry dirty again and are written
// in order, one in-flight write at a time.
func (c *Coalescer) drainLocked(k key, e *entry) {
	for e.dirty {
		e.dirty = false
		e.inFlight = true
		value := e.value

		c.mu.Unlock()
		err := c.write(k.docID, k.field, value)
		c.mu.Lock()

		e.inFlight = false
		c.cond.Broadcast()

		if err != nil && c.onError != nil {
			c.mu.Unlock()
			c.onError(k.docID, k.field, value, err)
			c.mu.Lock()
		}
	}
	if c.pending[k] == e {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(c.pending, k)
	}
}

// flushKeyLocked drains one key, waiting out any write already in flight.
func (c *Coalescer) flushKeyLocked(k key) {
	for {
		e := c.pending[k]
		if e == nil {
			return
		}
		if e.timer != nil {
			e.timer.Stop()
		}
		if e.inFlight {
			c.cond.Wait()
			continue
		}
		c.drainLocked(k, e)
		return
	}
}

func (c *Coalescer) keysLocked(docID string) []key {
	var keys []key
	for k := range c.pending {
		if docID == "" || k.docID == docID {
			keys = append(keys, k)
		}
	}
	return keys
}
