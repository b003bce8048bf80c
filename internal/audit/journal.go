package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultJournalCapacity is how many recent events a journal keeps in memory.
const DefaultJournalCapacity = 100_000

// Journal is the ordered in-memory event log. It keeps a window of the most
// recent events; every appended event is also handed to the auditor, and the
// durable sinks behind it hold the full history.
type Journal struct {
	mu       sync.RWMutex
	events   []Event // oldest first, at most capacity long
	seq      uint64
	capacity int
	auditor  Auditor
	now      func() time.Time
}

// NewJournal creates a journal. auditor may be nil.
func NewJournal(auditor Auditor) *Journal {
	return &Journal{auditor: auditor, capacity: DefaultJournalCapacity, now: time.Now}
}

// WithCapacity sets the in-memory window. n <= 0 keeps the default.
func (j *Journal) WithCapacity(n int) *Journal {
	if n > 0 {
		j.capacity = n
	}
	return j
}

// Append stamps the event with the next sequence number, stores it and returns the stored copy.
func (j *Journal) Append(e Event) Event {
	j.mu.Lock()
	j.seq++
	e.Seq = j.seq
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = j.now().UTC()
	}
	e.Attrs = cloneAttrs(e.Attrs)
	j.events = append(j.events, e)
	if len(j.events) > j.capacity {
		// append reallocates with only the live window, so memory stays bounded
		j.events[0] = Event{}
		j.events = j.events[1:]
	}
	j.mu.Unlock()

	if j.auditor != nil {
		j.auditor.Log(e)
	}
	return e
}

// Events returns up to limit events with Seq > since, oldest first. limit <= 0
// means no limit. Events that fell out of the window are not returned.
func (j *Journal) Events(since uint64, limit int) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()

	// Seq has no gaps, so the window covers (seq-len, seq].
	dropped := j.seq - uint64(len(j.events))
	var start int
	if since > dropped {
		start = int(min(since-dropped, uint64(len(j.events))))
	}
	tail := j.events[start:]
	if limit > 0 && len(tail) > limit {
		tail = tail[:limit]
	}

	out := make([]Event, len(tail))
	for i, e := range tail {
		e.Attrs = cloneAttrs(e.Attrs)
		out[i] = e
	}
	return out
}

// LastSeq is the sequence number of the newest event, 0 when empty.
func (j *Journal) LastSeq() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.seq
}

func cloneAttrs(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
