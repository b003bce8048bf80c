package audit

/*
AgentFS is the asynchronous audit trail writer.

- Log never blocks the caller: events go through a buffered channel and are
  dropped (with an error log) when the buffer is full.
- A single worker batches events and flushes them to storage either on a
  timer or when the batch is full.
- Stop closes the channel and waits for the worker to drain it, so a graceful
  shutdown loses nothing that was accepted.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StorageInterface is where batches physically end up.
type StorageInterface interface {
	WriteBatch(ctx context.Context, events []Event) error
}

type Auditor interface {
	Log(event Event)
}

// Options tune the writer. Zero values fall back to defaults.
type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	// OnFill receives the current buffer length after each accepted event.
	OnFill func(n int)
}

type AgentFS struct {
	ch       chan Event
	repo     StorageInterface
	logger   *zap.Logger
	opts     Options
	wg       sync.WaitGroup
	isClosed int32
	dropped  atomic.Int64
}

func NewAgentFS(repo StorageInterface, logger *zap.Logger, opts Options) *AgentFS {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 10000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 500 * time.Millisecond
	}
	return &AgentFS{
		ch:     make(chan Event, opts.BufferSize),
		repo:   repo,
		logger: logger.With(zap.String("mod", "agentfs")),
		opts:   opts,
	}
}

func (fs *AgentFS) Start() {
	fs.wg.Add(1)
	go fs.worker()
}

// Stop closes the input and waits until the worker flushed everything.
func (fs *AgentFS) Stop() {
	if !atomic.CompareAndSwapInt32(&fs.isClosed, 0, 1) {
		return
	}

	// let in-flight Log calls pass the closed check
	time.Sleep(10 * time.Millisecond)

	fs.logger.Info("stopping auditor: closing channel and flushing buffer...")
	close(fs.ch)
	fs.wg.Wait()
	fs.logger.Info("auditor stopped gracefully", zap.Int64("dropped", fs.dropped.Load()))
}

func (fs *AgentFS) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	if atomic.LoadInt32(&fs.isClosed) == 1 {
		fs.logger.Warn("audit event dropped: auditor is stopping", zap.String("id", event.ID))
		fs.dropped.Add(1)
		return
	}

	// load shedding: never block the vault
	select {
	case fs.ch <- event:
		if fs.opts.OnFill != nil {
			fs.opts.OnFill(len(fs.ch))
		}
	default:
		fs.dropped.Add(1)
		fs.logger.Error("audit_buffer_overflow",
			zap.String("kind", string(event.Kind)),
			zap.String("agent", event.Agent),
			zap.String("trace_id", event.TraceID),
		)
	}
}

// Dropped is the number of events lost to overflow or shutdown.
func (fs *AgentFS) Dropped() int64 {
	return fs.dropped.Load()
}

func (fs *AgentFS) worker() {
	defer fs.wg.Done()

	batch := make([]Event, 0, fs.opts.BatchSize)
	ticker := time.NewTicker(fs.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: the serving context may already be cancelled on shutdown
		if err := fs.repo.WriteBatch(context.Background(), batch); err != nil {
			fs.logger.Error("audit flush failed", zap.Int("size", len(batch)), zap.Error(err))
		}
		batch = make([]Event, 0, fs.opts.BatchSize)
		if fs.opts.OnFill != nil {
			fs.opts.OnFill(len(fs.ch))
		}
	}

	for {
		select {
		case event, ok := <-fs.ch:
			if !ok {
				// closed by Stop after everything queued was read
				flush()
				fs.logger.Info("audit worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= fs.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
