package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aluiziolira/books-scrape-api/models"
)

var (
	// ErrPipelineClosed is returned when Persist is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrPipelineCloseTimeout is returned when the writer does not drain in time.
	ErrPipelineCloseTimeout = errors.New("pipeline: close timed out")
)

var drainTimeout = 30 * time.Second

// Writer persists one stamped batch. Implementations need not be safe for
// concurrent use; Pipeline only ever calls Write from its single worker.
type Writer interface {
	Write(ctx context.Context, books []*models.Book, sourceURL string) Outcome
	Close() error
}

type job struct {
	ctx       context.Context
	books     []*models.Book
	sourceURL string
	reply     chan result
}

type result struct {
	outcome Outcome
	err     error
}

// Pipeline serialises persistence. Concurrent scrape requests enqueue their
// batches and a single worker appends them in arrival order, so no two
// batches ever interleave inside the cumulative store.
type Pipeline struct {
	writer Writer
	jobs   chan job

	wg sync.WaitGroup

	metrics metrics

	mu      sync.Mutex // guards closed/started
	closed  bool
	started bool

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline whose queue holds up to queueSize batches.
func NewPipeline(writer Writer, queueSize int) *Pipeline {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Pipeline{
		writer:   writer,
		jobs:     make(chan job, queueSize),
		shutdown: make(chan struct{}),
	}
}

// Start launches the writer goroutine. Calling it twice is a no-op.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.started {
		return
	}
	p.started = true
	p.wg.Add(1)
	go p.worker()
}

// Persist queues books for writing and waits for the outcome. An empty
// batch is a no-op. The returned error is non-nil only when the batch never
// reached the writer; write failures are reported through Outcome.
func (p *Pipeline) Persist(ctx context.Context, books []*models.Book, sourceURL string) (Outcome, error) {
	if len(books) == 0 {
		return Outcome{}, nil
	}
	if p.isClosed() {
		return Outcome{}, ErrPipelineClosed
	}

	reply := make(chan result, 1)
	if err := p.enqueue(ctx, job{ctx: ctx, books: books, sourceURL: sourceURL, reply: reply}); err != nil {
		return Outcome{}, err
	}

	select {
	case res := <-reply:
		return res.outcome, res.err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Close stops accepting batches, drains the queue and closes the writer.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.jobs)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		return ErrPipelineCloseTimeout
	}

	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	for j := range p.jobs {
		if err := j.ctx.Err(); err != nil {
			p.metrics.addAbandoned()
			j.reply <- result{err: err}
			continue
		}
		out := p.writer.Write(j.ctx, j.books, j.sourceURL)
		p.metrics.record(len(j.books), out)
		j.reply <- result{outcome: out}
	}
}

func (p *Pipeline) enqueue(ctx context.Context, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- j:
		return nil
	}
}

func (p *Pipeline) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu        sync.Mutex
	batches   int64
	books     int64
	failed    int64
	abandoned int64
	mirror    int64
}

func (m *metrics) record(books int, out Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	if out.Saved {
		m.books += int64(books)
	} else {
		m.failed++
	}
	m.mirror += int64(out.MirrorFailures)
}

func (m *metrics) addAbandoned() {
	m.mu.Lock()
	m.abandoned++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]interface{}{
		"batches":           m.batches,
		"persisted_books":   m.books,
		"failed_batches":    m.failed,
		"abandoned_batches": m.abandoned,
		"mirror_failures":   m.mirror,
	}
}
