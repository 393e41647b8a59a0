package videos

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Deleter removes a remote media object by public id.
type Deleter interface {
	Delete(ctx context.Context, publicID string) error
}

// JanitorConfig controls the concurrency characteristics of the janitor.
type JanitorConfig struct {
	QueueSize int
	Workers   int
	// Timeout bounds each remote delete.
	Timeout time.Duration
}

// Janitor deletes remote media after the database no longer references it. Deletes
// are best effort: a failure is logged and the object is left behind.
type Janitor struct {
	store  Deleter
	logger *slog.Logger
	cfg    JanitorConfig

	jobs   chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewJanitor starts cfg.Workers goroutines draining the delete queue.
func NewJanitor(store Deleter, cfg JanitorConfig, logger *slog.Logger) *Janitor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &Janitor{
		store:  store,
		logger: logger,
		cfg:    cfg,
		jobs:   make(chan string, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	j.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go j.worker()
	}
	return j
}

// Enqueue schedules deletion of every non-empty public id. It blocks while the queue
// is full until ctx is done.
func (j *Janitor) Enqueue(ctx context.Context, publicIDs ...string) error {
	for _, id := range publicIDs {
		if id == "" {
			continue
		}
		if err := j.enqueue(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (j *Janitor) enqueue(ctx context.Context, id string) (err error) {
	defer func() {
		// Shutdown closed the channel between the closed check and the send.
		if recover() != nil {
			err = ErrJanitorClosed
		}
	}()

	select {
	case <-j.ctx.Done():
		return ErrJanitorClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-j.ctx.Done():
		return ErrJanitorClosed
	case j.jobs <- id:
		return nil
	}
}

// Shutdown stops accepting work and waits for queued deletes to finish.
func (j *Janitor) Shutdown(ctx context.Context) error {
	j.once.Do(func() {
		j.cancel()
		close(j.jobs)
	})

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (j *Janitor) worker() {
	defer j.wg.Done()
	for id := range j.jobs {
		j.delete(id)
	}
}

func (j *Janitor) delete(id string) {
	if j.store == nil {
		j.logger.Error("media janitor missing storage", "publicId", id)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.Timeout)
	defer cancel()

	if err := j.store.Delete(ctx, id); err != nil {
		j.logger.Warn("delete remote media", "publicId", id, "error", err)
		return
	}
	j.logger.Debug("deleted remote media", "publicId", id)
}
