package scheduler

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/vidq/internal/downloaders/bilibili"
	"github.com/tanq16/vidq/internal/downloaders/m3u8"
	"github.com/tanq16/vidq/internal/events"
	"github.com/tanq16/vidq/internal/utils"
)

// Repository persists task status transitions.
type Repository interface {
	ChangeStatus(ctx context.Context, id string, status utils.DownloadStatus) error
}

// Settings is the part of the configuration store the scheduler reads.
type Settings interface {
	MaxRunner() int
	OnMaxRunnerChange(fn func(int)) (cancel func())
	ProxySettings() (proxy string, useProxy bool)
}

// NewRegistry maps each download type to its downloader, resolving binaries
// from binDir first.
func NewRegistry(binDir string) map[utils.DownloadType]utils.Downloader {
	return map[utils.DownloadType]utils.Downloader{
		utils.TypeBilibili: &bilibili.BilibiliDownloader{BinDir: binDir},
		utils.TypeM3U8:     &m3u8.M3U8Downloader{BinDir: binDir},
	}
}

// Scheduler runs at most limit tasks at once and starts pending tasks in
// submission order. All queue state is guarded by mu; executors run on their
// own goroutines.
type Scheduler struct {
	mu      sync.Mutex
	pending []utils.Task
	active  []string
	tokens  map[string]context.CancelFunc
	limit   int

	registry map[utils.DownloadType]utils.Downloader
	repo     Repository
	settings Settings
	bus      events.Publisher

	running     sync.WaitGroup
	unsubscribe func()
}

func New(repo Repository, settings Settings, bus events.Publisher, registry map[utils.DownloadType]utils.Downloader) *Scheduler {
	s := &Scheduler{
		tokens:   make(map[string]context.CancelFunc),
		limit:    settings.MaxRunner(),
		registry: registry,
		repo:     repo,
		settings: settings,
		bus:      bus,
	}
	s.unsubscribe = settings.OnMaxRunnerChange(s.SetLimit)
	return s
}

// Close stops following configuration changes. Running tasks are untouched.
func (s *Scheduler) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Submit queues task and starts it if a slot is free. A task without an ID
// gets a generated one, which is returned. A task whose ID is already queued
// or running is ignored.
func (s *Scheduler) Submit(task utils.Task) string {
	if task.ID == "" {
		task.ID = utils.NewTaskID()
	}
	s.mu.Lock()
	if s.knownLocked(task.ID) {
		s.mu.Unlock()
		log.Warn().Str("op", "scheduler/Submit").Msgf("Task %s is already queued or running", task.ID)
		return task.ID
	}
	s.running.Add(1)
	s.pending = append(s.pending, task)
	s.mu.Unlock()
	log.Debug().Str("op", "scheduler/Submit").Msgf("Queued task %s (%s)", task.ID, task.Params.Type)
	s.admit()
	return task.ID
}

// RequestStop cancels the running task id. Unknown ids and tasks that are
// still pending are ignored.
func (s *Scheduler) RequestStop(id string) {
	s.mu.Lock()
	cancel, ok := s.tokens[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	log.Info().Str("op", "scheduler/RequestStop").Msgf("Stopping task %s", id)
	cancel()
}

// StopAll cancels every running task, live ones included.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.tokens))
	for _, cancel := range s.tokens {
		cancels = append(cancels, cancel)
	}
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// SetLimit changes the concurrency limit. Non-positive values are ignored and
// active tasks are never preempted; a higher limit takes effect at the next
// admission.
func (s *Scheduler) SetLimit(limit int) {
	if limit <= 0 {
		return
	}
	s.mu.Lock()
	s.limit = limit
	s.mu.Unlock()
	log.Debug().Str("op", "scheduler/SetLimit").Msgf("Concurrency limit set to %d", limit)
}

func (s *Scheduler) Limit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit
}

// Active returns the ids holding a slot, in admission order.
func (s *Scheduler) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.active)
}

// Pending returns the queued tasks, head first.
func (s *Scheduler) Pending() []utils.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pending)
}

// Wait blocks until every submitted task has finished or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) knownLocked(id string) bool {
	if _, ok := s.tokens[id]; ok {
		return true
	}
	if slices.Contains(s.active, id) {
		return true
	}
	return slices.ContainsFunc(s.pending, func(t utils.Task) bool { return t.ID == id })
}

func (s *Scheduler) admit() {
	s.mu.Lock()
	var started []utils.Task
	for len(s.active) < s.limit && len(s.pending) > 0 {
		task := s.pending[0]
		s.pending = s.pending[1:]
		s.active = append(s.active, task.ID)
		started = append(started, task)
	}
	s.mu.Unlock()
	for _, task := range started {
		go s.execute(task)
	}
}

// onTaskFinished frees the slot of id if it still holds one and admits more
// work. It is safe to call more than once for the same id.
func (s *Scheduler) onTaskFinished(id string) {
	s.mu.Lock()
	if i := slices.Index(s.active, id); i >= 0 {
		s.active = slices.Delete(s.active, i, i+1)
	}
	free := len(s.active) < s.limit
	s.mu.Unlock()
	if free {
		s.admit()
	}
}

func (s *Scheduler) register(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[id] = cancel
}

func (s *Scheduler) unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, id)
}
