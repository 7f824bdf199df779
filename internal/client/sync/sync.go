// Package sync implements the client-resident write queue: create-operations
// committed while offline (or not yet confirmed) are persisted locally and
// drained to the backend with retry, exponential backoff, and idempotent
// dedup against already-synced aliases.
package sync

import (
	"context"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/arhen/satset.io/internal/domain"
	"github.com/arhen/satset.io/internal/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Status is broadcast to subscribers after every queue transition.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusOffline Status = "offline"
	StatusError   Status = "error"
	StatusSuccess Status = "success"
)

const (
	// maxRetries caps synchronization attempts per task; a task at the cap
	// is dropped permanently.
	maxRetries = 5

	baseBackoff = time.Second
	maxBackoff  = 30 * time.Second

	// drainDelay coalesces bursts of enqueues into one pass.
	drainDelay = 100 * time.Millisecond
)

// Task is one pending create-operation. At most one task exists per alias.
type Task struct {
	ID          string `json:"id"`
	Alias       string `json:"alias"`
	OriginalURL string `json:"originalUrl"`
	CreatedAt   int64  `json:"createdAt"`
	RetryCount  int    `json:"retryCount"`
}

// SyncedURL records server-confirmed state. Its presence for an alias
// supersedes any queued task for that alias.
type SyncedURL struct {
	Alias       string `json:"alias"`
	OriginalURL string `json:"originalUrl"`
	SyncedAt    int64  `json:"syncedAt"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// Store is the durable local persistence behind the queue.
type Store interface {
	LoadQueue() ([]Task, error)
	SaveQueue(tasks []Task) error
	LoadSynced() (map[string]SyncedURL, error)
	SaveSynced(synced map[string]SyncedURL) error
}

// Creator is the backend call a drain performs per task.
type Creator interface {
	CreateURL(ctx context.Context, req *domain.CreateURLRequest) (*domain.CreateURLResponse, error)
}

// Listener receives status broadcasts. A panicking listener is isolated and
// never disturbs the queue or the other listeners.
type Listener func(status Status, message string)

type Queue struct {
	mu           stdsync.Mutex
	store        Store
	creator      Creator
	online       bool
	draining     bool
	status       Status
	listeners    map[int]Listener
	nextListener int
	retryTimer   *time.Timer
	now          func() time.Time
	newID        func() string
}

func NewQueue(store Store, creator Creator) *Queue {
	return &Queue{
		store:     store,
		creator:   creator,
		online:    true,
		status:    StatusIdle,
		listeners: make(map[int]Listener),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Subscribe registers a status listener and returns its disposer.
func (q *Queue) Subscribe(l Listener) func() {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := q.nextListener
	q.nextListener++
	q.listeners[id] = l

	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.listeners, id)
	}
}

func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.status
}

func (q *Queue) Online() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.online
}

// SetOnline records a connectivity transition. Coming online triggers an
// immediate drain attempt; going offline broadcasts the offline status and
// turns any scheduled retry into a no-op until connectivity returns.
func (q *Queue) SetOnline(online bool) {
	q.mu.Lock()
	was := q.online
	q.online = online
	q.mu.Unlock()

	if online == was {
		return
	}

	if online {
		go q.Drain(context.Background())
	} else {
		q.notify(StatusOffline, "No internet connection. Your link is not ready to use.")
	}
}

// Enqueue commits a pending create for alias. It is idempotent: an alias
// already confirmed by the server, or already waiting in the queue, is left
// untouched.
func (q *Queue) Enqueue(alias, originalURL string) error {
	q.mu.Lock()

	synced, err := q.store.LoadSynced()
	if err != nil {
		q.mu.Unlock()
		return err
	}
	if _, ok := synced[alias]; ok {
		q.mu.Unlock()
		return nil
	}

	tasks, err := q.store.LoadQueue()
	if err != nil {
		q.mu.Unlock()
		return err
	}
	for _, t := range tasks {
		if t.Alias == alias {
			q.mu.Unlock()
			return nil
		}
	}

	tasks = append(tasks, Task{
		ID:          q.newID(),
		Alias:       alias,
		OriginalURL: originalURL,
		CreatedAt:   q.now().UnixMilli(),
		RetryCount:  0,
	})
	if err := q.store.SaveQueue(tasks); err != nil {
		q.mu.Unlock()
		return err
	}

	online := q.online
	q.mu.Unlock()

	if online {
		time.AfterFunc(drainDelay, func() { q.Drain(context.Background()) })
	} else {
		q.notify(StatusOffline, "No internet connection. Your link is not ready to use.")
	}

	return nil
}

func (q *Queue) IsPending(alias string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	tasks, err := q.store.LoadQueue()
	if err != nil {
		return false
	}
	for _, t := range tasks {
		if t.Alias == alias {
			return true
		}
	}
	return false
}

func (q *Queue) IsSynced(alias string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	synced, err := q.store.LoadSynced()
	if err != nil {
		return false
	}
	_, ok := synced[alias]
	return ok
}

func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	tasks, err := q.store.LoadQueue()
	if err != nil {
		return 0
	}
	return len(tasks)
}

// Drain attempts every pending task concurrently and settles the queue from
// the per-task outcomes. Only one drain runs at a time; a drain started while
// another is in flight returns immediately. Offline drains touch nothing.
func (q *Queue) Drain(ctx context.Context) Status {
	q.mu.Lock()
	if q.draining {
		status := q.status
		q.mu.Unlock()
		return status
	}
	if !q.online {
		q.mu.Unlock()
		q.notify(StatusOffline, "No internet connection. Your link is not ready to use.")
		return StatusOffline
	}

	tasks, err := q.store.LoadQueue()
	if err != nil {
		q.mu.Unlock()
		q.notify(StatusError, "Failed to load sync queue")
		return StatusError
	}
	if len(tasks) == 0 {
		q.mu.Unlock()
		q.notify(StatusIdle, "")
		return StatusIdle
	}

	q.draining = true
	q.mu.Unlock()

	q.notify(StatusSyncing, "")

	succeeded := make([]bool, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		g.Go(func() error {
			succeeded[i] = q.processTask(gctx, task)
			return nil
		})
	}
	g.Wait()

	q.mu.Lock()

	var remaining []Task
	processed := make(map[string]bool, len(tasks))
	hasSuccess := false
	hasTerminal := false

	for i, task := range tasks {
		processed[task.ID] = true
		if succeeded[i] {
			hasSuccess = true
			continue
		}

		task.RetryCount++
		if task.RetryCount < maxRetries {
			remaining = append(remaining, task)
		} else {
			hasTerminal = true
			logger.Get().Warn("Dropping sync task after retry cap",
				slog.String("alias", task.Alias),
				slog.Int("retries", task.RetryCount),
			)
		}
	}

	// Tasks enqueued while this pass was in flight stay queued.
	if current, err := q.store.LoadQueue(); err == nil {
		for _, t := range current {
			if !processed[t.ID] {
				remaining = append(remaining, t)
			}
		}
	}

	if err := q.store.SaveQueue(remaining); err != nil {
		logger.Get().Error("Failed to save sync queue", slog.String("error", err.Error()))
	}

	q.draining = false
	q.mu.Unlock()

	switch {
	case len(remaining) > 0:
		q.scheduleRetry(remaining[0].RetryCount)
		q.notify(StatusError, "Some links are still syncing...")
		return StatusError
	case hasTerminal:
		q.notify(StatusError, "Failed to sync some links")
		return StatusError
	case hasSuccess:
		q.notify(StatusSuccess, "Link synced successfully!")
		return StatusSuccess
	default:
		q.notify(StatusIdle, "")
		return StatusIdle
	}
}

func (q *Queue) processTask(ctx context.Context, task Task) bool {
	if task.OriginalURL == "" {
		return false
	}

	resp, err := q.creator.CreateURL(ctx, &domain.CreateURLRequest{
		OriginalURL: task.OriginalURL,
		Alias:       task.Alias,
	})
	if err != nil {
		logger.Get().Warn("Sync create failed",
			slog.String("alias", task.Alias),
			slog.String("error", err.Error()),
		)
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	synced, err := q.store.LoadSynced()
	if err != nil {
		return false
	}
	// Keyed by the requested alias; the server may have substituted a
	// different one on collision, which the record carries.
	synced[task.Alias] = SyncedURL{
		Alias:       resp.Alias,
		OriginalURL: task.OriginalURL,
		SyncedAt:    q.now().UnixMilli(),
		ExpiresAt:   resp.ExpiresAt,
	}
	if err := q.store.SaveSynced(synced); err != nil {
		return false
	}

	return true
}

func (q *Queue) scheduleRetry(retryCount int) {
	delay := baseBackoff << retryCount
	if delay > maxBackoff || delay <= 0 {
		delay = maxBackoff
	}

	q.mu.Lock()
	if q.retryTimer != nil {
		q.retryTimer.Stop()
	}
	q.retryTimer = time.AfterFunc(delay, func() {
		if q.Online() {
			q.Drain(context.Background())
		}
	})
	q.mu.Unlock()
}

func (q *Queue) notify(status Status, message string) {
	q.mu.Lock()
	q.status = status
	snapshot := make([]Listener, 0, len(q.listeners))
	for _, l := range q.listeners {
		snapshot = append(snapshot, l)
	}
	q.mu.Unlock()

	for _, l := range snapshot {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Get().Error("Sync listener panicked", slog.Any("panic", r))
				}
			}()
			l(status, message)
		}()
	}
}
