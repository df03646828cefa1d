package reminder

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"assistanthub/pkg/state"
)

var ErrNotFound = errors.New("reminder not found")

type SchedulerOptions struct {
	Notifier Notifier
	// StorePath persists pending reminders as JSON. Empty keeps them in memory only.
	StorePath string
	LogPrefix string
	// NotifyTimeout bounds one fan-out of a fired reminder.
	NotifyTimeout time.Duration
	Now           func() time.Time
}

func (o SchedulerOptions) withDefaults() SchedulerOptions {
	if o.Notifier == nil {
		o.Notifier = LogNotifier{LogPrefix: o.LogPrefix}
	}
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = time.Minute
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.StorePath = strings.TrimSpace(o.StorePath)
	return o
}

// Scheduler keeps pending reminders in a min-heap ordered by fire time and
// fires them from a single loop goroutine.
type Scheduler struct {
	opts SchedulerOptions

	mu    sync.Mutex
	queue fireQueue
	byID  map[string]*item
	wake  chan struct{}

	wg sync.WaitGroup
}

type storeFile struct {
	Reminders []Reminder `json:"reminders"`
}

// NewScheduler restores persisted reminders when a store path is set.
func NewScheduler(opts SchedulerOptions) (*Scheduler, error) {
	opts = opts.withDefaults()
	s := &Scheduler{
		opts: opts,
		byID: map[string]*item{},
		wake: make(chan struct{}, 1),
	}
	if opts.StorePath == "" {
		return s, nil
	}
	f, err := state.LoadJSONFile[storeFile](opts.StorePath)
	if err != nil {
		return nil, fmt.Errorf("load reminders %s: %w", opts.StorePath, err)
	}
	for _, r := range f.Reminders {
		if r.Status != StatusPending || strings.TrimSpace(r.ID) == "" {
			continue
		}
		rec, err := ParseRecurrence(string(r.Recurrence))
		if err != nil {
			log.Printf("%s reminder dropped on restore: id=%s err=%v", opts.LogPrefix, r.ID, err)
			continue
		}
		r.Recurrence = rec
		s.push(r)
	}
	if n := len(s.queue); n > 0 {
		log.Printf("%s reminders restored: count=%d path=%s", opts.LogPrefix, n, opts.StorePath)
	}
	return s, nil
}

// Schedule arms r. An empty ID is assigned; CreatedAt and Status are filled in.
func (s *Scheduler) Schedule(r Reminder) (Reminder, error) {
	if strings.TrimSpace(r.Task) == "" {
		return Reminder{}, fmt.Errorf("task is required")
	}
	if r.FireAt.IsZero() {
		return Reminder{}, fmt.Errorf("fire time is required")
	}
	rec, err := ParseRecurrence(string(r.Recurrence))
	if err != nil {
		return Reminder{}, err
	}
	r.Recurrence = rec
	if strings.TrimSpace(r.ID) == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.opts.Now()
	}
	r.Status = StatusPending

	s.mu.Lock()
	if _, exists := s.byID[r.ID]; exists {
		s.mu.Unlock()
		return Reminder{}, fmt.Errorf("reminder %s already scheduled", r.ID)
	}
	s.push(r)
	err = s.persistLocked()
	s.mu.Unlock()

	s.signal()
	log.Printf("%s reminder scheduled: id=%s fire_at=%s recurrence=%s delay=%s",
		s.opts.LogPrefix, r.ID, r.FireAt.Format(time.RFC3339), r.Recurrence, Delay(r.FireAt, s.opts.Now()).Truncate(time.Second))
	if err != nil {
		log.Printf("%s reminder persist failed: err=%v", s.opts.LogPrefix, err)
	}
	return r, nil
}

// Cancel removes a pending reminder.
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	it, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	heap.Remove(&s.queue, it.index)
	delete(s.byID, it.r.ID)
	err := s.persistLocked()
	s.mu.Unlock()

	s.signal()
	log.Printf("%s reminder cancelled: id=%s", s.opts.LogPrefix, id)
	if err != nil {
		log.Printf("%s reminder persist failed: err=%v", s.opts.LogPrefix, err)
	}
	return nil
}

// Pending returns reminders ordered by fire time. A non-empty sessionID filters.
func (s *Scheduler) Pending(sessionID string) []Reminder {
	s.mu.Lock()
	out := make([]Reminder, 0, len(s.queue))
	for _, it := range s.queue {
		if sessionID != "" && it.r.SessionID != sessionID {
			continue
		}
		out = append(out, it.r)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out
}

// Run fires due reminders until ctx is done, then waits for in-flight notifications.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	defer s.wg.Wait()

	for {
		due, next := s.popDue()
		for _, r := range due {
			s.fire(ctx, r)
		}

		wait := time.Hour
		if !next.IsZero() {
			wait = Delay(next, s.opts.Now())
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
		case <-timer.C:
		}
	}
}

// popDue removes every reminder whose fire time has come, re-arming recurring
// ones, and returns the next pending fire time.
func (s *Scheduler) popDue() ([]Reminder, time.Time) {
	now := s.opts.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Reminder
	changed := false
	for len(s.queue) > 0 && !s.queue[0].r.FireAt.After(now) {
		it := heap.Pop(&s.queue).(*item)
		delete(s.byID, it.r.ID)
		due = append(due, it.r)
		changed = true

		if it.r.Recurrence == None {
			continue
		}
		next := it.r
		next.FireAt = it.r.Recurrence.Next(it.r.FireAt)
		// Missed periods while stopped are skipped, not replayed.
		for !next.FireAt.IsZero() && !next.FireAt.After(now) {
			next.FireAt = next.Recurrence.Next(next.FireAt)
		}
		if next.FireAt.IsZero() {
			log.Printf("%s reminder not re-armed: id=%s recurrence=%q", s.opts.LogPrefix, it.r.ID, string(it.r.Recurrence))
			continue
		}
		s.push(next)
	}
	if changed {
		if err := s.persistLocked(); err != nil {
			log.Printf("%s reminder persist failed: err=%v", s.opts.LogPrefix, err)
		}
	}
	if len(s.queue) == 0 {
		return due, time.Time{}
	}
	return due, s.queue[0].r.FireAt
}

func (s *Scheduler) fire(ctx context.Context, r Reminder) {
	r.Status = StatusFired
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.NotifyTimeout)
		defer cancel()
		if err := s.opts.Notifier.Notify(nctx, r); err != nil {
			log.Printf("%s reminder notify failed: id=%s err=%v", s.opts.LogPrefix, r.ID, err)
		}
	}()
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) push(r Reminder) {
	it := &item{r: r}
	heap.Push(&s.queue, it)
	s.byID[r.ID] = it
}

func (s *Scheduler) persistLocked() error {
	if s.opts.StorePath == "" {
		return nil
	}
	f := storeFile{Reminders: make([]Reminder, 0, len(s.queue))}
	for _, it := range s.queue {
		f.Reminders = append(f.Reminders, it.r)
	}
	sort.Slice(f.Reminders, func(i, j int) bool { return f.Reminders[i].FireAt.Before(f.Reminders[j].FireAt) })
	return state.SaveJSONFileIndented(s.opts.StorePath, f)
}

type item struct {
	r     Reminder
	index int
}

type fireQueue []*item

func (q fireQueue) Len() int { return len(q) }

func (q fireQueue) Less(i, j int) bool { return q[i].r.FireAt.Before(q[j].r.FireAt) }

func (q fireQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *fireQueue) Push(x any) {
	it := x.(*item)
	it.index = len(*q)
	*q = append(*q, it)
}

func (q *fireQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*q = old[:n-1]
	return it
}
