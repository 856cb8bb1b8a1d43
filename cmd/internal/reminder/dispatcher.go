package reminder

import (
	"context"
	"fmt"
	"slotwise/cmd/internal/domain/entity"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

const (
	MaxAttempts = 5
	batchSize   = 100
)

type Store interface {
	FindDue(ctx context.Context, now int64, maxAttempts, limit int) ([]*entity.Reminder, error)
	MarkSent(ctx context.Context, id string, at int64) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

type Notifier interface {
	Notify(ctx context.Context, reminder *entity.Reminder) error
}

type Options struct {
	Now     func() time.Time
	Timeout time.Duration
	// Registerer for the delivery counter. Nil skips metrics.
	Registerer prometheus.Registerer
}

type Dispatcher struct {
	store     Store
	notifiers map[entity.Channel]Notifier
	now       func() time.Time
	timeout   time.Duration
	delivered *prometheus.CounterVec

	cron *cron.Cron
	mu   sync.Mutex
}

func NewDispatcher(store Store, notifiers map[entity.Channel]Notifier, opts Options) *Dispatcher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 50 * time.Second
	}

	d := &Dispatcher{
		store:     store,
		notifiers: notifiers,
		now:       opts.Now,
		timeout:   opts.Timeout,
	}
	if opts.Registerer != nil {
		d.delivered = registerCounter(opts.Registerer)
	}
	return d
}

func registerCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "slotwise",
		Subsystem: "reminders",
		Name:      "deliveries_total",
		Help:      "Reminder delivery attempts by channel and status.",
	}, []string{"channel", "status"})
	if err := reg.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return already.ExistingCollector.(*prometheus.CounterVec)
		}
		panic(err)
	}
	return counter
}

// Start runs a dispatch round on every tick of the cron spec. Rounds never overlap.
func (d *Dispatcher) Start(spec string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}

	d.mu.Lock()
	d.cron = c
	d.mu.Unlock()
	c.Start()
	return nil
}

// Stop waits for a running round to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	c := d.cron
	d.cron = nil
	d.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// RunOnce delivers every reminder that is due and returns how many were sent.
func (d *Dispatcher) RunOnce(ctx context.Context) int {
	now := d.now().UnixMilli()
	due, err := d.store.FindDue(ctx, now, MaxAttempts, batchSize)
	if err != nil {
		log.Errorf("failed to fetch due reminders: %v", err)
		return 0
	}

	sent := 0
	for _, r := range due {
		if ctx.Err() != nil {
			break
		}
		if d.deliver(ctx, r, now) {
			sent++
		}
	}
	if len(due) > 0 {
		log.Infof("reminder round finished: %d/%d sent", sent, len(due))
	}
	return sent
}

func (d *Dispatcher) deliver(ctx context.Context, r *entity.Reminder, now int64) bool {
	notifier, ok := d.notifiers[r.Channel]
	if !ok {
		d.fail(ctx, r, fmt.Sprintf("no notifier for channel %s", r.Channel))
		return false
	}

	if err := notifier.Notify(ctx, r); err != nil {
		log.Warnf("failed to send %s reminder %s (attempt %d): %v", r.Channel, r.ID, r.Attempts+1, err)
		d.fail(ctx, r, err.Error())
		return false
	}

	if err := d.store.MarkSent(ctx, r.ID, now); err != nil {
		log.Errorf("reminder %s was sent but could not be marked: %v", r.ID, err)
	}
	d.count(r.Channel, "sent")
	return true
}

func (d *Dispatcher) fail(ctx context.Context, r *entity.Reminder, reason string) {
	if err := d.store.MarkFailed(ctx, r.ID, reason); err != nil {
		log.Errorf("failed to record failure of reminder %s: %v", r.ID, err)
	}
	d.count(r.Channel, "failed")
}

func (d *Dispatcher) count(channel entity.Channel, status string) {
	if d.delivered != nil {
		d.delivered.WithLabelValues(string(channel), status).Inc()
	}
}
