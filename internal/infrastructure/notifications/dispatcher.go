package notifications

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/you/accountsvc/domain"
)

// DispatcherConfig sizes the background delivery pool
type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher implements domain.MessageDispatcher with a bounded queue and a fixed worker pool.
// Delivery failures are logged and not retried.
type Dispatcher struct {
	sender   domain.NotificationService
	renderer *Renderer
	cfg      DispatcherConfig
	log      *slog.Logger

	queue chan domain.Message
	stop  chan struct{}
	wg    sync.WaitGroup
	start sync.Once
	halt  sync.Once

	// mu orders Enqueue against Stop: nothing is accepted once stopped is set
	mu      sync.RWMutex
	stopped bool

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

func NewDispatcher(sender domain.NotificationService, renderer *Renderer, cfg DispatcherConfig, log *slog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		sender:   sender,
		renderer: renderer,
		cfg:      cfg,
		log:      log,
		queue:    make(chan domain.Message, cfg.QueueSize),
		stop:     make(chan struct{}),
	}
}

// Start launches the workers; they exit when ctx is done or Stop is called
func (d *Dispatcher) Start(ctx context.Context) {
	d.start.Do(func() {
		for i := 0; i < d.cfg.Workers; i++ {
			d.wg.Add(1)
			go d.work(ctx)
		}
		d.log.Info("message dispatcher started", slog.Int("workers", d.cfg.Workers), slog.Int("queue_size", d.cfg.QueueSize))
	})
}

// Stop refuses new messages, delivers what is already queued and waits for the workers
func (d *Dispatcher) Stop() {
	d.halt.Do(func() {
		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()
		close(d.stop)
		d.wg.Wait()
		d.log.Info("message dispatcher stopped",
			slog.Int64("sent", d.sent.Load()),
			slog.Int64("failed", d.failed.Load()),
			slog.Int64("dropped", d.dropped.Load()))
	})
}

// Enqueue implements domain.MessageDispatcher; it never blocks and reports whether msg was accepted
func (d *Dispatcher) Enqueue(msg domain.Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.drop(msg, "dispatcher stopped")
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		d.drop(msg, "queue full")
		return false
	}
}

// Stats returns delivery counters
func (d *Dispatcher) Stats() (sent, failed, dropped int64) {
	return d.sent.Load(), d.failed.Load(), d.dropped.Load()
}

func (d *Dispatcher) drop(msg domain.Message, reason string) {
	d.dropped.Add(1)
	d.log.Warn("message dropped",
		slog.String("reason", reason),
		slog.String("kind", string(msg.Kind)),
		slog.String("account_id", msg.AccountID))
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stop:
			d.drain(ctx)
			return
		case msg := <-d.queue:
			d.deliver(ctx, msg)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case msg := <-d.queue:
			d.deliver(ctx, msg)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg domain.Message) {
	log := d.log.With(slog.String("kind", string(msg.Kind)), slog.String("channel", string(msg.Channel)), slog.String("account_id", msg.AccountID))

	rendered, err := d.renderer.Render(msg)
	if err != nil {
		d.failed.Add(1)
		log.Error("message render failed", slog.Any("error", err))
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.SendTimeout)
	defer cancel()

	switch msg.Channel {
	case domain.ChannelSMS:
		err = d.sender.SendSMS(sendCtx, msg.Destination, rendered.Body)
	default:
		err = d.sender.SendEmail(sendCtx, msg.Destination, rendered.Subject, rendered.Body)
	}
	if err != nil {
		d.failed.Add(1)
		log.Error("message delivery failed", slog.Any("error", err))
		return
	}
	d.sent.Add(1)
	log.Debug("message delivered")
}
