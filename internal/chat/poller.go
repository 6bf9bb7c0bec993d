package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/lab-equipment-reservation/internal/model"
)

// Fetcher loads a single reservation snapshot.
type Fetcher interface {
	Get(ctx context.Context, id string) (*model.Reservation, error)
}

// Newer reports whether next may replace held.  It compares the version
// counter when both carry one, then updated_at when both carry one, and
// finally the message count.  Equal snapshots are accepted.
func Newer(held, next *model.Reservation) bool {
	if held == nil {
		return true
	}
	if next == nil {
		return false
	}
	if held.Version > 0 && next.Version > 0 {
		return next.Version >= held.Version
	}
	if !held.UpdatedAt.IsZero() && !next.UpdatedAt.IsZero() {
		return !next.UpdatedAt.Before(held.UpdatedAt)
	}
	return len(next.Messages) >= len(held.Messages)
}

// Poller keeps at most one dialog refreshing at a time.
type Poller struct {
	fetch    Fetcher
	interval time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	current *Dialog
}

// NewPoller returns a poller refreshing every interval (1s when ≤ 0).
func NewPoller(fetch Fetcher, interval time.Duration, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{fetch: fetch, interval: interval, log: log}
}

// Open starts polling reservation id and stops the previously open
// dialog, waiting for its goroutine to exit.  onUpdate runs on the
// polling goroutine for every accepted snapshot.  The wait happens
// outside the poller lock, so onUpdate may call Active; it must not
// call Open or Stop itself, since those wait for its own goroutine.
func (p *Poller) Open(id string, initial *model.Reservation, onUpdate func(*model.Reservation)) *Dialog {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dialog{
		id:       id,
		held:     initial,
		onUpdate: onUpdate,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	p.mu.Lock()
	prev := p.current
	if prev != nil {
		prev.cancel()
	}
	p.current = d
	go p.run(ctx, d)
	p.mu.Unlock()

	if prev != nil {
		<-prev.done
	}
	return d
}

// Active returns the open dialog, or nil.
func (p *Poller) Active() *Dialog {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil && p.current.Closed() {
		return nil
	}
	return p.current
}

// Stop closes the open dialog, if any, and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	prev := p.current
	p.current = nil
	p.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
}

func (p *Poller) run(ctx context.Context, d *Dialog) {
	defer close(d.done)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		snap, err := p.fetch.Get(ctx, d.id)
		if err != nil {
			if ctx.Err() == nil {
				p.log.Debug("poll reservation", zap.String("reservation_id", d.id), zap.Error(err))
			}
			continue
		}
		if ctx.Err() != nil {
			return
		}
		d.Merge(snap)
	}
}

// Dialog is one open chat thread.
type Dialog struct {
	id       string
	onUpdate func(*model.Reservation)
	cancel   context.CancelFunc
	done     chan struct{}

	mu   sync.Mutex
	held *model.Reservation
}

// ID is the reservation being polled.
func (d *Dialog) ID() string { return d.id }

// Merge installs snap if it is not older than the held snapshot.  Send
// responses and poll responses both go through Merge, so whichever lands
// last cannot roll the thread back.
func (d *Dialog) Merge(snap *model.Reservation) bool {
	d.mu.Lock()
	if !Newer(d.held, snap) {
		d.mu.Unlock()
		return false
	}
	d.held = snap
	d.mu.Unlock()
	if d.onUpdate != nil {
		d.onUpdate(snap)
	}
	return true
}

// Snapshot returns the currently held reservation.
func (d *Dialog) Snapshot() *model.Reservation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.held
}

// Close stops polling and waits for the goroutine to exit.  It is safe
// to call more than once but must not be called from onUpdate.
func (d *Dialog) Close() {
	d.cancel()
	<-d.done
}

// Closed reports whether the polling goroutine has exited.
func (d *Dialog) Closed() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Done is closed once polling has stopped.
func (d *Dialog) Done() <-chan struct{} { return d.done }
