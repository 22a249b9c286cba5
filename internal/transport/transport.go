// Package transport wraps the concrete messaging backends behind a uniform
// send capability. Nothing in this package propagates a transport error past
// the boundary: a failed send is logged and reported as false.
package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/models"
)

// Sender delivers one message to one destination.
type Sender interface {
	Send(ctx context.Context, destination, text string) bool
}

// Disabled stands in for a channel whose credentials were not configured.
// Startup proceeds; status reporting surfaces the gap.
type Disabled struct {
	Channel string
	Log     *slog.Logger
}

func (d Disabled) Send(_ context.Context, destination, _ string) bool {
	if d.Log != nil {
		d.Log.Debug("channel disabled, dropping message",
			slog.String("channel", d.Channel),
			slog.String("destination", destination),
		)
	}
	return false
}

// RetryPolicy bounds per-destination delivery attempts. The default of one
// attempt matches the baseline no-retry behavior; raise MaxAttempts to get
// bounded exponential backoff between attempts.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	base := p.BackoffBase
	if base <= 0 {
		base = time.Second
	}
	d := base << uint(attempt)
	if p.BackoffCap > 0 && d > p.BackoffCap {
		d = p.BackoffCap
	}
	return d
}

// Fanout sends identical content to every configured broadcast destination.
type Fanout struct {
	sender       Sender
	destinations []string
	policy       RetryPolicy
	timeout      time.Duration
	log          *slog.Logger
}

// NewFanout wires a sender to its destination list. timeout bounds each
// individual send attempt; zero disables the bound.
func NewFanout(sender Sender, destinations []string, policy RetryPolicy, timeout time.Duration, log *slog.Logger) *Fanout {
	return &Fanout{
		sender:       sender,
		destinations: destinations,
		policy:       policy,
		timeout:      timeout,
		log:          log,
	}
}

// Destinations reports how many broadcast destinations are configured.
func (f *Fanout) Destinations() int { return len(f.destinations) }

// Dispatch delivers text to every destination, applying the retry policy per
// destination. The returned outcomes always cover all destinations; partial
// failure never aborts the sweep.
func (f *Fanout) Dispatch(ctx context.Context, text string) []models.DeliveryOutcome {
	outcomes := make([]models.DeliveryOutcome, 0, len(f.destinations))
	for _, dest := range f.destinations {
		outcomes = append(outcomes, models.DeliveryOutcome{
			Destination: dest,
			OK:          f.deliver(ctx, dest, text),
		})
	}
	return outcomes
}

func (f *Fanout) deliver(ctx context.Context, dest, text string) bool {
	attempts := f.policy.attempts()
	for attempt := 0; attempt < attempts; attempt++ {
		sendCtx := ctx
		cancel := context.CancelFunc(func() {})
		if f.timeout > 0 {
			sendCtx, cancel = context.WithTimeout(ctx, f.timeout)
		}
		ok := f.sender.Send(sendCtx, dest, text)
		cancel()
		if ok {
			return true
		}
		if attempt+1 >= attempts {
			break
		}

		wait := f.policy.backoff(attempt)
		f.log.Warn("send failed, retrying",
			slog.String("destination", dest),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", wait),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return false
		}
	}
	return false
}
