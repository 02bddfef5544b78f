// Package twofactor retrieves the one-time login code the broker mails
// after a password login.
package twofactor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neboloop/cocosbot/internal/logging"
	"github.com/neboloop/cocosbot/internal/metrics"
)

// ErrNoCode means no message from the sender held a code. The mailbox
// is left untouched.
var ErrNoCode = errors.New("no verification code found")

const (
	DefaultSender        = "no-reply@cocos.capital"
	DefaultDeliveryDelay = 20 * time.Second
)

// Retriever waits for the code mail and extracts the code from it.
type Retriever struct {
	dial      Dialer
	sender    string
	delay     time.Duration
	minFontPx float64
	sleep     func(ctx context.Context, d time.Duration) error
	metrics   *metrics.Metrics
	log       *logging.Entry
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithSender sets the address code mails come from.
func WithSender(sender string) Option {
	return func(r *Retriever) {
		if sender != "" {
			r.sender = sender
		}
	}
}

// WithDelay sets how long to wait for delivery before polling.
func WithDelay(d time.Duration) Option {
	return func(r *Retriever) { r.delay = d }
}

// WithMinFontPx sets the font size threshold of the code element.
func WithMinFontPx(px float64) Option {
	return func(r *Retriever) {
		if px > 0 {
			r.minFontPx = px
		}
	}
}

// WithSleep replaces the delivery wait, for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Retriever) { r.sleep = fn }
}

// WithMetrics records retrieval outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Retriever) { r.metrics = m }
}

// NewRetriever returns a Retriever reading through dial.
func NewRetriever(dial Dialer, opts ...Option) *Retriever {
	r := &Retriever{
		dial:      dial,
		sender:    DefaultSender,
		delay:     DefaultDeliveryDelay,
		minFontPx: DefaultMinFontPx,
		sleep:     sleep,
		log:       logging.WithComponent("twofactor"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Code waits the delivery delay, then returns the code from the newest
// message sent by the configured sender and deletes that message. It does
// not retry: a missing mail or code yields ErrNoCode.
func (r *Retriever) Code(ctx context.Context) (code string, err error) {
	defer func() {
		switch {
		case err == nil:
			r.metrics.TwoFactor("found")
		case errors.Is(err, ErrNoCode):
			r.metrics.TwoFactor("missing")
		default:
			r.metrics.TwoFactor("error")
		}
	}()

	if r.delay > 0 {
		r.log.Debugf("waiting %s for code delivery", r.delay)
		if err := r.sleep(ctx, r.delay); err != nil {
			return "", err
		}
	}

	mbox, err := r.dial(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := mbox.Close(); cerr != nil {
			r.log.WithError(cerr).Warn("mailbox logout failed")
		}
	}()

	uids, err := mbox.SearchFrom(ctx, r.sender)
	if err != nil {
		return "", err
	}
	if len(uids) == 0 {
		return "", fmt.Errorf("%w: no messages from %s", ErrNoCode, r.sender)
	}
	uid := newest(uids)

	raw, err := mbox.Fetch(ctx, uid)
	if err != nil {
		return "", err
	}
	code, err = ExtractCode(raw, r.minFontPx)
	if err != nil {
		return "", err
	}

	// A stale code left behind is harmless once a newer one arrives.
	if err := mbox.Delete(ctx, uid); err != nil {
		r.log.WithError(err).Warnf("could not delete message %d", uid)
	}
	r.log.Infof("retrieved code from message %d", uid)
	return code, nil
}

// newest returns the highest UID. Servers do not promise an order.
func newest(uids []uint32) uint32 {
	max := uids[0]
	for _, u := range uids[1:] {
		if u > max {
			max = u
		}
	}
	return max
}
