package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/crm-api/internal/model"
	"github.com/jwalitptl/crm-api/pkg/logger"
	"github.com/jwalitptl/crm-api/pkg/messaging"
)

const (
	DefaultRelayAttempts = 5
	DefaultRelayBackoff  = 500 * time.Millisecond
	maxRelayBackoff      = 30 * time.Second
)

var errSubscriptionEnded = errors.New("broker ended the subscription")

// Relay consumes envelopes from the broker and feeds the local hub.
type Relay struct {
	broker   messaging.Broker
	hub      *Hub
	channel  string
	logger   *logger.Logger
	attempts int
	backoff  time.Duration
}

func NewRelay(broker messaging.Broker, hub *Hub, channel string, log *logger.Logger) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Relay{
		broker:   broker,
		hub:      hub,
		channel:  channel,
		logger:   log,
		attempts: DefaultRelayAttempts,
		backoff:  DefaultRelayBackoff,
	}
}

// WithRetry sets how many consecutive failed subscriptions Serve tolerates and
// the initial delay between them. Non-positive values keep the defaults.
func (r *Relay) WithRetry(attempts int, backoff time.Duration) *Relay {
	if attempts > 0 {
		r.attempts = attempts
	}
	if backoff > 0 {
		r.backoff = backoff
	}
	return r
}

// Run blocks until ctx is cancelled or the broker closes the subscription.
func (r *Relay) Run(ctx context.Context) error {
	_, err := r.run(ctx)
	return err
}

// Serve keeps the relay subscribed until ctx ends, resubscribing with
// exponential backoff. Once the retries are exhausted the hub is closed, which
// ends every open stream with an error event and rejects new ones.
func (r *Relay) Serve(ctx context.Context) error {
	failures := 0
	delay := r.backoff
	for {
		subscribed, err := r.run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if subscribed {
			failures = 0
			delay = r.backoff
		}

		failures++
		if failures >= r.attempts {
			r.logger.Error(err, "notification relay giving up, closing open streams",
				"channel", r.channel, "attempts", failures)
			r.hub.Close()
			return err
		}

		r.logger.Warn("notification relay interrupted, retrying",
			"channel", r.channel, "attempt", failures, "delay", delay.String(), "error", err.Error())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxRelayBackoff {
			delay = maxRelayBackoff
		}
	}
}

// run reports whether the subscription was established before it ended.
func (r *Relay) run(ctx context.Context) (bool, error) {
	msgs, err := r.broker.Subscribe(ctx, r.channel)
	if err != nil {
		return false, fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	r.logger.Info("notification relay started", "channel", r.channel)
	for msg := range msgs {
		r.dispatch(msg)
	}
	r.logger.Info("notification relay stopped", "channel", r.channel)
	if err := ctx.Err(); err != nil {
		return true, err
	}
	return true, errSubscriptionEnded
}

func (r *Relay) dispatch(msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil || env.UserID <= 0 {
		if err == nil {
			err = fmt.Errorf("missing user_id")
		}
		r.logger.Warn("dropping malformed envelope", "error", err.Error())
		return
	}

	var n model.Notification
	if err := json.Unmarshal(env.Notification, &n); err != nil {
		r.logger.Warn("failed to decode notification", "user_id", env.UserID, "error", err.Error())
		r.hub.Publish(env.UserID, ErrorEvent("failed to decode notification"))
		return
	}
	if n.UserID != env.UserID {
		r.logger.Warn("envelope user does not own notification",
			"user_id", env.UserID, "notification_user", n.UserID, "notification_id", n.ID)
		return
	}

	r.hub.Publish(env.UserID, NotificationEvent(&n))
}
