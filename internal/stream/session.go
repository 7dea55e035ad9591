package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/crm-api/pkg/metrics"
)

var errSourceClosed = errors.New("notification source closed")

type flushWriter interface {
	io.Writer
	http.Flusher
}

// session is the per-connection state of one open stream.
type session struct {
	w            flushWriter
	userID       int64
	nextID       uint64
	lastActivity time.Time
	metrics      *metrics.Metrics
}

func newSession(w flushWriter, userID int64, m *metrics.Metrics) *session {
	return &session{w: w, userID: userID, metrics: m}
}

// run writes the connected event and then merges the subscription queue with
// the keep-alive ticker until ctx ends, a write fails or the queue is closed.
func (s *session) run(ctx context.Context, sub *Subscription, pingInterval time.Duration) error {
	if err := s.send(ConnectedEvent(s.userID)); err != nil {
		return err
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-sub.C:
			if !ok {
				// best effort, the client may already be gone
				_ = s.send(ErrorEvent(errSourceClosed.Error()))
				return errSourceClosed
			}
			if err := s.send(ev); err != nil {
				return err
			}

		case <-ticker.C:
			if err := s.send(PingEvent()); err != nil {
				return err
			}
		}
	}
}

// send encodes ev and flushes it. A payload that cannot be encoded is replaced
// by an error event so the stream stays usable.
func (s *session) send(ev Event) error {
	data, err := marshalPayload(ev)
	if err != nil {
		log.Error().Err(err).Int64("user_id", s.userID).Str("event", ev.Name).Msg("failed to encode stream event")
		ev = ErrorEvent("failed to encode " + ev.Name)
		if data, err = marshalPayload(ev); err != nil {
			return err
		}
	}

	if err := encodeFrame(s.w, s.nextID, ev.Name, data); err != nil {
		return err
	}
	s.w.Flush()

	s.nextID++
	s.lastActivity = time.Now()
	s.metrics.StreamEvent(ev.Name)
	return nil
}
