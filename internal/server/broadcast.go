package server

import (
	"time"

	"go.uber.org/zap"

	"github.com/muurk/obsws/internal/logging"
	"github.com/muurk/obsws/internal/protocol"
)

// BroadcastEvent fans an event out to every identified session whose
// subscription mask matches requiredIntent. Delivery happens asynchronously
// on the worker pool, so callers never block on slow clients. The envelope
// is serialized at most once per encoding actually in use, no matter how
// many sessions receive it.
//
// Per-session delivery failures are logged and skipped; a dead client is
// cleaned up by its own read loop, not by the broadcast path.
func (s *Server) BroadcastEvent(requiredIntent protocol.EventIntent, eventType string, eventData map[string]any) {
	s.pool.Submit(func() {
		s.broadcast(requiredIntent, eventType, eventData)
	})
}

func (s *Server) broadcast(requiredIntent protocol.EventIntent, eventType string, eventData map[string]any) {
	start := time.Now()

	event := protocol.Event{
		MessageType: protocol.TypeEvent,
		EventType:   eventType,
		EventData:   eventData,
	}

	encoded := make(map[protocol.Encoding][]byte, 2)
	recipients := 0

	s.table.ForEach(func(sess *Session) {
		if !sess.IsIdentified() {
			return
		}
		if !sess.EventSubscriptions().Matches(requiredIntent) {
			return
		}

		data, ok := encoded[sess.Encoding()]
		if !ok {
			var err error
			data, err = protocol.Marshal(sess.Encoding(), event)
			if err != nil {
				logging.Error("Failed to serialize event",
					zap.String("event_type", eventType),
					zap.String("encoding", sess.Encoding().String()),
					zap.Error(err),
				)
				return
			}
			encoded[sess.Encoding()] = data
		}

		if err := sess.send(data); err != nil {
			logging.Warn("Failed to deliver event",
				zap.Uint64("session_id", sess.ID()),
				zap.String("event_type", eventType),
				zap.Error(err),
			)
			s.metrics.sendFailures.Inc()
			return
		}

		sess.incrementOutgoing()
		recipients++
	})

	s.metrics.eventsBroadcast.Inc()
	s.metrics.broadcastDuration.Observe(time.Since(start).Seconds())
	logging.LogBroadcast(eventType, recipients)
}
