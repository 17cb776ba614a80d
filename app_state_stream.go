package main

import (
	"context"
	"log/slog"
	"sync"

	"floatrans/internal/workerutil"
	"floatrans/internal/wsserver"
)

var topicEvents = map[string]string{
	wsserver.TopicTranslator: eventTranslatorState,
	wsserver.TopicShortcuts:  eventShortcutsState,
}

// stateStream fans state snapshots out to the runtime event bus and the
// WebSocket hub from a single worker. Producers call publish from inside
// translator and registry callbacks, which must not block; only the latest
// payload per topic is kept until the worker drains it.
type stateStream struct {
	app *App

	mu      sync.Mutex
	pending map[string]any
	order   []string
	wake    chan struct{}
}

func newStateStream(app *App) *stateStream {
	return &stateStream{
		app:     app,
		pending: map[string]any{},
		wake:    make(chan struct{}, 1),
	}
}

func (s *stateStream) publish(topic string, payload any) {
	s.mu.Lock()
	if _, queued := s.pending[topic]; !queued {
		s.order = append(s.order, topic)
	}
	s.pending[topic] = payload
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *stateStream) start(ctx context.Context) {
	workerutil.RunWithPanicRecovery(ctx, "state-stream", &s.app.bgWG, s.run, workerutil.RecoveryOptions{
		IsShutdown: s.app.shuttingDown.Load,
		OnPanic: func(worker string, attempt int) {
			s.app.emitRuntimeEvent(eventWorkerPanic, workerPanicEvent{Worker: worker, Attempt: attempt})
		},
	})
}

func (s *stateStream) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			s.flush()
		}
	}
}

// flush delivers every queued topic in first-queued order.
func (s *stateStream) flush() {
	s.mu.Lock()
	pending, order := s.pending, s.order
	s.pending, s.order = map[string]any{}, nil
	s.mu.Unlock()

	for _, topic := range order {
		payload := pending[topic]
		if name, ok := topicEvents[topic]; ok {
			s.app.emitRuntimeEvent(name, payload)
		}
		if hub := s.app.wsHub; hub != nil {
			if err := hub.Publish(topic, payload); err != nil {
				slog.Warn("[WS] state publish failed", "topic", topic, "error", err)
			}
		}
	}
}
