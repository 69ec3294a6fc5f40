package eventlogger

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type Worker struct {
	eventCh chan Event
	sink    Sink
	log     *logrus.Logger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewWorker(sink Sink, bufferSize int, log *logrus.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		eventCh: make(chan Event, bufferSize),
		sink:    sink,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				w.log.WithField("remaining_events", len(w.eventCh)).Info("draining events before shutdown")
				for len(w.eventCh) > 0 {
					event := <-w.eventCh
					if err := w.sink.Save(context.Background(), event); err != nil {
						w.log.WithError(err).WithField("event_type", event.Type).Error("failed to save event during shutdown")
					}
				}
				return
			case event := <-w.eventCh:
				if err := w.sink.Save(w.ctx, event); err != nil {
					w.log.WithError(err).WithField("event_type", event.Type).Error("failed to save event")
				}
			}
		}
	}()
}

// Log queues the event without blocking. A full buffer drops it.
func (w *Worker) Log(event Event) {
	select {
	case w.eventCh <- event:
	default:
		w.log.WithField("event_type", event.Type).Warn("event channel full, dropping event")
	}
}

func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}
