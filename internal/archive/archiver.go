// Package archive ships finished-game summaries to external sinks without
// blocking the hub loop.
package archive

import (
	"context"
	"log"
	"time"

	"quiz-room-service/internal/models"
)

// Sink stores or forwards one summary.
type Sink interface {
	Name() string
	SaveResult(ctx context.Context, summary models.GameSummary) error
}

type Archiver struct {
	sinks   []Sink
	queue   chan models.GameSummary
	timeout time.Duration
}

func NewArchiver(queueSize int, timeout time.Duration, sinks ...Sink) *Archiver {
	if queueSize <= 0 {
		queueSize = 64
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Archiver{
		sinks:   sinks,
		queue:   make(chan models.GameSummary, queueSize),
		timeout: timeout,
	}
}

// Record enqueues a summary. When the queue is full the summary is dropped
// and logged; archiving never slows down a game.
func (a *Archiver) Record(summary models.GameSummary) {
	if len(a.sinks) == 0 {
		return
	}
	select {
	case a.queue <- summary:
	default:
		log.Printf("Archive queue full, dropping results of room %s", summary.RoomID)
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (a *Archiver) Run(ctx context.Context) {
	for {
		select {
		case summary := <-a.queue:
			a.save(summary)
		case <-ctx.Done():
			for {
				select {
				case summary := <-a.queue:
					a.save(summary)
				default:
					return
				}
			}
		}
	}
}

func (a *Archiver) save(summary models.GameSummary) {
	for _, sink := range a.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := sink.SaveResult(ctx, summary); err != nil {
			log.Printf("Failed to archive room %s to %s: %v", summary.RoomID, sink.Name(), err)
		}
		cancel()
	}
}
