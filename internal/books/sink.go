package books

import (
	"context"
	"log/slog"
)

// Sink receives the full workflow document after every successful
// mutation. The presentation layer (chat transport, artifact viewers)
// consumes these snapshots; this engine treats the channel as
// write-only and never blocks an action on delivery problems.
type Sink interface {
	Publish(ctx context.Context, state *BookState)
}

// LogSink records snapshot emissions through the structured logger.
// It stands in wherever no presentation channel is attached.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("sink", "log")}
}

func (s *LogSink) Publish(_ context.Context, state *BookState) {
	s.logger.Info(
		"workflow snapshot",
		"book_id", state.BookID,
		"current_step", state.CurrentStep,
		"revision", state.Revision,
	)
}

// MultiSink fans a snapshot out to every attached sink in order.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, state *BookState) {
	for _, sink := range m {
		sink.Publish(ctx, state)
	}
}
